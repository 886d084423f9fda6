// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command handler for lmterm CLI.
//
// `lmterm ask "question"` sends a single prompt and exits. On a TTY the
// answer is buffered and rendered as markdown; when piped, tokens are
// streamed raw so the output composes with other tools.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/lmterm/internal/lmstudio"
	"github.com/jeranaias/lmterm/internal/model"
)

// HandleAsk sends a single question to the server and prints the answer.
func HandleAsk(args Args) {
	if args.Query == "" {
		fmt.Fprintln(os.Stderr, "error: ask requires a question")
		fmt.Fprintln(os.Stderr, "usage: lmterm ask \"your question\"")
		os.Exit(1)
	}

	cfg := loadConfig(args)
	svc := newService(cfg)

	modelID := resolveModel(cfg, svc)
	if modelID == "" {
		fmt.Fprintln(os.Stderr, "error: no model loaded and no default configured")
		fmt.Fprintln(os.Stderr, "load one with: lmterm load <model-id>")
		os.Exit(1)
	}

	conv := model.NewConversation()
	conv.SystemPrompt = cfg.Chat.SystemPrompt
	conv.AutoTitle = false
	conv.Model = modelID
	conv.AddUserMessage(args.Query)
	conv.AddAssistantMessage()

	temp := cfg.Chat.Temperature
	req := &lmstudio.ChatRequest{
		Model:       modelID,
		Messages:    conv.ToChatMessages(),
		Temperature: &temp,
		Stream:      true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A TTY gets the pretty path: collect everything, render once.
	// Piped output streams tokens as they arrive.
	pretty := IsStdoutTTY() && !args.JSON && ColorsEnabled()
	var printer *thinkingPrinter
	if !pretty && !args.JSON {
		printer = newThinkingPrinter(cfg.Chat.HideThinking)
	}

	acc := lmstudio.NewStreamAccumulator()
	err := svc.ChatStream(ctx, req, func(chunk lmstudio.StreamChunk) {
		acc.Add(chunk)
		conv.AppendToLast(chunk.GetContent())
		if printer != nil {
			printer.write(chunk.GetContent())
		}
	})
	if printer != nil {
		printer.finish()
		fmt.Println()
	}
	conv.FinalizeLast(nil)

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %s\n", humanizeClientError(err))
		os.Exit(1)
	}

	raw := conv.Messages[len(conv.Messages)-1].RawContent()
	stats := acc.GetStats()

	if args.JSON {
		thinking, answer, _ := model.SplitThinking(raw)
		out := map[string]interface{}{
			"model":    modelID,
			"question": args.Query,
			"answer":   answer,
			"tokens":   stats.TokenCount,
		}
		if thinking != "" && !cfg.Chat.HideThinking {
			out["thinking"] = thinking
		}
		if err := outputJSON(out); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if pretty {
		printRendered(raw, cfg.Chat.HideThinking)
	}

	if args.Verbose {
		tps := 0.0
		if stats.TotalTime > 0 {
			tps = float64(stats.TokenCount) / stats.TotalTime.Seconds()
		}
		fmt.Fprintf(os.Stderr, "%d tokens in %s (first token %s, %.1f tok/s)\n",
			stats.TokenCount, formatDuration(stats.TotalTime),
			formatDuration(stats.FirstTokenTime), tps)
	}
}

// printRendered renders a finished answer as markdown to stdout.
func printRendered(raw string, hideThinking bool) {
	display := convDisplay(raw, hideThinking)

	width := GetTerminalWidth()
	if width > 100 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		fmt.Println(display)
		return
	}
	out, err := r.Render(display)
	if err != nil {
		fmt.Println(display)
		return
	}
	fmt.Print(out)
}

// convDisplay formats raw assistant content for terminal display,
// quoting any reasoning block.
func convDisplay(raw string, hideThinking bool) string {
	m := model.NewAssistantMessage()
	m.AppendToken(raw)
	m.FinalizeStream(nil)
	return m.DisplayContent(hideThinking)
}
