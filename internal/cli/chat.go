// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for lmterm CLI.
//
// The default entry point. On a capable terminal this launches the
// Bubble Tea TUI; on dumb terminals (or with --repl) it falls back to
// a liner-based line REPL with history and /commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/lmterm/internal/api"
	"github.com/jeranaias/lmterm/internal/config"
	"github.com/jeranaias/lmterm/internal/history"
	"github.com/jeranaias/lmterm/internal/lmstudio"
	"github.com/jeranaias/lmterm/internal/model"
	"github.com/jeranaias/lmterm/internal/modelmgr"
	"github.com/jeranaias/lmterm/internal/storage"
	"github.com/jeranaias/lmterm/internal/tts"
	"github.com/jeranaias/lmterm/internal/ui/chat"
	"github.com/jeranaias/lmterm/internal/ui/styles"
	"github.com/jeranaias/lmterm/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	warnStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)
)

// =============================================================================
// ENTRY POINT
// =============================================================================

// HandleChat starts interactive chat: the TUI by default, the REPL on
// dumb terminals or when --repl is passed.
func HandleChat(args Args) {
	cfg := loadConfig(args)

	useREPL := IsDumbTerminal()
	for _, a := range args.Raw {
		if a == "--repl" {
			useREPL = true
		}
	}

	if useREPL {
		runREPL(cfg, args)
		return
	}
	runTUI(cfg)
}

// runTUI launches the full-screen Bubble Tea chat.
func runTUI(cfg *config.Config) {
	svc := newService(cfg)
	driver := modelmgr.NewDriver(svc)
	rec := modelmgr.NewReconciler(svc)

	store, err := storage.NewChatStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	engine := tts.NewEngine(cfg.TTS.Voice)
	theme := styles.NewTheme(cfg.UI.LightTheme)

	m := chat.New(theme, cfg, svc, driver, rec, store, engine)

	// Config edits (from another terminal or an editor) apply live.
	watcher, werr := config.NewWatcher(func(updated *config.Config) {
		config.SetGlobal(updated)
	})
	if werr == nil {
		go func() { _ = watcher.Watch() }()
		defer watcher.Close()
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// LINE REPL
// =============================================================================

// replInput wraps liner with persistent input history.
type replInput struct {
	line        *liner.State
	historyFile string
}

// replHistoryPath returns where REPL input history lives. ConfigDir
// already ends in the app directory.
func replHistoryPath() string {
	dir, err := util.ConfigDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), "lmterm")
	}
	return filepath.Join(dir, "repl_history")
}

func newREPLInput() *replInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &replInput{
		line:        line,
		historyFile: replHistoryPath(),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *replInput) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *replInput) close() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0755); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// runREPL is the plain line-based chat loop.
func runREPL(cfg *config.Config, args Args) {
	svc := newService(cfg)
	store, err := storage.NewChatStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	modelID := resolveModel(cfg, svc)
	conv := model.NewConversation()
	conv.SystemPrompt = cfg.Chat.SystemPrompt
	conv.AutoTitle = cfg.Chat.AutoTitles
	conv.Model = modelID

	input := newREPLInput()
	defer input.close()

	if !args.Quiet {
		fmt.Println(infoStyle.Render("lmterm REPL. /help for commands, /quit to exit."))
		if modelID != "" {
			fmt.Println(infoStyle.Render("model: " + modelID))
		}
	}

	for {
		text, err := input.read(promptStyle.Render("> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
				continue
			}
			break // EOF / Ctrl+D
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			if quit := handleREPLCommand(text, cfg, svc, store, conv, &modelID); quit {
				break
			}
			continue
		}

		streamREPLResponse(cfg, svc, conv, modelID, text)
	}

	if !conv.IsEmpty() {
		conv.Model = modelID
		if _, err := store.Save(conv); err != nil {
			fmt.Fprintln(os.Stderr, warnStyle.Render("could not save chat: "+err.Error()))
		}
	}
}

// handleREPLCommand runs a /command. Returns true to exit the loop.
func handleREPLCommand(text string, cfg *config.Config, svc *api.Service,
	store *storage.ChatStore, conv *model.Conversation, modelID *string) bool {

	fields := strings.Fields(text)
	switch fields[0] {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h":
		fmt.Println(infoStyle.Render(`Commands:
  /model [name]   Show or switch the model
  /models         List available models
  /search <query> Search saved chats
  /clear          Clear conversation history
  /save           Save the conversation now
  /thinking       Toggle thinking visibility
  /quit           Exit`))

	case "/clear":
		conv.ClearHistory()
		fmt.Println(infoStyle.Render("history cleared"))

	case "/save":
		conv.Model = *modelID
		path, err := store.Save(conv)
		if err != nil {
			fmt.Fprintln(os.Stderr, warnStyle.Render("save failed: "+err.Error()))
		} else {
			fmt.Println(infoStyle.Render("saved " + path))
		}

	case "/thinking":
		cfg.Chat.HideThinking = !cfg.Chat.HideThinking
		if cfg.Chat.HideThinking {
			fmt.Println(infoStyle.Render("thinking hidden"))
		} else {
			fmt.Println(infoStyle.Render("thinking shown"))
		}

	case "/search":
		if len(fields) < 2 {
			fmt.Println(warnStyle.Render("usage: /search <query>"))
			break
		}
		replSearch(store, strings.Join(fields[1:], " "))

	case "/models":
		ctx, cancel := commandContext()
		models, err := svc.ListModels(ctx)
		cancel()
		if err != nil {
			fmt.Fprintln(os.Stderr, warnStyle.Render(err.Error()))
			break
		}
		for _, mdl := range models {
			marker := "  "
			if mdl.ID == *modelID {
				marker = "* "
			}
			fmt.Println(marker + mdl.ID)
		}

	case "/model":
		if len(fields) > 1 {
			*modelID = fields[1]
			conv.Model = *modelID
			fmt.Println(infoStyle.Render("model set to " + *modelID))
		} else {
			fmt.Println(infoStyle.Render("model: " + *modelID))
		}

	default:
		fmt.Println(warnStyle.Render("unknown command " + fields[0]))
	}
	return false
}

// replSearch runs a history search from inside the REPL. Index
// failures print a warning rather than interrupting the chat.
func replSearch(store *storage.ChatStore, query string) {
	hcfg := history.DefaultConfig(store.BaseDir)
	hcfg.EnableWatch = false
	idx, err := history.Open(hcfg)
	if err != nil {
		fmt.Println(warnStyle.Render("search unavailable: " + err.Error()))
		return
	}
	defer idx.Close()

	ctx, cancel := commandContext()
	defer cancel()

	if err := idx.Reindex(ctx); err != nil {
		fmt.Println(warnStyle.Render("search unavailable: " + err.Error()))
		return
	}
	hits, err := idx.Search(query, nil)
	if err != nil {
		fmt.Println(warnStyle.Render("search failed: " + err.Error()))
		return
	}
	if len(hits) == 0 {
		fmt.Println(infoStyle.Render("no matches"))
		return
	}
	for _, h := range hits {
		title := h.ChatTitle
		if title == "" {
			title = h.ChatID
		}
		fmt.Printf("%s  %s\n", infoStyle.Render(title), formatSnippet(h.Snippet))
	}
}

// streamREPLResponse sends one turn and streams the answer to stdout.
func streamREPLResponse(cfg *config.Config, svc *api.Service,
	conv *model.Conversation, modelID, text string) {

	conv.AddUserMessage(text)
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

	hide := cfg.Chat.HideThinking
	printer := newThinkingPrinter(hide)

	err := svc.ChatStream(ctx, req, func(chunk lmstudio.StreamChunk) {
		printer.write(chunk.GetContent())
		conv.AppendToLast(chunk.GetContent())
	})
	printer.finish()
	fmt.Println()

	conv.FinalizeLast(nil)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, warnStyle.Render(humanizeClientError(err)))
	}
}

// thinkOpenTag is the reasoning-block opener the printer must not let
// through partially.
const thinkOpenTag = "<think>"

// thinkingPrinter streams tokens to stdout, optionally suppressing a
// leading reasoning block. It prints the delta of the display form
// after each chunk, withholding output while the buffer is still an
// ambiguous prefix of the opening tag.
type thinkingPrinter struct {
	out     io.Writer
	hide    bool
	raw     strings.Builder
	printed int
}

func newThinkingPrinter(hide bool) *thinkingPrinter {
	return &thinkingPrinter{out: os.Stdout, hide: hide}
}

func (p *thinkingPrinter) write(token string) {
	if token == "" {
		return
	}
	p.raw.WriteString(token)
	p.emit(false)
}

func (p *thinkingPrinter) finish() {
	p.emit(true)
}

func (p *thinkingPrinter) emit(final bool) {
	display := p.raw.String()
	if p.hide {
		// Hold output while the buffer could still turn into an
		// opening tag, otherwise a tag split across chunks leaks its
		// first bytes and desyncs the printed counter. A stream that
		// ends on such a prefix was never a reasoning block, so the
		// raw text flushes on finish.
		trimmed := strings.TrimLeft(display, " \t\r\n")
		if len(trimmed) < len(thinkOpenTag) && strings.HasPrefix(thinkOpenTag, trimmed) {
			if !final {
				return
			}
		} else {
			display = model.StripThinking(display)
		}
	}
	if len(display) > p.printed {
		io.WriteString(p.out, display[p.printed:])
		p.printed = len(display)
	}
}

// resolveModel asks the reconciler which model is loaded. When nothing
// is loaded and a default is configured, it is loaded here, so one-shot
// commands work on a freshly started server.
func resolveModel(cfg *config.Config, svc *api.Service) string {
	rec := modelmgr.NewReconciler(svc)
	driver := modelmgr.NewDriver(svc)

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	id, err := driver.AutoLoad(ctx, rec, cfg.Model.DefaultID)
	if err != nil {
		return cfg.Model.DefaultID
	}
	return id
}

// humanizeClientError maps client errors to short messages.
func humanizeClientError(err error) string {
	switch {
	case lmstudio.IsUnreachable(err):
		return "cannot reach the server; is it running?"
	case lmstudio.IsTimeout(err):
		return "the server took too long to respond"
	case lmstudio.IsModelNotFound(err):
		return "that model is not available on the server"
	default:
		return err.Error()
	}
}
