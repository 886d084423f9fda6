// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// speak.go - Text-to-speech command handler for lmterm CLI.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/lmterm/internal/tts"
)

// HandleSpeak reads text from the arguments or stdin and speaks it.
// With no arguments and a piped stdin, `lmterm ask ... | lmterm speak`
// reads the answer aloud.
func HandleSpeak(args Args) {
	cfg := loadConfig(args)

	text := args.Query
	if text == "" && !IsTTY() {
		var sb strings.Builder
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			sb.WriteString(scanner.Text())
			sb.WriteString("\n")
		}
		text = strings.TrimSpace(sb.String())
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "error: speak requires text")
		fmt.Fprintln(os.Stderr, "usage: lmterm speak \"text\"  (or pipe text in)")
		os.Exit(1)
	}

	engine := tts.NewEngine(cfg.TTS.Voice)
	if engine.Name() == "none" {
		fmt.Fprintln(os.Stderr, "error: no speech synthesizer found on PATH")
		fmt.Fprintln(os.Stderr, "install espeak-ng (Linux) or use the built-in `say` (macOS)")
		os.Exit(1)
	}

	if args.Verbose {
		fmt.Fprintf(os.Stderr, "speaking via %s\n", engine.Name())
	}

	if err := engine.Speak(context.Background(), text); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
