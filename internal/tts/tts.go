// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tts speaks assistant replies through whatever speech
// synthesizer the host system provides.
package tts

import (
	"context"
	"os/exec"
	"runtime"
	"sync"
)

// =============================================================================
// ENGINE INTERFACE
// =============================================================================

// Engine speaks text aloud. Implementations must be safe for use from a
// single goroutine; Stop may be called from any goroutine.
type Engine interface {
	// Name identifies the backend ("say", "espeak-ng", "none").
	Name() string

	// Speak synthesizes the text, blocking until playback finishes or
	// the context is cancelled.
	Speak(ctx context.Context, text string) error

	// Stop interrupts any in-progress speech.
	Stop()
}

// candidates lists known synthesizer binaries in preference order.
func candidates() []string {
	if runtime.GOOS == "darwin" {
		return []string{"say", "espeak-ng", "espeak", "flite"}
	}
	return []string{"espeak-ng", "espeak", "flite"}
}

// NewEngine finds the first available synthesizer on PATH. If none is
// installed a no-op engine is returned, so callers never need a nil
// check.
func NewEngine(voice string) Engine {
	for _, name := range candidates() {
		if path, err := exec.LookPath(name); err == nil {
			return &execEngine{
				name:  name,
				path:  path,
				voice: voice,
			}
		}
	}
	return noopEngine{}
}

// =============================================================================
// EXEC-BACKED ENGINE
// =============================================================================

// execEngine shells out to a system synthesizer.
type execEngine struct {
	name  string
	path  string
	voice string

	mu  sync.Mutex
	cmd *exec.Cmd
}

func (e *execEngine) Name() string {
	return e.name
}

// Speak runs the synthesizer. Only one utterance plays at a time; a new
// call interrupts the previous one.
func (e *execEngine) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	e.Stop()

	cmd := exec.CommandContext(ctx, e.path, speakArgs(e.name, e.voice, text)...)

	e.mu.Lock()
	e.cmd = cmd
	e.mu.Unlock()

	err := cmd.Run()

	e.mu.Lock()
	if e.cmd == cmd {
		e.cmd = nil
	}
	e.mu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Stop kills any in-progress utterance.
func (e *execEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd != nil && e.cmd.Process != nil {
		e.cmd.Process.Kill()
		e.cmd = nil
	}
}

// speakArgs builds the argument list for a given backend. Text is passed
// as a single argument, never through a shell.
func speakArgs(engine, voice, text string) []string {
	var args []string
	switch engine {
	case "say":
		if voice != "" {
			args = append(args, "-v", voice)
		}
		args = append(args, text)
	case "espeak-ng", "espeak":
		if voice != "" {
			args = append(args, "-v", voice)
		}
		args = append(args, text)
	case "flite":
		if voice != "" {
			args = append(args, "-voice", voice)
		}
		args = append(args, "-t", text)
	default:
		args = append(args, text)
	}
	return args
}

// =============================================================================
// NO-OP ENGINE
// =============================================================================

// noopEngine is used when no synthesizer is installed.
type noopEngine struct{}

func (noopEngine) Name() string                              { return "none" }
func (noopEngine) Speak(ctx context.Context, s string) error { return nil }
func (noopEngine) Stop()                                     {}
