// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - Model listing command handler for lmterm CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lmterm/internal/modelmgr"
	"github.com/jeranaias/lmterm/internal/ui/styles"
)

var (
	loadedStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// HandleModels lists the models the server exposes, marking the one
// currently loaded.
func HandleModels(args Args) {
	cfg := loadConfig(args)
	svc := newService(cfg)

	ctx, cancel := commandContext()
	defer cancel()

	models, err := svc.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", humanizeClientError(err))
		os.Exit(1)
	}

	rec := modelmgr.NewReconciler(svc)
	res := rec.Reconcile(ctx)
	loadedID := ""
	if res.Loaded() {
		loadedID = res.ModelID
	}

	if args.JSON {
		type entry struct {
			ID     string `json:"id"`
			Loaded bool   `json:"loaded"`
		}
		out := make([]entry, 0, len(models))
		for _, m := range models {
			out = append(out, entry{ID: m.ID, Loaded: m.ID == loadedID})
		}
		if err := outputJSON(out); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(models) == 0 {
		fmt.Println("No models available on the server.")
		return
	}

	colored := ColorsEnabled()
	for _, m := range models {
		if m.ID == loadedID {
			line := "* " + m.ID + "  (loaded)"
			if colored {
				line = loadedStyle.Render(line)
			}
			fmt.Println(line)
			continue
		}
		line := "  " + m.ID
		if colored {
			line = dimStyle.Render("  ") + m.ID
		}
		fmt.Println(line)
	}

	if !args.Quiet {
		fmt.Printf("\n%d models. Load one with: lmterm load <model-id>\n", len(models))
	}
}
