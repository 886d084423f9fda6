// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// load.go - Model load/unload command handlers for lmterm CLI.
//
// Loading goes through the driver so the CLI gets the same retry and
// verification behavior the TUI does. Large models can take minutes,
// so the load context uses the client's load timeout, not the short
// one-shot command timeout.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/lmterm/internal/modelmgr"
	"github.com/jeranaias/lmterm/internal/ui/styles"
)

// loadTimeout bounds a model load from the CLI.
const loadTimeout = 10 * time.Minute

// HandleLoad loads a model into server memory.
func HandleLoad(args Args) {
	modelID := args.Query
	if modelID == "" {
		modelID = args.Model
	}
	if modelID == "" {
		fmt.Fprintln(os.Stderr, "error: load requires a model id")
		fmt.Fprintln(os.Stderr, "usage: lmterm load <model-id>")
		fmt.Fprintln(os.Stderr, "see available models with: lmterm models")
		os.Exit(1)
	}

	cfg := loadConfig(args)
	svc := newService(cfg)
	driver := modelmgr.NewDriver(svc)

	if !args.Quiet {
		fmt.Printf("Loading %s (this can take a while for large models)...\n", modelID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	start := time.Now()
	if err := driver.Load(ctx, modelID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", humanizeClientError(err))
		os.Exit(1)
	}

	if args.JSON {
		_ = outputJSON(map[string]string{
			"model":    modelID,
			"status":   "loaded",
			"duration": formatDuration(time.Since(start)),
		})
		return
	}
	fmt.Println(styles.RenderSuccess(fmt.Sprintf("loaded %s in %s",
		modelID, formatDuration(time.Since(start)))))
}

// HandleUnload unloads a model from server memory.
func HandleUnload(args Args) {
	cfg := loadConfig(args)
	svc := newService(cfg)

	modelID := args.Query
	if modelID == "" {
		// No id given: unload whatever is loaded.
		rec := modelmgr.NewReconciler(svc)
		ctx, cancel := commandContext()
		res := rec.Reconcile(ctx)
		cancel()
		if !res.Loaded() {
			fmt.Println("No model is loaded.")
			return
		}
		modelID = res.ModelID
	}

	ctx, cancel := commandContext()
	defer cancel()

	if err := svc.UnloadModel(ctx, modelID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", humanizeClientError(err))
		os.Exit(1)
	}
	svc.Invalidate()

	if args.JSON {
		_ = outputJSON(map[string]string{"model": modelID, "status": "unloaded"})
		return
	}
	fmt.Println(styles.RenderSuccess("unloaded " + modelID))
}
