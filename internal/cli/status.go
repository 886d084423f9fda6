// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Server status command handler for lmterm CLI.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/lmterm/internal/config"
	"github.com/jeranaias/lmterm/internal/modelmgr"
	"github.com/jeranaias/lmterm/internal/storage"
	"github.com/jeranaias/lmterm/internal/ui/styles"
)

// HandleStatus reports server reachability, the loaded model, and
// local state in one view.
func HandleStatus(args Args) {
	cfg := loadConfig(args)
	svc := newService(cfg)

	ctx, cancel := commandContext()
	defer cancel()

	start := time.Now()
	reachErr := svc.CheckRunning(ctx)
	latency := time.Since(start)

	loadedID := ""
	modelCount := 0
	if reachErr == nil {
		if models, err := svc.ListModels(ctx); err == nil {
			modelCount = len(models)
		}
		rec := modelmgr.NewReconciler(svc)
		if res := rec.Reconcile(ctx); res.Loaded() {
			loadedID = res.ModelID
		}
	}

	chatCount := 0
	if store, err := storage.NewChatStore(); err == nil {
		if metas, err := store.List(); err == nil {
			chatCount = len(metas)
		}
	}

	cfgPath, _ := config.Path()

	if args.JSON {
		out := map[string]interface{}{
			"server":      cfg.Server.BaseURL(),
			"reachable":   reachErr == nil,
			"latency_ms":  latency.Milliseconds(),
			"model":       loadedID,
			"modelCount":  modelCount,
			"chatCount":   chatCount,
			"config_path": cfgPath,
		}
		if reachErr != nil {
			out["error"] = humanizeClientError(reachErr)
		}
		if err := outputJSON(out); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("lmterm status")
	fmt.Println()
	fmt.Printf("  Server:  %s\n", cfg.Server.BaseURL())
	if reachErr == nil {
		fmt.Printf("  Status:  %s (%s)\n",
			styles.RenderStatus(true, "online"), formatDuration(latency))
		if loadedID != "" {
			fmt.Printf("  Model:   %s\n", loadedID)
		} else {
			fmt.Printf("  Model:   %s\n", styles.RenderWarning("none loaded"))
		}
		fmt.Printf("  Models:  %d available\n", modelCount)
	} else {
		fmt.Printf("  Status:  %s\n", styles.RenderStatus(false, "offline"))
		fmt.Printf("           %s\n", humanizeClientError(reachErr))
	}
	fmt.Println()
	fmt.Printf("  Chats:   %d saved\n", chatCount)
	fmt.Printf("  Config:  %s\n", cfgPath)

	if reachErr != nil {
		os.Exit(1)
	}
}
