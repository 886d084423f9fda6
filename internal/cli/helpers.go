// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared helpers for lmterm CLI command handlers.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/lmterm/internal/api"
	"github.com/jeranaias/lmterm/internal/config"
	"github.com/jeranaias/lmterm/internal/lmstudio"
)

// commandTimeout bounds one-shot CLI calls against the server.
const commandTimeout = 30 * time.Second

// loadConfig loads the configuration with env and flag overrides
// applied. Flags win over environment, environment wins over file.
func loadConfig(args Args) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		cfg = config.Default()
	}
	cfg.ApplyEnvOverrides()

	if args.Host != "" {
		cfg.Server.Host = args.Host
	}
	if args.Port != "" {
		if err := cfg.Set("server.port", args.Port); err != nil {
			fmt.Fprintf(os.Stderr, "warning: invalid --port %q\n", args.Port)
		}
	}
	if args.Model != "" {
		cfg.Model.DefaultID = args.Model
	}
	return cfg
}

// newService builds the API service for the configured server.
func newService(cfg *config.Config) *api.Service {
	clientCfg := lmstudio.DefaultConfig()
	clientCfg.BaseURL = cfg.Server.BaseURL()
	return api.NewService(lmstudio.NewClientWithConfig(clientCfg))
}

// outputJSON writes data as indented JSON to stdout.
func outputJSON(data interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// promptInput reads one line from stdin.
func promptInput(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// confirmed checks for a --confirm flag in the raw args.
func confirmed(raw []string) bool {
	for _, a := range raw {
		if a == "--confirm" || a == "-y" {
			return true
		}
	}
	return false
}

// flagValue extracts --name VALUE or --name=VALUE from raw args.
func flagValue(raw []string, name string) string {
	prefix := "--" + name
	for i, a := range raw {
		if a == prefix && i+1 < len(raw) {
			return raw[i+1]
		}
		if strings.HasPrefix(a, prefix+"=") {
			return strings.TrimPrefix(a, prefix+"=")
		}
	}
	return ""
}

// formatDuration renders a duration compactly for status output.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

// commandContext returns a bounded context for one-shot commands.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}
