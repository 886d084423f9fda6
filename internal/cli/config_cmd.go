// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration command handlers for lmterm CLI.
//
// Subcommands: show (default), get, set, keys, reset, path. Values are
// addressed by dotted keys, e.g. `lmterm config set chat.temperature 0.8`.
package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/lmterm/internal/config"
	"github.com/jeranaias/lmterm/internal/ui/styles"
)

// HandleConfig dispatches config subcommands.
func HandleConfig(args Args) {
	switch args.Subcommand {
	case "", "show":
		configShow(args)
	case "get":
		configGet(args)
	case "set":
		configSet(args)
	case "keys":
		configKeys(args)
	case "reset":
		configReset(args)
	case "path":
		configPath(args)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown config subcommand %q\n", args.Subcommand)
		fmt.Fprintln(os.Stderr, "usage: lmterm config [show|get|set|keys|reset|path]")
		os.Exit(1)
	}
}

func configShow(args Args) {
	cfg := loadConfig(args)

	if args.JSON {
		if err := outputJSON(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	for _, key := range config.GetAllKeys() {
		val, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("%-28s = %v\n", key, val)
	}
}

func configGet(args Args) {
	if args.ConfigKey == "" {
		fmt.Fprintln(os.Stderr, "error: get requires a key")
		fmt.Fprintln(os.Stderr, "usage: lmterm config get <key>")
		os.Exit(1)
	}

	cfg := loadConfig(args)
	val, err := cfg.Get(args.ConfigKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		fmt.Fprintln(os.Stderr, "see keys with: lmterm config keys")
		os.Exit(1)
	}

	if args.JSON {
		_ = outputJSON(map[string]interface{}{args.ConfigKey: val})
		return
	}
	fmt.Printf("%v\n", val)
}

func configSet(args Args) {
	if args.ConfigKey == "" || !args.ConfigValSet {
		fmt.Fprintln(os.Stderr, "error: set requires a key and a value")
		fmt.Fprintln(os.Stderr, "usage: lmterm config set <key> <value>")
		os.Exit(1)
	}

	// Mutate the file config, not the env/flag-overridden view, so
	// LMTERM_* values from this invocation don't get written to disk.
	cfg, err := config.LoadFileOnly()
	if err != nil {
		cfg = config.Default()
	}

	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	val, _ := cfg.Get(args.ConfigKey)
	fmt.Println(styles.RenderSuccess(fmt.Sprintf("%s = %v", args.ConfigKey, val)))
}

func configKeys(args Args) {
	keys := config.GetAllKeys()
	if args.JSON {
		_ = outputJSON(keys)
		return
	}
	for _, k := range keys {
		fmt.Println(k)
	}
}

func configReset(args Args) {
	if !confirmed(args.Raw) {
		fmt.Fprintln(os.Stderr, "This resets all settings to defaults. Re-run with --confirm.")
		os.Exit(1)
	}

	if err := config.Save(config.Default()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(styles.RenderSuccess("configuration reset to defaults"))
}

func configPath(args Args) {
	path, err := config.Path()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if args.JSON {
		_ = outputJSON(map[string]string{"path": path})
		return
	}
	fmt.Println(path)
}
