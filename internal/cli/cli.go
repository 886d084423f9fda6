// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and dispatch for lmterm.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota // TUI chat, the default
	CmdAsk
	CmdModels
	CmdLoad
	CmdUnload
	CmdStatus
	CmdHistory
	CmdConfig
	CmdSpeak
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Model   string
	Host    string
	Port    string

	// Command-specific
	Query        string
	Subcommand   string
	ConfigKey    string
	ConfigVal    string
	ConfigValSet bool

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `lmterm - terminal chat client for LM Studio servers

lmterm talks to any server exposing the LM Studio / OpenAI-compatible
API: chat with streaming responses, manage loaded models, and search
your chat history, all from the terminal.

Usage:
  lmterm                     Start the chat TUI (default)
  lmterm chat                Start the chat TUI
  lmterm chat --repl         Plain line-based REPL (dumb terminals)
  lmterm ask "question"      Ask a single question and exit
  lmterm models              List available models
  lmterm load <model>        Load a model on the server
  lmterm unload [model]      Unload the current model
  lmterm status, s           Show server and model status
  lmterm history [subcmd]    Chat history (list|search|show|export|delete)
  lmterm config [subcmd]     Configuration (show|get|set|reset|path)
  lmterm speak [text]        Check or exercise text-to-speech
  lmterm version             Show version
  lmterm help                Show this help

History Commands:
  lmterm history                   List saved chats
  lmterm history search <query>    Full-text search across chats
  lmterm history show <id|index>   Print one chat
  lmterm history export <id|index> Export a chat
    --format md|json               Export format (default: md)
  lmterm history delete <id|index> Delete a chat
  lmterm history clear --confirm   Delete all chats

Config Commands:
  lmterm config                    Show the full configuration
  lmterm config get <key>          Print one value (dot notation)
  lmterm config set <key> <value>  Set one value
  lmterm config keys               List all known keys
  lmterm config reset --confirm    Restore defaults
  lmterm config path               Print the config file location

Global Flags:
  -m, --model NAME    Use a specific model (overrides config)
  --host HOST         Server host (overrides config)
  --port PORT         Server port (overrides config)
  --json              JSON output where supported
  -q, --quiet         Minimal output
  -v, --verbose       Verbose output

Environment:
  LMTERM_HOST, LMTERM_PORT, LMTERM_MODEL, LMTERM_HIDE_THINKING
  override the config file.`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Println(usageText)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("lmterm %s (%s, built %s, %s/%s)\n",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// Parse reads os.Args into a command and its arguments.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

// parseArgs is the testable core of Parse.
func parseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdChat, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "chat", "tui":
		return CmdChat, args

	case "ask":
		args.Query = strings.Join(positionals(remaining), " ")
		return CmdAsk, args

	case "models", "model", "ls":
		return CmdModels, args

	case "load":
		if len(remaining) > 0 {
			args.Query = remaining[0]
		}
		return CmdLoad, args

	case "unload":
		if len(remaining) > 0 {
			args.Query = remaining[0]
		}
		return CmdUnload, args

	case "status", "s":
		return CmdStatus, args

	case "history", "chats":
		if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
			args.Subcommand = remaining[0]
			args.Raw = remaining[1:]
		}
		return CmdHistory, args

	case "config":
		parseConfigArgs(&args, remaining)
		return CmdConfig, args

	case "speak", "say":
		args.Query = strings.Join(positionals(remaining), " ")
		return CmdSpeak, args

	case "version", "--version", "-V":
		return CmdVersion, args

	case "help", "--help", "-h":
		return CmdHelp, args

	default:
		// Unknown first word: treat the whole line as an ask query,
		// so `lmterm what is a monad` still works.
		args.Query = strings.Join(append([]string{cmd}, positionals(remaining)...), " ")
		return CmdAsk, args
	}
}

// parseGlobalFlags strips global flags from the argument list.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "-m", "--model":
			if i+1 < len(argv) {
				i++
				args.Model = argv[i]
			}
		case "--host":
			if i+1 < len(argv) {
				i++
				args.Host = argv[i]
			}
		case "--port":
			if i+1 < len(argv) {
				i++
				args.Port = argv[i]
			}
		default:
			remaining = append(remaining, argv[i])
		}
	}

	return remaining, args
}

func parseConfigArgs(args *Args, remaining []string) {
	pos := positionals(remaining)
	if len(pos) == 0 {
		args.Subcommand = "show"
		return
	}
	args.Subcommand = pos[0]
	if len(pos) > 1 {
		args.ConfigKey = pos[1]
	}
	if len(pos) > 2 {
		args.ConfigVal = strings.Join(pos[2:], " ")
		args.ConfigValSet = true
	}
}

// positionals filters out flag-looking tokens.
func positionals(argv []string) []string {
	var out []string
	for _, a := range argv {
		if !strings.HasPrefix(a, "-") {
			out = append(out, a)
		}
	}
	return out
}

// HandleVersion prints version info, as JSON when requested.
func HandleVersion(args Args) {
	if args.JSON {
		outputJSON(map[string]string{
			"version":    Version,
			"git_commit": GitCommit,
			"build_date": BuildDate,
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		})
		return
	}
	PrintVersion()
}

// HandleHelp prints usage.
func HandleHelp() {
	PrintUsage()
}
