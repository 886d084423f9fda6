// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - Chat history command handlers for lmterm CLI.
//
// Subcommands: list (default), search, show, export, delete, clear.
// Chats can be referenced by index from `history` output or by id.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jeranaias/lmterm/internal/history"
	"github.com/jeranaias/lmterm/internal/model"
	"github.com/jeranaias/lmterm/internal/storage"
	"github.com/jeranaias/lmterm/internal/ui/styles"
)

// HandleHistory dispatches history subcommands.
func HandleHistory(args Args) {
	store, err := storage.NewChatStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	switch args.Subcommand {
	case "", "list", "ls":
		historyList(store, args)
	case "search":
		historySearch(store, args)
	case "show":
		historyShow(store, args)
	case "export":
		historyExport(store, args)
	case "delete", "rm":
		historyDelete(store, args)
	case "clear":
		historyClear(store, args)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown history subcommand %q\n", args.Subcommand)
		fmt.Fprintln(os.Stderr, "usage: lmterm history [search|show|export|delete|clear]")
		os.Exit(1)
	}
}

func historyList(store *storage.ChatStore, args Args) {
	metas, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if args.JSON {
		if err := outputJSON(metas); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(metas) == 0 {
		fmt.Println("No saved chats yet. Start one with: lmterm chat")
		return
	}
	fmt.Print(storage.FormatChatList(metas))
}

func historySearch(store *storage.ChatStore, args Args) {
	query := strings.Join(positionals(args.Raw), " ")
	if query == "" {
		fmt.Fprintln(os.Stderr, "error: search requires a query")
		fmt.Fprintln(os.Stderr, "usage: lmterm history search <query>")
		os.Exit(1)
	}

	cfg := history.DefaultConfig(store.BaseDir)
	cfg.EnableWatch = false
	idx, err := history.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx, cancel := commandContext()
	defer cancel()

	if err := idx.Reindex(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	hits, err := idx.Search(query, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if args.JSON {
		if err := outputJSON(hits); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(hits) == 0 {
		fmt.Printf("No matches for %q.\n", query)
		return
	}

	for _, h := range hits {
		title := h.ChatTitle
		if title == "" {
			title = h.ChatID
		}
		fmt.Printf("%s  [%s]\n", title, h.Role)
		fmt.Printf("  %s\n", formatSnippet(h.Snippet))
	}
	if !args.Quiet {
		fmt.Printf("\n%d matches. Show a chat with: lmterm history show <id>\n", len(hits))
	}
}

// formatSnippet converts FTS >>term<< markers into terminal emphasis.
func formatSnippet(snippet string) string {
	if !ColorsEnabled() {
		snippet = strings.ReplaceAll(snippet, ">>", "")
		return strings.ReplaceAll(snippet, "<<", "")
	}
	snippet = strings.ReplaceAll(snippet, ">>", "\x1b[1;33m")
	return strings.ReplaceAll(snippet, "<<", "\x1b[0m")
}

func historyShow(store *storage.ChatStore, args Args) {
	conv := mustResolveChat(store, args, "show")

	if args.JSON {
		data, err := storage.ExportJSON(conv)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		fmt.Println()
		return
	}

	md := storage.ExportMarkdown(conv)
	if IsStdoutTTY() && ColorsEnabled() {
		printRendered(md, false)
		return
	}
	fmt.Print(md)
}

func historyExport(store *storage.ChatStore, args Args) {
	conv := mustResolveChat(store, args, "export")

	format := flagValue(args.Raw, "format")
	if format == "" {
		format = "md"
	}

	var data []byte
	switch format {
	case "md", "markdown":
		data = []byte(storage.ExportMarkdown(conv))
	case "json":
		var err error
		data, err = storage.ExportJSON(conv)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unknown format %q (md or json)\n", format)
		os.Exit(1)
	}

	output := flagValue(args.Raw, "output")
	if output == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if !args.Quiet {
		fmt.Println(styles.RenderSuccess("exported to " + output))
	}
}

func historyDelete(store *storage.ChatStore, args Args) {
	conv := mustResolveChat(store, args, "delete")

	if !confirmed(args.Raw) {
		answer := promptInput(fmt.Sprintf("Delete %q? [y/N] ", conv.Title))
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Println("Aborted.")
			return
		}
	}

	if err := store.Delete(conv.ID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(styles.RenderSuccess("deleted " + conv.Title))
}

func historyClear(store *storage.ChatStore, args Args) {
	metas, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(metas) == 0 {
		fmt.Println("No saved chats.")
		return
	}

	if !confirmed(args.Raw) {
		fmt.Fprintf(os.Stderr, "This deletes all %d saved chats. Re-run with --confirm.\n", len(metas))
		os.Exit(1)
	}

	if err := store.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(styles.RenderSuccess(fmt.Sprintf("deleted %d chats", len(metas))))
}

// mustResolveChat loads a chat by index or id from the subcommand's
// first positional argument, exiting with usage on failure.
func mustResolveChat(store *storage.ChatStore, args Args, sub string) *model.Conversation {
	pos := positionals(args.Raw)
	if len(pos) == 0 {
		fmt.Fprintf(os.Stderr, "error: %s requires a chat id or index\n", sub)
		fmt.Fprintf(os.Stderr, "usage: lmterm history %s <id|index>\n", sub)
		os.Exit(1)
	}
	ref := pos[0]

	if n, err := strconv.Atoi(ref); err == nil {
		conv, err := store.LoadByIndex(n)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return conv
	}

	conv, err := store.Load(ref)
	if err == nil {
		return conv
	}

	// The list output truncates ids, so accept a unique prefix.
	metas, lerr := store.List()
	if lerr == nil {
		var match string
		for _, m := range metas {
			if strings.HasPrefix(m.ID, ref) {
				if match != "" {
					fmt.Fprintf(os.Stderr, "error: id prefix %q is ambiguous\n", ref)
					os.Exit(1)
				}
				match = m.ID
			}
		}
		if match != "" {
			conv, err = store.Load(match)
			if err == nil {
				return conv
			}
		}
	}

	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
	return nil
}
