// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// SEARCH RESULT
// =============================================================================

// SearchHit is a single matching message.
type SearchHit struct {
	ChatID    string
	ChatTitle string
	MessageID string
	Role      string
	Snippet   string
	Timestamp time.Time
	Rank      float64
}

// SearchOptions configures search behavior.
type SearchOptions struct {
	// MaxResults limits the number of results (0 = unlimited)
	MaxResults int

	// Roles filters by message role (empty = all roles)
	Roles []string
}

// DefaultSearchOptions returns default search options.
func DefaultSearchOptions() *SearchOptions {
	return &SearchOptions{
		MaxResults: 50,
	}
}

// =============================================================================
// SEARCH METHODS
// =============================================================================

// Search finds messages matching the query using full-text search.
// Returned snippets mark matched terms with >> and <<.
func (idx *ChatIndex) Search(query string, options *SearchOptions) ([]SearchHit, error) {
	if !idx.IsIndexed() {
		return nil, ErrNotIndexed
	}

	if options == nil {
		options = DefaultSearchOptions()
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return []SearchHit{}, nil
	}

	sqlQuery := `
		SELECT
			m.chat_id, c.title, m.message_id, m.role, m.timestamp,
			snippet(messages_fts, 0, '>>', '<<', '...', 12),
			fts.rank
		FROM messages_fts fts
		JOIN messages m ON m.id = fts.rowid
		JOIN chats c ON c.id = m.chat_id
		WHERE messages_fts MATCH ?
	`

	var args []interface{}
	args = append(args, ftsQuery)

	if len(options.Roles) > 0 {
		placeholders := make([]string, len(options.Roles))
		for i, role := range options.Roles {
			placeholders[i] = "?"
			args = append(args, role)
		}
		sqlQuery += " AND m.role IN (" + strings.Join(placeholders, ",") + ")"
	}

	sqlQuery += " ORDER BY fts.rank"

	if options.MaxResults > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, options.MaxResults)
	}

	rows, err := idx.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var hit SearchHit
		var ts int64

		err := rows.Scan(
			&hit.ChatID,
			&hit.ChatTitle,
			&hit.MessageID,
			&hit.Role,
			&ts,
			&hit.Snippet,
			&hit.Rank,
		)
		if err != nil {
			continue
		}

		hit.Timestamp = time.Unix(ts, 0)
		hits = append(hits, hit)
	}

	return hits, nil
}

// SearchChats returns the distinct chats containing matches, most
// relevant first.
func (idx *ChatIndex) SearchChats(query string, maxResults int) ([]string, error) {
	hits, err := idx.Search(query, &SearchOptions{MaxResults: 0})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, hit := range hits {
		if seen[hit.ChatID] {
			continue
		}
		seen[hit.ChatID] = true
		ids = append(ids, hit.ChatID)
		if maxResults > 0 && len(ids) >= maxResults {
			break
		}
	}

	return ids, nil
}

// buildFTSQuery builds an FTS5 query from user input.
func buildFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	// Quote each term to neutralize FTS5 operators, with prefix match on
	// the last term so typing feels incremental.
	terms := strings.Fields(query)
	quoted := make([]string, len(terms))
	for i, term := range terms {
		term = strings.ReplaceAll(term, `"`, `""`)
		if i == len(terms)-1 {
			quoted[i] = `"` + term + `"*`
		} else {
			quoted[i] = `"` + term + `"`
		}
	}

	return strings.Join(quoted, " ")
}
