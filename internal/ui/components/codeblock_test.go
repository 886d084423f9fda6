// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
)

func TestParseCodeBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{
			name:     "plain text passes through",
			input:    "no code here",
			contains: []string{"no code here"},
		},
		{
			name:     "fenced block is rendered with language badge",
			input:    "before\n```go\nfmt.Println(\"hi\")\n```\nafter",
			contains: []string{"before", "after", "go"},
		},
		{
			name:     "unclosed fence still renders",
			input:    "```python\nprint(1)",
			contains: []string{"print"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCodeBlocks(tt.input, 80, false)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestCodeBlockRenderNumbersLines(t *testing.T) {
	cb := NewCodeBlock("go", "a := 1\nb := 2\nc := 3")
	out := cb.Render()
	for _, n := range []string{"1", "2", "3"} {
		if !strings.Contains(out, n) {
			t.Errorf("line number %s missing from output", n)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	// Shebang lines are the most reliable signal chroma has.
	lang := detectLanguage("#!/bin/bash\necho hi")
	if lang == "" {
		t.Skip("chroma could not analyse the snippet")
	}
	if !strings.Contains(strings.ToLower(lang), "bash") {
		t.Errorf("detectLanguage = %q, want bash-ish", lang)
	}
}
