package dataprocessing

import (
	"strings"

	"golang.org/x/text/cases"
)

// matcher performs case-insensitive substring tests using Unicode case
// folding, so Cyrillic headers and cell values compare correctly.
// Not safe for concurrent use.
type matcher struct {
	caser cases.Caser
}

func newMatcher() *matcher {
	return &matcher{caser: cases.Fold()}
}

func (m *matcher) fold(s string) string {
	return m.caser.String(s)
}

func (m *matcher) foldAll(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, m.fold(t))
		}
	}
	return out
}

// containsAny reports whether folded contains any of the folded tokens
func containsAny(folded string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(folded, t) {
			return true
		}
	}
	return false
}
