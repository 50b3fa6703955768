// Package strings holds list helpers for environment-driven config.
package strings

import (
	"strings"
)

// SplitList splits v on sep and returns the trimmed, non-empty entries with
// duplicates removed. Order of first appearance is preserved. An empty input
// yields nil.
func SplitList(v, sep string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(v, sep) {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
