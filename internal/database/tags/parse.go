package tags

import "strings"

// ParseTokens splits a Tags or People value into tag names. Entries are
// separated by commas, trimmed, and empty entries are dropped. Exact
// duplicates keep their first position.
func ParseTokens(value string) []string {
	return normalize(strings.Split(value, ","))
}

func normalize(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	tokens := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tokens = append(tokens, name)
	}
	return tokens
}
