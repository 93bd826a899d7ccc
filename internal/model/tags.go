package model

import "strings"

// MaxAITags is the most tags one categorization may contribute.
const MaxAITags = 4

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// NormalizeTags lowercases and trims tags, drops empties and duplicates, and
// keeps first-seen order. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		n := normalizeTag(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// MergeTags returns existing followed by the incoming tags not already
// present. Tags only ever grow through this function.
func MergeTags(existing, incoming []string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	merged = append(merged, incoming...)
	return NormalizeTags(merged)
}
