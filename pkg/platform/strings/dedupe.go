// Package strings provides string slice utilities shared across services.
package strings

import (
	"strings"
)

// DedupeAndTrimFold trims whitespace, drops empty strings, and deduplicates
// case-insensitively, keeping the first spelling seen. Action names resolve
// case-insensitively, so "Compost" and "compost" name one action.
func DedupeAndTrimFold(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
