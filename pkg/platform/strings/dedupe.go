// Package strings provides string list normalization used by request and model validation.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and blank entries, trimming whitespace from
// each element. Order is preserved.
//
//	DedupeAndTrim([]string{"  penicillin ", "latex", "penicillin", "", "  "})
//	// []string{"penicillin", "latex"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, func(s string) string { return s })
}

// DedupeAndTrimFold is like DedupeAndTrim but compares case-insensitively,
// keeping the first spelling seen. Clinical terms keep their original casing.
//
//	DedupeAndTrimFold([]string{"Penicillin", "penicillin", "Latex"})
//	// []string{"Penicillin", "Latex"}
func DedupeAndTrimFold(values []string) []string {
	return dedupe(values, strings.ToLower)
}

func dedupe(values []string, key func(string) string) []string {
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
		k := key(trimmed)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, trimmed)
	}

	return result
}

// LongestRuneCount returns the rune length of the longest element.
func LongestRuneCount(values []string) int {
	longest := 0
	for _, v := range values {
		if n := len([]rune(v)); n > longest {
			longest = n
		}
	}
	return longest
}
