// Package shared provides common utility functions used across multiple
// packages in the poetry-export codebase.
package shared

import (
	"fmt"
	"sort"
	"strings"
)

// NormalizePipName lowercases a Python package name and replaces runs of
// underscores, dots and hyphens with a single hyphen, following PEP 503
// normalization.
func NormalizePipName(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	var builder strings.Builder
	builder.Grow(len(lower))
	separator := false
	for _, r := range lower {
		if r == '-' || r == '_' || r == '.' {
			separator = true
			continue
		}
		if separator && builder.Len() > 0 {
			builder.WriteByte('-')
		}
		separator = false
		builder.WriteRune(r)
	}
	return builder.String()
}

// NormalizeNames applies NormalizePipName to every entry, splitting
// whitespace-separated values and dropping empties and duplicates. The
// first-seen order is kept.
func NormalizeNames(values []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, value := range values {
		for _, field := range strings.Fields(value) {
			name := NormalizePipName(field)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// UniqueSorted returns the sorted set of values.
func UniqueSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

// QuoteList renders names for error messages, e.g. "[a, b]".
func QuoteList(values []string) string {
	return fmt.Sprintf("[%s]", strings.Join(values, ", "))
}
