// Package catalog filters the backend title listing into suggestion sets.
// All functions are pure: titles in, titles out. No side effects.
package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultLimit is the suggestion cap used when the caller passes limit <= 0.
const DefaultLimit = 8

// Filter returns the titles whose lowercase form contains the lowercase query,
// in catalog order, truncated to limit. Duplicates in titles are kept.
// The result is never nil.
func Filter(titles []string, query string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(titles) == 0 {
		return []string{}
	}

	// Caser is not safe for concurrent use; one per call.
	lower := cases.Lower(language.Und)
	q := lower.String(query)

	result := make([]string, 0, min(limit, len(titles)))
	for _, t := range titles {
		if !strings.Contains(lower.String(t), q) {
			continue
		}
		result = append(result, t)
		if len(result) == limit {
			break
		}
	}
	return result
}

// Matches reports whether title would be kept by Filter for query.
func Matches(title, query string) bool {
	lower := cases.Lower(language.Und)
	return strings.Contains(lower.String(title), lower.String(query))
}
