// Package textmatch holds the pure string-matching primitives shared
// by the search engine, identity resolution, and the import pipeline.
package textmatch

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	separatorRe  = regexp.MustCompile(`[\s\-./]+`)
	nonWordRe    = regexp.MustCompile(`[^a-z0-9_]`)
)

// Normalize lowercases, trims, and collapses internal whitespace.
// All fuzzy comparisons run on normalized strings.
func Normalize(s string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// NormalizeColumn canonicalizes a column or field name: lower-case,
// separators collapsed to a single underscore, remaining non-word
// characters stripped. "First Name" and "first_name" normalize
// identically.
func NormalizeColumn(s string) string {
	s = separatorRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
	s = nonWordRe.ReplaceAllString(s, "")
	return strings.Trim(s, "_")
}

// Ratio is a similarity measure in [0,1] based on the longest common
// subsequence of the two strings: 2*LCS / (len(a)+len(b)). Equal
// strings score 1, disjoint strings 0. Inputs are normalized first so
// casing and extra whitespace do not affect the score.
func Ratio(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	// Single-row LCS table; strings here are short names, not documents.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

// ContainsFold reports whether substr occurs in s ignoring case.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
