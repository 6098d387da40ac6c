// Package search provides free-text query sanitization and the composite
// search that spans catches, angler profiles, and places.
package search

import (
	"strings"
)

// MaxQueryLength is the cap applied to sanitized queries, in runes.
const MaxQueryLength = 100

// filterGrammarChars are characters meaningful to the underlying filter
// grammar. They are stripped outright so user text cannot alter filter
// semantics or break out of the intended field comparison.
const filterGrammarChars = `'"(),\`

// SanitizeQuery normalizes a raw free-text query: strips filter-grammar
// characters, collapses runs of whitespace, trims, and truncates to
// MaxQueryLength runes.
//
// An empty result means "no search performed" — callers must early-return
// an empty result set, never treat it as match-everything.
func SanitizeQuery(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if strings.ContainsRune(filterGrammarChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	runes := []rune(cleaned)
	if len(runes) > MaxQueryLength {
		cleaned = string(runes[:MaxQueryLength])
	}
	return cleaned
}

// likeEscaper escapes the pattern-matching metacharacters of LIKE/ILIKE.
// Backslash first so escapes are not double-escaped.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes %, _ and backslash for substring-match filters.
// Applied after SanitizeQuery, so user text can only ever match literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// allowedFields is the fixed set of field names that may appear in
// generated filter clauses.
var allowedFields = map[string]struct{}{
	"species":  {},
	"location": {},
	"notes":    {},
	"name":     {},
	"handle":   {},
}

// AllowedField reports whether a field name may be used in a generated
// filter clause.
func AllowedField(name string) bool {
	_, ok := allowedFields[name]
	return ok
}

// FilterFields drops any field name outside the allow-list, preserving
// order. Unknown names are dropped from the generated clause rather than
// passed through.
func FilterFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if AllowedField(f) {
			out = append(out, f)
		}
	}
	return out
}
