package search

import (
	"strings"
	"testing"
)

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "rainbow trout", "rainbow trout"},
		{"strips quotes", `rainbow "trout"`, "rainbow trout"},
		{"strips filter grammar", `spec'ies),(`, "species"},
		{"strips backslash", `a\b`, "ab"},
		{"collapses whitespace", "  rainbow \t\n  trout  ", "rainbow trout"},
		{"only grammar chars", `'"(),\`, ""},
		{"only whitespace", " \t\n ", ""},
		{"empty", "", ""},
		{"unicode survives", "Äsche röt", "Äsche röt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeQuery(tt.in); got != tt.want {
				t.Errorf("SanitizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeQueryTruncatesByRunes(t *testing.T) {
	long := strings.Repeat("ö", MaxQueryLength+20)
	got := SanitizeQuery(long)
	if n := len([]rune(got)); n != MaxQueryLength {
		t.Errorf("sanitized length = %d runes, want %d", n, MaxQueryLength)
	}
	// Truncation must not split a rune.
	if strings.ToValidUTF8(got, "") != got {
		t.Error("truncation produced invalid UTF-8")
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"50%", `50\%`},
		{"a_b", `a\_b`},
		{"plain", "plain"},
		{`a\b`, `a\\b`},
		{`100%_done`, `100\%\_done`},
	}
	for _, tt := range tests {
		if got := EscapeLike(tt.in); got != tt.want {
			t.Errorf("EscapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilterFields(t *testing.T) {
	got := FilterFields([]string{"species", "drop table", "location", "owner_id", "handle"})
	want := []string{"species", "location", "handle"}
	if len(got) != len(want) {
		t.Fatalf("FilterFields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FilterFields = %v, want %v", got, want)
		}
	}
	if AllowedField("visibility") {
		t.Error("visibility must not be filterable")
	}
}
