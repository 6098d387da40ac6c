package pagination

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func TestCursor_EncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		cursor Cursor
	}{
		{name: "time rank", cursor: Cursor{Rank: EncodeTimeRank(time.Now()), ID: "b1946ac9"}},
		{name: "float rank", cursor: Cursor{Rank: EncodeFloatRank(12.5), ID: "c4ca4238"}},
		{name: "null rank", cursor: Cursor{Rank: "", ID: "d41d8cd9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := tt.cursor.Encode()
			decoded, err := DecodeCursor(token)
			if err != nil {
				t.Fatalf("DecodeCursor() unexpected error = %v", err)
			}
			if decoded == nil {
				t.Fatal("DecodeCursor() returned nil for non-empty token")
			}
			if *decoded != tt.cursor {
				t.Errorf("round trip mismatch: got %+v, want %+v", *decoded, tt.cursor)
			}
		})
	}
}

func TestDecodeCursor_EmptyToken(t *testing.T) {
	cur, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("DecodeCursor(\"\") unexpected error = %v", err)
	}
	if cur != nil {
		t.Errorf("DecodeCursor(\"\") = %+v, want nil (first page)", cur)
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "not base64", token: "!!!not-base64!!!"},
		{name: "no separator", token: base64.RawURLEncoding.EncodeToString([]byte("noseparator"))},
		{name: "empty id", token: Cursor{Rank: "123", ID: ""}.Encode()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCursor(tt.token); err == nil {
				t.Errorf("DecodeCursor(%q) expected error, got nil", tt.token)
			}
		})
	}
}

func TestTimeRank_RoundTrip(t *testing.T) {
	now := time.Now()
	got, err := DecodeTimeRank(EncodeTimeRank(now))
	if err != nil {
		t.Fatalf("DecodeTimeRank() unexpected error = %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("time rank round trip: got %v, want %v", got, now)
	}
}

func TestFloatRank_RoundTrip(t *testing.T) {
	got, err := DecodeFloatRank(EncodeFloatRank(3.141593))
	if err != nil {
		t.Fatalf("DecodeFloatRank() unexpected error = %v", err)
	}
	if got != 3.141593 {
		t.Errorf("float rank round trip: got %v, want 3.141593", got)
	}
}

func TestHeaviestRank_RoundTrip(t *testing.T) {
	caughtAt := time.Now()

	weight := 4.25
	rank := EncodeHeaviestRank(&weight, caughtAt)
	w, ca, err := DecodeHeaviestRank(rank)
	if err != nil {
		t.Fatalf("DecodeHeaviestRank() unexpected error = %v", err)
	}
	if w == nil || *w != weight {
		t.Errorf("weight round trip: got %v, want %v", w, weight)
	}
	if !ca.Equal(caughtAt) {
		t.Errorf("caught_at round trip: got %v, want %v", ca, caughtAt)
	}

	// Null weight encodes and decodes as nil.
	rank = EncodeHeaviestRank(nil, caughtAt)
	w, _, err = DecodeHeaviestRank(rank)
	if err != nil {
		t.Fatalf("DecodeHeaviestRank(null weight) unexpected error = %v", err)
	}
	if w != nil {
		t.Errorf("null weight round trip: got %v, want nil", *w)
	}
}

func TestParseSortMode(t *testing.T) {
	tests := []struct {
		in      string
		want    SortMode
		wantErr bool
	}{
		{in: "", want: SortNewest},
		{in: "newest", want: SortNewest},
		{in: "heaviest", want: SortHeaviest},
		{in: "highest_rated", want: SortHighestRated},
		{in: "longest", wantErr: true},
		{in: "NEWEST", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseSortMode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownSortMode) {
				t.Errorf("ParseSortMode(%q) error = %v, want ErrUnknownSortMode", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSortMode(%q) unexpected error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSortMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSortMode_StableRank(t *testing.T) {
	if !SortNewest.StableRank() {
		t.Error("SortNewest should have a stable rank")
	}
	if !SortHeaviest.StableRank() {
		t.Error("SortHeaviest should have a stable rank")
	}
	if SortHighestRated.StableRank() {
		t.Error("SortHighestRated rank is aggregated post-fetch and must not be stable")
	}
}
