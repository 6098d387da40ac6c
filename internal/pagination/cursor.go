package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cursor is the (rank, id) pair of the last item on the previous page.
// Rank is the string encoding of the primary sort key; an empty Rank means
// the rank value was NULL (possible in the heaviest sort's null tail).
type Cursor struct {
	Rank string
	ID   string
}

// Cursor decoding errors.
var (
	ErrInvalidCursor = errors.New("invalid cursor")
	ErrEmptyCursorID = errors.New("cursor id cannot be empty")
)

// cursorSep separates rank from id inside the token. Record IDs are UUIDs
// and rank encodings are decimal strings, so '|' cannot appear in either.
const cursorSep = "|"

// Encode serializes the cursor into an opaque URL-safe token.
func (c Cursor) Encode() string {
	return base64.RawURLEncoding.EncodeToString([]byte(c.Rank + cursorSep + c.ID))
}

// DecodeCursor parses a token produced by Encode. An empty token yields a
// nil cursor (first page).
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	rank, id, ok := strings.Cut(string(raw), cursorSep)
	if !ok {
		return nil, ErrInvalidCursor
	}
	if id == "" {
		return nil, ErrEmptyCursorID
	}
	return &Cursor{Rank: rank, ID: id}, nil
}

// EncodeTimeRank encodes a timestamp rank with nanosecond precision.
func EncodeTimeRank(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

// DecodeTimeRank parses a rank produced by EncodeTimeRank.
func DecodeTimeRank(rank string) (time.Time, error) {
	ns, err := strconv.ParseInt(rank, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad time rank %q", ErrInvalidCursor, rank)
	}
	return time.Unix(0, ns).UTC(), nil
}

// EncodeFloatRank encodes a numeric rank (weight, score) with fixed
// precision so encode/decode round-trips compare equal.
func EncodeFloatRank(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// DecodeFloatRank parses a rank produced by EncodeFloatRank.
func DecodeFloatRank(rank string) (float64, error) {
	f, err := strconv.ParseFloat(rank, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad numeric rank %q", ErrInvalidCursor, rank)
	}
	return f, nil
}
