package pagination

import (
	"strings"
	"testing"
	"time"
)

func TestBuildQuery_TieBreakDirectionMatchesPrimary(t *testing.T) {
	for _, mode := range []SortMode{SortNewest, SortHeaviest, SortHighestRated} {
		d, err := BuildQuery(mode, nil, 20)
		if err != nil {
			t.Fatalf("BuildQuery(%v) unexpected error = %v", mode, err)
		}
		if len(d.Order) < 2 {
			t.Fatalf("BuildQuery(%v) order has %d keys, want at least 2", mode, len(d.Order))
		}
		last := d.Order[len(d.Order)-1]
		if last.Column != "id" {
			t.Errorf("BuildQuery(%v) last order key = %s, want id", mode, last.Column)
		}
		if last.Desc != d.Order[0].Desc {
			t.Errorf("BuildQuery(%v) id tie-break direction differs from primary key", mode)
		}
	}
}

func TestBuildQuery_UnknownMode(t *testing.T) {
	if _, err := BuildQuery(SortMode(42), nil, 20); err == nil {
		t.Error("BuildQuery(unknown) expected error, got nil")
	}
}

func TestOrderBySQL_Newest(t *testing.T) {
	d, err := BuildQuery(SortNewest, nil, 20)
	if err != nil {
		t.Fatalf("BuildQuery() unexpected error = %v", err)
	}
	got := d.OrderBySQL()
	want := "caught_at DESC, id DESC"
	if got != want {
		t.Errorf("OrderBySQL() = %q, want %q", got, want)
	}
}

func TestOrderBySQL_HeaviestNullsLast(t *testing.T) {
	d, err := BuildQuery(SortHeaviest, nil, 20)
	if err != nil {
		t.Fatalf("BuildQuery() unexpected error = %v", err)
	}
	got := d.OrderBySQL()
	if !strings.HasPrefix(got, "weight_kg DESC NULLS LAST") {
		t.Errorf("OrderBySQL() = %q, want weight_kg DESC NULLS LAST first", got)
	}
}

func TestKeysetSQL_NoCursor(t *testing.T) {
	d, err := BuildQuery(SortNewest, nil, 20)
	if err != nil {
		t.Fatalf("BuildQuery() unexpected error = %v", err)
	}
	clause, args, err := d.KeysetSQL(1)
	if err != nil {
		t.Fatalf("KeysetSQL() unexpected error = %v", err)
	}
	if clause != "" || args != nil {
		t.Errorf("KeysetSQL() without cursor = (%q, %v), want empty", clause, args)
	}
}

func TestKeysetSQL_Newest(t *testing.T) {
	ts := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	cur := &Cursor{Rank: EncodeTimeRank(ts), ID: "abc"}
	d, err := BuildQuery(SortNewest, cur, 20)
	if err != nil {
		t.Fatalf("BuildQuery() unexpected error = %v", err)
	}

	clause, args, err := d.KeysetSQL(3)
	if err != nil {
		t.Fatalf("KeysetSQL() unexpected error = %v", err)
	}
	want := "(caught_at < $3 OR (caught_at = $3 AND id < $4))"
	if clause != want {
		t.Errorf("KeysetSQL() clause = %q, want %q", clause, want)
	}
	if len(args) != 2 {
		t.Fatalf("KeysetSQL() returned %d args, want 2", len(args))
	}
	if got, ok := args[0].(time.Time); !ok || !got.Equal(ts) {
		t.Errorf("KeysetSQL() first arg = %v, want %v", args[0], ts)
	}
	if args[1] != "abc" {
		t.Errorf("KeysetSQL() second arg = %v, want abc", args[1])
	}
}

func TestKeysetSQL_HeaviestNullTail(t *testing.T) {
	caughtAt := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	cur := &Cursor{Rank: EncodeHeaviestRank(nil, caughtAt), ID: "abc"}
	d, err := BuildQuery(SortHeaviest, cur, 20)
	if err != nil {
		t.Fatalf("BuildQuery() unexpected error = %v", err)
	}

	clause, args, err := d.KeysetSQL(1)
	if err != nil {
		t.Fatalf("KeysetSQL() unexpected error = %v", err)
	}
	if !strings.Contains(clause, "weight_kg IS NULL AND") {
		t.Errorf("KeysetSQL() null-tail clause = %q, want weight_kg IS NULL guard", clause)
	}
	if len(args) != 2 {
		t.Errorf("KeysetSQL() returned %d args, want 2", len(args))
	}
}

func TestKeysetSQL_HighestRatedIsClientSide(t *testing.T) {
	cur := &Cursor{Rank: EncodeFloatRank(4.5), ID: "abc"}
	d, err := BuildQuery(SortHighestRated, cur, 20)
	if err != nil {
		t.Fatalf("BuildQuery() unexpected error = %v", err)
	}
	clause, _, err := d.KeysetSQL(1)
	if err != nil {
		t.Fatalf("KeysetSQL() unexpected error = %v", err)
	}
	if clause != "" {
		t.Errorf("KeysetSQL() for highest_rated = %q, want empty (rank is post-fetch)", clause)
	}
}
