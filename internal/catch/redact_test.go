package catch

import (
	"testing"
)

func hiddenSpotRecord() *CatchRecord {
	loc := "Miller's Bend"
	return &CatchRecord{
		ID:            "c1",
		OwnerID:       "owner-1",
		Species:       "brown trout",
		HideExactSpot: true,
		Location:      &loc,
		Attributes: map[string]any{
			AttrGPS:           map[string]any{"lat": 47.2, "lng": 9.5},
			AttrCustomSpecies: "marble trout",
		},
	}
}

func TestSanitizeStripsGPSForNonOwner(t *testing.T) {
	rec := hiddenSpotRecord()

	got := Sanitize(rec, "viewer-1")
	if got == rec {
		t.Fatal("expected a redacted copy, got the input pointer")
	}
	if _, ok := got.Attributes[AttrGPS]; ok {
		t.Error("gps attribute survived redaction")
	}
	if _, ok := got.Attributes[AttrCustomSpecies]; !ok {
		t.Error("unrelated attribute was stripped")
	}
	// Input untouched.
	if _, ok := rec.Attributes[AttrGPS]; !ok {
		t.Error("input record was mutated")
	}
}

func TestSanitizeOwnerKeepsGPS(t *testing.T) {
	rec := hiddenSpotRecord()
	if got := Sanitize(rec, "owner-1"); got != rec {
		t.Error("owner view must be the unmodified input pointer")
	}
}

func TestSanitizeNoOpPaths(t *testing.T) {
	t.Run("hide flag off", func(t *testing.T) {
		rec := hiddenSpotRecord()
		rec.HideExactSpot = false
		if got := Sanitize(rec, "viewer-1"); got != rec {
			t.Error("expected same pointer when nothing is hidden")
		}
	})
	t.Run("no gps attribute", func(t *testing.T) {
		rec := hiddenSpotRecord()
		delete(rec.Attributes, AttrGPS)
		if got := Sanitize(rec, "viewer-1"); got != rec {
			t.Error("expected same pointer when there is nothing to strip")
		}
	})
	t.Run("nil record", func(t *testing.T) {
		if got := Sanitize(nil, "viewer-1"); got != nil {
			t.Error("expected nil for nil input")
		}
	})
}

func TestSanitizeIdempotent(t *testing.T) {
	rec := hiddenSpotRecord()
	once := Sanitize(rec, "viewer-1")
	twice := Sanitize(once, "viewer-1")
	if twice != once {
		t.Error("second sanitize must return its input pointer unchanged")
	}
}

func TestShouldShowExactLocation(t *testing.T) {
	tests := []struct {
		name     string
		hide     bool
		ownerID  string
		viewerID string
		want     bool
	}{
		{"not hidden", false, "o", "v", true},
		{"hidden owner", true, "o", "o", true},
		{"hidden stranger", true, "o", "v", false},
		{"hidden anonymous", true, "o", "", false},
		{"hidden empty owner", true, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldShowExactLocation(tt.hide, tt.ownerID, tt.viewerID)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedactForViewer(t *testing.T) {
	rec := hiddenSpotRecord()

	got := RedactForViewer(rec, "viewer-1")
	if got == rec {
		t.Fatal("expected a redacted copy")
	}
	if got.Location != nil {
		t.Error("location survived redaction")
	}
	if _, ok := got.Attributes[AttrGPS]; ok {
		t.Error("gps survived redaction")
	}
	if rec.Location == nil {
		t.Error("input record was mutated")
	}

	if owner := RedactForViewer(rec, "owner-1"); owner != rec {
		t.Error("owner view must be the unmodified input pointer")
	}
}
