package catch

import (
	"testing"

	"github.com/opencreel/creel/internal/viewer"
)

func TestCanView(t *testing.T) {
	owner := "owner-1"
	follower := viewer.For("follower-1", []string{owner})
	stranger := viewer.For("stranger-1", []string{"someone-else"})
	self := viewer.For(owner, nil)
	anon := viewer.Anonymous()

	tests := []struct {
		name       string
		visibility Visibility
		viewer     viewer.Context
		want       bool
	}{
		{"public visible to anonymous", VisibilityPublic, anon, true},
		{"public visible to stranger", VisibilityPublic, stranger, true},
		{"public visible to owner", VisibilityPublic, self, true},

		{"followers hidden from anonymous", VisibilityFollowers, anon, false},
		{"followers hidden from stranger", VisibilityFollowers, stranger, false},
		{"followers visible to follower", VisibilityFollowers, follower, true},
		{"followers visible to owner", VisibilityFollowers, self, true},

		{"private hidden from anonymous", VisibilityPrivate, anon, false},
		{"private hidden from stranger", VisibilityPrivate, stranger, false},
		{"private hidden from follower", VisibilityPrivate, follower, false},
		{"private visible to owner", VisibilityPrivate, self, true},

		{"unknown visibility denied for stranger", VisibilityUnknown, stranger, false},
		{"unknown visibility denied for follower", VisibilityUnknown, follower, false},
		{"unknown visibility still visible to owner", VisibilityUnknown, self, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &CatchRecord{ID: "c1", OwnerID: owner, Visibility: tt.visibility}
			if got := CanView(rec, tt.viewer); got != tt.want {
				t.Errorf("CanView = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanViewNoOwner(t *testing.T) {
	if CanView(nil, viewer.Anonymous()) {
		t.Error("nil record must be denied")
	}
	rec := &CatchRecord{ID: "c1", Visibility: VisibilityPublic}
	if CanView(rec, viewer.For("u1", nil)) {
		t.Error("record without owner must be denied even when public")
	}
}

func TestParseVisibility(t *testing.T) {
	tests := []struct {
		in   string
		want Visibility
	}{
		{"public", VisibilityPublic},
		{"", VisibilityPublic},
		{"followers", VisibilityFollowers},
		{"private", VisibilityPrivate},
		{"Private", VisibilityUnknown},
		{"freinds", VisibilityUnknown},
	}
	for _, tt := range tests {
		if got := ParseVisibility(tt.in); got != tt.want {
			t.Errorf("ParseVisibility(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
