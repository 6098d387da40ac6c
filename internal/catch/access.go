package catch

import "github.com/opencreel/creel/internal/viewer"

// CanView decides whether the viewer may see the record at all. Pure and
// total: no side effects, no error path. The rules, in order:
//
//   - a record with no determinable owner is never shown
//   - the owner sees their own record regardless of visibility
//   - public records are visible to everyone, anonymous viewers included
//   - followers records require an authenticated viewer who follows the owner
//   - private records are visible to no one but the owner
//
// Visibility values outside the closed set fall through every allow branch
// and are denied.
func CanView(rec *CatchRecord, v viewer.Context) bool {
	if rec == nil || rec.OwnerID == "" {
		return false
	}
	if !v.IsAnonymous() && v.ViewerID == rec.OwnerID {
		return true
	}
	switch rec.Visibility {
	case VisibilityPublic:
		return true
	case VisibilityFollowers:
		return !v.IsAnonymous() && v.IsFollowing(rec.OwnerID)
	case VisibilityPrivate:
		return false
	}
	return false
}
