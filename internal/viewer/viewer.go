// Package viewer defines the viewer context supplied to every access decision.
package viewer

// Context identifies who is looking at a record. A zero Context is a valid
// anonymous viewer. The Following set is supplied by the identity layer and
// refreshed on its own cadence; this package treats it as read-only.
type Context struct {
	// ViewerID is the authenticated user ID, or empty for anonymous viewers.
	ViewerID string

	// Following is the set of user IDs the viewer follows.
	Following map[string]struct{}
}

// Anonymous returns a viewer context with no identity and no follows.
func Anonymous() Context {
	return Context{}
}

// For returns a viewer context for the given user ID with the given follow set.
// The followingIDs slice may be nil.
func For(viewerID string, followingIDs []string) Context {
	ctx := Context{ViewerID: viewerID}
	if len(followingIDs) > 0 {
		ctx.Following = make(map[string]struct{}, len(followingIDs))
		for _, id := range followingIDs {
			ctx.Following[id] = struct{}{}
		}
	}
	return ctx
}

// IsAnonymous reports whether the viewer has no authenticated identity.
func (c Context) IsAnonymous() bool {
	return c.ViewerID == ""
}

// IsFollowing reports whether the viewer follows the given user.
// Always false for anonymous viewers.
func (c Context) IsFollowing(userID string) bool {
	if c.ViewerID == "" || c.Following == nil {
		return false
	}
	_, ok := c.Following[userID]
	return ok
}
