package catch

// Sanitize strips the exact GPS coordinates from a record's attribute bag
// for viewers other than the owner when the owner asked to hide the spot.
//
// When nothing needs stripping the input pointer is returned unchanged, so
// callers can detect "no redaction occurred" by pointer equality and the
// common case allocates nothing. When redaction does occur the result is a
// copy with an independent attribute bag; the input is never mutated.
// Idempotent: sanitizing already-sanitized output returns it unchanged.
func Sanitize(rec *CatchRecord, viewerID string) *CatchRecord {
	if rec == nil {
		return nil
	}
	if !rec.HideExactSpot {
		return rec
	}
	if viewerID != "" && viewerID == rec.OwnerID {
		return rec
	}
	if _, ok := rec.Attributes[AttrGPS]; !ok {
		return rec
	}
	out := rec.Clone()
	delete(out.Attributes, AttrGPS)
	return out
}

// ShouldShowExactLocation decides whether the free-text location field is
// passed through for this viewer. Same owner-override rule as Sanitize: a
// hidden spot's location is shown only to the owner.
func ShouldShowExactLocation(hideExactSpot bool, ownerID, viewerID string) bool {
	if !hideExactSpot {
		return true
	}
	return viewerID != "" && viewerID == ownerID
}

// RedactForViewer applies both redactions for the given viewer: the GPS
// attribute is stripped and the free-text location nulled when the viewer
// may not see the exact spot. Like Sanitize, it returns the input pointer
// unchanged when no redaction applies and never mutates the input.
func RedactForViewer(rec *CatchRecord, viewerID string) *CatchRecord {
	if rec == nil {
		return nil
	}
	out := Sanitize(rec, viewerID)
	if rec.Location != nil && !ShouldShowExactLocation(rec.HideExactSpot, rec.OwnerID, viewerID) {
		if out == rec {
			out = rec.Clone()
		}
		out.Location = nil
	}
	return out
}
