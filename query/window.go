package query

import "github.com/tempestlab/hl/record"

// Window bounds records by nanosecond timestamp (§4.G "Time window").
// A bound is active only when NewWindow was given true for it; a zero
// Window imposes no bounds.
type Window struct {
	Since record.Timestamp
	Until record.Timestamp

	hasSince bool
	hasUntil bool
}

// NewWindow returns a Window with the given bounds active. Pass ok=false
// for a bound to leave it unset.
func NewWindow(since record.Timestamp, hasSince bool, until record.Timestamp, hasUntil bool) Window {
	return Window{Since: since, Until: until, hasSince: hasSince, hasUntil: hasUntil}
}

// IsZero reports whether neither bound is set, i.e. the window imposes
// no constraint.
func (w Window) IsZero() bool { return !w.hasSince && !w.hasUntil }

// Bounds exposes the raw since/until state, for callers (merge's
// per-segment admission pruning) that need to test a segment's
// ts_min/ts_max against the window without a candidate record in hand.
func (w Window) Bounds() (since record.Timestamp, hasSince bool, until record.Timestamp, hasUntil bool) {
	return w.Since, w.hasSince, w.Until, w.hasUntil
}

// Contains reports whether ts (only meaningful when ok is true, i.e. the
// record had a resolvable timestamp) falls within the window. A record
// with no timestamp never satisfies an active window, since "within
// [since,until]" is undefined for a record the parser couldn't place in
// time.
func (w Window) Contains(ts record.Timestamp, ok bool) bool {
	if w.IsZero() {
		return true
	}
	if !ok {
		return false
	}
	if w.hasSince && ts < w.Since {
		return false
	}
	if w.hasUntil && ts > w.Until {
		return false
	}
	return true
}
