package record

import "time"

// Timestamp is nanoseconds since the Unix epoch, constructed only on
// demand by the timestamp parser (tstamp package). A Timestamp carries no
// zone of its own — per §3 the zone hint only matters during parsing
// (UTC unless the source string carried an explicit offset); once
// resolved to nanoseconds the value is zone-agnostic.
type Timestamp int64

// NoTimestamp represents "no parseable timestamp field", distinct from
// the (valid) Unix-epoch timestamp 0. Semantic.HasTimestamp reports
// which case applies; components must check it rather than comparing
// against this sentinel directly, since a record's raw field could
// legitimately parse to any int64.
const NoTimestamp Timestamp = -1 << 63

// Time converts to a time.Time in UTC, for formatting.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

// Before reports a strict less-than, used by merge tie-breaking.
func (t Timestamp) Before(o Timestamp) bool { return t < o }
