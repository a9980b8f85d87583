// Package tstamp implements §4.F's Timestamp Parser: RFC3339/ISO
// variants and unix int/float timestamps with unit auto-detection,
// producing record.Timestamp (integer nanoseconds since epoch).
//
// Grounded on the time-handling style of ChristianF88-cidrx's config
// layer (time.Parse against a small fixed set of layouts, wrapped in a
// descriptive error) generalized to the layout set and magnitude-based
// unix-unit heuristic §4.F specifies.
package tstamp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tempestlab/hl/record"
)

// Unit selects how a bare integer/float timestamp is interpreted.
type Unit uint8

const (
	UnitAuto Unit = iota
	UnitSeconds
	UnitMillis
	UnitMicros
	UnitNanos
)

// ParseUnit maps a --unix-timestamp-unit flag value to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "", "auto":
		return UnitAuto, nil
	case "s":
		return UnitSeconds, nil
	case "ms":
		return UnitMillis, nil
	case "us":
		return UnitMicros, nil
	case "ns":
		return UnitNanos, nil
	default:
		return UnitAuto, fmt.Errorf("unknown unix-timestamp-unit %q", s)
	}
}

// AmbiguousTimestampError is a Parsing-kind error (§7.2): the value could
// not be confidently resolved to a point in time.
type AmbiguousTimestampError struct {
	Raw    string
	Reason string
}

func (e *AmbiguousTimestampError) Error() string {
	return fmt.Sprintf("ambiguous timestamp %q: %s", e.Raw, e.Reason)
}

// layouts lists the RFC3339/ISO8601 variants §4.F accepts, tried in
// order; both 'T' and ' ' separators, with/without fractional seconds,
// with/without zone offset are covered by trying both separators against
// the same set of suffix shapes.
var layouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Parse parses raw (the exact source bytes of a timestamp field's value,
// unescaped if it was a JSON string) into nanoseconds since epoch. unit
// overrides auto-detection for bare numeric values; it is ignored for
// RFC3339/ISO string values, which always carry their own precision.
func Parse(raw string, unit Unit) (record.Timestamp, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &AmbiguousTimestampError{Raw: raw, Reason: "empty value"}
	}
	if looksNumeric(raw) {
		return parseNumeric(raw, unit)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return record.Timestamp(t.UTC().UnixNano()), nil
		}
	}
	return 0, &AmbiguousTimestampError{Raw: raw, Reason: "no matching RFC3339/ISO8601 layout"}
}

func looksNumeric(s string) bool {
	i := 0
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		i = 1
	}
	if i >= len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] != '.' && (s[i] < '0' || s[i] > '9') {
			return false
		}
	}
	return true
}

// parseNumeric interprets a bare numeric timestamp. Magnitude thresholds
// (per §4.F) assume the value is meant to fall within a plausible modern
// date range; values not cleanly matching any bracket are rejected as
// ambiguous rather than guessed at.
func parseNumeric(raw string, unit Unit) (record.Timestamp, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &AmbiguousTimestampError{Raw: raw, Reason: "not a valid number"}
	}
	var u Unit
	switch unit {
	case UnitAuto:
		u = detectUnit(f)
		if u == UnitAuto {
			return 0, &AmbiguousTimestampError{Raw: raw, Reason: "magnitude doesn't match any known unix time unit"}
		}
	default:
		u = unit
	}
	var ns float64
	switch u {
	case UnitSeconds:
		ns = f * 1e9
	case UnitMillis:
		ns = f * 1e6
	case UnitMicros:
		ns = f * 1e3
	case UnitNanos:
		ns = f
	}
	return record.Timestamp(int64(ns)), nil
}

// detectUnit buckets |f| by order of magnitude: [1e9, 1e11) is seconds
// (from 2001-09-09), [1e11, 1e14) milliseconds, [1e14, 1e17)
// microseconds, and 1e17 and above nanoseconds, each bracket bound a
// factor of 1e3 past the previous one. UnitAuto is returned (never a
// leaf unit) below 1e9, where no bracket matches.
func detectUnit(f float64) Unit {
	abs := f
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e17:
		return UnitNanos
	case abs >= 1e14:
		return UnitMicros
	case abs >= 1e11:
		return UnitMillis
	case abs >= 1e9:
		return UnitSeconds
	default:
		return UnitAuto
	}
}
