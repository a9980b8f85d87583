package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ResolveTime implements §6.2's --since/--until input grammar: RFC3339,
// relative durations with a leading '-' (-1h, -7d, -1M≈30.44d,
// -1y≈365.25d), and a handful of natural-language phrases. now anchors
// "relative to" so callers can pass time.Now() at startup and test
// deterministically with a fixed instant. Resolution happens once,
// here, at startup — per §6.2 "the core sees nanosecond bounds only".
//
// Grounded on ChristianF88-cidrx's cli.go parseFlexibleTime (a layered
// fallback through a small set of time.Parse layouts), generalized to
// also accept the relative-duration and natural-language forms §6.2
// adds on top of fixed layouts.
func ResolveTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}

	if t, ok := parseNaturalLanguage(s, now); ok {
		return t, nil
	}
	if strings.HasPrefix(s, "-") {
		if d, ok := parseRelativeDuration(s[1:]); ok {
			return now.Add(-d), nil
		}
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02 15",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time value %q", s)
}

// parseRelativeDuration parses "<number><unit>" where unit is one of
// s/m/h/d/M/y, d/M/y using the approximations §6.2 specifies
// (M≈30.44d, y≈365.25d); h/m/s defer to time.ParseDuration.
func parseRelativeDuration(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	unit := s[len(s)-1]
	numPart := s[:len(s)-1]
	switch unit {
	case 'd', 'M', 'y':
		n, err := strconv.ParseFloat(numPart, 64)
		if err != nil {
			return 0, false
		}
		switch unit {
		case 'd':
			return time.Duration(n * 24 * float64(time.Hour)), true
		case 'M':
			return time.Duration(n * 30.44 * 24 * float64(time.Hour)), true
		case 'y':
			return time.Duration(n * 365.25 * 24 * float64(time.Hour)), true
		}
	case 's', 'm', 'h':
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, false
		}
		return d, true
	}
	return 0, false
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// parseNaturalLanguage recognizes the fixed phrase set §6.2 names:
// "now", "today", "yesterday", "N <unit> ago", "last month"/"last week",
// and day names (resolved to the most recent past occurrence).
func parseNaturalLanguage(s string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(s)
	switch lower {
	case "now":
		return now, true
	case "today":
		return startOfDay(now), true
	case "yesterday":
		return startOfDay(now.AddDate(0, 0, -1)), true
	case "last month":
		return now.AddDate(0, -1, 0), true
	case "last week":
		return now.AddDate(0, 0, -7), true
	}
	if wd, ok := weekdays[lower]; ok {
		return mostRecentWeekday(now, wd), true
	}
	fields := strings.Fields(lower)
	if len(fields) == 3 && fields[2] == "ago" {
		n, err := strconv.Atoi(fields[0])
		if err == nil {
			if d, ok := agoUnitDuration(fields[1]); ok {
				return now.Add(-time.Duration(n) * d), true
			}
		}
	}
	return time.Time{}, false
}

func agoUnitDuration(unit string) (time.Duration, bool) {
	switch strings.TrimSuffix(unit, "s") {
	case "second":
		return time.Second, true
	case "minute":
		return time.Minute, true
	case "hour":
		return time.Hour, true
	case "day":
		return 24 * time.Hour, true
	case "week":
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func mostRecentWeekday(now time.Time, wd time.Weekday) time.Time {
	days := int(now.Weekday() - wd)
	if days < 0 {
		days += 7
	}
	if days == 0 {
		days = 7 // "monday" said on a Monday means last Monday, not today
	}
	return startOfDay(now.AddDate(0, 0, -days))
}
