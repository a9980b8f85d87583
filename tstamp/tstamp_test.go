package tstamp

import "testing"

func TestParseRFC3339WithZ(t *testing.T) {
	ts, err := Parse("2024-01-15T10:30:45Z", UnitAuto)
	if err != nil {
		t.Fatal(err)
	}
	if ts.Time().Year() != 2024 {
		t.Fatalf("unexpected year: %v", ts.Time())
	}
}

func TestParseSpaceSeparatorWithFractional(t *testing.T) {
	ts, err := Parse("2024-01-15 10:30:45.123456789Z", UnitAuto)
	if err != nil {
		t.Fatal(err)
	}
	if ts.Time().Nanosecond() != 123456789 {
		t.Fatalf("unexpected nanosecond: %d", ts.Time().Nanosecond())
	}
}

func TestParseNoOffsetAssumesUTC(t *testing.T) {
	ts, err := Parse("2024-01-15T10:30:45", UnitAuto)
	if err != nil {
		t.Fatal(err)
	}
	if ts.Time().Location().String() != "UTC" {
		t.Fatalf("expected UTC, got %v", ts.Time().Location())
	}
}

func TestParseUnixSecondsAutoDetect(t *testing.T) {
	ts, err := Parse("1705314645", UnitAuto)
	if err != nil {
		t.Fatal(err)
	}
	if ts.Time().Year() != 2024 {
		t.Fatalf("unexpected year: %v", ts.Time())
	}
}

func TestParseUnixMillisAutoDetect(t *testing.T) {
	ts, err := Parse("1705314645123", UnitAuto)
	if err != nil {
		t.Fatal(err)
	}
	if ts.Time().Year() != 2024 {
		t.Fatalf("unexpected year: %v", ts.Time())
	}
}

func TestParseExplicitUnitOverridesAutoDetect(t *testing.T) {
	ts, err := Parse("1705314645", UnitMillis)
	if err != nil {
		t.Fatal(err)
	}
	if ts.Time().Year() == 2024 {
		t.Fatalf("explicit ms unit on a seconds-scale value should not land in 2024: %v", ts.Time())
	}
}

func TestParseMalformedFailsExplicitly(t *testing.T) {
	if _, err := Parse("not-a-timestamp", UnitAuto); err == nil {
		t.Fatal("expected ambiguous timestamp error")
	}
}

func TestParseEmptyFails(t *testing.T) {
	if _, err := Parse("", UnitAuto); err == nil {
		t.Fatal("expected error on empty input")
	}
}
