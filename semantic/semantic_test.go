package semantic

import (
	"testing"

	"github.com/tempestlab/hl/parse"
)

func TestExtractFlatNames(t *testing.T) {
	rec := parse.Record([]byte(`{"time":"2024-01-01T00:00:00Z","level":"info","msg":"hi"}`), parse.FormatJSON)
	ex := New(DefaultNameLists())
	sem := ex.Extract(rec)
	if !sem.HasTimestamp() || !sem.HasLevel() || !sem.HasMessage() {
		t.Fatalf("expected all three resolved: %+v", sem)
	}
}

func TestExtractPriorityOrder(t *testing.T) {
	rec := parse.Record([]byte(`{"time":"t1","timestamp":"t2"}`), parse.FormatJSON)
	ex := New(DefaultNameLists())
	sem := ex.Extract(rec)
	if !sem.HasTimestamp() {
		t.Fatal("expected timestamp resolved")
	}
	if rec.Fields[sem.TimestampIdx].Value.String() != "t2" {
		t.Fatalf("expected 'timestamp' (higher priority) to win, got %q", rec.Fields[sem.TimestampIdx].Value.String())
	}
}

func TestExtractMissingDoesNotPanic(t *testing.T) {
	rec := parse.Record([]byte(`{"foo":"bar"}`), parse.FormatJSON)
	ex := New(DefaultNameLists())
	sem := ex.Extract(rec)
	if sem.HasTimestamp() || sem.HasLevel() || sem.HasMessage() {
		t.Fatalf("expected nothing resolved, got %+v", sem)
	}
}

func TestValueForDottedFlatKey(t *testing.T) {
	rec := parse.Record([]byte(`{"user.id":42}`), parse.FormatJSON)
	v, ok := ValueFor(rec, "user.id", parse.JSON)
	if !ok {
		t.Fatal("expected flat dotted key match")
	}
	if v.String() != "42" {
		t.Fatalf("unexpected value: %q", v.String())
	}
}

func TestValueForNestedHierarchy(t *testing.T) {
	rec := parse.Record([]byte(`{"user":{"id":42}}`), parse.FormatJSON)
	v, ok := ValueFor(rec, "user.id", parse.JSON)
	if !ok {
		t.Fatal("expected nested path match")
	}
	if v.String() != "42" {
		t.Fatalf("unexpected value: %q", v.String())
	}
}

func TestExtractDashUnderscoreEquivalence(t *testing.T) {
	rec := parse.Record([]byte(`{"log-level":"warn"}`), parse.FormatJSON)
	ex := New(NameLists{Level: []string{"log_level"}})
	sem := ex.Extract(rec)
	if !sem.HasLevel() {
		t.Fatal("expected dash/underscore equivalence to resolve log-level")
	}
}
