package record

import "testing"

func TestFieldKeyEqualDashUnderscore(t *testing.T) {
	f := Field{Key: []byte("user-id")}
	if !f.KeyEqual("user_id") {
		t.Fatalf("expected user-id to equal user_id under equivalence rule")
	}
	if f.KeyEqual("user") {
		t.Fatalf("did not expect partial match")
	}
}

func TestRecordGetDuplicateKeysFirstWins(t *testing.T) {
	rec := Record{Fields: []Field{
		{Key: []byte("level"), Value: Value{Raw: []byte("info"), Kind: KindString}},
		{Key: []byte("level"), Value: Value{Raw: []byte("error"), Kind: KindString}},
	}}
	v, ok := rec.Get("level")
	if !ok || v.String() != "info" {
		t.Fatalf("expected first duplicate to win, got %q ok=%v", v.String(), ok)
	}
	all := rec.GetAll("level")
	if len(all) != 2 {
		t.Fatalf("expected both duplicates preserved, got %d", len(all))
	}
}

func TestValueUnescapeLazy(t *testing.T) {
	v := Value{Raw: []byte(`line1\nline2`), Kind: KindString, Escaped: true}
	if got := v.String(); got != "line1\nline2" {
		t.Fatalf("unexpected unescape result: %q", got)
	}
	plain := Value{Raw: []byte(`line1\nline2`), Kind: KindString, Escaped: false}
	if got := plain.String(); got != `line1\nline2` {
		t.Fatalf("expected no unescape when Escaped=false, got %q", got)
	}
}

func TestLevelBit(t *testing.T) {
	if LevelWarn.Bit() != 1<<3 {
		t.Fatalf("unexpected bit for warn: %d", LevelWarn.Bit())
	}
	if LevelAbsent.Bit() != 0 {
		t.Fatalf("absent level must contribute no bit")
	}
}

func TestDefaultLevelTableLookup(t *testing.T) {
	tbl := DefaultLevelTable()
	if tbl.Lookup("warning") != LevelWarn {
		t.Fatalf("expected warning to map to LevelWarn")
	}
	if tbl.Lookup("nonsense") != LevelAbsent {
		t.Fatalf("expected unrecognized level to be absent")
	}
}
