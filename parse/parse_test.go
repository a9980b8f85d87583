package parse

import (
	"testing"

	"github.com/tempestlab/hl/record"
)

func TestJSONPreservesOrderAndDuplicates(t *testing.T) {
	rec, err := JSON([]byte(`{"b":1,"a":2,"a":3}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(rec.Fields))
	}
	if string(rec.Fields[0].Key) != "b" || string(rec.Fields[1].Key) != "a" {
		t.Fatalf("order not preserved: %+v", rec.Fields)
	}
	all := rec.GetAll("a")
	if len(all) != 2 {
		t.Fatalf("expected 2 duplicate 'a' values, got %d", len(all))
	}
}

func TestJSONNestedStaysRaw(t *testing.T) {
	rec, err := JSON([]byte(`{"user":{"id":1,"name":"bob"}}`))
	if err != nil {
		t.Fatal(err)
	}
	v, ok := rec.Get("user")
	if !ok || v.Kind != record.KindRawObject {
		t.Fatalf("expected raw object kind, got %+v", v)
	}
	if v.String() != `{"id":1,"name":"bob"}` {
		t.Fatalf("unexpected raw span: %q", v.String())
	}
}

func TestJSONRejectsTopLevelArray(t *testing.T) {
	_, err := JSON([]byte(`[1,2,3]`))
	if err == nil {
		t.Fatal("expected error for top-level array")
	}
}

func TestJSONEscapedStringLazyUnescape(t *testing.T) {
	rec, err := JSON([]byte(`{"msg":"hello\nworld"}`))
	if err != nil {
		t.Fatal(err)
	}
	v, _ := rec.Get("msg")
	if !v.Escaped {
		t.Fatal("expected Escaped=true")
	}
	if v.String() != "hello\nworld" {
		t.Fatalf("unexpected unescaped value: %q", v.String())
	}
}

func TestLogfmtBasic(t *testing.T) {
	rec, err := Logfmt([]byte(`level=info msg="hello world" code=200 ok=true`))
	if err != nil {
		t.Fatal(err)
	}
	level, _ := rec.Get("level")
	if level.String() != "info" {
		t.Fatalf("unexpected level: %q", level.String())
	}
	msg, _ := rec.Get("msg")
	if msg.String() != "hello world" {
		t.Fatalf("unexpected msg: %q", msg.String())
	}
	code, _ := rec.Get("code")
	if code.Kind != record.KindInt {
		t.Fatalf("expected int kind for code, got %v", code.Kind)
	}
}

func TestLogfmtBareKeyNoValue(t *testing.T) {
	rec, err := Logfmt([]byte(`debug level=info`))
	if err != nil {
		t.Fatal(err)
	}
	v, ok := rec.Get("debug")
	if !ok || v.Raw != nil {
		t.Fatalf("expected bare key with empty value, got %+v", v)
	}
}

func TestRecordAutoDetectFallsBackToRaw(t *testing.T) {
	rec := Record([]byte(`this is not structured at all`), FormatAuto)
	if !rec.IsRaw() {
		t.Fatalf("expected raw fallback, got %+v", rec)
	}
}

func TestRecordAutoDetectJSON(t *testing.T) {
	rec := Record([]byte(`{"a":1}`), FormatAuto)
	if rec.Format != record.FormatJSON {
		t.Fatalf("expected JSON format, got %v", rec.Format)
	}
}

func TestRecordAutoDetectLogfmt(t *testing.T) {
	rec := Record([]byte(`a=1 b=2`), FormatAuto)
	if rec.Format != record.FormatLogfmt {
		t.Fatalf("expected logfmt format, got %v", rec.Format)
	}
}
