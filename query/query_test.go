package query

import (
	"testing"

	"github.com/tempestlab/hl/record"
)

func TestLevelFilterAbsentPassesOnlyAtTrace(t *testing.T) {
	f := LevelFilter{Min: record.LevelTrace}
	if !f.Allows(record.LevelAbsent) {
		t.Fatal("expected absent level to pass at Min=Trace")
	}
	f2 := LevelFilter{Min: record.LevelWarn}
	if f2.Allows(record.LevelAbsent) {
		t.Fatal("expected absent level to fail at Min=Warn")
	}
}

func TestFieldFilterEqOperator(t *testing.T) {
	ff, err := NewFieldFilter("status", OpEq, []string{"200"}, false)
	if err != nil {
		t.Fatal(err)
	}
	resolve := func(name string) (record.Value, bool) {
		if name == "status" {
			return record.Value{Raw: []byte("200"), Kind: record.KindInt}, true
		}
		return record.Value{}, false
	}
	if !ff.Eval(resolve) {
		t.Fatal("expected match")
	}
}

func TestFieldFilterIncludeAbsentModifier(t *testing.T) {
	ff, err := NewFieldFilter("missing", OpEq, []string{"x"}, true)
	if err != nil {
		t.Fatal(err)
	}
	resolve := func(name string) (record.Value, bool) { return record.Value{}, false }
	if !ff.Eval(resolve) {
		t.Fatal("expected include-absent modifier to pass on missing field")
	}
}

func TestFieldFilterRegex(t *testing.T) {
	ff, err := NewFieldFilter("msg", OpRegex, []string{`^hello`}, false)
	if err != nil {
		t.Fatal(err)
	}
	resolve := func(name string) (record.Value, bool) {
		return record.Value{Raw: []byte("hello world")}, true
	}
	if !ff.Eval(resolve) {
		t.Fatal("expected regex match")
	}
}

func TestWindowContains(t *testing.T) {
	w := NewWindow(100, true, 200, true)
	if !w.Contains(150, true) {
		t.Fatal("expected 150 within [100,200]")
	}
	if w.Contains(250, true) {
		t.Fatal("expected 250 outside window")
	}
	if w.Contains(150, false) {
		t.Fatal("expected no-timestamp record to fail an active window")
	}
}

func TestParseAndEvalSimpleComparison(t *testing.T) {
	expr, err := Parse(`.status = 200`)
	if err != nil {
		t.Fatal(err)
	}
	ctx := EvalContext{Resolve: func(name string) (record.Value, bool) {
		if name == "status" {
			return record.Value{Raw: []byte("200")}, true
		}
		return record.Value{}, false
	}}
	if !expr.Eval(ctx) {
		t.Fatal("expected match")
	}
}

func TestParseAndOrNotPrecedence(t *testing.T) {
	expr, err := Parse(`.a = "1" and not .b = "2" or .c = "3"`)
	if err != nil {
		t.Fatal(err)
	}
	resolve := func(name string) (record.Value, bool) {
		switch name {
		case "a":
			return record.Value{Raw: []byte("1")}, true
		case "b":
			return record.Value{Raw: []byte("9")}, true
		case "c":
			return record.Value{Raw: []byte("9")}, true
		}
		return record.Value{}, false
	}
	ctx := EvalContext{Resolve: resolve}
	if !expr.Eval(ctx) {
		t.Fatal("expected (a=1 and not(b=2)) or c=3 to be true via the first clause")
	}
}

func TestParseLevelComparison(t *testing.T) {
	expr, err := Parse(`level >= warn`)
	if err != nil {
		t.Fatal(err)
	}
	ctx := EvalContext{Level: record.LevelError, HasLvl: true}
	if !expr.Eval(ctx) {
		t.Fatal("expected error >= warn")
	}
}

func TestParseExists(t *testing.T) {
	expr, err := Parse(`exists(.trace_id)`)
	if err != nil {
		t.Fatal(err)
	}
	ctx := EvalContext{Resolve: func(name string) (record.Value, bool) {
		return record.Value{}, name == "trace_id"
	}}
	if !expr.Eval(ctx) {
		t.Fatal("expected exists(.trace_id) true")
	}
}

func TestParseStringOps(t *testing.T) {
	expr, err := Parse(`.msg ~= "world"`)
	if err != nil {
		t.Fatal(err)
	}
	ctx := EvalContext{Resolve: func(name string) (record.Value, bool) {
		return record.Value{Raw: []byte("hello world")}, true
	}}
	if !expr.Eval(ctx) {
		t.Fatal("expected substring match")
	}
}

func TestParseParentheses(t *testing.T) {
	expr, err := Parse(`(.a = "1" or .a = "2") and .b = "x"`)
	if err != nil {
		t.Fatal(err)
	}
	resolve := func(name string) (record.Value, bool) {
		switch name {
		case "a":
			return record.Value{Raw: []byte("2")}, true
		case "b":
			return record.Value{Raw: []byte("x")}, true
		}
		return record.Value{}, false
	}
	ctx := EvalContext{Resolve: resolve}
	if !expr.Eval(ctx) {
		t.Fatal("expected parenthesized or to combine correctly with and")
	}
}
