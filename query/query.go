package query

import "github.com/tempestlab/hl/record"

// Query composes every active predicate kind (§4.G) into one pass/fail
// decision per record. Nil/zero fields mean that predicate kind is
// inactive and always passes — a pipeline stage with no filtering
// configured at all gets a Query that passes everything.
type Query struct {
	Level  *LevelFilter
	Fields []FieldFilter
	Window Window
	AST    Expr
}

// Matches evaluates every active predicate against rec. lvl/hasLvl and
// ts/hasTs are the record's resolved semantic level and timestamp;
// resolve looks up arbitrary field values (including dotted paths).
func (q Query) Matches(rec record.Record, lvl record.Level, hasLvl bool, ts record.Timestamp, hasTs bool, resolve Resolver) bool {
	if q.Level != nil {
		effective := lvl
		if !hasLvl {
			effective = record.LevelAbsent
		}
		if !q.Level.Allows(effective) {
			return false
		}
	}
	if !q.Window.IsZero() && !q.Window.Contains(ts, hasTs) {
		return false
	}
	for _, ff := range q.Fields {
		if !ff.Eval(resolve) {
			return false
		}
	}
	if q.AST != nil {
		ctx := EvalContext{Level: lvl, HasLvl: hasLvl, Resolve: resolve}
		if !q.AST.Eval(ctx) {
			return false
		}
	}
	return true
}
