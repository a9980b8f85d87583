// Package query implements §4.G's Filter & Query Engine: level filter,
// field filters, time windows, and a boolean query AST evaluated against
// a parsed record and its semantic view.
//
// Grounded on ChristianF88-cidrx's analysis/filter.go filterWorker, whose
// time-window-then-predicate-then-secondary-match shape is the direct
// ancestor of Evaluate's ordering (cheapest/most-selective checks first);
// generalized from requestChunk/trieConfig's fixed CIDR predicate to an
// arbitrary level/field/window/AST combination over record.Record.
package query

import "github.com/tempestlab/hl/record"

// LevelFilter passes records whose level is at least Min. A record with
// no recognizable level (record.LevelAbsent) passes iff Min allows
// LevelTrace, i.e. the filter wasn't narrowed above the lowest level
// (§4.G).
type LevelFilter struct {
	Min record.Level
}

// Allows reports whether lvl satisfies the filter.
func (f LevelFilter) Allows(lvl record.Level) bool {
	if lvl == record.LevelAbsent {
		return f.Min <= record.LevelTrace
	}
	return lvl >= f.Min
}
