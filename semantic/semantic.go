// Package semantic implements §4.E's Semantic Field Extractor: given a
// record and a configured, ordered name list per predefined field
// (timestamp/level/message/logger/caller), it resolves an optional
// handle into the record's field list.
//
// Grounded on tylermac92-logpipe's fixed "well-known field" lookup
// (hard-coded "level"/"msg"/"time" keys) generalized to §4.E's
// configurable, ordered, multi-alias name lists with dotted/flat OR
// combination and '-'/'_' key equivalence (the latter already lives in
// record.Field.KeyEqual).
package semantic

import (
	"github.com/tempestlab/hl/record"
)

// NameLists holds the ordered candidate field names for each predefined
// semantic field, as loaded from config (§6.5) or CLI override.
type NameLists struct {
	Timestamp []string
	Level     []string
	Message   []string
	Logger    []string
	Caller    []string
}

// DefaultNameLists matches the example name list in §4.E.
func DefaultNameLists() NameLists {
	return NameLists{
		Timestamp: []string{"timestamp", "@timestamp", "time", "ts", "t", "date", "datetime", "_time", "syslog_timestamp"},
		Level:     []string{"level", "lvl", "severity", "loglevel"},
		Message:   []string{"message", "msg", "text"},
		Logger:    []string{"logger", "log", "name", "component"},
		Caller:    []string{"caller", "source", "file"},
	}
}

// Extractor resolves Semantic handles for records under a fixed
// NameLists configuration.
type Extractor struct {
	names NameLists
}

// New returns an Extractor for the given name lists.
func New(names NameLists) Extractor { return Extractor{names: names} }

// Extract resolves every predefined field against rec, in each name
// list's configured priority order — the list order is a strict
// priority, there is no implicit fallback beyond what's listed (per the
// resolved Open Question in SPEC_FULL.md §9).
func (e Extractor) Extract(rec record.Record) record.Semantic {
	sem := record.NewSemantic()
	sem.TimestampIdx = e.resolve(rec, e.names.Timestamp)
	sem.LevelIdx = e.resolve(rec, e.names.Level)
	sem.MessageIdx = e.resolve(rec, e.names.Message)
	sem.LoggerIdx = e.resolve(rec, e.names.Logger)
	sem.CallerIdx = e.resolve(rec, e.names.Caller)
	return sem
}

// resolve walks names in priority order and returns the field index of
// the first match found via matchField (which itself applies dotted/flat
// OR-combination and '-'/'_' equivalence), or -1 if none match.
func (e Extractor) resolve(rec record.Record, names []string) int {
	for _, name := range names {
		if idx := matchField(rec, name); idx >= 0 {
			return idx
		}
	}
	return -1
}

// matchField returns the index of the first field in rec matching name,
// considering both a flat dotted key ("user.id") and the equivalent
// hierarchical nesting ("user":{"id":_}) — per §4.E these are combined
// by OR, so whichever form the record actually uses is found.
//
// Hierarchical nesting only resolves to a top-level index: when name
// designates a nested path, the match returned is the index of the
// top-level field that contains it (e.g. "user" for "user.id"), since
// Semantic handles point into rec.Fields directly. Callers that need the
// nested Value itself should use ValueFor instead of the raw index.
func matchField(rec record.Record, name string) int {
	for i, f := range rec.Fields {
		if f.KeyEqual(name) {
			return i
		}
	}
	if dot := indexByte(name, '.'); dot >= 0 {
		head := name[:dot]
		for i, f := range rec.Fields {
			if f.KeyEqual(head) && f.Value.Kind == record.KindRawObject {
				return i
			}
		}
	}
	return -1
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

// ValueFor resolves name against rec the same way matchField does, but
// returns the actual leaf Value — including descending into a nested
// object's raw span via objParse when name is a dotted path that matched
// the hierarchical form. objParse is injected (normally parse.JSON) to
// avoid an import cycle between semantic and parse.
func ValueFor(rec record.Record, name string, objParse func([]byte) (record.Record, error)) (record.Value, bool) {
	if v, ok := rec.Get(name); ok {
		return v, true
	}
	dot := indexByte(name, '.')
	if dot < 0 {
		return record.Value{}, false
	}
	head, rest := name[:dot], name[dot+1:]
	container, ok := rec.Get(head)
	if !ok || container.Kind != record.KindRawObject {
		return record.Value{}, false
	}
	nested, err := objParse(container.Raw)
	if err != nil {
		return record.Value{}, false
	}
	return ValueFor(nested, rest, objParse)
}
