package record

// Field is one (key, value) pair in source order. Dotted keys such as
// "user.id" are stored verbatim in Key; flat-vs-nested resolution for
// dotted field paths is the Extractor/query package's job, not this
// package's — Record only guarantees order and duplicate preservation.
type Field struct {
	Key   []byte
	Value Value
}

// KeyString returns the field's key as a string (allocates; used off the
// hot path, e.g. when rendering or building a query's field-path cache).
func (f Field) KeyString() string { return string(f.Key) }

// KeyEqual reports whether the field's key matches name under the
// filter/query layer's '-'/'_' equivalence rule (§4.E): a '-' or '_' byte
// in either string matches either byte in the other, all other bytes
// must match exactly, case-sensitively.
func (f Field) KeyEqual(name string) bool {
	return keyEqual(f.Key, name)
}

func keyEqual(key []byte, name string) bool {
	if len(key) != len(name) {
		return false
	}
	for i := 0; i < len(key); i++ {
		a, b := key[i], name[i]
		if a == b {
			continue
		}
		if isDashOrUnderscore(a) && isDashOrUnderscore(b) {
			continue
		}
		return false
	}
	return true
}

func isDashOrUnderscore(b byte) bool { return b == '-' || b == '_' }

// Format tags which parser produced a Record, since a raw passthrough
// line (all parsers failed) still needs to flow through the pipeline for
// concatenation-mode output.
type Format uint8

const (
	FormatRaw Format = iota
	FormatJSON
	FormatLogfmt
)

// Record is the parsed, borrowed view of one input line. Field keys and
// values point into Source (a JSON key containing escapes is unescaped
// into a copy); Prefix points at the bytes just before Source. Both borrow
// from the Segment the record was framed from. A Record's lifetime must
// not outlive its segment (see reader.Segment).
type Record struct {
	Fields []Field
	// Source is the exact byte span this record was parsed from,
	// excluding Prefix and the line delimiter. Used for --raw passthrough
	// and for unparseable (raw) lines.
	Source []byte
	// Prefix holds the bytes preceding the first '{' when the framer's
	// prefix policy (§4.C) extracted one; nil otherwise.
	Prefix []byte
	Format Format
}

// Get returns the value of the first field whose key matches name (under
// the '-'/'_' equivalence rule), and true if found. Duplicate keys are
// resolved by first occurrence, consistent with source-order semantics.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.KeyEqual(name) {
			return f.Value, true
		}
	}
	return Value{}, false
}

// GetAll returns every field matching name in source order, preserving
// duplicates.
func (r Record) GetAll(name string) []Value {
	var out []Value
	for _, f := range r.Fields {
		if f.KeyEqual(name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// IsRaw reports whether every parser failed on this line, leaving only
// the source bytes.
func (r Record) IsRaw() bool { return r.Format == FormatRaw }
