// Package parse implements §4.D's format parsers: zero-copy JSON and
// logfmt record parsers that borrow field keys/values from the segment
// bytes they're handed, preserving source order and duplicate keys.
//
// Grounded on tylermac92-logpipe's hand-rolled line parsers (its JSON
// path wraps encoding/json.Unmarshal into a map, discarding order; its
// logfmt path is a small state machine over key=value tokens) — ported
// here to a borrowing, order-preserving, allocation-light design since
// the map-based approach can't satisfy §3's "Record.Fields is ordered
// and duplicate-preserving" requirement.
package parse

import (
	"fmt"

	"github.com/tempestlab/hl/record"
)

// MalformedRecordError is a Parsing-kind error (§7.2): the input looked
// like the named format but failed to parse as valid syntax partway
// through.
type MalformedRecordError struct {
	Format string
	Offset int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record at offset %d: %s", e.Format, e.Offset, e.Reason)
}

// LooksLikeJSONObject is the canParseJSON predicate injected into
// frame.ExtractPrefix: a cheap syntactic check (balanced-enough, starts
// with '{') without fully parsing, since prefix extraction runs on every
// record and a full parse here would be wasted work when JSON parses the
// same bytes again immediately after.
func LooksLikeJSONObject(b []byte) bool {
	b = trimLeadingSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return false
	}
	end := trimTrailingSpace(b)
	return len(end) > 0 && end[len(end)-1] == '}'
}

func trimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) && isJSONSpace(b[i]) {
		i++
	}
	return b[i:]
}

func trimTrailingSpace(b []byte) []byte {
	j := len(b)
	for j > 0 && isJSONSpace(b[j-1]) {
		j--
	}
	return b[:j]
}

func isJSONSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// JSON parses src as a single top-level JSON object into a Record. Per
// §4.D, top-level arrays and scalars are rejected — hl's record model is
// objects-only; such input falls through to logfmt/raw handling instead.
func JSON(src []byte) (record.Record, error) {
	p := &jsonParser{src: src}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '{' {
		return record.Record{}, &MalformedRecordError{Format: "json", Offset: p.pos, Reason: "expected top-level object"}
	}
	fields, err := p.object()
	if err != nil {
		return record.Record{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return record.Record{}, &MalformedRecordError{Format: "json", Offset: p.pos, Reason: "trailing data after object"}
	}
	return record.Record{Fields: fields, Source: src, Format: record.FormatJSON}, nil
}

type jsonParser struct {
	src []byte
	pos int
}

func (p *jsonParser) skipSpace() {
	for p.pos < len(p.src) && isJSONSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *jsonParser) errf(reason string) error {
	return &MalformedRecordError{Format: "json", Offset: p.pos, Reason: reason}
}

// object parses a '{' ... '}' body starting at p.pos (which must point at
// '{') and returns its fields in source order, duplicates intact.
func (p *jsonParser) object() ([]record.Field, error) {
	p.pos++ // consume '{'
	var fields []record.Field
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '}' {
		p.pos++
		return fields, nil
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != '"' {
			return nil, p.errf("expected field key string")
		}
		key, escaped, err := p.stringSpan()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return nil, p.errf("expected ':' after key")
		}
		p.pos++
		p.skipSpace()
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		fields = append(fields, record.Field{Key: dekey(key, escaped), Value: val})
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errf("unterminated object")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
			continue
		case '}':
			p.pos++
			return fields, nil
		default:
			return nil, p.errf("expected ',' or '}'")
		}
	}
}

// dekey resolves a field key to a plain []byte. Keys themselves are not
// lazily unescaped like values (keys are compared constantly; escaped
// keys are rare enough not to warrant deferred decoding), so an escaped
// key is unescaped eagerly here.
func dekey(raw []byte, escaped bool) []byte {
	if !escaped {
		return raw
	}
	v := record.Value{Raw: raw, Kind: record.KindString, Escaped: true}
	return []byte(v.String())
}

// stringSpan parses a JSON string starting at p.pos (pointing at the
// opening quote) and returns the raw body (excluding quotes) plus
// whether it contains any backslash escape.
func (p *jsonParser) stringSpan() (raw []byte, escaped bool, err error) {
	start := p.pos + 1
	i := start
	for i < len(p.src) {
		c := p.src[i]
		if c == '\\' {
			escaped = true
			i += 2
			continue
		}
		if c == '"' {
			p.pos = i + 1
			return p.src[start:i], escaped, nil
		}
		i++
	}
	return nil, false, p.errf("unterminated string")
}

// value parses any JSON value at p.pos and returns a Value borrowing its
// raw span. Objects and arrays are kept as raw, unparsed spans (§3) —
// downstream dotted-path resolution parses them lazily on demand.
func (p *jsonParser) value() (record.Value, error) {
	if p.pos >= len(p.src) {
		return record.Value{}, p.errf("unexpected end of value")
	}
	switch c := p.src[p.pos]; {
	case c == '"':
		raw, escaped, err := p.stringSpan()
		if err != nil {
			return record.Value{}, err
		}
		return record.Value{Raw: raw, Kind: record.KindString, Escaped: escaped}, nil
	case c == '{':
		start := p.pos
		if _, err := p.object(); err != nil {
			return record.Value{}, err
		}
		return record.Value{Raw: p.src[start:p.pos], Kind: record.KindRawObject}, nil
	case c == '[':
		start := p.pos
		if err := p.array(); err != nil {
			return record.Value{}, err
		}
		return record.Value{Raw: p.src[start:p.pos], Kind: record.KindRawArray}, nil
	case c == 't':
		return p.literal("true", record.Value{Kind: record.KindBool})
	case c == 'f':
		return p.literal("false", record.Value{Kind: record.KindBool})
	case c == 'n':
		return p.literal("null", record.Value{Kind: record.KindNull})
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return record.Value{}, p.errf("unexpected token")
	}
}

func (p *jsonParser) literal(word string, tmpl record.Value) (record.Value, error) {
	end := p.pos + len(word)
	if end > len(p.src) || string(p.src[p.pos:end]) != word {
		return record.Value{}, p.errf("invalid literal")
	}
	tmpl.Raw = p.src[p.pos:end]
	p.pos = end
	return tmpl, nil
}

func (p *jsonParser) number() (record.Value, error) {
	start := p.pos
	isFloat := false
	if p.src[p.pos] == '-' {
		p.pos++
	}
	digitsStart := p.pos
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == digitsStart {
		return record.Value{}, p.errf("invalid number")
	}
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		isFloat = true
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		isFloat = true
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	if p.pos == start {
		return record.Value{}, p.errf("invalid number")
	}
	kind := record.KindInt
	if isFloat {
		kind = record.KindFloat
	}
	return record.Value{Raw: p.src[start:p.pos], Kind: kind}, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// array consumes a '[' ... ']' span, tracking nesting and string escapes
// only enough to find the matching ']' — array elements themselves are
// never individually decoded here since arrays stay raw spans (§3).
func (p *jsonParser) array() error {
	p.pos++ // consume '['
	depth := 1
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '"':
			if _, _, err := p.stringSpan(); err != nil {
				return err
			}
			continue
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				p.pos++
				return nil
			}
		}
		p.pos++
	}
	return p.errf("unterminated array")
}
