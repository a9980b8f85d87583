package parse

import "github.com/tempestlab/hl/record"

// Logfmt parses src as a sequence of key=value tokens (§4.D): keys are
// bareword runs of any byte except space and '='; values are
// either a bareword run (no spaces) or a double-quoted string with
// backslash escapes. A bare key with no '=' is recorded with an empty
// string value, matching common logfmt usage for boolean flags; a line
// with no key=value token at all is rejected.
func Logfmt(src []byte) (record.Record, error) {
	p := &logfmtParser{src: src}
	var fields []record.Field
	sawPair := false
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			break
		}
		key := p.bareword(true)
		if len(key) == 0 {
			return record.Record{}, &MalformedRecordError{Format: "logfmt", Offset: p.pos, Reason: "expected key"}
		}
		var val record.Value
		if p.pos < len(p.src) && p.src[p.pos] == '=' {
			p.pos++
			sawPair = true
			var err error
			val, err = p.value()
			if err != nil {
				return record.Record{}, err
			}
		} else {
			val = record.Value{Raw: nil, Kind: record.KindString}
		}
		fields = append(fields, record.Field{Key: key, Value: val})
	}
	if !sawPair {
		return record.Record{}, &MalformedRecordError{Format: "logfmt", Offset: 0, Reason: "no key=value tokens found"}
	}
	return record.Record{Fields: fields, Source: src, Format: record.FormatLogfmt}, nil
}

type logfmtParser struct {
	src []byte
	pos int
}

func (p *logfmtParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

// bareword consumes a run of bytes up to the next space, '=' (if
// stopAtEquals), or end of input.
func (p *logfmtParser) bareword(stopAtEquals bool) []byte {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || (stopAtEquals && c == '=') {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *logfmtParser) value() (record.Value, error) {
	if p.pos < len(p.src) && p.src[p.pos] == '"' {
		start := p.pos + 1
		i := start
		escaped := false
		for i < len(p.src) {
			c := p.src[i]
			if c == '\\' {
				escaped = true
				i += 2
				continue
			}
			if c == '"' {
				p.pos = i + 1
				return record.Value{Raw: p.src[start:i], Kind: record.KindString, Escaped: escaped}, nil
			}
			i++
		}
		return record.Value{}, &MalformedRecordError{Format: "logfmt", Offset: start, Reason: "unterminated quoted value"}
	}
	raw := p.bareword(false)
	return record.Value{Raw: raw, Kind: classifyBareword(raw)}, nil
}

// classifyBareword gives unquoted logfmt values a best-effort kind so
// numeric comparisons in the query package don't need to re-sniff the
// bytes; any ambiguity defaults to KindString, which is always safe
// since string comparisons work on any raw span.
func classifyBareword(raw []byte) record.Kind {
	if len(raw) == 0 {
		return record.KindString
	}
	switch string(raw) {
	case "true", "false":
		return record.KindBool
	case "null":
		return record.KindNull
	}
	isFloat := false
	i := 0
	if raw[0] == '-' {
		i = 1
	}
	if i >= len(raw) {
		return record.KindString
	}
	sawDigit := false
	for ; i < len(raw); i++ {
		switch {
		case raw[i] >= '0' && raw[i] <= '9':
			sawDigit = true
		case raw[i] == '.' && !isFloat:
			isFloat = true
		default:
			return record.KindString
		}
	}
	if !sawDigit {
		return record.KindString
	}
	if isFloat {
		return record.KindFloat
	}
	return record.KindInt
}
