// Package frame implements §4.C's Record Framer: given a byte buffer, it
// finds delimiter-aligned record boundaries (honoring one of the five
// delimiter policies) and, in auto mode, merges pretty-printed
// multi-line JSON continuation lines into the record they belong to.
//
// Grounded on the line-splitting core of tylermac92-logpipe's parsers
// (bufio.Scanner-based, one record per '\n') generalized to the five
// delimiter policies and the "auto" smart-newline + continuation-merge
// rule that spec.md §4.C adds on top.
package frame

import "bytes"

// Mode selects the delimiter policy.
type Mode uint8

const (
	ModeAuto Mode = iota
	ModeLF
	ModeCR
	ModeCRLF
	ModeNUL
)

// ParseMode maps a --delimiter flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "lf":
		return ModeLF, nil
	case "cr":
		return ModeCR, nil
	case "crlf":
		return ModeCRLF, nil
	case "nul":
		return ModeNUL, nil
	default:
		return ModeAuto, &UnknownModeError{Value: s}
	}
}

// UnknownModeError is a Configuration-kind error (§7.1).
type UnknownModeError struct{ Value string }

func (e *UnknownModeError) Error() string { return "unknown delimiter mode: " + e.Value }

// Framer splits buffered bytes into logical record spans.
type Framer struct {
	Mode        Mode
	AllowPrefix bool
}

// New returns a Framer for the given delimiter mode and prefix policy.
func New(mode Mode, allowPrefix bool) Framer {
	return Framer{Mode: mode, AllowPrefix: allowPrefix}
}

// span is a half-open [start,end) byte range within the buffer passed to
// split/SafeCut, excluding the delimiter itself.
type span [2]int

// splitRaw finds every delimiter-terminated span in data for the given
// mode, plus how many leading bytes of data are "consumed" (i.e. belong
// to a complete, delimiter-terminated span) — any bytes after that are a
// partial trailing record awaiting more input.
func splitRaw(data []byte, mode Mode) (spans []span, consumed int) {
	start := 0
	for i := 0; i < len(data); i++ {
		switch mode {
		case ModeNUL:
			if data[i] == 0 {
				spans = append(spans, span{start, i})
				start = i + 1
			}
		case ModeCR:
			if data[i] == '\r' {
				spans = append(spans, span{start, i})
				start = i + 1
			}
		case ModeLF:
			if data[i] == '\n' {
				spans = append(spans, span{start, i})
				start = i + 1
			}
		default: // ModeCRLF and ModeAuto both use "smart newline"
			if data[i] == '\n' {
				end := i
				if end > start && data[end-1] == '\r' {
					end--
				}
				spans = append(spans, span{start, end})
				start = i + 1
			}
		}
	}
	return spans, start
}

// isContinuation reports whether a record beginning with b's first byte
// should be merged into the previous record under auto mode's
// pretty-printed-JSON continuation rule (§4.C).
func isContinuation(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	switch b[0] {
	case '}', ' ', '\t':
		return true
	default:
		return false
	}
}

// Split returns every complete logical record span in data (after
// auto-mode continuation merging) and the number of leading bytes of
// data those spans account for (the rest is an incomplete trailing
// record). It does not attempt to decide whether the LAST returned span
// might still gain a continuation line from data not yet read — callers
// streaming incrementally must use SafeCut for that; Split alone is
// correct when data is known-complete (e.g. a whole already-bounded
// Segment during parsing).
func (fr Framer) Split(data []byte) (records [][]byte, consumed int) {
	raw, consumed := splitRaw(data, fr.Mode)
	if fr.Mode != ModeAuto {
		for _, s := range raw {
			records = append(records, data[s[0]:s[1]])
		}
		return records, consumed
	}
	var merged []span
	for _, s := range raw {
		if len(merged) > 0 && isContinuation(data[s[0]:s[1]]) {
			merged[len(merged)-1][1] = s[1]
			continue
		}
		merged = append(merged, s)
	}
	for _, s := range merged {
		records = append(records, data[s[0]:s[1]])
	}
	return records, consumed
}

// SafeCut returns the byte offset within data up to which it is safe to
// finalize a Segment: every record ending before that offset is
// guaranteed complete and, in auto mode, guaranteed NOT to receive a
// later continuation line, because either EOF was reached (nothing more
// can ever arrive) or a subsequent raw line already proves the
// uncertain one closed without being merged forward.
//
// Returns 0 when no cut can yet be made (need more data and not at EOF).
func (fr Framer) SafeCut(data []byte, atEOF bool) int {
	if atEOF {
		return len(data)
	}
	raw, consumed := splitRaw(data, fr.Mode)
	if fr.Mode != ModeAuto {
		return consumed
	}
	// A raw line start is a safe cut once the line beginning there is
	// known not to be a continuation, i.e. its first byte is already in
	// data: the partial line after the last delimiter is checked first,
	// then complete raw lines from the last one backwards.
	if consumed > 0 && consumed < len(data) && !isContinuation(data[consumed:]) {
		return consumed
	}
	for i := len(raw) - 1; i > 0; i-- {
		if s := raw[i]; !isContinuation(data[s[0]:s[1]]) {
			return s[0]
		}
	}
	return 0
}

// Delimiter returns the single byte this mode splits on, for contexts
// that need to re-emit the delimiter (e.g. --raw passthrough reproducing
// input bytes exactly). ModeAuto and ModeCRLF report '\n' since that is
// always the terminating byte under smart-newline splitting.
func (m Mode) Delimiter() byte {
	switch m {
	case ModeCR:
		return '\r'
	case ModeNUL:
		return 0
	default:
		return '\n'
	}
}

// ExtractPrefix implements §4.C's prefix policy: scan span for the first
// '{', and if canParseJSON reports the tail from there on looks like a
// JSON object, split into (prefix, body). canParseJSON is injected by the
// caller (parse.LooksLikeJSONObject) to avoid an import cycle between
// frame and parse.
func ExtractPrefix(recordSpan []byte, canParseJSON func([]byte) bool) (prefix, body []byte, ok bool) {
	idx := bytes.IndexByte(recordSpan, '{')
	if idx < 0 {
		return nil, recordSpan, false
	}
	candidate := recordSpan[idx:]
	if !canParseJSON(candidate) {
		return nil, recordSpan, false
	}
	return recordSpan[:idx], candidate, true
}
