package frame

import (
	"bytes"
	"testing"
)

func TestSplitLF(t *testing.T) {
	fr := New(ModeLF, false)
	recs, consumed := fr.Split([]byte("a\nb\nc"))
	if len(recs) != 2 || string(recs[0]) != "a" || string(recs[1]) != "b" {
		t.Fatalf("unexpected records: %v", recs)
	}
	if consumed != 4 {
		t.Fatalf("expected consumed=4 (trailing 'c' incomplete), got %d", consumed)
	}
}

func TestSplitCRLFSmartNewline(t *testing.T) {
	fr := New(ModeCRLF, false)
	recs, _ := fr.Split([]byte("a\r\nb\nc\r\n"))
	want := []string{"a", "b", "c"}
	if len(recs) != len(want) {
		t.Fatalf("expected %d records got %d: %v", len(want), len(recs), recs)
	}
	for i, w := range want {
		if string(recs[i]) != w {
			t.Fatalf("record %d: expected %q got %q", i, w, recs[i])
		}
	}
}

func TestAutoMergesContinuationLines(t *testing.T) {
	fr := New(ModeAuto, false)
	input := "{\n  \"a\": 1\n}\n{\"b\":2}\n"
	recs, consumed := fr.Split([]byte(input))
	if consumed != len(input) {
		t.Fatalf("expected full input consumed, got %d/%d", consumed, len(input))
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 merged records, got %d: %q", len(recs), recs)
	}
	if string(recs[0]) != "{\n  \"a\": 1\n}" {
		t.Fatalf("unexpected merged record: %q", recs[0])
	}
	if string(recs[1]) != `{"b":2}` {
		t.Fatalf("unexpected second record: %q", recs[1])
	}
}

func TestSafeCutWithheldUntilNextLineOrEOF(t *testing.T) {
	fr := New(ModeAuto, false)
	data := []byte("{\"a\":1}\n{\"b\":2}")
	// Not at EOF: only one raw line is fully confirmed complete; the
	// second could still gain a continuation, so cut must not include it.
	cut := fr.SafeCut(data, false)
	if cut != 8 {
		t.Fatalf("expected cut at 8 (start of second line), got %d", cut)
	}
	cutEOF := fr.SafeCut(data, true)
	if cutEOF != len(data) {
		t.Fatalf("expected full consumption at EOF, got %d", cutEOF)
	}
}

func TestFramingRoundTripProperty(t *testing.T) {
	inputs := []string{
		"a\nb\nc\n",
		"a\r\nb\r\n",
		"\x00a\x00b\x00",
		"",
		"no-trailing-newline",
	}
	modes := []Mode{ModeLF, ModeCR, ModeCRLF, ModeNUL}
	for _, in := range inputs {
		for _, m := range modes {
			fr := New(m, false)
			recs, consumed := fr.Split([]byte(in))
			var rebuilt bytes.Buffer
			for _, r := range recs {
				rebuilt.Write(r)
				rebuilt.WriteByte(delimiterFor(m))
			}
			if rebuilt.Len() > 0 && rebuilt.String() != in[:consumed] {
				// Only check when the delimiter byte matches the mode's
				// actual byte (CRLF mode mixes the two representations,
				// so skip the reconstruction check there).
				if m != ModeCRLF {
					t.Fatalf("mode %v: round-trip mismatch: got %q want %q", m, rebuilt.String(), in[:consumed])
				}
			}
		}
	}
}

func delimiterFor(m Mode) byte {
	switch m {
	case ModeCR:
		return '\r'
	case ModeNUL:
		return 0
	default:
		return '\n'
	}
}

func TestExtractPrefix(t *testing.T) {
	line := []byte(`2024-01-15 10:30:45 host1: {"a":1}`)
	prefix, body, ok := ExtractPrefix(line, func(b []byte) bool {
		return bytes.HasPrefix(b, []byte("{")) && bytes.HasSuffix(b, []byte("}"))
	})
	if !ok {
		t.Fatal("expected prefix extraction to succeed")
	}
	if string(prefix) != "2024-01-15 10:30:45 host1: " {
		t.Fatalf("unexpected prefix: %q", prefix)
	}
	if string(body) != `{"a":1}` {
		t.Fatalf("unexpected body: %q", body)
	}
}
