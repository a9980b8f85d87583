package reader

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/tempestlab/hl/frame"
)

func TestNextSegmentPlainLF(t *testing.T) {
	input := "line1\nline2\nline3\n"
	rd, err := Open(bytes.NewReader([]byte(input)), Options{
		Framer: frame.New(frame.ModeLF, false),
		Source: "test",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()

	seg, err := rd.NextSegment()
	if err != nil {
		t.Fatal(err)
	}
	if string(seg.Data) != input {
		t.Fatalf("expected full small input in one segment, got %q", seg.Data)
	}
	if seg.Offset != 0 || seg.Seq != 0 {
		t.Fatalf("unexpected offset/seq: %+v", seg)
	}

	_, err = rd.NextSegment()
	if err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestNextSegmentGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte("a\nb\nc\n"))
	gw.Close()

	rd, err := Open(bytes.NewReader(buf.Bytes()), Options{
		Framer: frame.New(frame.ModeLF, false),
		Source: "test.gz",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()

	seg, err := rd.NextSegment()
	if err != nil {
		t.Fatal(err)
	}
	if string(seg.Data) != "a\nb\nc\n" {
		t.Fatalf("unexpected decompressed segment: %q", seg.Data)
	}
}

func TestNextSegmentOversize(t *testing.T) {
	big := bytes.Repeat([]byte("x"), 100)
	rd, err := Open(bytes.NewReader(big), Options{
		Framer:         frame.New(frame.ModeLF, false),
		MaxMessageSize: 10,
		Source:         "test",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()

	_, err = rd.NextSegment()
	if err == nil {
		t.Fatal("expected oversize error")
	}
	var oversize *OversizeRecord
	if !errorsAs(err, &oversize) {
		t.Fatalf("expected *OversizeRecord, got %v", err)
	}
}

func TestNextSegmentOffsetsAdvance(t *testing.T) {
	input := bytes.Repeat([]byte("abcdefgh\n"), 1000)
	rd, err := Open(bytes.NewReader(input), Options{
		Framer:     frame.New(frame.ModeLF, false),
		BufferSize: 100,
		Source:     "test",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()

	var total int64
	var lastSeq int64 = -1
	for {
		seg, err := rd.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if seg.Offset != total {
			t.Fatalf("expected offset %d, got %d", total, seg.Offset)
		}
		if seg.Seq != lastSeq+1 {
			t.Fatalf("expected seq %d, got %d", lastSeq+1, seg.Seq)
		}
		lastSeq = seg.Seq
		total += int64(len(seg.Data))
	}
	if total != int64(len(input)) {
		t.Fatalf("expected to consume all %d bytes, consumed %d", len(input), total)
	}
}

// errorsAs is a tiny local shim so this test file only needs "errors" if we
// add more error-shape assertions later; kept minimal here via type switch.
func errorsAs(err error, target **OversizeRecord) bool {
	if o, ok := err.(*OversizeRecord); ok {
		*target = o
		return true
	}
	return false
}
