package compress

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"
)

func TestDetectPlain(t *testing.T) {
	format, r, err := Detect(bytes.NewReader([]byte(`{"a":1}`)))
	if err != nil {
		t.Fatal(err)
	}
	if format != FormatPlain {
		t.Fatalf("expected plain, got %v", format)
	}
	b, _ := io.ReadAll(r)
	if string(b) != `{"a":1}` {
		t.Fatalf("peeked bytes not preserved: %q", b)
	}
}

func TestDetectAndStreamGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte("hello world\n"))
	gw.Close()

	r, format, err := Stream(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if format != FormatGzip {
		t.Fatalf("expected gzip detected, got %v", format)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "hello world\n" {
		t.Fatalf("unexpected decompressed content: %q", out)
	}
}

func TestDetectEmptyInput(t *testing.T) {
	format, _, err := Detect(bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	if format != FormatPlain {
		t.Fatalf("expected plain for empty input, got %v", format)
	}
}
