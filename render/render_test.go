package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tempestlab/hl/parse"
	"github.com/tempestlab/hl/record"
	"github.com/tempestlab/hl/semantic"
	"github.com/tempestlab/hl/theme"
)

func parseAndExtract(t *testing.T, src string) (record.Record, record.Semantic) {
	t.Helper()
	r, err := parse.JSON([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	s := semantic.New(semantic.DefaultNameLists()).Extract(r)
	return r, s
}

func TestDefaultFormatterPlainLine(t *testing.T) {
	r, s := parseAndExtract(t, `{"time":"2024-01-01T12:00:00Z","level":"info","msg":"started","port":8080}`)
	var buf bytes.Buffer
	f := DefaultFormatter{Color: false}
	if err := f.Format(&buf, r, s); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "[INFO ]") {
		t.Fatalf("expected level token, got %q", out)
	}
	if !strings.Contains(out, "started") {
		t.Fatalf("expected message, got %q", out)
	}
	if !strings.Contains(out, "port=8080") {
		t.Fatalf("expected extra field, got %q", out)
	}
}

func TestDefaultFormatterColorWrapsLevel(t *testing.T) {
	r, s := parseAndExtract(t, `{"level":"error","msg":"boom"}`)
	var buf bytes.Buffer
	f := DefaultFormatter{Color: true, Theme: theme.Default()}
	if err := f.Format(&buf, r, s); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), theme.Red) {
		t.Fatalf("expected red color code for error level, got %q", buf.String())
	}
}

func TestJSONFormatterPreservesOrderAndDuplicates(t *testing.T) {
	r, s := parseAndExtract(t, `{"b":1,"a":2,"a":3}`)
	var buf bytes.Buffer
	f := JSONFormatter{}
	if err := f.Format(&buf, r, s); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	bIdx := strings.Index(out, `"b"`)
	aIdx := strings.Index(out, `"a"`)
	if bIdx < 0 || aIdx < 0 || bIdx > aIdx {
		t.Fatalf("expected key order b before a, got %q", out)
	}
	if strings.Count(out, `"a"`) != 2 {
		t.Fatalf("expected duplicate key \"a\" preserved twice, got %q", out)
	}
}

func TestJSONFormatterPrettyIndents(t *testing.T) {
	r, s := parseAndExtract(t, `{"x":1}`)
	var buf bytes.Buffer
	f := JSONFormatter{Pretty: true}
	if err := f.Format(&buf, r, s); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\n") {
		t.Fatalf("expected pretty output to contain newlines, got %q", buf.String())
	}
}
