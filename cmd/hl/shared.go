// Command hl is the CLI entry point (§6.4 "CLI parser" hand-off target):
// it wires cli.App's Runner to the three execution modes (plain pipeline,
// sorted merge, follow) plus --raw and --dump-index, translating the
// six-kind error taxonomy of §7 into the process's exit code.
//
// Grounded on teacher's cli/api.go Static/Live entry points: the same
// "CLI layer hands a validated settings object to one of a small set of
// named run functions" shape, generalized from the teacher's
// static-scan-vs-live-capture duality to hl's plain/sorted/follow
// triple.
package main

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/tempestlab/hl/cli"
	"github.com/tempestlab/hl/frame"
	"github.com/tempestlab/hl/parse"
	"github.com/tempestlab/hl/query"
	"github.com/tempestlab/hl/reader"
	"github.com/tempestlab/hl/record"
	"github.com/tempestlab/hl/render"
	"github.com/tempestlab/hl/semantic"
	"github.com/tempestlab/hl/theme"
	"github.com/tempestlab/hl/tstamp"
)

// CanceledError marks a run stopped by a user interrupt past the
// ignore-count (§7's Cancellation kind); main maps it to exit 130.
type CanceledError struct{}

func (CanceledError) Error() string { return "interrupted" }
func (CanceledError) ExitCode() int { return 130 }

func readerOptions(s cli.Settings, source string) reader.Options {
	return reader.Options{
		BufferSize:     s.BufferSize,
		MaxMessageSize: s.MaxMessageSize,
		Framer:         frame.New(s.Delimiter, s.AllowPrefix),
		Source:         source,
	}
}

// filteringActive reports whether any predicate narrower than "accept
// everything" is configured — §4.D's raw-line fallback passes an
// unparseable line through only when nothing requires structure.
func filteringActive(s cli.Settings) bool {
	return s.MinLevel > record.LevelTrace || len(s.Query.Fields) > 0 || s.Query.AST != nil || !s.Query.Window.IsZero()
}

// evaluator resolves and filters one record at a time, shared by the
// non-sort pipeline's ProcessFunc and the follow-mode formatter (sort
// mode uses its own pass inside merge.FileSource, since it prunes whole
// segments before ever reaching this stage).
type evaluator struct {
	extractor semantic.Extractor
	levels    record.LevelTable
	unit      tstamp.Unit
	format    parse.Format
	query     query.Query
}

func newEvaluator(s cli.Settings) evaluator {
	return evaluator{
		extractor: semantic.New(s.NameLists),
		levels:    s.LevelTable,
		unit:      s.UnixUnit,
		format:    s.InputFormat,
		query:     s.Query,
	}
}

// splitBody frames one record span, extracting its prefix when the
// framer's policy allows it.
func splitBody(fr frame.Framer, span []byte) (body, prefix []byte) {
	if fr.AllowPrefix {
		if p, b, ok := frame.ExtractPrefix(span, parse.LooksLikeJSONObject); ok {
			return b, p
		}
	}
	return span, nil
}

// parse parses body into a Record and tags it with prefix, so
// rec.Prefix+rec.Source always reconstitutes the exact source span
// (§4.C, S4).
func (e evaluator) parse(body, prefix []byte) record.Record {
	rec := parse.Record(body, e.format)
	rec.Prefix = prefix
	return rec
}

// matches resolves rec's semantic view and reports whether it passes
// e's query, along with the resolved view for rendering.
func (e evaluator) matches(rec record.Record) (record.Semantic, bool) {
	sem := e.extractor.Extract(rec)
	lvl := sem.Level(rec, e.levels)
	ts, hasTS := sem.Timestamp(rec, func(raw string) (record.Timestamp, error) {
		return tstamp.Parse(raw, e.unit)
	})
	resolve := func(name string) (record.Value, bool) { return semantic.ValueFor(rec, name, parse.JSON) }
	return sem, e.query.Matches(rec, lvl, sem.HasLevel(), ts, hasTS, resolve)
}

func formatterFor(stdout *os.File, s cli.Settings) render.Formatter {
	color := term.IsTerminal(int(stdout.Fd()))
	return render.DefaultFormatter{Color: color, Theme: theme.Lookup(s.Theme)}
}

// writeRecord renders rec to w: a bypass to rec's exact source bytes
// (prefix included) when raw output was requested or the record never
// parsed, otherwise the configured Formatter.
func writeRecord(w io.Writer, rec record.Record, sem record.Semantic, formatter render.Formatter, raw bool) error {
	if raw || rec.IsRaw() {
		if len(rec.Prefix) > 0 {
			if _, err := w.Write(rec.Prefix); err != nil {
				return err
			}
		}
		if _, err := w.Write(rec.Source); err != nil {
			return err
		}
		_, err := w.Write([]byte("\n"))
		return err
	}
	if len(rec.Prefix) > 0 {
		if _, err := w.Write(rec.Prefix); err != nil {
			return err
		}
		if _, err := w.Write([]byte(" ")); err != nil {
			return err
		}
	}
	return formatter.Format(w, rec, sem)
}
