// Package follow implements §4.L's Follow Engine: a multi-file tailer
// that preloads each file's tail, polls on a fixed sync interval,
// detects rotation, and releases records in bounded chronological
// windows across files.
//
// Grounded on ChristianF88-cidrx's sliding/sliding_window.go: the same
// dual structure of an ordered slice (there IPQueue, here fileOrder) for
// stable iteration plus a haxmap.Map keyed lookup (there IPStats, here
// registry) for per-entity state, and the same
// time-bounded+count-bounded "insert new, drop old, repeat on a cadence"
// shape InsertNew/DropOld/Update has — generalized from an IP-frequency
// window to a per-file chronological record buffer drained by timestamp
// windows instead of by a fixed time-to-live.
package follow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/alphadose/haxmap"
	"go.uber.org/zap"

	"github.com/tempestlab/hl/frame"
	"github.com/tempestlab/hl/parse"
	"github.com/tempestlab/hl/query"
	"github.com/tempestlab/hl/record"
	"github.com/tempestlab/hl/semantic"
	"github.com/tempestlab/hl/tstamp"
)

// Config configures a follow run. Zero-value Query means no filtering.
type Config struct {
	TailBytes     int64
	SyncInterval  time.Duration
	Framer        frame.Framer
	Format        parse.Format
	Names         semantic.NameLists
	Levels        record.LevelTable
	TimestampUnit tstamp.Unit
	Query         *query.Query
}

// log is follow's package-level diagnostic logger (§2's ambient
// "structured internal logging" concern), a no-op until SetLogger wires
// a real one in behind --verbose/HL_VERBOSE.
var log = zap.NewNop().Sugar()

// SetLogger installs l as follow's package-level logger.
func SetLogger(l *zap.SugaredLogger) { log = l }

func (c Config) setDefaults() Config {
	if c.TailBytes <= 0 {
		c.TailBytes = 64 << 10
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = 500 * time.Millisecond
	}
	return c
}

// pending is one parsed-and-timestamped record awaiting release, kept in
// a file's chronological buffer.
type pending struct {
	ts  record.Timestamp
	rec record.Record
}

// stream is one followed file's live state (§3 "Follow Stream").
type stream struct {
	path        string
	fileIdx     int
	file        *os.File
	inode       uint64
	lastSize    int64
	parseCursor int64
	leftover    []byte // unterminated trailing bytes from the last read
	pendingBuf  []pending
	seq         int
	dead        bool
}

// EmitFunc receives records in windowed chronological order.
type EmitFunc func(record.Record) error

// Engine drives a follow run over a fixed set of files.
type Engine struct {
	cfg       Config
	extractor semantic.Extractor
	registry  *haxmap.Map[string, *stream]
	fileOrder []string
}

// New returns an Engine for the given config, reusing cfg's Names to
// build the semantic extractor.
func New(cfg Config) *Engine {
	cfg = cfg.setDefaults()
	return &Engine{
		cfg:       cfg,
		extractor: semantic.New(cfg.Names),
		registry:  haxmap.New[string, *stream](16),
	}
}

// Run opens every path, preloads its tail, then polls every
// SyncInterval until ctx is done or a single Ctrl-C arrives — follow
// mode does not honor an interrupt-ignore-count, unlike the main
// pipeline (§4.L).
func (e *Engine) Run(ctx context.Context, paths []string, emit EmitFunc) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	e.fileOrder = make([]string, 0, len(paths))
	for i, p := range paths {
		st, err := e.openTail(p, i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hl: follow: %s: %v\n", p, err)
			continue
		}
		e.registry.Set(p, st)
		e.fileOrder = append(e.fileOrder, p)
	}

	ticker := time.NewTicker(e.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCtx.Done():
			return nil
		case <-ticker.C:
			if err := e.poll(emit); err != nil {
				return err
			}
		}
	}
}

// openTail opens path, seeks to max(0, size-TailBytes), and advances to
// the next record boundary so the first parsed line isn't a partial one.
func (e *Engine) openTail(path string, fileIdx int) (*stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	st := &stream{path: path, fileIdx: fileIdx, file: f, lastSize: info.Size(), inode: inodeOf(info)}

	start := info.Size() - e.cfg.TailBytes
	if start < 0 {
		start = 0
	}
	if start > 0 {
		start = rewindToBoundary(f, start, e.cfg.Framer.Mode)
	}
	st.parseCursor = start
	return st, nil
}

// rewindToBoundary reads forward from off until the first byte matching
// mode's delimiter, discarding the partial record before it, and
// returns the offset of the first complete record's start.
func rewindToBoundary(f *os.File, off int64, mode frame.Mode) int64 {
	buf := make([]byte, 4096)
	n, err := f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return off
	}
	idx := bytes.IndexByte(buf[:n], mode.Delimiter())
	if idx < 0 {
		return off
	}
	return off + int64(idx) + 1
}

// poll runs one sync-interval cycle: read new bytes from every live
// file (reopening rotated ones), then release the oldest chronological
// window across all files.
func (e *Engine) poll(emit EmitFunc) error {
	for _, path := range e.fileOrder {
		st, ok := e.registry.Get(path)
		if !ok || st.dead {
			continue
		}
		if err := e.pollFile(st); err != nil {
			fmt.Fprintf(os.Stderr, "hl: follow: %s: %v\n", st.path, err)
			st.file.Close()
			st.dead = true
			continue
		}
	}
	return e.releaseWindow(emit)
}

// pollFile detects rotation, reads any newly appended bytes, and parses
// complete records into the stream's pending buffer.
func (e *Engine) pollFile(st *stream) error {
	info, err := os.Stat(st.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		// The name is briefly absent mid-rotation: keep reading the open
		// handle until a new file appears under it.
		if info, err = st.file.Stat(); err != nil {
			return err
		}
	}

	inode := inodeOf(info)
	if info.Size() < st.lastSize || inode != st.inode {
		log.Debugw("file rotated", "path", st.path, "old_inode", st.inode, "new_inode", inode)
		st.file.Close()
		f, err := os.Open(st.path)
		if err != nil {
			return err
		}
		st.file = f
		st.inode = inode
		st.parseCursor = 0
		st.leftover = nil
		info, err = f.Stat()
		if err != nil {
			return err
		}
	}
	st.lastSize = info.Size()

	if info.Size() <= st.parseCursor {
		return nil
	}

	n := info.Size() - st.parseCursor
	buf := make([]byte, n)
	if _, err := st.file.ReadAt(buf, st.parseCursor); err != nil && err != io.EOF {
		return err
	}
	data := append(st.leftover, buf...)

	records, consumed := e.cfg.Framer.Split(data)
	st.parseCursor += int64(len(data) - len(st.leftover))
	st.leftover = append([]byte(nil), data[consumed:]...)

	for _, span := range records {
		rec := parse.Record(span, e.cfg.Format)
		sem := e.extractor.Extract(rec)
		if !sem.HasTimestamp() {
			continue // records without parseable timestamps are dropped (§4.L)
		}
		raw := rec.Fields[sem.TimestampIdx].Value.String()
		ts, err := tstamp.Parse(raw, e.cfg.TimestampUnit)
		if err != nil {
			continue
		}

		lvl := record.LevelAbsent
		if sem.HasLevel() {
			lvl = e.cfg.Levels.Lookup(rec.Fields[sem.LevelIdx].Value.String())
		}
		if e.cfg.Query != nil {
			resolve := func(name string) (record.Value, bool) { return semantic.ValueFor(rec, name, parse.JSON) }
			if !e.cfg.Query.Matches(rec, lvl, sem.HasLevel(), ts, true, resolve) {
				continue
			}
		}

		st.pendingBuf = append(st.pendingBuf, pending{ts: ts, rec: rec})
		st.seq++
	}
	sort.SliceStable(st.pendingBuf, func(i, j int) bool { return st.pendingBuf[i].ts < st.pendingBuf[j].ts })
	return nil
}

// releaseWindow emits every pending record, across all files, whose
// timestamp falls in [oldestHead, oldestHead+SyncInterval) — the bounded
// chronological window of §4.L. Records past the window stay buffered
// for a later cycle and may then appear out of absolute order, which the
// spec accepts by design.
func (e *Engine) releaseWindow(emit EmitFunc) error {
	var oldest record.Timestamp
	haveOldest := false
	e.forEachStream(func(st *stream) {
		if len(st.pendingBuf) == 0 {
			return
		}
		if !haveOldest || st.pendingBuf[0].ts < oldest {
			oldest = st.pendingBuf[0].ts
			haveOldest = true
		}
	})
	if !haveOldest {
		return nil
	}
	windowEnd := oldest + record.Timestamp(e.cfg.SyncInterval.Nanoseconds())

	type candidate struct {
		ts      record.Timestamp
		fileIdx int
		lineIdx int
		rec     record.Record
	}
	var batch []candidate

	e.forEachStream(func(st *stream) {
		i := 0
		for i < len(st.pendingBuf) && st.pendingBuf[i].ts < windowEnd {
			batch = append(batch, candidate{ts: st.pendingBuf[i].ts, fileIdx: st.fileIdx, lineIdx: i, rec: st.pendingBuf[i].rec})
			i++
		}
		st.pendingBuf = st.pendingBuf[i:]
	})

	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].ts != batch[j].ts {
			return batch[i].ts < batch[j].ts
		}
		if batch[i].fileIdx != batch[j].fileIdx {
			return batch[i].fileIdx < batch[j].fileIdx
		}
		return batch[i].lineIdx < batch[j].lineIdx
	})

	for _, c := range batch {
		if err := emit(c.rec); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) forEachStream(fn func(*stream)) {
	for _, path := range e.fileOrder {
		st, ok := e.registry.Get(path)
		if !ok || st.dead {
			continue
		}
		fn(st)
	}
}
