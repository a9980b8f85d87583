package merge

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/tempestlab/hl/chronidx"
	"github.com/tempestlab/hl/frame"
	"github.com/tempestlab/hl/indexcache"
	"github.com/tempestlab/hl/parse"
	"github.com/tempestlab/hl/pools"
	"github.com/tempestlab/hl/query"
	"github.com/tempestlab/hl/reader"
	"github.com/tempestlab/hl/record"
	"github.com/tempestlab/hl/semantic"
	"github.com/tempestlab/hl/tstamp"
)

// log is merge's package-level diagnostic logger (§2's ambient
// "structured internal logging" concern), a no-op until SetLogger wires
// a real one in behind --verbose/HL_VERBOSE.
var log = zap.NewNop().Sugar()

// SetLogger installs l as merge's package-level logger.
func SetLogger(l *zap.SugaredLogger) { log = l }

// hashBufPool backs buildBlocks' content-identity hash read: the buffer
// is fully consumed (hashed) and discarded before buildBlocks returns,
// so nothing downstream ever aliases it — unlike a segment's bytes,
// which every record.Record parsed from it keeps referencing.
var hashBufPool = pools.NewBufferPool(64 << 10)

// BuildOrLoadIndex returns path's FileIndex blocks, from the cache when
// fresh or freshly built otherwise — exactly what OpenFileSource would
// use, exposed for --dump-index (§6.1) to show what a sort-mode run
// would admit/skip without actually merging.
func BuildOrLoadIndex(cfg FileSourceConfig) (indexcache.FileIndex, error) {
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return indexcache.FileIndex{}, fmt.Errorf("dump-index: stat %s: %w", cfg.Path, err)
	}
	blocks, err := blocksFor(cfg, info)
	if err != nil {
		return indexcache.FileIndex{}, err
	}
	modified := indexcache.Timestamp{Sec: info.ModTime().Unix(), Nsec: uint32(info.ModTime().Nanosecond())}
	return indexcache.FileIndex{
		Size:     uint64(info.Size()),
		Path:     cfg.Path,
		Modified: modified,
		Blocks:   blocks,
	}, nil
}

// FileSourceConfig configures one file's contribution to a sorted merge
// (§4.K): where to read it, how to frame/parse it, and the active
// filter to admission-prune and evaluate against.
type FileSourceConfig struct {
	Path           string
	FileIdx        int
	CacheDir       string // empty disables the index cache (§4.J)
	BufferSize     int
	MaxMessageSize int
	Framer         frame.Framer
	Format         parse.Format
	Names          semantic.NameLists
	Levels         record.LevelTable
	Unit           tstamp.Unit
	Query          query.Query
}

// OpenFileSource builds or loads cfg.Path's chronidx index, then returns
// a Source that streams its admitted, timestamp-bearing records one
// segment at a time — never holding more than one segment's records in
// memory, per §5's "don't load whole files" bound.
func OpenFileSource(cfg FileSourceConfig) (*FileSource, error) {
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sort: stat %s: %w", cfg.Path, err)
	}

	blocks, err := blocksFor(cfg, info)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sort: open %s: %w", cfg.Path, err)
	}
	rd, err := reader.Open(f, reader.Options{
		BufferSize:     cfg.BufferSize,
		MaxMessageSize: cfg.MaxMessageSize,
		Framer:         cfg.Framer,
		Source:         cfg.Path,
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	fs := &FileSource{
		cfg:       cfg,
		extractor: semantic.New(cfg.Names),
		file:      f,
		rd:        rd,
		blocks:    blocks,
		levelMask: levelMaskFromFilter(cfg.Query.Level),
	}
	fs.since, fs.hasSince, fs.until, fs.hasUntil = cfg.Query.Window.Bounds()

	if err := fs.advance(); err != nil {
		f.Close()
		return nil, err
	}
	return fs, nil
}

// blocksFor returns cfg.Path's per-segment index blocks, from the cache
// when a fresh entry exists, otherwise built fresh (and persisted, when
// CacheDir is set) by a dedicated pass over the file (§4.J, §4.I).
func blocksFor(cfg FileSourceConfig, info os.FileInfo) ([]indexcache.SourceBlock, error) {
	modified := indexcache.Timestamp{Sec: info.ModTime().Unix(), Nsec: uint32(info.ModTime().Nanosecond())}

	var store *indexcache.Store
	if cfg.CacheDir != "" {
		s, err := indexcache.New(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		store = s
		if fi, ok := store.Load(cfg.Path, info.Size(), modified); ok {
			return fi.Blocks, nil
		}
	}

	blocks, sum, err := buildBlocks(cfg)
	if err != nil {
		return nil, err
	}

	if store != nil {
		fi := indexcache.FileIndex{
			Size:     uint64(info.Size()),
			SHA256:   sum,
			Path:     cfg.Path,
			Modified: modified,
			Blocks:   blocks,
		}
		// A cache write failure shouldn't fail the merge itself; the next
		// run simply rebuilds.
		_ = store.Save(cfg.Path, fi)
	}
	return blocks, nil
}

// buildBlocks scans the whole file once, building one chronidx.Index per
// segment (§4.I) and the file's content-identity hash (§4.J) for the
// cache entry this pass feeds.
func buildBlocks(cfg FileSourceConfig) ([]indexcache.SourceBlock, []byte, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("sort: indexing %s: %w", cfg.Path, err)
	}
	defer f.Close()

	hashBuf := hashBufPool.Get()[:64<<10]
	n, err := f.ReadAt(hashBuf, 0)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		hashBufPool.Put(hashBuf)
		return nil, nil, fmt.Errorf("sort: hashing %s: %w", cfg.Path, err)
	}
	sum := sha256.Sum256(hashBuf[:n])
	hashBufPool.Put(hashBuf)

	rd, err := reader.Open(f, reader.Options{
		BufferSize:     cfg.BufferSize,
		MaxMessageSize: cfg.MaxMessageSize,
		Framer:         cfg.Framer,
		Source:         cfg.Path,
	})
	if err != nil {
		return nil, nil, err
	}

	extractor := semantic.New(cfg.Names)
	var blocks []indexcache.SourceBlock
	for {
		seg, err := rd.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		b := chronidx.NewBuilder()
		spans, _ := cfg.Framer.Split(seg.Data)
		for _, span := range spans {
			// span is a subslice of seg.Data, so the capacity difference
			// is its start offset within the segment.
			offset := int64(cap(seg.Data) - cap(span))
			body := span
			if cfg.Framer.AllowPrefix {
				if _, p, ok := frame.ExtractPrefix(span, parse.LooksLikeJSONObject); ok {
					body = p
				}
			}
			rec := parse.Record(body, cfg.Format)
			sem := extractor.Extract(rec)
			lvl := sem.Level(rec, cfg.Levels)
			ts, hasTS := sem.Timestamp(rec, func(raw string) (record.Timestamp, error) {
				return tstamp.Parse(raw, cfg.Unit)
			})
			b.Add(lvl, ts, hasTS, offset)
		}
		idx := b.Finish()
		if idx.Unsorted {
			log.Debugw("segment has out-of-order records", "path", cfg.Path, "offset", seg.Offset, "jumps", len(idx.Jumps))
		}
		blocks = append(blocks, indexcache.FromIndex(idx, uint64(seg.Offset), uint32(len(seg.Data))))
	}
	log.Debugw("built index", "path", cfg.Path, "blocks", len(blocks))
	return blocks, sum[:], nil
}

func levelMaskFromFilter(f *query.LevelFilter) uint64 {
	if f == nil || f.Min <= record.LevelTrace {
		return 0
	}
	var mask uint64
	for l := f.Min; l <= record.LevelError; l++ {
		mask |= l.Bit()
	}
	return mask
}

// admitsBlock applies §4.K step 1's admission pruning directly against a
// persisted SourceBlock's flags, without touching the in-memory
// chronidx.Index the block was derived from (the whole point being to
// decide without reading segment bytes).
func admitsBlock(b indexcache.SourceBlock, levelMask uint64, since record.Timestamp, hasSince bool, until record.Timestamp, hasUntil bool) bool {
	if levelMask != 0 {
		// levelMask holds record.Level.Bit() bits; the persisted flags use
		// indexcache's own level bits, so translate before intersecting.
		var blockLevels uint64
		if b.Flags&indexcache.FlagDebug != 0 {
			blockLevels |= record.LevelDebug.Bit()
		}
		if b.Flags&indexcache.FlagInfo != 0 {
			blockLevels |= record.LevelInfo.Bit()
		}
		if b.Flags&indexcache.FlagWarning != 0 {
			blockLevels |= record.LevelWarn.Bit()
		}
		if b.Flags&indexcache.FlagError != 0 {
			blockLevels |= record.LevelError.Bit()
		}
		if blockLevels&levelMask == 0 {
			return false
		}
	}
	if hasSince || hasUntil {
		if b.Flags&indexcache.FlagHasTimestamps == 0 {
			return false
		}
		tsMin := record.Timestamp(b.TSMin.Sec*1e9 + int64(b.TSMin.Nsec))
		tsMax := record.Timestamp(b.TSMax.Sec*1e9 + int64(b.TSMax.Nsec))
		if hasSince && tsMax < since {
			return false
		}
		if hasUntil && tsMin > until {
			return false
		}
	}
	return true
}

// parsedRecord pairs a record with the timestamp it sorts by within the
// current segment's buffer.
type parsedRecord struct {
	ts  record.Timestamp
	rec record.Record
}

// FileSource implements merge.Source over one input file, admission
// pruning whole segments against the active filter before parsing them,
// and buffering only the current admitted segment's records (§4.K, §5).
type FileSource struct {
	cfg       FileSourceConfig
	extractor semantic.Extractor
	file      *os.File
	rd        *reader.Reader
	blocks    []indexcache.SourceBlock
	blockPos  int

	levelMask uint64
	since     record.Timestamp
	hasSince  bool
	until     record.Timestamp
	hasUntil  bool

	buf        []parsedRecord
	bufPos     int
	done       bool
	pendingErr error
}

// FileIndex reports this source's position among the files given to
// Run, for the stable tie-break (§4.K step 5).
func (fs *FileSource) FileIndex() int { return fs.cfg.FileIdx }

// Peek reports the next record's timestamp and line index, advancing to
// the next admitted segment first if the current one is exhausted. An
// error encountered while advancing is stashed and surfaced through Pop
// instead, matching Source's Peek-has-no-error-return contract: Peek
// reports ok=true with a poison position so the caller's next Pop call
// (merge.Run always Pops immediately after a successful Peek) picks up
// the error.
func (fs *FileSource) Peek() (record.Timestamp, int, bool) {
	for !fs.done && fs.pendingErr == nil && fs.bufPos >= len(fs.buf) {
		if err := fs.advance(); err != nil {
			fs.pendingErr = err
			return 0, fs.bufPos, true
		}
	}
	if fs.pendingErr != nil {
		return 0, fs.bufPos, true
	}
	if fs.bufPos >= len(fs.buf) {
		return 0, 0, false
	}
	return fs.buf[fs.bufPos].ts, fs.bufPos, true
}

// Pop consumes and returns the record Peek last reported, or the error
// Peek stashed while advancing.
func (fs *FileSource) Pop() (record.Record, error) {
	if fs.pendingErr != nil {
		err := fs.pendingErr
		fs.pendingErr = nil
		return record.Record{}, err
	}
	if fs.bufPos >= len(fs.buf) {
		return record.Record{}, io.EOF
	}
	rec := fs.buf[fs.bufPos].rec
	fs.bufPos++
	return rec, nil
}

// Close releases the underlying file and decompressor.
func (fs *FileSource) Close() error {
	rdErr := fs.rd.Close()
	fErr := fs.file.Close()
	if rdErr != nil {
		return rdErr
	}
	return fErr
}

// advance loads the next admitted segment's parsed, timestamp-ordered,
// filter-passing records into buf, skipping non-admitted segments
// without parsing their bytes. Sets done when the file is exhausted.
func (fs *FileSource) advance() error {
	for {
		seg, err := fs.rd.NextSegment()
		if err == io.EOF {
			fs.done = true
			return nil
		}
		if err != nil {
			return err
		}

		var idx chronidx.Index
		hasIdx := false
		if fs.blockPos < len(fs.blocks) {
			b := fs.blocks[fs.blockPos]
			fs.blockPos++
			if !admitsBlock(b, fs.levelMask, fs.since, fs.hasSince, fs.until, fs.hasUntil) {
				continue
			}
			idx = indexcache.ToIndex(b)
			hasIdx = true
		}

		recs := fs.parseSegment(seg, idx, hasIdx)
		if len(recs) == 0 {
			continue
		}
		fs.buf = recs
		fs.bufPos = 0
		return nil
	}
}

// parseSegment frames, parses, semantically resolves, and filters one
// segment's records, dropping raw (unparseable) and timestamp-less
// records — both excluded from sorted merge per §4.D/§4.K — then orders
// the survivors by walking idx's chronology bitmap (§4.I) rather than
// re-sorting the whole segment: idx.Bit(n) already tells us, per source
// record, whether it continues the segment's non-decreasing run or
// breaks it, so only the (typically rare) out-of-order records need
// sorting before being spliced back into the already-ordered mainline.
// hasIdx is false only when the live file has grown past what the index
// covers (more segments than blocks); parseSegment then falls back to a
// full sort, the one case where no bitmap exists to walk.
func (fs *FileSource) parseSegment(seg reader.Segment, idx chronidx.Index, hasIdx bool) []parsedRecord {
	spans, _ := fs.cfg.Framer.Split(seg.Data)
	useIndex := hasIdx && idx.NumRecords == len(spans)

	admitted := make([]parsedRecord, 0, len(spans))
	var anomalyPos []int // positions within admitted that idx.Bit flags out-of-order
	for n, span := range spans {
		body := span
		var prefix []byte
		if fs.cfg.Framer.AllowPrefix {
			if p, b, ok := frame.ExtractPrefix(span, parse.LooksLikeJSONObject); ok {
				prefix, body = p, b
			}
		}
		rec := parse.Record(body, fs.cfg.Format)
		if rec.IsRaw() {
			continue
		}
		rec.Prefix = prefix

		sem := fs.extractor.Extract(rec)
		ts, hasTS := sem.Timestamp(rec, func(raw string) (record.Timestamp, error) {
			return tstamp.Parse(raw, fs.cfg.Unit)
		})
		if !hasTS {
			continue
		}
		lvl := sem.Level(rec, fs.cfg.Levels)
		resolve := func(name string) (record.Value, bool) { return semantic.ValueFor(rec, name, parse.JSON) }
		if !fs.cfg.Query.Matches(rec, lvl, sem.HasLevel(), ts, hasTS, resolve) {
			continue
		}

		if useIndex && idx.Bit(n) == 1 {
			anomalyPos = append(anomalyPos, len(admitted))
		}
		admitted = append(admitted, parsedRecord{ts: ts, rec: rec})
	}

	if !useIndex {
		sort.SliceStable(admitted, func(i, j int) bool { return admitted[i].ts < admitted[j].ts })
		return admitted
	}
	if !idx.Unsorted {
		// A filtered subsequence of an already non-decreasing sequence is
		// still non-decreasing — nothing to reorder.
		return admitted
	}
	return spliceAnomalies(admitted, anomalyPos)
}

// spliceAnomalies merges idx.Bit's flagged out-of-order records back
// into the mainline (bit=0) run they were found among. The mainline is
// non-decreasing by construction (chronidx.Builder.Add only clears the
// bit when a record's timestamp is at or past the running high-water
// mark), so only the anomalies themselves need sorting — a two-pointer
// merge then produces the fully ordered segment without ever sorting
// the mainline.
func spliceAnomalies(admitted []parsedRecord, anomalyPos []int) []parsedRecord {
	if len(anomalyPos) == 0 {
		return admitted
	}
	mainline := make([]parsedRecord, 0, len(admitted)-len(anomalyPos))
	anomalies := make([]parsedRecord, 0, len(anomalyPos))
	ai := 0
	for i, pr := range admitted {
		if ai < len(anomalyPos) && anomalyPos[ai] == i {
			anomalies = append(anomalies, pr)
			ai++
			continue
		}
		mainline = append(mainline, pr)
	}
	sort.SliceStable(anomalies, func(i, j int) bool { return anomalies[i].ts < anomalies[j].ts })

	out := make([]parsedRecord, 0, len(admitted))
	i, j := 0, 0
	for i < len(mainline) && j < len(anomalies) {
		if anomalies[j].ts < mainline[i].ts {
			out = append(out, anomalies[j])
			j++
		} else {
			out = append(out, mainline[i])
			i++
		}
	}
	out = append(out, mainline[i:]...)
	out = append(out, anomalies[j:]...)
	return out
}
