// Package indexcache implements §4.J's Index Cache: it persists the
// per-file chronidx.Index built by the segment indexer under a cache
// directory, keyed by path/size/mtime with a sha256 content check, and
// serves a saved FileIndex back out when the underlying file hasn't
// changed (or has only grown append-only).
//
// Grounded on ChristianF88-cidrx's jail/io.go (JSON-marshal-to-file
// persistence with an atomic write-then-rename-free "create, write,
// close" sequence) generalized to §6.3's self-describing binary schema:
// the JSON/string-based serialization there becomes msgpack here (so new
// optional fields really can be added without breaking old readers, per
// §6.3's "readers must ignore unknown fields" and §9's append-tolerance
// requirement), content identity moves from none to a sha256 prefix
// hash, and persistence adds an atomic rename instead of a bare Create.
package indexcache

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/tempestlab/hl/chronidx"
	"github.com/tempestlab/hl/record"
)

// log is indexcache's package-level diagnostic logger (§2's ambient
// "structured internal logging" concern), a no-op until SetLogger wires
// a real one in behind --verbose/HL_VERBOSE.
var log = zap.NewNop().Sugar()

// SetLogger installs l as indexcache's package-level logger.
func SetLogger(l *zap.SugaredLogger) { log = l }

// Flag bits, bit-exact per §6.3.
const (
	FlagDebug         uint64 = 0x01
	FlagInfo          uint64 = 0x02
	FlagWarning       uint64 = 0x04
	FlagError         uint64 = 0x08
	FlagMask          uint64 = 0xFF
	FlagUnsorted      uint64 = 0x100
	FlagHasTimestamps uint64 = 0x200
	// FlagBinary is preserved per the source schema but its semantics are
	// explicitly undefined (§9 Open Questions); always written 0.
	FlagBinary uint64 = 0x80_00_00_00_00_00_00_00
)

// Timestamp is the persisted {sec,nsec} shape §6.3 specifies.
type Timestamp struct {
	Sec  int64  `msgpack:"sec"`
	Nsec uint32 `msgpack:"nsec"`
}

// SourceBlock is one persisted segment's worth of index data.
type SourceBlock struct {
	Offset     uint64          `msgpack:"offset"`
	Size       uint32          `msgpack:"size"`
	Flags      uint64          `msgpack:"flags"`
	LinesValid uint64          `msgpack:"lines_valid"`
	LinesBad   uint64          `msgpack:"lines_invalid"`
	TSMin      Timestamp       `msgpack:"ts_min"`
	TSMax      Timestamp       `msgpack:"ts_max"`
	Bitmap     []uint64        `msgpack:"bitmap"`
	OffsetsB   []uint32        `msgpack:"offsets_bytes"`
	OffsetsJ   []uint32        `msgpack:"offsets_jumps"`
	Jumps      []uint32        `msgpack:"jumps"`
}

// FileIndex is the full persisted structure for one input file (§6.3).
type FileIndex struct {
	Size     uint64        `msgpack:"size"`
	SHA256   []byte        `msgpack:"sha256"`
	Path     string        `msgpack:"path"`
	Modified Timestamp     `msgpack:"modified"`
	Blocks   []SourceBlock `msgpack:"blocks"`
}

// FromIndex converts a built chronidx.Index plus its segment's byte
// range into a persistable SourceBlock.
func FromIndex(idx chronidx.Index, segOffset uint64, segSize uint32) SourceBlock {
	var flags uint64
	if idx.LevelBitmask&record.LevelDebug.Bit() != 0 {
		flags |= FlagDebug
	}
	if idx.LevelBitmask&record.LevelInfo.Bit() != 0 {
		flags |= FlagInfo
	}
	if idx.LevelBitmask&record.LevelWarn.Bit() != 0 {
		flags |= FlagWarning
	}
	if idx.LevelBitmask&record.LevelError.Bit() != 0 {
		flags |= FlagError
	}
	if idx.Unsorted {
		flags |= FlagUnsorted
	}
	if idx.HasTimestamps {
		flags |= FlagHasTimestamps
	}

	bitmap := packBitmapWords(idx.Bitmap)
	offsetsB := make([]uint32, len(idx.Offsets.Bytes))
	for i, v := range idx.Offsets.Bytes {
		offsetsB[i] = uint32(v)
	}
	offsetsJ := make([]uint32, len(idx.Offsets.Jumps))
	for i, v := range idx.Offsets.Jumps {
		offsetsJ[i] = uint32(v)
	}
	jumps := make([]uint32, len(idx.Jumps))
	for i, v := range idx.Jumps {
		jumps[i] = uint32(v)
	}

	return SourceBlock{
		Offset:     segOffset,
		Size:       segSize,
		Flags:      flags,
		LinesValid: uint64(idx.NumRecords),
		TSMin:      Timestamp{Sec: int64(idx.TSMin) / 1e9, Nsec: uint32(int64(idx.TSMin) % 1e9)},
		TSMax:      Timestamp{Sec: int64(idx.TSMax) / 1e9, Nsec: uint32(int64(idx.TSMax) % 1e9)},
		Bitmap:     bitmap,
		OffsetsB:   offsetsB,
		OffsetsJ:   offsetsJ,
		Jumps:      jumps,
	}
}

// packBitmapWords repacks a byte-oriented bitmap into u64 words, per
// §9's "keep u64 word ordering ... identical to the persisted schema".
func packBitmapWords(bitmap []byte) []uint64 {
	words := make([]uint64, (len(bitmap)+7)/8)
	for i, b := range bitmap {
		words[i/8] |= uint64(b) << uint((i%8)*8)
	}
	return words
}

// unpackBitmapWords is packBitmapWords' inverse, trimmed to the
// (numRecords+7)/8 bytes that cover numRecords bits (the packed words may
// hold up to 63 trailing padding bits belonging to no record).
func unpackBitmapWords(words []uint64, numRecords int) []byte {
	numBytes := (numRecords + 7) / 8
	out := make([]byte, numBytes)
	for i := range out {
		wordIdx := i / 8
		if wordIdx >= len(words) {
			break
		}
		out[i] = byte(words[wordIdx] >> uint((i%8)*8))
	}
	return out
}

// ToIndex reconstitutes a chronidx.Index from a persisted SourceBlock —
// FromIndex's inverse — so merge.FileSource can walk a cache-loaded
// block's chronology bitmap (Bit) exactly as it would a freshly built
// one, without re-deriving it by re-parsing and re-sorting the segment.
func ToIndex(b SourceBlock) chronidx.Index {
	offsetsBytes := make([]int64, len(b.OffsetsB))
	for i, v := range b.OffsetsB {
		offsetsBytes[i] = int64(v)
	}
	offsetsJumps := make([]int32, len(b.OffsetsJ))
	for i, v := range b.OffsetsJ {
		offsetsJumps[i] = int32(v)
	}
	jumps := make([]int64, len(b.Jumps))
	for i, v := range b.Jumps {
		jumps[i] = int64(v)
	}
	return chronidx.Index{
		TSMin:         record.Timestamp(b.TSMin.Sec*1e9 + int64(b.TSMin.Nsec)),
		TSMax:         record.Timestamp(b.TSMax.Sec*1e9 + int64(b.TSMax.Nsec)),
		HasTimestamps: b.Flags&FlagHasTimestamps != 0,
		Unsorted:      b.Flags&FlagUnsorted != 0,
		NumRecords:    int(b.LinesValid),
		Bitmap:        unpackBitmapWords(b.Bitmap, int(b.LinesValid)),
		Jumps:         jumps,
		Offsets:       chronidx.Offsets{Bytes: offsetsBytes, Jumps: offsetsJumps},
	}
}

// Store persists/retrieves FileIndex values under dir.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index cache dir %s: %w", dir, err)
	}
	return &Store{Dir: dir}, nil
}

// keyFor derives the cache file name for path using a fast in-memory
// hash (xxhash) of the absolute path. Load re-validates only size and
// mtime against the real file; the stored sha256 is not checked there.
func (s *Store) keyFor(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	h := xxhash.Sum64String(abs)
	return filepath.Join(s.Dir, fmt.Sprintf("%016x.idx", h))
}

// Load returns the cached FileIndex for path if present and not stale
// relative to size/mtime, or ok=false otherwise (caller should rebuild).
func (s *Store) Load(path string, size int64, modTime Timestamp) (FileIndex, bool) {
	raw, err := os.ReadFile(s.keyFor(path))
	if err != nil {
		return FileIndex{}, false
	}
	var fi FileIndex
	if err := msgpack.Unmarshal(raw, &fi); err != nil {
		return FileIndex{}, false
	}
	if fi.Size != uint64(size) || fi.Modified != modTime {
		log.Debugw("index cache stale", "path", path)
		return FileIndex{}, false
	}
	log.Debugw("index cache hit", "path", path, "blocks", len(fi.Blocks))
	return fi, true
}

// LoadForAppend returns the cached FileIndex for path if its content
// hash prefix still matches the first chunk of the live file — i.e. the
// file only grew, append-only — even though size/mtime changed.
// merge.blocksFor uses only Load, so a file whose size or mtime changed
// is re-indexed in full rather than extended from fi's last indexed offset.
func (s *Store) LoadForAppend(path string, firstChunk []byte) (FileIndex, bool) {
	raw, err := os.ReadFile(s.keyFor(path))
	if err != nil {
		return FileIndex{}, false
	}
	var fi FileIndex
	if err := msgpack.Unmarshal(raw, &fi); err != nil {
		return FileIndex{}, false
	}
	want := sha256Prefix(firstChunk)
	if len(fi.SHA256) == 0 || !bytesEqual(fi.SHA256, want) {
		return FileIndex{}, false
	}
	return fi, true
}

// Save persists fi under an atomic rename: write to a temp file in the
// same directory, then rename over the final name, so a concurrent
// reader never observes a partially written cache file.
func (s *Store) Save(path string, fi FileIndex) error {
	raw, err := msgpack.Marshal(fi)
	if err != nil {
		return fmt.Errorf("encoding index cache entry: %w", err)
	}
	final := s.keyFor(path)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing index cache entry: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("committing index cache entry: %w", err)
	}
	log.Debugw("index cache saved", "path", path, "blocks", len(fi.Blocks))
	return nil
}

// sha256Prefix hashes up to the first 64KiB of data, matching §4.J's
// "content hash (sha256 prefix of first chunk)".
func sha256Prefix(data []byte) []byte {
	const prefixLen = 64 << 10
	if len(data) > prefixLen {
		data = data[:prefixLen]
	}
	sum := sha256.Sum256(data)
	return sum[:]
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HashReader is a convenience for computing sha256Prefix directly from
// an io.Reader without buffering the whole file.
func HashReader(r io.Reader) ([]byte, error) {
	const prefixLen = 64 << 10
	buf := make([]byte, prefixLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	sum := sha256.Sum256(buf[:n])
	return sum[:], nil
}
