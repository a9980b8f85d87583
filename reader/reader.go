// Package reader implements §4.A's Buffered Segment Reader: it produces
// fixed-capacity, delimiter-aligned Segments from a (possibly
// compressed) byte stream, tracking each segment's byte offset in the
// decompressed stream.
//
// Grounded on the slab-allocating, batched-read core of
// ChristianF88/cidrx's logparser/parser.go (parseFileWithStreamingIO):
// that function accumulates bytes from a bufio.Scanner into
// slab-backed [][]byte batches to avoid a per-line allocation. Reader
// generalizes the same idea — sub-allocate record bytes out of one
// contiguous buffer per Segment — to arbitrary delimiter-aligned
// (rather than fixed '\n') boundaries via the frame package.
package reader

import (
	"fmt"
	"io"

	"github.com/tempestlab/hl/compress"
	"github.com/tempestlab/hl/frame"
)

// DefaultBufferSize and DefaultMaxMessageSize mirror §4.A's stated
// defaults (2 MiB segments, 64 MiB single-record ceiling).
const (
	DefaultBufferSize     = 2 << 20
	DefaultMaxMessageSize = 64 << 20
)

// OversizeRecord is returned when a single record exceeds MaxMessageSize
// (§4.A, §7.4).
type OversizeRecord struct {
	Limit int
}

func (e *OversizeRecord) Error() string {
	return fmt.Sprintf("record exceeds max-message-size (%d bytes)", e.Limit)
}

// Segment is a contiguous, delimiter-aligned byte slice of the
// decompressed stream (§3).
type Segment struct {
	Data     []byte
	Offset   int64 // byte offset in the decompressed stream
	Seq      int64 // monotonically increasing sequence number
	Source   string
	Framer   frame.Framer
}

// Options configures a Reader.
type Options struct {
	BufferSize     int
	MaxMessageSize int
	Framer         frame.Framer
	Source         string
}

func (o *Options) setDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
}

// Reader produces Segments from an underlying io.Reader, after
// compression detection.
type Reader struct {
	opts   Options
	src    io.Reader
	buf    []byte // bytes accumulated but not yet emitted as a Segment
	offset int64  // decompressed-stream offset of buf[0]
	seq    int64
	eof    bool
	closer io.Closer
}

// Open detects compression on r and returns a Reader ready to produce
// Segments. Close releases the decompressor when it has a Close method;
// r itself is never closed by the Reader.
func Open(r io.Reader, opts Options) (*Reader, error) {
	opts.setDefaults()
	stream, _, err := compress.Stream(r)
	if err != nil {
		return nil, fmt.Errorf("opening input %s: %w", opts.Source, err)
	}
	rd := &Reader{opts: opts, src: stream}
	if c, ok := stream.(io.Closer); ok {
		rd.closer = c
	}
	return rd, nil
}

// Close releases the underlying decompressor, if any.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// NextSegment returns the next delimiter-aligned Segment, io.EOF when
// the stream is exhausted with no remaining data, or an error (including
// *OversizeRecord) on failure.
func (r *Reader) NextSegment() (Segment, error) {
	for {
		if len(r.buf) > 0 {
			cut := r.opts.Framer.SafeCut(r.buf, r.eof)
			if cut > 0 && (cut >= r.opts.BufferSize || r.eof) {
				seg := r.emit(cut)
				return seg, nil
			}
			// A safe cut may exist below BufferSize; keep accumulating so
			// segments approach BufferSize, unless growth without any
			// boundary has crossed the oversize ceiling.
			if len(r.buf) > r.opts.MaxMessageSize && cut == 0 {
				return Segment{}, &OversizeRecord{Limit: r.opts.MaxMessageSize}
			}
		}
		if r.eof {
			if len(r.buf) == 0 {
				return Segment{}, io.EOF
			}
			// Trailing bytes with no terminating delimiter: emit them as
			// a final partial segment (the underlying framer still
			// frames whatever is there; a missing final delimiter is not
			// an error per common log-file conventions).
			seg := r.emit(len(r.buf))
			return seg, nil
		}
		if err := r.fill(); err != nil {
			return Segment{}, err
		}
	}
}

// fill reads more bytes into r.buf, growing it by one readChunk at a time, and marks EOF
// when the source is exhausted. It caps a single read request so a slow
// stream doesn't stall behind one huge unbounded Read call. Because
// NextSegment only checks for a safe cut after each fill call completes,
// a segment's actual size can overshoot BufferSize by up to one
// readChunk before the cut is taken — §4.A's size is a target to
// approach, not a hard ceiling (MaxMessageSize is the hard one).
func (r *Reader) fill() error {
	const readChunk = 256 << 10
	start := len(r.buf)
	need := readChunk
	if cap(r.buf)-start < need {
		grown := make([]byte, start, start+need)
		copy(grown, r.buf)
		r.buf = grown
	}
	r.buf = r.buf[:start+need]
	n, err := r.src.Read(r.buf[start : start+need])
	r.buf = r.buf[:start+n]
	if err != nil {
		if err == io.EOF {
			r.eof = true
			return nil
		}
		return fmt.Errorf("reading input %s: %w", r.opts.Source, err)
	}
	if n == 0 {
		r.eof = true
	}
	return nil
}

// emit carves off the first `cut` bytes of r.buf as a new Segment,
// advancing the offset/seq counters and retaining the remainder.
func (r *Reader) emit(cut int) Segment {
	data := make([]byte, cut)
	copy(data, r.buf[:cut])

	seg := Segment{
		Data:   data,
		Offset: r.offset,
		Seq:    r.seq,
		Source: r.opts.Source,
		Framer: r.opts.Framer,
	}
	r.seq++
	r.offset += int64(cut)

	remaining := len(r.buf) - cut
	copy(r.buf, r.buf[cut:])
	r.buf = r.buf[:remaining]

	return seg
}
