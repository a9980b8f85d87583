// Package compress implements §4.B's Compression Probe & Stream: it
// peeks the first few bytes of an input, matches known magic numbers,
// and wraps the reader in the matching streaming decompressor.
//
// Grounded on foxglove-mcap's ordered_lexer.go (klauspost/compress/zstd
// used the same way — a single long-lived *zstd.Decoder wrapping a byte
// source) and the ulikunitz/xz reference in Alain-L-quellog's go.mod in
// the retrieved pack; gzip and bzip2 use the standard library, since Go's
// stdlib decompressors are already the idiomatic choice and no ecosystem
// library in the pack does either better for decode-only use.
package compress

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Format identifies the detected compression of an input stream.
type Format uint8

const (
	FormatPlain Format = iota
	FormatGzip
	FormatBzip2
	FormatXZ
	FormatZstd
)

func (f Format) String() string {
	switch f {
	case FormatGzip:
		return "gzip"
	case FormatBzip2:
		return "bzip2"
	case FormatXZ:
		return "xz"
	case FormatZstd:
		return "zstd"
	default:
		return "plain"
	}
}

// magic bytes, per §4.B.
var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte{0x42, 0x5a, 0x68}
	xzMagic    = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
	zstdMagic  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Detect peeks at most 6 bytes from r (without consuming them from the
// caller's point of view — the returned reader replays them) and returns
// the detected Format.
func Detect(r io.Reader) (Format, io.Reader, error) {
	br := bufio.NewReaderSize(r, 4096)
	peek, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return FormatPlain, br, err
	}
	switch {
	case hasPrefix(peek, zstdMagic):
		return FormatZstd, br, nil
	case hasPrefix(peek, gzipMagic):
		return FormatGzip, br, nil
	case hasPrefix(peek, bzip2Magic):
		return FormatBzip2, br, nil
	case hasPrefix(peek, xzMagic):
		return FormatXZ, br, nil
	default:
		return FormatPlain, br, nil
	}
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Stream detects the compression format of r and returns a decompressing
// io.Reader. Decompression errors surface on the first Read call that
// hits malformed data, matching §4.B's fail-fast contract (the pipeline
// wraps that into an exit-1 per §7).
func Stream(r io.Reader) (io.Reader, Format, error) {
	format, br, err := Detect(r)
	if err != nil {
		return nil, format, fmt.Errorf("probing compression: %w", err)
	}
	switch format {
	case FormatGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, format, fmt.Errorf("opening gzip stream: %w", err)
		}
		return gz, format, nil
	case FormatBzip2:
		return bzip2.NewReader(br), format, nil
	case FormatXZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, format, fmt.Errorf("opening xz stream: %w", err)
		}
		return xr, format, nil
	case FormatZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, format, fmt.Errorf("opening zstd stream: %w", err)
		}
		return &zstdReadCloser{zr}, format, nil
	default:
		return br, format, nil
	}
}

// zstdReadCloser adapts *zstd.Decoder (which exposes Close with no error
// return) to io.ReadCloser; Stream's caller (reader.Reader) calls its
// Close when it finishes a file, which releases the decoder's goroutines.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}
