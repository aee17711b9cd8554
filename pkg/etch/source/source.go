// Package source opens disk images for writing, transparently decompressing
// gzip and zstd streams.
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrUnsupportedFormat reports an image whose compression cannot be decoded.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Format identifies the on-disk encoding of an image.
type Format int

const (
	FormatRaw Format = iota
	FormatGzip
	FormatZstd
)

func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatGzip:
		return "gzip"
	case FormatZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Source is an opened image. Read returns uncompressed bytes regardless of
// the on-disk encoding.
type Source struct {
	io.Reader

	file         *os.File
	closeDecoder func() error
	path         string
	format       Format
	size         int64
	compressed   int64
}

// Open opens the image at path, selecting a decoder from the file extension:
// .gz and .zst are decompressed on the fly, .xz and .bz2 are rejected,
// everything else streams raw.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat image: %w", err)
	}

	src := &Source{
		file:       f,
		path:       path,
		compressed: info.Size(),
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("reading gzip header: %w", err)
		}
		src.Reader = zr
		src.closeDecoder = zr.Close
		src.format = FormatGzip
		src.size = gzipSizeHint(f, info.Size())

	case ".zst", ".zstd":
		// The hint reads via ReadAt and leaves the offset at zero for
		// the decoder.
		size := zstdSizeHint(f)
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("reading zstd header: %w", err)
		}
		rc := dec.IOReadCloser()
		src.Reader = rc
		src.closeDecoder = rc.Close
		src.format = FormatZstd
		src.size = size

	case ".xz", ".bz2":
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))

	default:
		src.Reader = f
		src.format = FormatRaw
		src.size = info.Size()
	}

	return src, nil
}

// Path returns the image path as opened.
func (s *Source) Path() string { return s.path }

// Format returns the detected encoding.
func (s *Source) Format() Format { return s.format }

// Size returns the uncompressed image size in bytes, or -1 when unknown.
// Unknown sizes drive indeterminate progress displays.
func (s *Source) Size() int64 { return s.size }

// CompressedSize returns the on-disk size in bytes.
func (s *Source) CompressedSize() int64 { return s.compressed }

// Close releases the decoder and the underlying file.
func (s *Source) Close() error {
	var firstErr error
	if s.closeDecoder != nil {
		if err := s.closeDecoder(); err != nil {
			firstErr = err
		}
	}
	if err := s.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// gzipSizeHint reads the ISIZE trailer, which holds the uncompressed size
// modulo 4 GiB. Images above 4 GiB wrap around, so the value is a hint, not
// a promise.
func gzipSizeHint(ra io.ReaderAt, compressedSize int64) int64 {
	// Header is 10 bytes, trailer 8; anything smaller has no trailer.
	if compressedSize < 18 {
		return -1
	}

	var trailer [4]byte
	if _, err := ra.ReadAt(trailer[:], compressedSize-4); err != nil {
		return -1
	}

	size := int64(binary.LittleEndian.Uint32(trailer[:]))
	if size == 0 {
		return -1
	}
	return size
}

// zstdSizeHint decodes the frame header and returns the declared content
// size, or -1 when the frame does not carry one.
func zstdSizeHint(ra io.ReaderAt) int64 {
	buf := make([]byte, zstd.HeaderMaxSize)
	n, err := ra.ReadAt(buf, 0)
	if n == 0 && err != nil {
		return -1
	}

	var h zstd.Header
	if err := h.Decode(buf[:n]); err != nil {
		return -1
	}
	if !h.HasFCS {
		return -1
	}
	return int64(h.FrameContentSize)
}
