// Package codec adapts the stream compression libraries behind one
// writer/reader surface. Each algorithm wraps an io.WriteCloser or
// io.ReadCloser so the whole stack closes in order on every path.
package codec

import (
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	gzip "github.com/klauspost/pgzip"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

type Algorithm string

const (
	Gzip  Algorithm = "gzip"
	Bzip2 Algorithm = "bzip2"
	Xz    Algorithm = "xz"
	Lz4   Algorithm = "lz4"
	Zstd  Algorithm = "zstd"
)

// DefaultLevel is applied when the caller does not pick a level.
const DefaultLevel = 9

func FromString(v string) (Algorithm, bool) {
	switch strings.ToLower(v) {
	case "gzip", "gz":
		return Gzip, true
	case "bzip2", "bz2":
		return Bzip2, true
	case "xz":
		return Xz, true
	case "lz4":
		return Lz4, true
	case "zstd", "zst":
		return Zstd, true
	default:
		return "", false
	}
}

// Suffix returns the conventional filename suffix for the algorithm.
func Suffix(a Algorithm) string {
	switch a {
	case Gzip:
		return ".gz"
	case Bzip2:
		return ".bz2"
	case Xz:
		return ".xz"
	case Lz4:
		return ".lz4"
	case Zstd:
		return ".zst"
	default:
		return ""
	}
}

// NewWriter wraps dst with the algorithm's compressor. Closing the result
// closes the compressor and then dst. The xz backend has no level scale
// and ignores level.
func NewWriter(dst io.WriteCloser, a Algorithm, level int) (io.WriteCloser, error) {
	if level <= 0 {
		level = DefaultLevel
	}
	switch a {
	case Gzip:
		zw, err := gzip.NewWriterLevel(dst, level)
		if err != nil {
			return nil, err
		}
		return &stackedWriteCloser{writer: zw, dst: dst}, nil
	case Bzip2:
		if level > bzip2.BestCompression {
			level = bzip2.BestCompression
		}
		zw, err := bzip2.NewWriter(dst, &bzip2.WriterConfig{Level: level})
		if err != nil {
			return nil, err
		}
		return &stackedWriteCloser{writer: zw, dst: dst}, nil
	case Xz:
		zw, err := xz.NewWriter(dst)
		if err != nil {
			return nil, err
		}
		return &stackedWriteCloser{writer: zw, dst: dst}, nil
	case Lz4:
		zw := lz4.NewWriter(dst)
		if level > 9 {
			level = 9
		}
		// lz4 levels are powers of two starting at 1<<9
		if err := zw.Apply(lz4.CompressionLevelOption(lz4.CompressionLevel(1 << (8 + level)))); err != nil {
			return nil, err
		}
		return &stackedWriteCloser{writer: zw, dst: dst}, nil
	case Zstd:
		zw, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, err
		}
		return &stackedWriteCloser{writer: zw, dst: dst}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm %q", a)
	}
}

// NewReader wraps src with the algorithm's decompressor. Closing the
// result closes every layer including src.
func NewReader(src io.ReadCloser, a Algorithm) (io.ReadCloser, error) {
	switch a {
	case Gzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, err
		}
		return &multiReadCloser{reader: zr, closers: []io.Closer{zr, src}}, nil
	case Bzip2:
		zr, err := bzip2.NewReader(src, nil)
		if err != nil {
			return nil, err
		}
		return &multiReadCloser{reader: zr, closers: []io.Closer{zr, src}}, nil
	case Xz:
		zr, err := xz.NewReader(src)
		if err != nil {
			return nil, err
		}
		return &readCloser{reader: zr, closer: src}, nil
	case Lz4:
		return &readCloser{reader: lz4.NewReader(src), closer: src}, nil
	case Zstd:
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, err
		}
		return &multiReadCloser{reader: zr, closers: []io.Closer{zr.IOReadCloser(), src}}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm %q", a)
	}
}

type readCloser struct {
	reader io.Reader
	closer io.Closer
}

func (r *readCloser) Read(p []byte) (int, error) { return r.reader.Read(p) }
func (r *readCloser) Close() error               { return r.closer.Close() }

type multiReadCloser struct {
	reader  io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Read(p []byte) (int, error) { return m.reader.Read(p) }

func (m *multiReadCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type stackedWriteCloser struct {
	writer io.WriteCloser
	dst    io.Closer
}

func (w *stackedWriteCloser) Write(p []byte) (int, error) { return w.writer.Write(p) }

func (w *stackedWriteCloser) Close() error {
	var first error
	if err := w.writer.Close(); err != nil {
		first = err
	}
	if err := w.dst.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
