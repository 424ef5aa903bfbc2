package filepack

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/islishude/filepack/internal/codec"
	"github.com/islishude/filepack/internal/sniff"
)

// Compression is a handle on one file for codec operations. Unlike
// Archive, no algorithm is fixed at construction: a file carries no
// self-description beyond its magic bytes, and callers must be able to
// ask "is this gzip?" without presupposing it, so the algorithm is an
// explicit argument to every operation.
type Compression struct {
	path string
}

// NewCompression builds a handle for the file at path, which must exist.
func NewCompression(path string) (*Compression, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return &Compression{path: path}, nil
}

// Path returns the file the handle currently points at. In-place
// operations move the handle to the file they produce.
func (c *Compression) Path() string { return c.path }

// CompressOptions tune a Compress call. Zero values pick the defaults:
// target = source + the algorithm's suffix, level = 9.
type CompressOptions struct {
	TargetPath string
	InPlace    bool
	Level      int
}

// DecompressOptions tune a Decompress call. The default target is the
// source path with one suffix level stripped.
type DecompressOptions struct {
	TargetPath string
	InPlace    bool
}

// IsCompressed reports whether the file's content sniffs as the
// requested algorithm. This is an algorithm-specific question, not "is
// this file compressed at all".
func (c *Compression) IsCompressed(algorithm Algorithm) (bool, error) {
	if !validAlgorithm(algorithm) {
		return false, wrapf(ErrUnsupportedAlgorithm, "%q", algorithm)
	}
	kind, err := sniff.Detect(c.path)
	if err != nil {
		if errors.Is(err, sniff.ErrUnrecognized) {
			return false, nil
		}
		return false, err
	}
	detected, ok := algorithmFromKind(kind)
	return ok && detected == algorithm, nil
}

// Compress streams the file through the algorithm's writer and returns
// the produced path. Compressing a file that already sniffs as the same
// algorithm fails; re-compressing under a different algorithm is
// permitted. With InPlace the source file is deleted after the target is
// fully written and the handle moves to the target.
func (c *Compression) Compress(algorithm Algorithm, opts CompressOptions) (string, error) {
	compressed, err := c.IsCompressed(algorithm)
	if err != nil {
		return "", wrap(ErrCompress, err)
	}
	if compressed {
		return "", wrap(ErrCompress, wrapf(ErrFileAlreadyCompressed, "%s is already %s", c.path, algorithm))
	}

	target := opts.TargetPath
	if target == "" {
		target = c.path + codec.Suffix(algorithm)
	}
	if err := c.compressTo(algorithm, target, opts.Level); err != nil {
		return "", wrap(ErrCompress, err)
	}
	if opts.InPlace {
		if err := os.Remove(c.path); err != nil {
			return "", wrap(ErrCompress, err)
		}
		c.path = target
	}
	return target, nil
}

// Decompress streams the file through the algorithm's reader and returns
// the produced path. The file must sniff as the requested algorithm, so
// decompressing with a mismatched algorithm argument fails up front.
func (c *Compression) Decompress(algorithm Algorithm, opts DecompressOptions) (string, error) {
	compressed, err := c.IsCompressed(algorithm)
	if err != nil {
		return "", wrap(ErrDecompress, err)
	}
	if !compressed {
		return "", wrap(ErrDecompress, wrapf(ErrFileNotCompressed, "%s is not %s", c.path, algorithm))
	}

	target := opts.TargetPath
	if target == "" {
		ext := filepath.Ext(c.path)
		if ext == "" {
			return "", wrap(ErrDecompress, fmt.Errorf("%s has no suffix to strip, target path required", c.path))
		}
		target = c.path[:len(c.path)-len(ext)]
	}
	if err := c.decompressTo(algorithm, target); err != nil {
		return "", wrap(ErrDecompress, err)
	}
	if opts.InPlace {
		if err := os.Remove(c.path); err != nil {
			return "", wrap(ErrDecompress, err)
		}
		c.path = target
	}
	return target, nil
}

// UncompressedSize returns the file's logical size under the algorithm.
// A file that does not sniff as the algorithm reports its own size. No
// codec exposes the logical size without decoding, so a compressed file
// is fully decompressed into a scratch file just to measure it.
func (c *Compression) UncompressedSize(algorithm Algorithm) (int64, error) {
	compressed, err := c.IsCompressed(algorithm)
	if err != nil {
		return 0, wrap(ErrUncompressedSize, err)
	}
	if !compressed {
		size, err := c.fileSize()
		return size, wrap(ErrUncompressedSize, err)
	}
	size, err := c.measure(func(scratch string) error {
		return c.decompressTo(algorithm, scratch)
	})
	if err != nil {
		return 0, wrap(ErrUncompressedSize, err)
	}
	return size, nil
}

// CompressedSize returns the file's size under the algorithm. An already
// compressed file reports its own size; otherwise a trial compression at
// the given level measures it, and the level must be positive.
func (c *Compression) CompressedSize(algorithm Algorithm, level int) (int64, error) {
	compressed, err := c.IsCompressed(algorithm)
	if err != nil {
		return 0, wrap(ErrCompressedSize, err)
	}
	if compressed {
		size, err := c.fileSize()
		return size, wrap(ErrCompressedSize, err)
	}
	if level <= 0 {
		return 0, wrap(ErrCompressedSize, errors.New("compression level is required to measure an uncompressed file"))
	}
	size, err := c.measure(func(scratch string) error {
		return c.compressTo(algorithm, scratch, level)
	})
	if err != nil {
		return 0, wrap(ErrCompressedSize, err)
	}
	return size, nil
}

// CompressionRatio reports uncompressed/compressed as "X:1" rounded to
// two decimals. On a file not yet compressed this runs one real trial
// compression at the default level.
func (c *Compression) CompressionRatio(algorithm Algorithm) (string, error) {
	uncompressed, err := c.UncompressedSize(algorithm)
	if err != nil {
		return "", err
	}
	compressedSize, err := c.CompressedSize(algorithm, codec.DefaultLevel)
	if err != nil {
		return "", err
	}
	if compressedSize == 0 {
		return "", wrap(ErrCompressedSize, errors.New("compressed size is zero"))
	}
	return fmt.Sprintf("%.2f:1", float64(uncompressed)/float64(compressedSize)), nil
}

func (c *Compression) fileSize() (int64, error) {
	st, err := os.Stat(c.path)
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// measure runs produce against a scratch path and returns the size of
// whatever it wrote there. The scratch file never outlives the call.
func (c *Compression) measure(produce func(scratch string) error) (int64, error) {
	dir, err := os.MkdirTemp("", "filepack-size-*")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(dir)

	scratch := filepath.Join(dir, "scratch")
	if err := produce(scratch); err != nil {
		return 0, err
	}
	st, err := os.Stat(scratch)
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// compressTo streams the source through the codec into a temp file next
// to target and renames it into place, so a half-written target is never
// observable.
func (c *Compression) compressTo(algorithm Algorithm, target string, level int) (err error) {
	src, err := os.Open(c.path)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(target), ".filepack-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	w, err := codec.NewWriter(tmp, algorithm, level)
	if err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err = io.Copy(w, src); err != nil {
		_ = w.Close()
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func (c *Compression) decompressTo(algorithm Algorithm, target string) (err error) {
	src, err := os.Open(c.path)
	if err != nil {
		return err
	}

	r, err := codec.NewReader(src, algorithm)
	if err != nil {
		_ = src.Close()
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	tmp, err := os.CreateTemp(filepath.Dir(target), ".filepack-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
