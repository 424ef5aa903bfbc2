package filepack

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var testPayload = []byte(strings.Repeat("compressible filepack payload line\n", 512))

func TestCompressionRoundTrip(t *testing.T) {
	for _, algo := range []Algorithm{Gzip, Bzip2, Xz, Lz4, Zstd} {
		t.Run(string(algo), func(t *testing.T) {
			dir := t.TempDir()
			src := writeTestFile(t, dir, "payload.bin", string(testPayload))

			c, err := NewCompression(src)
			if err != nil {
				t.Fatalf("NewCompression() error = %v", err)
			}

			compressed, err := c.IsCompressed(algo)
			if err != nil {
				t.Fatalf("IsCompressed() error = %v", err)
			}
			if compressed {
				t.Fatalf("IsCompressed() = true for plain file")
			}

			target, err := c.Compress(algo, CompressOptions{})
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			if want := src + suffixFor(algo); target != want {
				t.Fatalf("Compress() target = %q, want %q", target, want)
			}

			cc, err := NewCompression(target)
			if err != nil {
				t.Fatalf("NewCompression(target) error = %v", err)
			}
			compressed, err = cc.IsCompressed(algo)
			if err != nil || !compressed {
				t.Fatalf("IsCompressed(target) = %v, %v", compressed, err)
			}

			restored := filepath.Join(dir, "restored.bin")
			got, err := cc.Decompress(algo, DecompressOptions{TargetPath: restored})
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}
			if got != restored {
				t.Fatalf("Decompress() target = %q, want %q", got, restored)
			}
			assertContent(t, restored, string(testPayload))
		})
	}
}

func TestCompressAlreadyCompressed(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "payload.bin", string(testPayload))
	c, err := NewCompression(src)
	if err != nil {
		t.Fatalf("NewCompression() error = %v", err)
	}
	target, err := c.Compress(Gzip, CompressOptions{})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	cc, err := NewCompression(target)
	if err != nil {
		t.Fatalf("NewCompression(target) error = %v", err)
	}
	_, err = cc.Compress(Gzip, CompressOptions{})
	if !errors.Is(err, ErrCompress) || !errors.Is(err, ErrFileAlreadyCompressed) {
		t.Fatalf("Compress(gzip twice) error = %v", err)
	}

	// a different algorithm on top is permitted
	if _, err := cc.Compress(Zstd, CompressOptions{}); err != nil {
		t.Fatalf("Compress(zstd over gzip) error = %v", err)
	}
}

func TestDecompressErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "payload.bin", string(testPayload))
	c, err := NewCompression(src)
	if err != nil {
		t.Fatalf("NewCompression() error = %v", err)
	}

	_, err = c.Decompress(Gzip, DecompressOptions{})
	if !errors.Is(err, ErrDecompress) || !errors.Is(err, ErrFileNotCompressed) {
		t.Fatalf("Decompress(plain file) error = %v", err)
	}

	// wrong algorithm against real gzip bytes
	target, err := c.Compress(Gzip, CompressOptions{})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	cc, err := NewCompression(target)
	if err != nil {
		t.Fatalf("NewCompression(target) error = %v", err)
	}
	_, err = cc.Decompress(Bzip2, DecompressOptions{})
	if !errors.Is(err, ErrFileNotCompressed) {
		t.Fatalf("Decompress(bzip2 on gzip) error = %v", err)
	}

	// no suffix to strip and no target given
	plain := writeTestFile(t, dir, "nosuffix", string(testPayload))
	p, err := NewCompression(plain)
	if err != nil {
		t.Fatalf("NewCompression() error = %v", err)
	}
	gz, err := p.Compress(Gzip, CompressOptions{TargetPath: filepath.Join(dir, "stripped")})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	sp, err := NewCompression(gz)
	if err != nil {
		t.Fatalf("NewCompression() error = %v", err)
	}
	if _, err := sp.Decompress(Gzip, DecompressOptions{}); err == nil {
		t.Fatalf("Decompress() without suffix or target did not fail")
	}
}

func TestCompressInPlace(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "payload.bin", string(testPayload))
	c, err := NewCompression(src)
	if err != nil {
		t.Fatalf("NewCompression() error = %v", err)
	}

	target, err := c.Compress(Gzip, CompressOptions{InPlace: true})
	if err != nil {
		t.Fatalf("Compress(in place) error = %v", err)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("source still exists after in-place compress")
	}
	if c.Path() != target {
		t.Fatalf("Path() = %q after in-place compress, want %q", c.Path(), target)
	}

	// the handle followed the file, so the inverse works on the same value
	restored, err := c.Decompress(Gzip, DecompressOptions{InPlace: true})
	if err != nil {
		t.Fatalf("Decompress(in place) error = %v", err)
	}
	if restored != src {
		t.Fatalf("Decompress() target = %q, want %q", restored, src)
	}
	if _, err := os.Stat(target); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("compressed file still exists after in-place decompress")
	}
	assertContent(t, src, string(testPayload))
}

func TestSizes(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "payload.bin", string(testPayload))
	c, err := NewCompression(src)
	if err != nil {
		t.Fatalf("NewCompression() error = %v", err)
	}

	// a plain file reports its own size as the uncompressed size
	size, err := c.UncompressedSize(Gzip)
	if err != nil {
		t.Fatalf("UncompressedSize() error = %v", err)
	}
	if size != int64(len(testPayload)) {
		t.Fatalf("UncompressedSize() = %d, want %d", size, len(testPayload))
	}

	// measuring a plain file requires an explicit level
	if _, err := c.CompressedSize(Gzip, 0); !errors.Is(err, ErrCompressedSize) {
		t.Fatalf("CompressedSize(level 0) error = %v", err)
	}
	trial, err := c.CompressedSize(Gzip, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("CompressedSize() error = %v", err)
	}
	if trial <= 0 || trial >= int64(len(testPayload)) {
		t.Fatalf("CompressedSize() = %d for a %d byte compressible payload", trial, len(testPayload))
	}

	target, err := c.Compress(Gzip, CompressOptions{})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	cc, err := NewCompression(target)
	if err != nil {
		t.Fatalf("NewCompression(target) error = %v", err)
	}
	size, err = cc.UncompressedSize(Gzip)
	if err != nil {
		t.Fatalf("UncompressedSize(compressed) error = %v", err)
	}
	if size != int64(len(testPayload)) {
		t.Fatalf("UncompressedSize(compressed) = %d, want %d", size, len(testPayload))
	}
	size, err = cc.CompressedSize(Gzip, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("CompressedSize(compressed) error = %v", err)
	}
	if size != trial {
		t.Fatalf("CompressedSize(compressed) = %d, want %d", size, trial)
	}
}

func TestCompressionRatio(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "payload.bin", string(testPayload))
	c, err := NewCompression(src)
	if err != nil {
		t.Fatalf("NewCompression() error = %v", err)
	}

	ratioRe := regexp.MustCompile(`^\d+\.\d{2}:1$`)

	// plain file: measured by a trial compression at the default level
	ratio, err := c.CompressionRatio(Gzip)
	if err != nil {
		t.Fatalf("CompressionRatio() error = %v", err)
	}
	if !ratioRe.MatchString(ratio) {
		t.Fatalf("CompressionRatio() = %q, want X.XX:1", ratio)
	}

	target, err := c.Compress(Gzip, CompressOptions{})
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	cc, err := NewCompression(target)
	if err != nil {
		t.Fatalf("NewCompression(target) error = %v", err)
	}
	got, err := cc.CompressionRatio(Gzip)
	if err != nil {
		t.Fatalf("CompressionRatio(compressed) error = %v", err)
	}
	if got != ratio {
		t.Fatalf("CompressionRatio(compressed) = %q, want %q", got, ratio)
	}
}

func TestUnsupportedAlgorithmRejected(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "payload.bin", "data")
	c, err := NewCompression(src)
	if err != nil {
		t.Fatalf("NewCompression() error = %v", err)
	}
	if _, err := c.IsCompressed(Algorithm("rar")); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("IsCompressed(rar) error = %v", err)
	}
	if _, err := c.Compress(Algorithm("rar"), CompressOptions{}); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("Compress(rar) error = %v", err)
	}
}

func TestNewCompressionRequiresFile(t *testing.T) {
	if _, err := NewCompression(filepath.Join(t.TempDir(), "missing.gz")); err == nil {
		t.Fatalf("NewCompression() accepted a missing file")
	}
}

func suffixFor(a Algorithm) string {
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
	}
	return ""
}
