// Package sniff classifies files by their content magic numbers, with a
// filename-suffix fallback for paths that do not exist yet.
package sniff

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

type Kind string

const (
	Unknown  Kind = ""
	Tar      Kind = "tar"
	Zip      Kind = "zip"
	SevenZip Kind = "7z"
	Gzip     Kind = "gzip"
	Bzip2    Kind = "bzip2"
	Xz       Kind = "xz"
	Lz4      Kind = "lz4"
	Zstd     Kind = "zstd"
)

var ErrUnrecognized = errors.New("unrecognized file format")

// tar has no magic at offset zero; ustar is at offset 257.
const headerLen = 262

// Detect classifies an existing file strictly by content. The filename
// plays no part so a mislabeled extension cannot select the wrong backend.
func Detect(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, err
	}
	defer f.Close()
	return DetectReader(f)
}

func DetectReader(r io.Reader) (Kind, error) {
	header := make([]byte, headerLen)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Unknown, err
	}
	if k := DetectBytes(header[:n]); k != Unknown {
		return k, nil
	}
	return Unknown, ErrUnrecognized
}

func DetectBytes(header []byte) Kind {
	switch {
	case len(header) >= 2 && bytes.Equal(header[:2], []byte{0x1f, 0x8b}):
		return Gzip
	case len(header) >= 3 && bytes.Equal(header[:3], []byte{'B', 'Z', 'h'}):
		return Bzip2
	case len(header) >= 6 && bytes.Equal(header[:6], []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}):
		return Xz
	case len(header) >= 4 && bytes.Equal(header[:4], []byte{0x04, 0x22, 0x4d, 0x18}):
		return Lz4
	case len(header) >= 4 && bytes.Equal(header[:4], []byte{0x28, 0xb5, 0x2f, 0xfd}):
		return Zstd
	case len(header) >= 6 && bytes.Equal(header[:6], []byte{0x37, 0x7a, 0xbc, 0xaf, 0x27, 0x1c}):
		return SevenZip
	case len(header) >= 4 && bytes.Equal(header[:4], []byte{'P', 'K', 0x03, 0x04}):
		return Zip
	case len(header) >= 4 && bytes.Equal(header[:4], []byte{'P', 'K', 0x05, 0x06}):
		// empty zip: central directory end record only
		return Zip
	case len(header) >= 262 && bytes.Equal(header[257:262], []byte("ustar")):
		return Tar
	default:
		return Unknown
	}
}

// FromSuffix infers a kind from the filename extension. Used only when
// there are no bytes to sniff.
func FromSuffix(path string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tar":
		return Tar, true
	case ".zip":
		return Zip, true
	case ".7z":
		return SevenZip, true
	case ".gz", ".tgz":
		return Gzip, true
	case ".bz2", ".tbz2", ".tbz":
		return Bzip2, true
	case ".xz", ".txz":
		return Xz, true
	case ".lz4":
		return Lz4, true
	case ".zst", ".tzst", ".zstd":
		return Zstd, true
	default:
		return Unknown, false
	}
}

// UnknownType is reported when content typing cannot identify a file.
const UnknownType = "unknown"

// ContentType reports a short type name ("gz", "zip", "png", ...) for an
// arbitrary file. The closed-set magic table is consulted first, then the
// generic filetype matcher.
func ContentType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return UnknownType
	}
	defer f.Close()

	header := make([]byte, headerLen)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return UnknownType
	}
	header = header[:n]

	switch DetectBytes(header) {
	case Tar:
		return "tar"
	case Zip:
		return "zip"
	case SevenZip:
		return "7z"
	case Gzip:
		return "gz"
	case Bzip2:
		return "bz2"
	case Xz:
		return "xz"
	case Lz4:
		return "lz4"
	case Zstd:
		return "zst"
	}

	t, err := filetype.Match(header)
	if err != nil || t == filetype.Unknown {
		return UnknownType
	}
	return t.Extension
}
