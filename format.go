package filepack

import (
	"github.com/islishude/filepack/internal/codec"
	"github.com/islishude/filepack/internal/container"
	"github.com/islishude/filepack/internal/sniff"
)

// ArchiveFormat is the closed set of supported archive containers.
type ArchiveFormat = container.Format

const (
	Tar      = container.Tar
	Zip      = container.Zip
	SevenZip = container.SevenZip
)

// Algorithm is the closed set of supported compression codecs.
type Algorithm = codec.Algorithm

const (
	Gzip  = codec.Gzip
	Bzip2 = codec.Bzip2
	Xz    = codec.Xz
	Lz4   = codec.Lz4
	Zstd  = codec.Zstd
)

// DefaultCompressionLevel is used when a caller does not choose a level.
const DefaultCompressionLevel = codec.DefaultLevel

// ParseAlgorithm resolves a user-supplied algorithm name, accepting the
// common short spellings ("gz", "bz2", "zst").
func ParseAlgorithm(v string) (Algorithm, error) {
	a, ok := codec.FromString(v)
	if !ok {
		return "", wrapf(ErrUnsupportedAlgorithm, "%q", v)
	}
	return a, nil
}

func archiveFormatFromKind(k sniff.Kind) (ArchiveFormat, bool) {
	switch k {
	case sniff.Tar:
		return Tar, true
	case sniff.Zip:
		return Zip, true
	case sniff.SevenZip:
		return SevenZip, true
	default:
		return "", false
	}
}

func algorithmFromKind(k sniff.Kind) (Algorithm, bool) {
	switch k {
	case sniff.Gzip:
		return Gzip, true
	case sniff.Bzip2:
		return Bzip2, true
	case sniff.Xz:
		return Xz, true
	case sniff.Lz4:
		return Lz4, true
	case sniff.Zstd:
		return Zstd, true
	default:
		return "", false
	}
}

func validAlgorithm(a Algorithm) bool {
	switch a {
	case Gzip, Bzip2, Xz, Lz4, Zstd:
		return true
	default:
		return false
	}
}
