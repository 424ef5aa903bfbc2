package filepack

import (
	"errors"
	"fmt"
)

// Precondition failures.
var (
	// ErrUnrecognizedFormat reports that neither the file content nor,
	// for a missing file, the filename suffix maps to a supported format.
	ErrUnrecognizedFormat = errors.New("unrecognized or unsupported file format")

	// ErrMemberNotFound reports that the named member is absent.
	ErrMemberNotFound = errors.New("archive member does not exist")

	// ErrSourceNotFound reports that the file to be added does not exist.
	ErrSourceNotFound = errors.New("source file does not exist")

	// ErrFileAlreadyCompressed guards against double compression under
	// the same algorithm.
	ErrFileAlreadyCompressed = errors.New("file is already compressed with this algorithm")

	// ErrFileNotCompressed reports that the file does not sniff as the
	// requested algorithm.
	ErrFileNotCompressed = errors.New("file is not compressed with this algorithm")

	// ErrUnsupportedAlgorithm reports an algorithm outside the closed set.
	ErrUnsupportedAlgorithm = errors.New("unsupported compression algorithm")
)

// Operation kinds. Every public operation wraps lower-level failures,
// including the preconditions above, into exactly one of these; the
// cause stays reachable through errors.Is/errors.As.
var (
	ErrListMembers    = errors.New("failed to list archive members")
	ErrGetMember      = errors.New("failed to get archive member")
	ErrExtractMembers = errors.New("failed to extract archive members")
	ErrExtractMember  = errors.New("failed to extract archive member")
	ErrAddMember      = errors.New("failed to add archive member")
	ErrRemoveMember   = errors.New("failed to remove archive member")
	ErrRemoveMembers  = errors.New("failed to remove archive members")

	ErrCompress         = errors.New("failed to compress file")
	ErrDecompress       = errors.New("failed to decompress file")
	ErrUncompressedSize = errors.New("failed to get uncompressed size")
	ErrCompressedSize   = errors.New("failed to get compressed size")
)

// ErrUnusablePath is the aggregate construction failure of FilePack:
// the path qualifies for neither archiving nor compression.
var ErrUnusablePath = errors.New("path cannot be used for archiving or compression")

func wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
