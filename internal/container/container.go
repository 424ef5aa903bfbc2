// Package container adapts the archive formats (tar, zip, 7z) behind one
// session interface. A session is opened for one batch of operations and
// closed deterministically; formats without a native append mode emulate
// it (tar by seeking past the last entry, zip by a raw-copy rebuild
// committed on Close, 7z natively through the external binary).
package container

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type Format string

const (
	Tar      Format = "tar"
	Zip      Format = "zip"
	SevenZip Format = "7z"
)

type Mode int

const (
	Read Mode = iota
	Append
	Write
)

// ErrNotFound reports that a named entry is absent from the archive.
var ErrNotFound = errors.New("entry not found in archive")

// Entry describes one archive member as reported by its backend.
// Size follows the backend's native semantics: raw bytes for tar and zip,
// uncompressed size for 7z.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Session is one open archive. List order is the backend's native
// enumeration order and is not guaranteed sorted.
type Session interface {
	// Entries lists all members.
	Entries() ([]Entry, error)
	// Extract writes the named member under dir, preserving its
	// relative name. Returns ErrNotFound when the name is absent.
	Extract(name, dir string) error
	// ExtractAll writes every member under dir.
	ExtractAll(dir string) error
	// Add appends the file at src as a new member called name.
	// The session must have been opened in Append or Write mode.
	Add(src, name string) error
	// Close releases the session. For emulated-append backends this is
	// also the commit point for pending writes.
	Close() error
}

// Open opens the archive at path with the given mode. In Append and
// Write modes a missing file is created.
func Open(format Format, path string, mode Mode) (Session, error) {
	switch format {
	case Tar:
		return openTar(path, mode)
	case Zip:
		return openZip(path, mode)
	case SevenZip:
		return openSevenZip(path, mode)
	default:
		return nil, fmt.Errorf("unsupported archive format %q", format)
	}
}

// safeJoin joins an archive member name onto base, refusing names that
// would escape the extraction directory.
func safeJoin(base, name string) (string, error) {
	base = filepath.Clean(base)
	name = strings.TrimPrefix(name, "/")
	candidate := filepath.Clean(filepath.Join(base, filepath.FromSlash(name)))
	rel, err := filepath.Rel(base, candidate)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("refusing to extract outside target directory: %s", name)
	}
	return candidate, nil
}
