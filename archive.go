// Package filepack is a format-agnostic facade over archive containers
// (tar, zip, 7z) and stream compression codecs (gzip, bzip2, xz, lz4,
// zstd). The on-disk file is the single source of truth: every operation
// opens the underlying container or codec fresh, does one batch of work,
// and closes it before returning.
package filepack

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/islishude/filepack/internal/container"
	"github.com/islishude/filepack/internal/sniff"
)

// Archive is a handle on one archive file. The container format is
// detected once at construction and never changes, even when the bytes
// behind the path are rewritten by a mutation.
type Archive struct {
	path   string
	format ArchiveFormat
}

// NewArchive builds a handle for the archive at path. An existing file
// is classified strictly by content magic bytes; a missing file falls
// back to suffix inference so new archives can be created. Anything
// outside the closed format set fails with ErrUnrecognizedFormat.
func NewArchive(path string) (*Archive, error) {
	if _, err := os.Stat(path); err == nil {
		kind, err := sniff.Detect(path)
		if err != nil && !errors.Is(err, sniff.ErrUnrecognized) {
			return nil, err
		}
		format, ok := archiveFormatFromKind(kind)
		if !ok {
			return nil, wrapf(ErrUnrecognizedFormat, "%s does not contain a supported archive", path)
		}
		return &Archive{path: path, format: format}, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	kind, ok := sniff.FromSuffix(path)
	if !ok {
		return nil, wrapf(ErrUnrecognizedFormat, "cannot infer archive format from %s", path)
	}
	format, ok := archiveFormatFromKind(kind)
	if !ok {
		return nil, wrapf(ErrUnrecognizedFormat, "%s is not an archive suffix", filepath.Ext(path))
	}
	return &Archive{path: path, format: format}, nil
}

// Path returns the archive file path.
func (a *Archive) Path() string { return a.path }

// Format returns the container format fixed at construction.
func (a *Archive) Format() ArchiveFormat { return a.format }

// PathExists reports whether the archive file currently exists.
func (a *Archive) PathExists() bool {
	_, err := os.Stat(a.path)
	return err == nil
}

// Size returns the archive file size in bytes, or 0 when the file does
// not exist.
func (a *Archive) Size() int64 {
	st, err := os.Stat(a.path)
	if err != nil {
		return 0
	}
	return st.Size()
}

func (a *Archive) withSession(mode container.Mode, fn func(container.Session) error) (err error) {
	s, err := container.Open(a.format, a.path, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

func (a *Archive) listEntries() ([]container.Entry, error) {
	var entries []container.Entry
	err := a.withSession(container.Read, func(s container.Session) error {
		var err error
		entries, err = s.Entries()
		return err
	})
	return entries, err
}

// Members lists all archive members in the backend's native order.
// A missing archive file reads as empty rather than failing.
func (a *Archive) Members() ([]Member, error) {
	if !a.PathExists() {
		return nil, nil
	}
	entries, err := a.listEntries()
	if err != nil {
		return nil, wrap(ErrListMembers, err)
	}
	members := make([]Member, len(entries))
	for i, e := range entries {
		members[i] = newMember(a, e)
	}
	return members, nil
}

// Member returns the named member, or nil when either the archive file
// or the member is absent.
func (a *Archive) Member(name string) (*Member, error) {
	if !a.PathExists() {
		return nil, nil
	}
	entries, err := a.listEntries()
	if err != nil {
		return nil, wrap(ErrGetMember, err)
	}
	for _, e := range entries {
		if e.Name == name {
			m := newMember(a, e)
			return &m, nil
		}
	}
	return nil, nil
}

// MemberExists reports whether the named member is present.
func (a *Archive) MemberExists(name string) (bool, error) {
	m, err := a.Member(name)
	return m != nil, err
}

// ExtractAll extracts every member under targetDir. With inPlace the
// archive file itself is deleted, but only after extraction fully
// succeeded. Extracting an empty or missing archive is a no-op.
func (a *Archive) ExtractAll(targetDir string, inPlace bool) error {
	members, err := a.Members()
	if err != nil {
		return wrap(ErrExtractMembers, err)
	}
	if len(members) == 0 {
		return nil
	}
	err = a.withSession(container.Read, func(s container.Session) error {
		return s.ExtractAll(targetDir)
	})
	if err != nil {
		return wrap(ErrExtractMembers, err)
	}
	if inPlace {
		if err := os.Remove(a.path); err != nil {
			return wrap(ErrExtractMembers, err)
		}
	}
	return nil
}

// ExtractMember extracts one member under targetDir, preserving its
// relative name. With inPlace the member is removed from the archive
// after a successful extraction.
func (a *Archive) ExtractMember(name, targetDir string, inPlace bool) error {
	exists, err := a.MemberExists(name)
	if err != nil {
		return wrap(ErrExtractMember, err)
	}
	if !exists {
		return wrap(ErrExtractMember, wrapf(ErrMemberNotFound, "%q", name))
	}
	err = a.withSession(container.Read, func(s container.Session) error {
		return s.Extract(name, targetDir)
	})
	if err != nil {
		return wrap(ErrExtractMember, err)
	}
	if inPlace {
		if err := a.RemoveMember(name); err != nil {
			return wrap(ErrExtractMember, err)
		}
	}
	return nil
}

// AddMember appends the file at sourcePath as a new member named by its
// base name; the rest of the source path is discarded. With inPlace the
// source file is deleted after a successful write.
func (a *Archive) AddMember(sourcePath string, inPlace bool) error {
	if _, err := os.Stat(sourcePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return wrap(ErrAddMember, wrapf(ErrSourceNotFound, "%q", sourcePath))
		}
		return wrap(ErrAddMember, err)
	}
	err := a.withSession(container.Append, func(s container.Session) error {
		return s.Add(sourcePath, filepath.Base(sourcePath))
	})
	if err != nil {
		return wrap(ErrAddMember, err)
	}
	if inPlace {
		if err := os.Remove(sourcePath); err != nil {
			return wrap(ErrAddMember, err)
		}
	}
	return nil
}

// RemoveMember removes one member. Tar and zip have no native delete, so
// removal extracts every other member into a scratch directory, rebuilds
// a fresh archive there, and renames it over the original. The rename is
// the only step that touches the real path: any failure before it leaves
// the original archive untouched. The scratch lives next to the archive
// so the rename never crosses filesystems.
//
// Removing the last member leaves a valid empty archive. An empty tar is
// nothing but zero padding with no magic, so this handle keeps working
// (the format is fixed at construction) but content sniffing cannot
// classify the emptied file for a fresh handle.
func (a *Archive) RemoveMember(name string) error {
	if err := a.removeMember(name); err != nil {
		return wrap(ErrRemoveMember, err)
	}
	return nil
}

func (a *Archive) removeMember(name string) error {
	if !a.PathExists() {
		return wrapf(ErrMemberNotFound, "%q", name)
	}
	entries, err := a.listEntries()
	if err != nil {
		return err
	}
	found := false
	for _, e := range entries {
		if e.Name == name {
			found = true
			break
		}
	}
	if !found {
		return wrapf(ErrMemberNotFound, "%q", name)
	}

	scratch, err := os.MkdirTemp(filepath.Dir(a.path), ".filepack-rebuild-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	filesDir := filepath.Join(scratch, "files")
	if err := os.Mkdir(filesDir, 0o755); err != nil {
		return err
	}
	// only directories that were members themselves get re-added; parents
	// materialized by extraction stay implied by the file names
	keepDirs := make(map[string]bool)
	err = a.withSession(container.Read, func(s container.Session) error {
		for _, e := range entries {
			if e.Name == name {
				continue
			}
			if e.IsDir {
				keepDirs[strings.TrimSuffix(e.Name, "/")] = true
			}
			if err := s.Extract(e.Name, filesDir); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	rebuilt := filepath.Join(scratch, "rebuilt."+string(a.format))
	if err := a.rebuildFrom(filesDir, rebuilt, keepDirs); err != nil {
		return err
	}
	return os.Rename(rebuilt, a.path)
}

// rebuildFrom packs everything under filesDir into a brand-new archive
// at dest, keeping each entry's path relative to filesDir so nested
// member names survive the rebuild. Directories are added only when
// named in keepDirs; the rest exist purely to hold files and would
// otherwise show up as members the original never had.
func (a *Archive) rebuildFrom(filesDir, dest string, keepDirs map[string]bool) (err error) {
	s, err := container.Open(a.format, dest, container.Write)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return filepath.WalkDir(filesDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == filesDir {
			return nil
		}
		rel, err := filepath.Rel(filesDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() && !keepDirs[rel] {
			return nil
		}
		return s.Add(path, rel)
	})
}

// RemoveAll deletes the archive file outright; a missing file is a no-op.
func (a *Archive) RemoveAll() error {
	if !a.PathExists() {
		return nil
	}
	if err := os.Remove(a.path); err != nil {
		return wrap(ErrRemoveMembers, err)
	}
	return nil
}

// WriteListing renders a table of the members to w. Note the type column
// re-extracts every member to sniff its content.
func (a *Archive) WriteListing(w io.Writer) error {
	members, err := a.Members()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMTIME\tTYPE")
	for _, m := range members {
		fmt.Fprintf(tw, "%s\t%dB\t%s\t%s\n", m.Name, m.Size, m.MTime, m.Type())
	}
	return tw.Flush()
}

// PrintMembers writes the member table to stdout.
func (a *Archive) PrintMembers() error {
	return a.WriteListing(os.Stdout)
}
