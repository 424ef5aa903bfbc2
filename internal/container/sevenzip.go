package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bodgit/sevenzip"
)

// No Go library writes 7z, so mutations drive the system 7-Zip binary
// from a staging directory while reads stay native via bodgit/sevenzip.

type sevenZipSession struct {
	path    string
	mode    Mode
	rc      *sevenzip.ReadCloser
	bin     string
	staging string
	staged  []string
}

func openSevenZip(path string, mode Mode) (Session, error) {
	if mode == Read {
		rc, err := sevenzip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		return &sevenZipSession{path: path, mode: mode, rc: rc}, nil
	}

	bin, err := lookupSevenZipBinary()
	if err != nil {
		return nil, err
	}
	staging, err := os.MkdirTemp("", "filepack-7z-*")
	if err != nil {
		return nil, err
	}
	return &sevenZipSession{path: path, mode: mode, bin: bin, staging: staging}, nil
}

func lookupSevenZipBinary() (string, error) {
	for _, name := range []string{"7z", "7za", "7zz"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", errors.New("writing 7z archives requires a 7z, 7za or 7zz binary on PATH")
}

func (s *sevenZipSession) Entries() ([]Entry, error) {
	if s.rc == nil {
		return nil, fmt.Errorf("7z session at %s is not open for reading", s.path)
	}
	entries := make([]Entry, 0, len(s.rc.File))
	for _, f := range s.rc.File {
		entries = append(entries, Entry{
			Name:    f.Name,
			Size:    int64(f.UncompressedSize),
			ModTime: f.Modified,
			IsDir:   f.FileInfo().IsDir(),
		})
	}
	return entries, nil
}

func (s *sevenZipSession) Extract(name, dir string) error {
	if s.rc == nil {
		return fmt.Errorf("7z session at %s is not open for reading", s.path)
	}
	for _, f := range s.rc.File {
		if f.Name == name {
			return writeSevenZipEntry(f, dir)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (s *sevenZipSession) ExtractAll(dir string) error {
	if s.rc == nil {
		return fmt.Errorf("7z session at %s is not open for reading", s.path)
	}
	for _, f := range s.rc.File {
		if err := writeSevenZipEntry(f, dir); err != nil {
			return err
		}
	}
	return nil
}

func writeSevenZipEntry(f *sevenzip.File, dir string) error {
	target, err := safeJoin(dir, f.Name)
	if err != nil {
		return err
	}
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		_ = src.Close()
		return err
	}
	_, err = io.Copy(dst, src)
	serr := src.Close()
	derr := dst.Close()
	if err != nil {
		return err
	}
	if serr != nil {
		return serr
	}
	if derr != nil {
		return derr
	}
	if !f.Modified.IsZero() {
		_ = os.Chtimes(target, f.Modified, f.Modified)
	}
	return nil
}

func (s *sevenZipSession) Add(src, name string) error {
	if s.staging == "" {
		return fmt.Errorf("7z session at %s is not open for writing", s.path)
	}
	dest := filepath.Join(s.staging, filepath.FromSlash(name))
	st, err := os.Stat(src)
	if err != nil {
		return err
	}
	if st.IsDir() {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return err
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := copyFile(src, dest, st.Mode().Perm()); err != nil {
			return err
		}
	}
	s.staged = append(s.staged, filepath.FromSlash(name))
	return nil
}

func copyFile(src, dest string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		_ = in.Close()
		return err
	}
	_, err = io.Copy(out, in)
	ierr := in.Close()
	oerr := out.Close()
	if err != nil {
		return err
	}
	if ierr != nil {
		return ierr
	}
	return oerr
}

// Close commits staged additions by running "7z a" against the archive.
// Write mode removes any existing archive first so it behaves as
// truncate instead of 7-Zip's native update.
func (s *sevenZipSession) Close() error {
	if s.rc != nil {
		return s.rc.Close()
	}
	defer os.RemoveAll(s.staging)

	if s.mode == Write {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if len(s.staged) == 0 {
		if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
			return writeEmptySevenZip(s.path)
		}
		return nil
	}

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}
	args := append([]string{"a", "-y", abs}, s.staged...)
	cmd := exec.Command(s.bin, args...)
	cmd.Dir = s.staging
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("7z add failed: %w: %s", err, out)
	}
	return nil
}

// writeEmptySevenZip writes a valid zero-member archive: the 7z
// signature, format version, and an all-zero start header.
func writeEmptySevenZip(path string) error {
	var header [32]byte
	copy(header[:6], []byte{0x37, 0x7a, 0xbc, 0xaf, 0x27, 0x1c})
	header[6], header[7] = 0x00, 0x04
	binary.LittleEndian.PutUint32(header[8:12], crc32.ChecksumIEEE(header[12:32]))
	return os.WriteFile(path, header[:], 0o644)
}
