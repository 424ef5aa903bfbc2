package container

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type zipSession struct {
	path string
	mode Mode
	rc   *zip.ReadCloser

	// write and append modes
	out *os.File
	zw  *zip.Writer
	tmp string // non-empty when Close must rename over path
}

func openZip(path string, mode Mode) (Session, error) {
	switch mode {
	case Read:
		rc, err := zip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		return &zipSession{path: path, mode: mode, rc: rc}, nil
	case Write:
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return &zipSession{path: path, mode: mode, out: f, zw: zip.NewWriter(f)}, nil
	case Append:
		return openZipAppend(path)
	default:
		return nil, fmt.Errorf("unsupported open mode %d", mode)
	}
}

// openZipAppend emulates append: existing entries are raw-copied into a
// temp file next to the archive and Close renames it over the original.
func openZipAppend(path string) (Session, error) {
	st, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && st.Size() == 0) {
		return openZip(path, Write)
	}
	if err != nil {
		return nil, err
	}

	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".filepack-zip-*")
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	zw := zip.NewWriter(tmp)
	for _, f := range rc.File {
		if err := zw.Copy(f); err != nil {
			_ = zw.Close()
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			_ = rc.Close()
			return nil, err
		}
	}
	if err := rc.Close(); err != nil {
		_ = zw.Close()
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	return &zipSession{path: path, mode: Append, out: tmp, zw: zw, tmp: tmp.Name()}, nil
}

func (s *zipSession) Entries() ([]Entry, error) {
	if s.rc == nil {
		return nil, fmt.Errorf("zip session at %s is not open for reading", s.path)
	}
	entries := make([]Entry, 0, len(s.rc.File))
	for _, f := range s.rc.File {
		entries = append(entries, Entry{
			Name:    f.Name,
			Size:    int64(f.UncompressedSize64),
			ModTime: f.Modified,
			IsDir:   f.FileInfo().IsDir(),
		})
	}
	return entries, nil
}

func (s *zipSession) Extract(name, dir string) error {
	if s.rc == nil {
		return fmt.Errorf("zip session at %s is not open for reading", s.path)
	}
	for _, f := range s.rc.File {
		if f.Name == name {
			return writeZipEntry(f, dir)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (s *zipSession) ExtractAll(dir string) error {
	if s.rc == nil {
		return fmt.Errorf("zip session at %s is not open for reading", s.path)
	}
	for _, f := range s.rc.File {
		if err := writeZipEntry(f, dir); err != nil {
			return err
		}
	}
	return nil
}

func writeZipEntry(f *zip.File, dir string) error {
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
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode().Perm()|0o200)
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

func (s *zipSession) Add(src, name string) error {
	if s.zw == nil {
		return fmt.Errorf("zip session at %s is not open for writing", s.path)
	}
	st, err := os.Stat(src)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(st)
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(name)
	if st.IsDir() {
		if !strings.HasSuffix(hdr.Name, "/") {
			hdr.Name += "/"
		}
		_, err := s.zw.CreateHeader(hdr)
		return err
	}
	hdr.Method = zip.Deflate
	w, err := s.zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	cerr := f.Close()
	if err != nil {
		return err
	}
	return cerr
}

func (s *zipSession) Close() error {
	if s.rc != nil {
		return s.rc.Close()
	}
	var first error
	if err := s.zw.Close(); err != nil {
		first = err
	}
	if err := s.out.Close(); err != nil && first == nil {
		first = err
	}
	if s.tmp != "" {
		if first != nil {
			_ = os.Remove(s.tmp)
			return first
		}
		return os.Rename(s.tmp, s.path)
	}
	return first
}
