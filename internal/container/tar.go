package container

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type tarSession struct {
	path string
	mode Mode
	f    *os.File
	tw   *tar.Writer
}

func openTar(path string, mode Mode) (Session, error) {
	switch mode {
	case Read:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return &tarSession{path: path, mode: mode, f: f}, nil
	case Write:
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return &tarSession{path: path, mode: mode, f: f, tw: tar.NewWriter(f)}, nil
	case Append:
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return nil, err
		}
		end, err := tarDataEnd(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		// drop the end-of-archive marker so new entries continue the stream
		if err := f.Truncate(end); err != nil {
			_ = f.Close()
			return nil, err
		}
		if _, err := f.Seek(end, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, err
		}
		return &tarSession{path: path, mode: mode, f: f, tw: tar.NewWriter(f)}, nil
	default:
		return nil, fmt.Errorf("unsupported open mode %d", mode)
	}
}

// tarDataEnd walks the header blocks of an existing tar stream and
// returns the offset just past the last entry's data. archive/tar cannot
// append, so this is where an appending writer must start.
func tarDataEnd(f *os.File) (int64, error) {
	var offset int64
	var block [512]byte
	for {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return 0, err
		}
		if _, err := io.ReadFull(f, block[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				// truncated or empty archive, append from here
				return offset, nil
			}
			return 0, err
		}
		if isZeroBlock(block[:]) {
			return offset, nil
		}
		size, err := parseTarSize(block[124:136])
		if err != nil {
			return 0, fmt.Errorf("malformed tar header at offset %d: %w", offset, err)
		}
		offset += 512 + (size+511)/512*512
	}
}

func isZeroBlock(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func parseTarSize(b []byte) (int64, error) {
	s := strings.Trim(string(b), " \x00")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 8, 64)
}

func (s *tarSession) rewind() (*tar.Reader, error) {
	if s.mode != Read {
		return nil, fmt.Errorf("tar session at %s is not open for reading", s.path)
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return tar.NewReader(s.f), nil
}

func (s *tarSession) Entries() ([]Entry, error) {
	tr, err := s.rewind()
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			Name:    hdr.Name,
			Size:    hdr.Size,
			ModTime: hdr.ModTime,
			IsDir:   hdr.Typeflag == tar.TypeDir,
		})
	}
}

func (s *tarSession) Extract(name, dir string) error {
	tr, err := s.rewind()
	if err != nil {
		return err
	}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if err != nil {
			return err
		}
		if hdr.Name != name {
			continue
		}
		return writeTarEntry(hdr, tr, dir)
	}
}

func (s *tarSession) ExtractAll(dir string) error {
	tr, err := s.rewind()
	if err != nil {
		return err
	}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := writeTarEntry(hdr, tr, dir); err != nil {
			return err
		}
	}
}

func writeTarEntry(hdr *tar.Header, tr *tar.Reader, dir string) error {
	target, err := safeJoin(dir, hdr.Name)
	if err != nil {
		return err
	}
	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, fs.FileMode(hdr.Mode).Perm())
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode).Perm())
		if err != nil {
			return err
		}
		_, err = io.Copy(f, io.LimitReader(tr, hdr.Size))
		cerr := f.Close()
		if err != nil {
			return err
		}
		if cerr != nil {
			return cerr
		}
		if !hdr.ModTime.IsZero() {
			_ = os.Chtimes(target, hdr.ModTime, hdr.ModTime)
		}
		return nil
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return os.Symlink(hdr.Linkname, target)
	default:
		_, err := io.Copy(io.Discard, io.LimitReader(tr, hdr.Size))
		return err
	}
}

func (s *tarSession) Add(src, name string) error {
	if s.tw == nil {
		return fmt.Errorf("tar session at %s is not open for writing", s.path)
	}
	st, err := os.Stat(src)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(st, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(name)
	hdr.Format = tar.FormatPAX
	if st.IsDir() {
		hdr.Name += "/"
	}
	if err := s.tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !st.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	_, err = io.Copy(s.tw, f)
	cerr := f.Close()
	if err != nil {
		return err
	}
	return cerr
}

func (s *tarSession) Close() error {
	var first error
	if s.tw != nil {
		if err := s.tw.Close(); err != nil {
			first = err
		}
	}
	if err := s.f.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
