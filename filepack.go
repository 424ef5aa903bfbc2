package filepack

import (
	"errors"
	"io"
)

// FilePack composes an Archive and a Compression facade over one path,
// exposing the union of both operation sets. Construction succeeds when
// either facade does; a facade that could not be built at construction
// (typically Compression over a not-yet-created archive) is retried
// lazily, which is safe because every operation reopens the file fresh.
type FilePack struct {
	path string

	archive        *Archive
	archiveErr     error
	compression    *Compression
	compressionErr error
}

// New builds a FilePack over path. It fails only when the path qualifies
// for neither archiving nor compression; the aggregate error carries
// both underlying failures.
func New(path string) (*FilePack, error) {
	p := &FilePack{path: path}
	p.archive, p.archiveErr = NewArchive(path)
	p.compression, p.compressionErr = NewCompression(path)
	if p.archive == nil && p.compression == nil {
		return nil, wrap(ErrUnusablePath, errors.Join(p.archiveErr, p.compressionErr))
	}
	return p, nil
}

// Path returns the path the FilePack was built over.
func (p *FilePack) Path() string { return p.path }

func (p *FilePack) archiveFacade() (*Archive, error) {
	if p.archive != nil {
		return p.archive, nil
	}
	a, err := NewArchive(p.path)
	if err != nil {
		p.archiveErr = err
		return nil, err
	}
	p.archive, p.archiveErr = a, nil
	return a, nil
}

func (p *FilePack) compressionFacade() (*Compression, error) {
	if p.compression != nil {
		return p.compression, nil
	}
	c, err := NewCompression(p.path)
	if err != nil {
		p.compressionErr = err
		return nil, err
	}
	p.compression, p.compressionErr = c, nil
	return c, nil
}

// Archive operations.

func (p *FilePack) Members() ([]Member, error) {
	a, err := p.archiveFacade()
	if err != nil {
		return nil, err
	}
	return a.Members()
}

func (p *FilePack) Member(name string) (*Member, error) {
	a, err := p.archiveFacade()
	if err != nil {
		return nil, err
	}
	return a.Member(name)
}

func (p *FilePack) MemberExists(name string) (bool, error) {
	a, err := p.archiveFacade()
	if err != nil {
		return false, err
	}
	return a.MemberExists(name)
}

func (p *FilePack) ExtractAll(targetDir string, inPlace bool) error {
	a, err := p.archiveFacade()
	if err != nil {
		return err
	}
	return a.ExtractAll(targetDir, inPlace)
}

func (p *FilePack) ExtractMember(name, targetDir string, inPlace bool) error {
	a, err := p.archiveFacade()
	if err != nil {
		return err
	}
	return a.ExtractMember(name, targetDir, inPlace)
}

func (p *FilePack) AddMember(sourcePath string, inPlace bool) error {
	a, err := p.archiveFacade()
	if err != nil {
		return err
	}
	return a.AddMember(sourcePath, inPlace)
}

func (p *FilePack) RemoveMember(name string) error {
	a, err := p.archiveFacade()
	if err != nil {
		return err
	}
	return a.RemoveMember(name)
}

func (p *FilePack) RemoveAll() error {
	a, err := p.archiveFacade()
	if err != nil {
		return err
	}
	return a.RemoveAll()
}

func (p *FilePack) WriteListing(w io.Writer) error {
	a, err := p.archiveFacade()
	if err != nil {
		return err
	}
	return a.WriteListing(w)
}

// Compression operations.

func (p *FilePack) IsCompressed(algorithm Algorithm) (bool, error) {
	c, err := p.compressionFacade()
	if err != nil {
		return false, err
	}
	return c.IsCompressed(algorithm)
}

func (p *FilePack) Compress(algorithm Algorithm, opts CompressOptions) (string, error) {
	c, err := p.compressionFacade()
	if err != nil {
		return "", err
	}
	return c.Compress(algorithm, opts)
}

func (p *FilePack) Decompress(algorithm Algorithm, opts DecompressOptions) (string, error) {
	c, err := p.compressionFacade()
	if err != nil {
		return "", err
	}
	return c.Decompress(algorithm, opts)
}

func (p *FilePack) UncompressedSize(algorithm Algorithm) (int64, error) {
	c, err := p.compressionFacade()
	if err != nil {
		return 0, err
	}
	return c.UncompressedSize(algorithm)
}

func (p *FilePack) CompressedSize(algorithm Algorithm, level int) (int64, error) {
	c, err := p.compressionFacade()
	if err != nil {
		return 0, err
	}
	return c.CompressedSize(algorithm, level)
}

func (p *FilePack) CompressionRatio(algorithm Algorithm) (string, error) {
	c, err := p.compressionFacade()
	if err != nil {
		return "", err
	}
	return c.CompressionRatio(algorithm)
}
