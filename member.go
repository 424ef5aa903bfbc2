package filepack

import (
	"os"
	"path/filepath"
	"time"

	"github.com/islishude/filepack/internal/container"
	"github.com/islishude/filepack/internal/sniff"
)

// UnknownMemberType is reported by Member.Type when the content cannot
// be identified.
const UnknownMemberType = sniff.UnknownType

// Member is a read-only snapshot of one archive entry, produced fresh on
// every listing. Names are unique within one listing but carry no
// identity across listings since the archive can be rewritten.
type Member struct {
	// Name is the member's path inside the archive.
	Name string
	// Size is the backend-reported size.
	Size int64
	// MTime is the modification time normalized to a fixed UTC
	// rendering so members compare equal across formats.
	MTime string

	archive *Archive
}

// mtimeLayout renders as e.g. "Mon, 02 Jan 2006 15:04:05 UTC" once the
// time is in UTC.
const mtimeLayout = time.RFC1123

func newMember(a *Archive, e container.Entry) Member {
	return Member{
		Name:    e.Name,
		Size:    e.Size,
		MTime:   e.ModTime.UTC().Format(mtimeLayout),
		archive: a,
	}
}

// Type sniffs the member's content type by extracting its bytes to a
// scratch directory and classifying them. Deliberately uncached and
// re-extracted on every call so the answer tracks the archive's current
// on-disk state.
func (m Member) Type() string {
	if m.archive == nil {
		return UnknownMemberType
	}
	dir, err := os.MkdirTemp("", "filepack-type-*")
	if err != nil {
		return UnknownMemberType
	}
	defer os.RemoveAll(dir)

	err = m.archive.withSession(container.Read, func(s container.Session) error {
		return s.Extract(m.Name, dir)
	})
	if err != nil {
		return UnknownMemberType
	}
	return sniff.ContentType(filepath.Join(dir, filepath.FromSlash(m.Name)))
}
