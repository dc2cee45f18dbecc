package authfs

import (
	"io"

	"ninep.dev/ninep/internal/dirchunk"
	"ninep.dev/ninep/proto"
)

// rootSource serves the root directory's fixed four-entry listing
// through the shared dirchunk chunking logic, so offset handling and
// the never-split-an-entry rule behave the same way fsfile's
// directories do.
type rootSource struct {
	fs  *Backend
	pos int
}

func (s *rootSource) Rewind() error {
	s.pos = 0
	return nil
}

func (s *rootSource) Next() (proto.Stat, error) {
	if s.pos >= len(rootNames) {
		return proto.Stat{}, io.EOF
	}
	name := rootNames[s.pos]
	s.pos++
	return s.fs.Stat(name)
}

func newRootDirIter(fs *Backend) *dirchunk.Iter {
	return dirchunk.New(&rootSource{fs: fs}, nil)
}
