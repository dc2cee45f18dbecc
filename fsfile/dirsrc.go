package fsfile

import (
	"io"
	"os"

	"ninep.dev/ninep/proto"
)

// hostDirSource reads a host directory's entries through the open
// directory handle. Rewind re-reads the directory from the start, so
// every Tread against the directory sees its live contents, the way
// rewinddir-per-read does.
type hostDirSource struct {
	rel     string
	f       *os.File
	entries []os.FileInfo
	pos     int
}

func newHostDirSource(rel string, f *os.File) *hostDirSource {
	return &hostDirSource{rel: rel, f: f}
}

func (s *hostDirSource) Rewind() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	entries, err := s.f.Readdir(-1)
	if err != nil {
		return err
	}
	s.entries, s.pos = entries, 0
	return nil
}

func (s *hostDirSource) Next() (proto.Stat, error) {
	if s.pos >= len(s.entries) {
		return proto.Stat{}, io.EOF
	}
	fi := s.entries[s.pos]
	s.pos++
	child := fi.Name()
	if s.rel != "" {
		child = s.rel + "/" + fi.Name()
	}
	return statFileInfo(fi, child), nil
}

// memDirSource plays the same role as hostDirSource for a directory
// in the in-memory tree: Rewind re-fetches the directory's live
// children from the head of its sibling chain.
type memDirSource struct {
	tree     *memTree
	dir      int
	children []int
	pos      int
}

func newMemDirSource(t *memTree, dir int) *memDirSource {
	return &memDirSource{tree: t, dir: dir}
}

func (s *memDirSource) Rewind() error {
	s.children, s.pos = s.tree.children(s.dir), 0
	return nil
}

func (s *memDirSource) Next() (proto.Stat, error) {
	if s.pos >= len(s.children) {
		return proto.Stat{}, io.EOF
	}
	idx := s.children[s.pos]
	s.pos++
	return s.tree.stat(idx), nil
}
