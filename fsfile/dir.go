package fsfile

import (
	"io"

	"ninep.dev/ninep/internal/dirchunk"
)

// newDirIter adapts a directory source into the server.DirIter
// contract via the shared dirchunk chunking logic.
func newDirIter(src dirchunk.Source, closer io.Closer) *dirchunk.Iter {
	return dirchunk.New(src, closer)
}
