// Package dirchunk turns a source of directory entries into the
// byte-stream contract a 9P directory read expects: entries are
// packed into successive Tread-sized chunks without ever splitting a
// single stat record across two replies.
package dirchunk

import (
	"io"
	"sync"

	"ninep.dev/ninep/proto"
)

// Source yields a directory's entries, already converted to Stat
// records, in whatever order the backend considers stable.
type Source interface {
	// Rewind repositions the source at its first entry, re-reading
	// the backing directory.
	Rewind() error
	// Next returns the next entry, or io.EOF once the directory is
	// exhausted.
	Next() (proto.Stat, error)
}

// Iter adapts a Source to the server.DirIter contract. Every ReadDir
// rewinds the source and walks forward from the first entry,
// re-encoding each one and comparing the accumulated byte position
// against the requested offset. Quadratic for large directories, but
// a retried read at an unchanged offset returns the same bytes, and
// a read at offset zero always starts over.
type Iter struct {
	mu     sync.Mutex
	src    Source
	closer io.Closer
}

// New adapts src into an Iter. closer, if non-nil, is invoked on
// Close to release whatever resource src reads from.
func New(src Source, closer io.Closer) *Iter {
	return &Iter{src: src, closer: closer}
}

// ReadDir encodes as many whole directory entries as fit in at most
// max bytes, starting at the given byte offset into the encoded
// listing. Entries that lie entirely below offset are skipped; an
// entry that would not fit in max is deferred to a later read rather
// than split. An empty result means the listing is exhausted (or max
// is too small for the next entry).
func (d *Iter) ReadDir(offset uint64, max int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.src.Rewind(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, max)
	var pos uint64
	for {
		st, err := d.src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		b := proto.EncodeStat(st)
		if pos+uint64(len(b)) <= offset {
			pos += uint64(len(b))
			continue
		}
		if len(out)+len(b) > max {
			break
		}
		out = append(out, b...)
		pos += uint64(len(b))
	}
	return out, nil
}

func (d *Iter) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
