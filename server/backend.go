package server

import (
	"io"

	"ninep.dev/ninep"
	"ninep.dev/ninep/proto"
)

// DirIter serves the stat entries of an open directory, in
// fixed-size chunks suitable for a single Rread reply. A single
// directory entry is never split across two ReadDir calls.
type DirIter interface {
	// ReadDir encodes as many whole directory entries as fit in at
	// most max bytes, starting at the given byte offset into the
	// encoded listing. Offset zero rewinds to the first entry, and a
	// retried read at an unchanged offset returns the same bytes. An
	// empty result means the listing is exhausted.
	ReadDir(offset uint64, max int) ([]byte, error)
	Close() error
}

// FileHandle is the open-file handle a Backend hands back from Open
// or Create; Session uses it to service Tread/Twrite/Tclunk.
type FileHandle interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// Backend implements the filesystem operations behind a 9P session.
// Every method is passed the path the session has already resolved
// via Walk; a Backend does not see fids, only paths.
type Backend interface {
	// Attach returns the qid of the root of the tree named by aname,
	// for the named user. The returned path is opaque to Session and
	// is threaded back through subsequent Walk/Open/etc calls.
	Attach(uname, aname string) (path string, qid ninep.Qid, err error)

	// Walk resolves a single path element from path, returning the
	// new path and its qid.
	Walk(path, name string) (newpath string, qid ninep.Qid, err error)

	// Stat returns the metadata of the file named by path.
	Stat(path string) (proto.Stat, error)

	// Wstat applies the changes described by st to path. Fields set
	// to their "don't touch" sentinel values are left unchanged.
	Wstat(path string, st proto.Stat) error

	// Open opens path for I/O under the given 9P open mode, returning
	// a handle for Tread/Twrite/Tclunk and, for directories, a
	// DirIter instead of (or in addition to) a FileHandle.
	Open(path string, mode uint8) (FileHandle, DirIter, ninep.Qid, uint32, error)

	// Create creates a new file named name inside the directory named
	// by path, then opens it as Open would.
	Create(path, name string, perm uint32, mode uint8) (newpath string, h FileHandle, d DirIter, qid ninep.Qid, iounit uint32, err error)

	// Remove deletes the file named by path.
	Remove(path string) error
}
