// Package fsfile implements the two storage backends a server.Session
// can be handed: a host-filesystem tree rooted at an arbitrary
// directory, and an in-memory scratch tree mounted at tmp within it.
package fsfile

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	"ninep.dev/ninep"
	"ninep.dev/ninep/proto"
	"ninep.dev/ninep/server"
)

// tmpName is the path element, seen only directly under the export
// root, that switches a path over to the in-memory tree instead of
// resolving against the host filesystem.
const tmpName = "tmp"

// Backend routes every call by path prefix to one of two storage
// backends: paths equal to tmp or rooted under tmp/ are served out of
// an in-memory tree; everything else is served from the host
// filesystem under rootPath.
type Backend struct {
	host *hostFS
	mem  *memTree
}

// New creates a Backend serving rootPath from the host filesystem,
// with an empty in-memory tmp subtree layered on top of it.
func New(rootPath string) (*Backend, error) {
	h, err := newHostFS(rootPath)
	if err != nil {
		return nil, err
	}
	return &Backend{host: h, mem: newMemTree()}, nil
}

func isTmpPath(path string) bool {
	return path == tmpName || strings.HasPrefix(path, tmpName+"/")
}

// memRel strips the leading tmp element (and separator) from a
// backend path so it can be resolved against the in-memory tree,
// whose own root is never named explicitly.
func memRel(path string) string {
	if path == tmpName {
		return ""
	}
	return strings.TrimPrefix(path, tmpName+"/")
}

func (b *Backend) memResolve(path string) (int, error) {
	idx := rootIndex
	rel := memRel(path)
	if rel == "" {
		return idx, nil
	}
	for _, name := range strings.Split(rel, "/") {
		next, err := b.mem.lookup(idx, name)
		if err != nil {
			return 0, err
		}
		idx = next
	}
	return idx, nil
}

func (b *Backend) Attach(uname, aname string) (string, ninep.Qid, error) {
	st, err := b.host.stat("")
	if err != nil {
		return "", ninep.Qid{}, errors.Wrap(err, "fsfile: attach")
	}
	return "", st.Qid, nil
}

func (b *Backend) Walk(path, name string) (string, ninep.Qid, error) {
	if name != "." {
		if err := checkComponent(name); err != nil {
			return "", ninep.Qid{}, err
		}
	}

	if isTmpPath(path) {
		idx, err := b.memResolve(path)
		if err != nil {
			return "", ninep.Qid{}, err
		}
		if name == "." {
			return path, b.mem.stat(idx).Qid, nil
		}
		child, err := b.mem.lookup(idx, name)
		if err != nil {
			return "", ninep.Qid{}, err
		}
		newpath := name
		if path != "" {
			newpath = path + "/" + name
		}
		return newpath, b.mem.stat(child).Qid, nil
	}

	if path == "" && name == tmpName {
		return tmpName, b.mem.stat(rootIndex).Qid, nil
	}

	return b.host.walk(path, name)
}

func (b *Backend) Stat(path string) (proto.Stat, error) {
	if isTmpPath(path) {
		idx, err := b.memResolve(path)
		if err != nil {
			return proto.Stat{}, err
		}
		return b.mem.stat(idx), nil
	}
	return b.host.stat(path)
}

func (b *Backend) Wstat(path string, st proto.Stat) error {
	if isTmpPath(path) {
		idx, err := b.memResolve(path)
		if err != nil {
			return err
		}
		return b.mem.wstat(idx, st)
	}
	return b.host.wstat(path, st)
}

func (b *Backend) Open(path string, mode uint8) (server.FileHandle, server.DirIter, ninep.Qid, uint32, error) {
	if isTmpPath(path) {
		idx, err := b.memResolve(path)
		if err != nil {
			return nil, nil, ninep.Qid{}, 0, err
		}
		qid := b.mem.stat(idx).Qid
		if qid.IsDir() {
			return nil, newDirIter(newMemDirSource(b.mem, idx), nil), qid, DefaultIounit, nil
		}
		if mode&ninep.OTRUNC != 0 {
			b.mem.truncate(idx)
			qid = b.mem.stat(idx).Qid
		}
		return &memHandle{tree: b.mem, idx: idx}, nil, qid, DefaultIounit, nil
	}

	f, err := b.host.open(path, mode)
	if err != nil {
		return nil, nil, ninep.Qid{}, 0, err
	}
	st, err := b.host.stat(path)
	if err != nil {
		f.Close()
		return nil, nil, ninep.Qid{}, 0, err
	}
	if st.Qid.IsDir() {
		return nil, newDirIter(newHostDirSource(path, f), f), st.Qid, DefaultIounit, nil
	}
	return f, nil, st.Qid, DefaultIounit, nil
}

// DefaultIounit is the per-message I/O chunk size Backend advertises
// to clients; msize negotiation still bounds the actual wire frame.
const DefaultIounit = 8192

func (b *Backend) Create(path, name string, perm uint32, mode uint8) (string, server.FileHandle, server.DirIter, ninep.Qid, uint32, error) {
	if err := checkComponent(name); err != nil {
		return "", nil, nil, ninep.Qid{}, 0, err
	}

	if isTmpPath(path) {
		idx, err := b.memResolve(path)
		if err != nil {
			return "", nil, nil, ninep.Qid{}, 0, err
		}
		child, err := b.mem.create(idx, name, perm&ninep.DMDIR != 0, perm&ninep.DMPERM, "")
		if err != nil {
			return "", nil, nil, ninep.Qid{}, 0, err
		}
		newpath := name
		if path != "" {
			newpath = path + "/" + name
		}
		qid := b.mem.stat(child).Qid
		if qid.IsDir() {
			return newpath, nil, newDirIter(newMemDirSource(b.mem, child), nil), qid, DefaultIounit, nil
		}
		return newpath, &memHandle{tree: b.mem, idx: child}, nil, qid, DefaultIounit, nil
	}

	if path == "" && name == tmpName {
		return "", nil, nil, ninep.Qid{}, 0, errors.New("fsfile: tmp is reserved")
	}

	newpath, f, err := b.host.create(path, name, perm, mode)
	if err != nil {
		return "", nil, nil, ninep.Qid{}, 0, err
	}
	st, err := b.host.stat(newpath)
	if err != nil {
		f.Close()
		return "", nil, nil, ninep.Qid{}, 0, err
	}
	if st.Qid.IsDir() {
		return newpath, nil, newDirIter(newHostDirSource(newpath, f), f), st.Qid, DefaultIounit, nil
	}
	return newpath, f, nil, st.Qid, DefaultIounit, nil
}

func (b *Backend) Remove(path string) error {
	if isTmpPath(path) {
		idx, err := b.memResolve(path)
		if err != nil {
			return err
		}
		return b.mem.remove(idx)
	}
	return b.host.remove(path)
}

// memHandle adapts a memTree node to the FileHandle contract.
type memHandle struct {
	tree *memTree
	idx  int
}

func (h *memHandle) ReadAt(p []byte, off int64) (int, error) {
	n, err := h.tree.readAt(h.idx, p, off)
	if err == nil && n < len(p) {
		// Short of a full buffer only happens at end of content;
		// Session.handleRead treats io.EOF as a normal short read.
		return n, io.EOF
	}
	return n, err
}

func (h *memHandle) WriteAt(p []byte, off int64) (int, error) {
	return h.tree.writeAt(h.idx, p, off)
}

func (h *memHandle) Close() error { return nil }
