package fsfile

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"ninep.dev/ninep"
	"ninep.dev/ninep/proto"
)

// memTree is an in-memory file hierarchy, rooted at index 0, used to
// back the server's scratch /tmp subtree. Nodes are stored in a flat
// arena slice; parent/child/sibling relationships are expressed as
// indices into that slice rather than pointers, so the whole tree can
// be walked, grown, and garbage-collected (by simply never reusing a
// freed index) without any node needing to know its own address.
type memTree struct {
	mu      sync.RWMutex
	nodes   []*memNode
	nextQid uint64
}

type memNode struct {
	name       string
	isDir      bool
	removed    bool
	parent     int
	firstChild int
	nextSib    int
	data       []byte
	perm       uint32
	mtime      int64
	qid        ninep.Qid
	uid, gid   string
}

const noIndex = -1

func newMemTree() *memTree {
	t := &memTree{nodes: make([]*memNode, 0, 16)}
	t.nodes = append(t.nodes, &memNode{
		name:       "",
		isDir:      true,
		parent:     noIndex,
		firstChild: noIndex,
		nextSib:    noIndex,
		perm:       0555,
		mtime:      0,
		qid:        t.allocQid(ninep.QTDIR),
	})
	return t
}

func (t *memTree) allocQid(qtype uint8) ninep.Qid {
	t.nextQid++
	return ninep.Qid{Type: qtype, Version: 0, Path: t.nextQid}
}

const rootIndex = 0

var errExist = errors.New("file already exists")
var errNoEnt = errors.New("file does not exist")
var errNotDir = errors.New("not a directory")
var errIsDir = errors.New("is a directory")
var errNotEmpty = errors.New("directory not empty")

// lookup resolves a single path element under the directory at dir,
// returning the child's node index.
func (t *memTree) lookup(dir int, name string) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookupLocked(dir, name)
}

func (t *memTree) lookupLocked(dir int, name string) (int, error) {
	n := t.nodes[dir]
	if !n.isDir {
		return noIndex, errNotDir
	}
	for i := n.firstChild; i != noIndex; i = t.nodes[i].nextSib {
		if !t.nodes[i].removed && t.nodes[i].name == name {
			return i, nil
		}
	}
	return noIndex, errNoEnt
}

// create adds a new child named name under dir.
func (t *memTree) create(dir int, name string, isDir bool, perm uint32, uid string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.lookupLocked(dir, name); err == nil {
		return noIndex, errExist
	}
	parent := t.nodes[dir]
	if !parent.isDir {
		return noIndex, errNotDir
	}

	qtype := uint8(ninep.QTFILE)
	if isDir {
		qtype = ninep.QTDIR
	}
	node := &memNode{
		name:       name,
		isDir:      isDir,
		parent:     dir,
		firstChild: noIndex,
		nextSib:    parent.firstChild,
		perm:       perm,
		mtime:      time.Now().Unix(),
		qid:        t.allocQid(qtype),
		uid:        uid,
		gid:        uid,
	}
	idx := len(t.nodes)
	t.nodes = append(t.nodes, node)
	parent.firstChild = idx
	return idx, nil
}

// remove unlinks the node at idx from its parent. Directories must be
// empty.
func (t *memTree) remove(idx int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if idx == rootIndex {
		return errors.New("cannot remove root")
	}
	n := t.nodes[idx]
	if n.isDir {
		for i := n.firstChild; i != noIndex; i = t.nodes[i].nextSib {
			if !t.nodes[i].removed {
				return errNotEmpty
			}
		}
	}
	parent := t.nodes[n.parent]
	if parent.firstChild == idx {
		parent.firstChild = n.nextSib
	} else {
		for i := parent.firstChild; i != noIndex; i = t.nodes[i].nextSib {
			if t.nodes[i].nextSib == idx {
				t.nodes[i].nextSib = n.nextSib
				break
			}
		}
	}
	n.removed = true
	return nil
}

// children returns the live (non-removed) children of dir in sibling
// chain order: most-recently-created first, since new nodes are pushed
// to the head of the sibling chain.
func (t *memTree) children(dir int) []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []int
	for i := t.nodes[dir].firstChild; i != noIndex; i = t.nodes[i].nextSib {
		if !t.nodes[i].removed {
			out = append(out, i)
		}
	}
	return out
}

func (t *memTree) stat(idx int) proto.Stat {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := t.nodes[idx]
	mode := n.perm
	if n.isDir {
		mode |= ninep.DMDIR
	}
	return proto.Stat{
		Qid:    n.qid,
		Mode:   mode,
		Mtime:  uint32(n.mtime),
		Atime:  uint32(n.mtime),
		Length: uint64(len(n.data)),
		Name:   n.name,
		Uid:    n.uid,
		Gid:    n.gid,
		Muid:   n.uid,
	}
}

// wstat applies the non-sentinel fields of st to the node at idx:
// mode bits, modify time, uid, gid, and name (rename within the same
// parent). Length changes truncate or zero-extend the content buffer.
// Atime is ignored: a node stores only a modify time, which stat
// reports as both times.
func (t *memTree) wstat(idx int, st proto.Stat) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.nodes[idx]

	if st.Mode != proto.DontTouch32 {
		n.perm = st.Mode &^ ninep.DMDIR
	}
	if st.Mtime != proto.DontTouch32 {
		n.mtime = int64(st.Mtime)
	}
	if st.Length != proto.DontTouch64 {
		need := int(st.Length)
		if need != len(n.data) {
			grown := make([]byte, need)
			copy(grown, n.data)
			n.data = grown
		}
		n.qid.Version++
	}
	if st.Uid != proto.DontTouchString {
		n.uid = st.Uid
	}
	if st.Gid != proto.DontTouchString {
		n.gid = st.Gid
	}
	if st.Name != proto.DontTouchString && st.Name != n.name {
		parent := t.nodes[n.parent]
		for i := parent.firstChild; i != noIndex; i = t.nodes[i].nextSib {
			if i != idx && !t.nodes[i].removed && t.nodes[i].name == st.Name {
				return errExist
			}
		}
		n.name = st.Name
	}
	return nil
}

// rename moves the node at idx so that it is named newName inside the
// directory at newParent. It fails if newParent already has a live
// child with that name.
func (t *memTree) rename(idx, newParent int, newName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	dst := t.nodes[newParent]
	if !dst.isDir {
		return errNotDir
	}
	for i := dst.firstChild; i != noIndex; i = t.nodes[i].nextSib {
		if !t.nodes[i].removed && t.nodes[i].name == newName {
			return errExist
		}
	}

	n := t.nodes[idx]
	oldParent := t.nodes[n.parent]
	if oldParent.firstChild == idx {
		oldParent.firstChild = n.nextSib
	} else {
		for i := oldParent.firstChild; i != noIndex; i = t.nodes[i].nextSib {
			if t.nodes[i].nextSib == idx {
				t.nodes[i].nextSib = n.nextSib
				break
			}
		}
	}

	n.name = newName
	n.parent = newParent
	n.nextSib = dst.firstChild
	dst.firstChild = idx
	return nil
}

func (t *memTree) readAt(idx int, p []byte, off int64) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := t.nodes[idx]
	if n.isDir {
		return 0, errIsDir
	}
	if off >= int64(len(n.data)) {
		return 0, nil
	}
	return copy(p, n.data[off:]), nil
}

func (t *memTree) writeAt(idx int, p []byte, off int64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.nodes[idx]
	if n.isDir {
		return 0, errIsDir
	}
	need := int(off) + len(p)
	if need > len(n.data) {
		grown := make([]byte, need)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[off:], p)
	n.mtime = time.Now().Unix()
	n.qid.Version++
	return len(p), nil
}

func (t *memTree) truncate(idx int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.nodes[idx]
	n.data = nil
	n.qid.Version++
}
