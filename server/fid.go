package server

import (
	"sync"

	"ninep.dev/ninep"
)

// fidAux is everything a Session remembers about one client-chosen
// Fid: the path it names inside the backend, its Qid, and whatever
// handle Topen/Tcreate attached to it.
type fidAux struct {
	path     string
	qid      ninep.Qid
	handle   FileHandle
	dir      DirIter
	openMode uint8
	opened   bool
}

// fidTable owns the fid -> fidAux bindings for one connection. Every
// access in this package, request dispatch and the deferred closeAll
// on connection close alike, happens on the goroutine running Serve;
// access is guarded by a mutex all the same.
type fidTable struct {
	mu   sync.Mutex
	fids map[ninep.Fid]*fidAux
}

func newFidTable() *fidTable {
	return &fidTable{fids: make(map[ninep.Fid]*fidAux)}
}

func (t *fidTable) get(fid ninep.Fid) (*fidAux, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.fids[fid]
	return a, ok
}

// add binds fid to aux, failing if fid is already in use.
func (t *fidTable) add(fid ninep.Fid, aux *fidAux) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.fids[fid]; ok {
		return false
	}
	t.fids[fid] = aux
	return true
}

func (t *fidTable) clunk(fid ninep.Fid) (*fidAux, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.fids[fid]
	delete(t.fids, fid)
	return a, ok
}

// closeAll clunks every fid still open on the connection, closing
// handles and directory iterators as it goes. Called when a
// connection is torn down.
func (t *fidTable) closeAll() {
	t.mu.Lock()
	fids := t.fids
	t.fids = make(map[ninep.Fid]*fidAux)
	t.mu.Unlock()

	for _, a := range fids {
		if a.handle != nil {
			a.handle.Close()
		}
		if a.dir != nil {
			a.dir.Close()
		}
	}
}
