// Package qidpool assigns unique Qids to paths on a file-server backend.
package qidpool

import (
	"sync"
	"sync/atomic"

	"ninep.dev/ninep"
)

// A Pool hands out unique Qid.Path values for a single file-server
// backend, keyed by whatever path string the backend uses to name its
// files. A Pool must be created with New.
type Pool struct {
	m    sync.Map
	path uint64
}

// New returns a new, empty Pool.
func New() *Pool {
	return &Pool{}
}

// LoadOrStore returns the Qid already associated with name, if any,
// otherwise it allocates a fresh Qid of the given type and associates
// it with name.
func (p *Pool) LoadOrStore(name string, qtype uint8) ninep.Qid {
	if v, ok := p.m.Load(name); ok {
		return v.(ninep.Qid)
	}
	path := atomic.AddUint64(&p.path, 1)
	return p.LoadOrStoreQid(name, ninep.Qid{Type: qtype, Version: 0, Path: path})
}

// LoadOrStoreQid associates an already-built Qid with name, unless one
// is already present, in which case the existing Qid is returned.
func (p *Pool) LoadOrStoreQid(name string, qid ninep.Qid) ninep.Qid {
	actual, _ := p.m.LoadOrStore(name, qid)
	return actual.(ninep.Qid)
}

// Bump increments the version of the Qid associated with name, as
// happens whenever a file's contents change, and returns the updated
// Qid. If name has no Qid yet, ok is false.
func (p *Pool) Bump(name string) (ninep.Qid, bool) {
	v, ok := p.m.Load(name)
	if !ok {
		return ninep.Qid{}, false
	}
	q := v.(ninep.Qid)
	q.Version++
	p.m.Store(name, q)
	return q, true
}

// Del removes a Qid from a Pool. Once a Qid is removed from a pool, it
// will never be used again.
func (p *Pool) Del(name string) {
	p.m.Delete(name)
}

// Rename moves the Qid stored under oldname to newname, preserving its
// path and version so walks through the renamed file keep identifying
// the same object.
func (p *Pool) Rename(oldname, newname string) {
	if v, ok := p.m.Load(oldname); ok {
		p.m.Store(newname, v)
		p.m.Delete(oldname)
	}
}

// Load fetches the Qid currently associated with name from the pool.
// The Qid is only valid if the second return value is true.
func (p *Pool) Load(name string) (ninep.Qid, bool) {
	if v, ok := p.m.Load(name); ok {
		return v.(ninep.Qid), true
	}
	return ninep.Qid{}, false
}
