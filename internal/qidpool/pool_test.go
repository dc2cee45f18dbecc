package qidpool

import (
	"testing"

	"ninep.dev/ninep"
)

func TestQidpool(t *testing.T) {
	pool := New()
	pool.LoadOrStore("/foo/bar", ninep.QTDIR)

	var oldpath uint64
	var oldver uint32

	if q, ok := pool.Load("/foo/bar"); !ok {
		t.Error("could not find qid")
	} else if q.Type != ninep.QTDIR {
		t.Error("qid was not set to given type")
	} else {
		oldpath = q.Path
		oldver = q.Version
	}

	pool.Del("/foo/bar")
	if _, ok := pool.Load("/foo/bar"); ok {
		t.Error("Del did not delete qid")
	}

	pool.LoadOrStore("/foo/bar", ninep.QTDIR)
	if q, ok := pool.Load("/foo/bar"); !ok {
		t.Error("second LoadOrStore did not put qid")
	} else if q.Version == oldver && q.Path == oldpath {
		t.Error("LoadOrStore on same file did not use new qid")
	}

	pool.LoadOrStoreQid("/foo/bar", ninep.Qid{Type: ninep.QTAUTH})
	if q, ok := pool.Load("/foo/bar"); !ok {
		t.Error("repeated Load of qid failed")
	} else if q.Type != ninep.QTDIR {
		t.Error("subsequent LoadOrStore replaced old qid")
	}
}

func TestQidpoolBumpAndRename(t *testing.T) {
	pool := New()
	q := pool.LoadOrStore("/a", ninep.QTFILE)

	bumped, ok := pool.Bump("/a")
	if !ok {
		t.Fatal("Bump reported no qid for a known name")
	}
	if bumped.Version != q.Version+1 {
		t.Errorf("Bump: Version = %d, want %d", bumped.Version, q.Version+1)
	}
	if bumped.Path != q.Path {
		t.Error("Bump changed Path, want it stable across content revisions")
	}

	pool.Rename("/a", "/b")
	if _, ok := pool.Load("/a"); ok {
		t.Error("Rename left the old name behind")
	}
	if got, ok := pool.Load("/b"); !ok {
		t.Error("Rename did not register the new name")
	} else if got.Path != bumped.Path {
		t.Error("Rename changed the qid identity")
	}
}
