package fsfile

import (
	"testing"

	"ninep.dev/ninep/proto"
)

func TestMemTreeCreateLookupRemove(t *testing.T) {
	tree := newMemTree()

	dir, err := tree.create(rootIndex, "work", true, 0755, "glenda")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tree.create(dir, "notes", false, 0644, "glenda"); err != nil {
		t.Fatal(err)
	}

	if _, err := tree.lookup(rootIndex, "work"); err != nil {
		t.Fatalf("lookup work: %v", err)
	}
	notes, err := tree.lookup(dir, "notes")
	if err != nil {
		t.Fatalf("lookup notes: %v", err)
	}

	if _, err := tree.create(dir, "notes", false, 0644, "glenda"); err != errExist {
		t.Fatalf("duplicate create: got %v, want errExist", err)
	}

	if err := tree.remove(dir); err != errNotEmpty {
		t.Fatalf("remove non-empty dir: got %v, want errNotEmpty", err)
	}
	if err := tree.remove(notes); err != nil {
		t.Fatalf("remove notes: %v", err)
	}
	if err := tree.remove(dir); err != nil {
		t.Fatalf("remove now-empty dir: %v", err)
	}
	if _, err := tree.lookup(rootIndex, "work"); err != errNoEnt {
		t.Fatalf("lookup removed dir: got %v, want errNoEnt", err)
	}
}

func TestMemTreeReadWrite(t *testing.T) {
	tree := newMemTree()
	idx, err := tree.create(rootIndex, "f", false, 0644, "glenda")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tree.writeAt(idx, []byte("hello"), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.writeAt(idx, []byte("!"), 5); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 10)
	n, err := tree.readAt(idx, buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(buf[:n]), "hello!"; got != want {
		t.Errorf("readAt = %q, want %q", got, want)
	}

	tree.truncate(idx)
	n, err = tree.readAt(idx, buf, 0)
	if n != 0 || err != nil {
		t.Errorf("readAt after truncate = (%d, %v), want (0, nil)", n, err)
	}
}

func TestMemTreeWstatRename(t *testing.T) {
	tree := newMemTree()
	idx, err := tree.create(rootIndex, "f", false, 0644, "glenda")
	if err != nil {
		t.Fatal(err)
	}

	before := tree.stat(idx).Qid.Version
	st := proto.Stat{
		Mode:   0600,
		Length: proto.DontTouch64,
		Mtime:  proto.DontTouch32,
		Atime:  proto.DontTouch32,
		Name:   proto.DontTouchString,
		Uid:    proto.DontTouchString,
		Gid:    proto.DontTouchString,
	}
	if err := tree.wstat(idx, st); err != nil {
		t.Fatal(err)
	}
	if got := tree.stat(idx).Mode; got != 0600 {
		t.Errorf("mode after wstat = %o, want 0600", got)
	}
	if tree.stat(idx).Qid.Version != before {
		t.Errorf("qid version should not bump on a mode-only wstat")
	}

	st2 := proto.Stat{
		Mode: proto.DontTouch32, Mtime: proto.DontTouch32, Atime: proto.DontTouch32,
		Length: 3, Name: proto.DontTouchString, Uid: proto.DontTouchString, Gid: proto.DontTouchString,
	}
	if err := tree.wstat(idx, st2); err != nil {
		t.Fatal(err)
	}
	if tree.stat(idx).Qid.Version == before {
		t.Errorf("qid version should bump on a length change")
	}
	if tree.stat(idx).Length != 3 {
		t.Errorf("length = %d, want 3", tree.stat(idx).Length)
	}

	st3 := proto.Stat{
		Mode: proto.DontTouch32, Mtime: proto.DontTouch32, Atime: proto.DontTouch32,
		Length: proto.DontTouch64, Name: "g", Uid: proto.DontTouchString, Gid: proto.DontTouchString,
	}
	if err := tree.wstat(idx, st3); err != nil {
		t.Fatal(err)
	}
	if got, err := tree.lookup(rootIndex, "g"); err != nil || got != idx {
		t.Errorf("lookup g after rename = (%d, %v), want (%d, nil)", got, err, idx)
	}
	if _, err := tree.lookup(rootIndex, "f"); err != errNoEnt {
		t.Errorf("lookup f after rename: got %v, want errNoEnt", err)
	}
}

func TestMemTreeChildrenOrder(t *testing.T) {
	tree := newMemTree()
	names := []string{"a", "b", "c"}
	for _, n := range names {
		if _, err := tree.create(rootIndex, n, false, 0644, "glenda"); err != nil {
			t.Fatal(err)
		}
	}
	children := tree.children(rootIndex)
	if len(children) != len(names) {
		t.Fatalf("got %d children, want %d", len(children), len(names))
	}
	// New nodes go to the head of the sibling chain, so the most
	// recently created child comes first.
	for i, idx := range children {
		if got, want := tree.stat(idx).Name, names[len(names)-1-i]; got != want {
			t.Errorf("children[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestMemDirSourcePaginatesWithoutSplitting(t *testing.T) {
	tree := newMemTree()
	for _, n := range []string{"a", "b", "c", "d"} {
		if _, err := tree.create(rootIndex, n, false, 0644, "glenda"); err != nil {
			t.Fatal(err)
		}
	}
	iter := newDirIter(newMemDirSource(tree, rootIndex), nil)

	seen := map[string]bool{}
	var offset uint64
	for {
		data, err := iter.ReadDir(offset, 128)
		if err != nil {
			t.Fatalf("ReadDir: %v", err)
		}
		if len(data) == 0 {
			break
		}
		offset += uint64(len(data))
		for len(data) > 0 {
			size := int(data[0]) | int(data[1])<<8
			entry := data[:2+size]
			st, derr := proto.DecodeStat(entry)
			if derr != nil {
				t.Fatalf("DecodeStat: %v", derr)
			}
			seen[st.Name] = true
			data = data[2+size:]
		}
	}
	for _, n := range []string{"a", "b", "c", "d"} {
		if !seen[n] {
			t.Errorf("missing directory entry %q", n)
		}
	}
}

func TestMemDirReadRewindsAtOffsetZero(t *testing.T) {
	tree := newMemTree()
	for _, n := range []string{"a", "b"} {
		if _, err := tree.create(rootIndex, n, false, 0644, "glenda"); err != nil {
			t.Fatal(err)
		}
	}
	iter := newDirIter(newMemDirSource(tree, rootIndex), nil)

	first, err := iter.ReadDir(0, 128)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("first read returned no entries")
	}

	// A second read at offset zero starts the listing over instead of
	// continuing from wherever the first read stopped, and a retried
	// read at an unchanged offset returns the same bytes.
	again, err := iter.ReadDir(0, 128)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if string(again) != string(first) {
		t.Error("re-read at offset 0 did not rewind to the first entry")
	}
}
