package fsfile

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"ninep.dev/ninep"
	"ninep.dev/ninep/proto"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "greeting"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	b, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBackendHostRoundTrip(t *testing.T) {
	b := newTestBackend(t)

	rootPath, _, err := b.Attach("glenda", "")
	if err != nil {
		t.Fatal(err)
	}

	path, qid, err := b.Walk(rootPath, "greeting")
	if err != nil {
		t.Fatal(err)
	}
	if qid.IsDir() {
		t.Fatal("greeting should not be a directory")
	}

	h, _, _, _, err := b.Open(path, ninep.OREAD)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	buf := make([]byte, 32)
	n, err := h.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		t.Fatal(err)
	}
	if got := string(buf[:n]); got != "hello" {
		t.Errorf("ReadAt = %q, want %q", got, "hello")
	}
}

func TestBackendWalkRejectsDotDot(t *testing.T) {
	b := newTestBackend(t)
	rootPath, _, _ := b.Attach("glenda", "")
	if _, _, err := b.Walk(rootPath, ".."); err == nil {
		t.Fatal("expected walking .. to fail")
	}
}

func TestBackendTmpSubtreeIsInMemory(t *testing.T) {
	b := newTestBackend(t)
	rootPath, _, _ := b.Attach("glenda", "")

	tmpPath, qid, err := b.Walk(rootPath, "tmp")
	if err != nil {
		t.Fatal(err)
	}
	if !qid.IsDir() {
		t.Fatal("tmp should be a directory")
	}

	newpath, h, _, _, _, err := b.Create(tmpPath, "scratch", 0644, ninep.ORDWR)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.WriteAt([]byte("scratch data"), 0); err != nil {
		t.Fatal(err)
	}
	h.Close()

	// A fresh walk from tmp down to scratch must see the write,
	// proving tmp is backed by the same tree across calls.
	path, _, err := b.Walk(tmpPath, "scratch")
	if err != nil {
		t.Fatal(err)
	}
	if path != newpath {
		t.Errorf("path = %q, want %q", path, newpath)
	}
	h2, _, _, _, err := b.Open(path, ninep.OREAD)
	if err != nil {
		t.Fatal(err)
	}
	defer h2.Close()
	buf := make([]byte, 32)
	n, _ := h2.ReadAt(buf, 0)
	if string(buf[:n]) != "scratch data" {
		t.Errorf("read back %q, want %q", buf[:n], "scratch data")
	}

	// The real host filesystem must be untouched by the tmp write.
	if _, err := b.Stat(rootPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(b.host.rootPath, "tmp")); !os.IsNotExist(err) {
		t.Errorf("host root has a tmp entry after the in-memory write (err = %v)", err)
	}
}

func TestBackendRemoveHostFile(t *testing.T) {
	b := newTestBackend(t)
	rootPath, _, _ := b.Attach("glenda", "")
	path, _, err := b.Walk(rootPath, "greeting")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, _, err := b.Walk(rootPath, "greeting"); err == nil {
		t.Fatal("expected greeting to be gone")
	}
}

func TestBackendWstatRenameHostFile(t *testing.T) {
	b := newTestBackend(t)
	rootPath, _, _ := b.Attach("glenda", "")
	path, _, err := b.Walk(rootPath, "greeting")
	if err != nil {
		t.Fatal(err)
	}
	st := proto.Stat{
		Mode: proto.DontTouch32, Atime: proto.DontTouch32, Mtime: proto.DontTouch32,
		Length: proto.DontTouch64, Uid: proto.DontTouchString, Gid: proto.DontTouchString,
		Name: "renamed",
	}
	if err := b.Wstat(path, st); err != nil {
		t.Fatal(err)
	}
	if _, _, err := b.Walk(rootPath, "renamed"); err != nil {
		t.Fatalf("renamed file not found: %v", err)
	}
}
