package server

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"ninep.dev/ninep"
	"ninep.dev/ninep/proto"
)

// memBackend is a minimal single-file Backend used to exercise the
// Session dispatch loop end to end.
type memBackend struct {
	data []byte
}

func (b *memBackend) Attach(uname, aname string) (string, ninep.Qid, error) {
	return "/", ninep.Qid{Type: ninep.QTDIR, Path: 1}, nil
}

func (b *memBackend) Walk(path, name string) (string, ninep.Qid, error) {
	if path == "/" && name == "greeting" {
		return "/greeting", ninep.Qid{Type: ninep.QTFILE, Path: 2}, nil
	}
	return "", ninep.Qid{}, errNotFound
}

func (b *memBackend) Stat(path string) (proto.Stat, error) {
	if path == "/" {
		return proto.Stat{Qid: ninep.Qid{Type: ninep.QTDIR, Path: 1}, Mode: ninep.DMDIR | 0755, Name: "/"}, nil
	}
	return proto.Stat{Qid: ninep.Qid{Type: ninep.QTFILE, Path: 2}, Mode: 0644, Length: uint64(len(b.data)), Name: "greeting"}, nil
}

func (b *memBackend) Wstat(path string, st proto.Stat) error { return nil }

func (b *memBackend) Open(path string, mode uint8) (FileHandle, DirIter, ninep.Qid, uint32, error) {
	if path == "/greeting" {
		return &memHandle{b}, nil, ninep.Qid{Type: ninep.QTFILE, Path: 2}, 8192, nil
	}
	return nil, nil, ninep.Qid{}, 0, errNotFound
}

func (b *memBackend) Create(path, name string, perm uint32, mode uint8) (string, FileHandle, DirIter, ninep.Qid, uint32, error) {
	return "", nil, nil, ninep.Qid{}, 0, errNotFound
}

func (b *memBackend) Remove(path string) error { return nil }

var errNotFound = errors.New("file does not exist")

type memHandle struct{ b *memBackend }

func (h *memHandle) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(h.b.data)) {
		return 0, io.EOF
	}
	n := copy(p, h.b.data[off:])
	return n, nil
}

func (h *memHandle) WriteAt(p []byte, off int64) (int, error) {
	need := int(off) + len(p)
	if need > len(h.b.data) {
		grown := make([]byte, need)
		copy(grown, h.b.data)
		h.b.data = grown
	}
	copy(h.b.data[off:], p)
	return len(p), nil
}

func (h *memHandle) Close() error { return nil }

func TestSessionRoundTrip(t *testing.T) {
	client, srv := net.Pipe()
	backend := &memBackend{data: []byte("hello")}
	sess := NewSession(srv, backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Serve(ctx)

	send := func(m proto.Msg) {
		if err := proto.WriteMsg(client, m); err != nil {
			t.Fatalf("write %v: %v", m, err)
		}
	}
	recv := func() proto.Msg {
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		m, err := proto.ReadMsg(client)
		if err != nil {
			t.Fatalf("read reply: %v", err)
		}
		return m
	}

	send(proto.Tversion{MsgTag: ninep.NoTag, Msize: 8192, Version: "9P2000"})
	rv := recv().(proto.Rversion)
	if rv.Version != "9P2000" {
		t.Fatalf("Rversion.Version = %q", rv.Version)
	}

	send(proto.Tattach{MsgTag: 1, Fid: 0, Afid: ninep.NoFid, Uname: "glenda", Aname: ""})
	ra := recv().(proto.Rattach)
	if !ra.Qid.IsDir() {
		t.Fatalf("attach qid is not a directory: %v", ra.Qid)
	}

	send(proto.Twalk{MsgTag: 2, Fid: 0, Newfid: 1, Wname: []string{"greeting"}})
	rw := recv().(proto.Rwalk)
	if len(rw.Wqid) != 1 {
		t.Fatalf("Rwalk.Wqid = %v, want 1 element", rw.Wqid)
	}

	send(proto.Topen{MsgTag: 3, Fid: 1, Mode: ninep.OREAD})
	ro := recv().(proto.Ropen)
	if ro.Qid.IsDir() {
		t.Fatal("opened file reported as directory")
	}

	send(proto.Tread{MsgTag: 4, Fid: 1, Offset: 0, Count: 100})
	rr := recv().(proto.Rread)
	if string(rr.Data) != "hello" {
		t.Fatalf("Rread.Data = %q, want %q", rr.Data, "hello")
	}

	send(proto.Tclunk{MsgTag: 5, Fid: 1})
	if _, ok := recv().(proto.Rclunk); !ok {
		t.Fatal("expected Rclunk")
	}

	client.Close()
}
