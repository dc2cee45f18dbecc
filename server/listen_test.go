package server

import (
	"context"
	"testing"
	"time"

	"ninep.dev/ninep"
	"ninep.dev/ninep/internal/netutil"
	"ninep.dev/ninep/proto"
)

// TestListenServesEachConnection exercises Listen's accept loop: every
// dialed connection gets its own Session, negotiated independently.
func TestListenServesEachConnection(t *testing.T) {
	l := &netutil.PipeListener{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- Listen(ctx, l, func() Backend { return &memBackend{data: []byte("hi")} })
	}()

	for i := 0; i < 2; i++ {
		conn, err := l.Dial()
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		if err := proto.WriteMsg(conn, proto.Tversion{MsgTag: ninep.NoTag, Msize: 8192, Version: "9P2000"}); err != nil {
			t.Fatalf("write tversion: %v", err)
		}
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		m, err := proto.ReadMsg(conn)
		if err != nil {
			t.Fatalf("read rversion: %v", err)
		}
		if _, ok := m.(proto.Rversion); !ok {
			t.Fatalf("got %T, want Rversion", m)
		}
		conn.Close()
	}

	cancel()
	select {
	case <-errc:
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancellation")
	}
}
