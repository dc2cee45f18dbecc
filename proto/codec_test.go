package proto

import (
	"bytes"
	"reflect"
	"testing"

	"ninep.dev/ninep"
)

func roundtrip(t *testing.T, m Msg) Msg {
	t.Helper()
	b, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode(%v): %v", m, err)
	}
	if int64(len(b)) != m.Len() {
		t.Fatalf("Encode(%v): got %d bytes, Len() reports %d", m, len(b), m.Len())
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode(Encode(%v)): %v", m, err)
	}
	if !reflect.DeepEqual(m, got) {
		t.Fatalf("round trip mismatch:\n got  %#v\n want %#v", got, m)
	}
	return got
}

func TestRoundTrip(t *testing.T) {
	qid := ninep.Qid{Type: ninep.QTFILE, Version: 1, Path: 42}
	dirqid := ninep.Qid{Type: ninep.QTDIR, Version: 0, Path: 1}

	cases := []Msg{
		Tversion{MsgTag: ninep.NoTag, Msize: 8192, Version: "9P2000"},
		Rversion{MsgTag: ninep.NoTag, Msize: 8192, Version: "9P2000"},
		Tauth{MsgTag: 1, Afid: 5, Uname: "glenda", Aname: ""},
		Rauth{MsgTag: 1, Aqid: qid},
		Tattach{MsgTag: 2, Fid: 0, Afid: ninep.NoFid, Uname: "glenda", Aname: "/"},
		Rattach{MsgTag: 2, Qid: dirqid},
		Rerror{MsgTag: 3, Ename: "no such file"},
		Tflush{MsgTag: 4, Oldtag: 3},
		Rflush{MsgTag: 4},
		Twalk{MsgTag: 5, Fid: 0, Newfid: 1, Wname: nil},
		Twalk{MsgTag: 5, Fid: 0, Newfid: 1, Wname: []string{"usr", "glenda", "bin"}},
		Rwalk{MsgTag: 5, Wqid: nil},
		Rwalk{MsgTag: 5, Wqid: []ninep.Qid{dirqid, dirqid, qid}},
		Topen{MsgTag: 6, Fid: 1, Mode: ninep.OREAD},
		Ropen{MsgTag: 6, Qid: qid, Iounit: 0},
		Tcreate{MsgTag: 7, Fid: 1, Name: "newfile", Perm: 0644, Mode: ninep.OWRITE},
		Rcreate{MsgTag: 7, Qid: qid, Iounit: 8168},
		Tread{MsgTag: 8, Fid: 1, Offset: 0, Count: 4096},
		Rread{MsgTag: 8, Data: []byte("hello world")},
		Rread{MsgTag: 8, Data: nil},
		Twrite{MsgTag: 9, Fid: 1, Offset: 16, Data: []byte("payload")},
		Rwrite{MsgTag: 9, Count: 7},
		Tclunk{MsgTag: 10, Fid: 1},
		Rclunk{MsgTag: 10},
		Tremove{MsgTag: 11, Fid: 1},
		Rremove{MsgTag: 11},
		Tstat{MsgTag: 12, Fid: 1},
		Rstat{MsgTag: 12, Stat: Stat{
			Qid: qid, Mode: 0644, Length: 11,
			Name: "newfile", Uid: "glenda", Gid: "glenda", Muid: "glenda",
		}},
		Twstat{MsgTag: 13, Fid: 1, Stat: Stat{
			Mode: DontTouch32, Atime: DontTouch32, Mtime: DontTouch32,
			Length: DontTouch64,
			Name:   DontTouchString, Uid: DontTouchString, Gid: DontTouchString, Muid: DontTouchString,
		}},
		Rwstat{MsgTag: 13},
	}

	for _, m := range cases {
		roundtrip(t, m)
	}
}

func TestDontTouchStatRoundTrips(t *testing.T) {
	st := Stat{
		Mode: DontTouch32, Atime: DontTouch32, Mtime: DontTouch32,
		Length: DontTouch64,
		Name:   DontTouchString, Uid: DontTouchString, Gid: DontTouchString, Muid: DontTouchString,
	}
	if !st.DontTouch() {
		t.Fatal("expected DontTouch() to report true for all-sentinel Stat")
	}
	m := roundtrip(t, Twstat{MsgTag: 1, Fid: 1, Stat: st})
	got := m.(Twstat)
	if !got.Stat.DontTouch() {
		t.Fatal("DontTouch-ness did not survive round trip")
	}
}

func TestMaxWalkEnforced(t *testing.T) {
	names := make([]string, MaxWalk+1)
	for i := range names {
		names[i] = "x"
	}
	_, err := Encode(Twalk{MsgTag: 1, Fid: 0, Newfid: 1, Wname: names})
	if err != errMaxWalk {
		t.Fatalf("Encode with %d walk names: got err %v, want errMaxWalk", len(names), err)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	b, err := Encode(Rclunk{MsgTag: 1})
	if err != nil {
		t.Fatal(err)
	}
	b = append(b, 0xFF)
	buint32(b, uint32(len(b)))
	if _, err := Decode(b); err != errTrailingBytes {
		t.Fatalf("Decode with trailing byte: got %v, want errTrailingBytes", err)
	}
}

func TestDecodeRejectsSizeMismatch(t *testing.T) {
	b, err := Encode(Rclunk{MsgTag: 1})
	if err != nil {
		t.Fatal(err)
	}
	buint32(b, uint32(len(b)+1))
	if _, err := Decode(b); err != errSizeMismatch {
		t.Fatalf("Decode with wrong size field: got %v, want errSizeMismatch", err)
	}
}

func TestDecodeRejectsShortHeader(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err != errShortHeader {
		t.Fatalf("Decode of 3-byte buffer: got %v, want errShortHeader", err)
	}
}

func TestReadWriteMsg(t *testing.T) {
	var buf bytes.Buffer
	want := Tversion{MsgTag: ninep.NoTag, Msize: 65536, Version: "9P2000"}
	if err := WriteMsg(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadMsg(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}
