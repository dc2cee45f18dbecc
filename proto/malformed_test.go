package proto

import "testing"

// These payloads are hand-crafted to exercise specific validation
// paths in Decode; they must never panic, only return an error.
var malformed = [][]byte{
	{},
	{0, 0, 0},
	{7, 0, 0, 0, 100, 0, 0}, // claims Tversion, has no msize/version
	{0xFF, 0xFF, 0xFF, 0x7F, 100, 0, 0},
	append([]byte{11, 0, 0, 0, 100, 0xFF, 0xFF}, []byte{0, 0, 0, 0}...),
}

func TestDecodeMalformedNeverPanics(t *testing.T) {
	for i, b := range malformed {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("case %d: Decode panicked: %v", i, r)
				}
			}()
			if _, err := Decode(b); err == nil {
				t.Errorf("case %d: Decode(%x) returned nil error", i, b)
			}
		}()
	}
}

func TestDecodeZeroLengthBuffer(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Fatal("Decode(nil): expected error, got nil")
	}
}

func TestDecodeTwalkMaxElements(t *testing.T) {
	names := make([]string, MaxWalk)
	for i := range names {
		names[i] = "a"
	}
	b, err := Encode(Twalk{MsgTag: 1, Fid: 0, Newfid: 1, Wname: names})
	if err != nil {
		t.Fatalf("Encode at MaxWalk: %v", err)
	}
	m, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode at MaxWalk: %v", err)
	}
	got := m.(Twalk)
	if len(got.Wname) != MaxWalk {
		t.Fatalf("got %d wname entries, want %d", len(got.Wname), MaxWalk)
	}
}
