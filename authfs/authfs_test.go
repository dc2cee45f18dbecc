package authfs

import (
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ninep.dev/ninep/auth"
	"ninep.dev/ninep/authcrypto"
	"ninep.dev/ninep/authrpc"
	"ninep.dev/ninep/proto"
)

func TestAttachAndWalk(t *testing.T) {
	b := New(auth.NewKeyRing(0))
	path, qid, err := b.Attach("glenda", "")
	require.NoError(t, err)
	assert.Equal(t, pathRoot, path)
	assert.True(t, qid.IsDir())

	for _, name := range rootNames {
		p, _, err := b.Walk(pathRoot, name)
		require.NoError(t, err)
		assert.Equal(t, name, p)
	}

	_, _, err = b.Walk(pathRoot, "nope")
	assert.Error(t, err)
}

func TestRootDirListing(t *testing.T) {
	b := New(auth.NewKeyRing(0))
	_, iter, _, _, err := b.Open(pathRoot, 0)
	require.NoError(t, err)
	require.NotNil(t, iter)

	var total []byte
	var offset uint64
	for {
		chunk, err := iter.ReadDir(offset, 4096)
		require.NoError(t, err)
		if len(chunk) == 0 {
			break
		}
		total = append(total, chunk...)
		offset += uint64(len(chunk))
	}
	assert.NotEmpty(t, total)

	// Offset zero rewinds: the whole listing fits in one read, so a
	// fresh read at zero must list every entry again from the start.
	again, err := iter.ReadDir(0, 4096)
	require.NoError(t, err)
	assert.Equal(t, statNames(t, total), statNames(t, again))
	assert.ElementsMatch(t, rootNames, statNames(t, again))
}

// statNames decodes the names out of a packed run of stat records.
func statNames(t *testing.T, data []byte) []string {
	t.Helper()
	var names []string
	for len(data) > 0 {
		size := int(data[0]) | int(data[1])<<8
		st, err := proto.DecodeStat(data[:2+size])
		require.NoError(t, err)
		names = append(names, st.Name)
		data = data[2+size:]
	}
	return names
}

func TestRootDirListingSmallReadNeverSplitsEntry(t *testing.T) {
	b := New(auth.NewKeyRing(0))
	_, iter, _, _, err := b.Open(pathRoot, 0)
	require.NoError(t, err)

	chunk, err := iter.ReadDir(0, 1)
	require.NoError(t, err)
	assert.Empty(t, chunk, "a too-small read defers the entry instead of splitting it")

	full, err := iter.ReadDir(0, 4096)
	require.NoError(t, err)
	assert.NotEmpty(t, full, "a later, large-enough read still delivers the listing")
}

func TestCtlRegisterAndRemove(t *testing.T) {
	b := New(auth.NewKeyRing(0))
	h, _, _, _, err := b.Open(pathCtl, 0)
	require.NoError(t, err)

	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i)
	}
	cmd := "register user=glenda auth-id=example.com proto=ed25519 pubkey=" + hex.EncodeToString(pub)
	n, err := h.WriteAt([]byte(cmd), 0)
	require.NoError(t, err)
	assert.Equal(t, len(cmd), n)

	_, ok := b.ring.Lookup("glenda", "example.com", auth.ProtoEd25519)
	assert.True(t, ok)

	_, err = h.WriteAt([]byte("remove user=glenda auth-id=example.com"), 0)
	require.NoError(t, err)
	_, ok = b.ring.Lookup("glenda", "example.com", auth.ProtoEd25519)
	assert.False(t, ok)

	_, err = h.WriteAt([]byte("remove user=glenda auth-id=example.com"), 0)
	assert.Error(t, err, "removing an already-absent key is an error")
}

func TestCtlRegisterRejectsUnknownVerb(t *testing.T) {
	b := New(auth.NewKeyRing(0))
	h, _, _, _, err := b.Open(pathCtl, 0)
	require.NoError(t, err)
	_, err = h.WriteAt([]byte("frobnicate"), 0)
	assert.Error(t, err)
}

func TestCtlIsWriteOnly(t *testing.T) {
	b := New(auth.NewKeyRing(0))
	h, _, _, _, err := b.Open(pathCtl, 0)
	require.NoError(t, err)
	_, err = h.ReadAt(make([]byte, 16), 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestKeyFileReflectsRegistrations(t *testing.T) {
	ring := auth.NewKeyRing(0)
	require.NoError(t, ring.Add(auth.Key{Type: auth.ProtoEd25519, User: "glenda", AuthID: "example.com"}))
	b := New(ring)

	h, _, _, _, err := b.Open(pathKey, 0)
	require.NoError(t, err)
	buf := make([]byte, 4096)
	n, err := h.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	assert.Contains(t, string(buf[:n]), "glenda")
	assert.Contains(t, string(buf[:n]), "example.com")
}

func TestLogReflectsCtlActivity(t *testing.T) {
	b := New(auth.NewKeyRing(0))
	ctl, _, _, _, err := b.Open(pathCtl, 0)
	require.NoError(t, err)
	pub := make([]byte, 32)
	_, err = ctl.WriteAt([]byte("register user=glenda auth-id=example.com proto=ed25519 pubkey="+hex.EncodeToString(pub)), 0)
	require.NoError(t, err)

	logH, _, _, _, err := b.Open(pathLog, 0)
	require.NoError(t, err)
	buf := make([]byte, 4096)
	n, err := logH.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	assert.Contains(t, string(buf[:n]), "register user=glenda")
}

// TestRPCEndToEndEd25519 drives the /rpc file through a full
// challenge/response cycle: a client opens /rpc, starts a server-role
// conversation, reads the challenge, writes a signed response computed
// by an independent client-role conversation, and reads back "done".
func TestRPCEndToEndEd25519(t *testing.T) {
	pub, priv, err := authcrypto.GenerateKeyPair()
	require.NoError(t, err)
	ring := auth.NewKeyRing(0)
	require.NoError(t, ring.Add(auth.Key{
		Type: auth.ProtoEd25519, User: "glenda", AuthID: "example.com",
		Ed25519PublicKey: pub, Ed25519PrivateKey: priv,
	}))
	b := New(ring)

	h, _, _, _, err := b.Open(pathRpc, 0)
	require.NoError(t, err)

	_, err = h.WriteAt([]byte("start user=glenda auth-id=example.com proto=ed25519 role=server"), 0)
	require.NoError(t, err)

	challenge := make([]byte, 64)
	n, err := h.ReadAt(challenge, 0)
	require.NoError(t, err)
	challenge = challenge[:n]

	client := authrpc.NewConv(1, "", "")
	require.NoError(t, client.HandleStart(authrpc.Command{Verb: "start", Params: map[string]string{
		"user": "glenda", "auth-id": "example.com", "proto": "ed25519", "role": "client",
	}}, ring, nil))
	require.NoError(t, client.HandleWrite(challenge, ring, nil))
	response, err := client.HandleRead(nil)
	require.NoError(t, err)

	_, err = h.WriteAt(response, 0)
	require.NoError(t, err)

	done := make([]byte, 16)
	n, err = h.ReadAt(done, 0)
	require.NoError(t, err)
	assert.Equal(t, "done", string(done[:n]))
}
