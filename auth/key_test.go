package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ed25519Key(user, authID string) Key {
	k := Key{Type: ProtoEd25519, User: user, AuthID: authID}
	for i := range k.Ed25519PublicKey {
		k.Ed25519PublicKey[i] = byte(i)
	}
	for i := range k.Ed25519PrivateKey {
		k.Ed25519PrivateKey[i] = byte(i + 1)
	}
	return k
}

func fido2Key(user, authID string) Key {
	return Key{
		Type:         ProtoFIDO2,
		User:         user,
		AuthID:       authID,
		CredentialID: make([]byte, 16),
		PublicKey:    make([]byte, 32),
	}
}

func TestKeyRingAddLookup(t *testing.T) {
	r := NewKeyRing(0)
	k := ed25519Key("glenda", "example.com")
	require.NoError(t, r.Add(k))

	got, ok := r.Lookup("glenda", "example.com", ProtoEd25519)
	require.True(t, ok)
	assert.Equal(t, k, got)

	_, ok = r.Lookup("glenda", "example.com", ProtoFIDO2)
	assert.False(t, ok, "wrong protocol should not match")

	got, ok = r.Lookup("glenda", "example.com", 0)
	require.True(t, ok, "zero protocol is a wildcard")
	assert.Equal(t, k, got)
}

func TestKeyRingAddValidation(t *testing.T) {
	r := NewKeyRing(0)
	assert.Error(t, r.Add(Key{Type: ProtoEd25519, User: "", AuthID: "x"}), "empty user")
	assert.Error(t, r.Add(Key{Type: ProtoEd25519, User: "x", AuthID: ""}), "empty auth id")
	assert.Error(t, r.Add(Key{Type: ProtoFIDO2, User: "x", AuthID: "y", CredentialID: []byte{1, 2}, PublicKey: make([]byte, 32)}), "credential id too short")
	assert.Error(t, r.Add(Key{Type: ProtoFIDO2, User: "x", AuthID: "y", CredentialID: make([]byte, 16), PublicKey: []byte{1}}), "public key too short")
}

func TestKeyRingRemove(t *testing.T) {
	r := NewKeyRing(0)
	require.NoError(t, r.Add(ed25519Key("glenda", "example.com")))
	require.NoError(t, r.Add(fido2Key("glenda", "example.com")))

	assert.True(t, r.Remove("glenda", "example.com", ProtoEd25519))
	_, ok := r.Lookup("glenda", "example.com", ProtoEd25519)
	assert.False(t, ok)

	// The FIDO2 credential for the same identity is untouched by the
	// protocol-scoped removal above.
	_, ok = r.Lookup("glenda", "example.com", ProtoFIDO2)
	assert.True(t, ok)

	assert.False(t, r.Remove("glenda", "example.com", ProtoEd25519), "already removed")
}

func TestKeyRingRemoveWildcard(t *testing.T) {
	r := NewKeyRing(0)
	require.NoError(t, r.Add(fido2Key("glenda", "example.com")))
	assert.True(t, r.Remove("glenda", "example.com", 0))
}

func TestKeyRingSaveLoadRoundTrip(t *testing.T) {
	r := NewKeyRing(0)
	require.NoError(t, r.Add(ed25519Key("glenda", "example.com")))
	require.NoError(t, r.Add(fido2Key("anselm", "corp.example")))

	data := r.Save()

	r2 := NewKeyRing(0)
	require.NoError(t, r2.Load(data))

	for _, want := range r.Keys() {
		got, ok := r2.Lookup(want.User, want.AuthID, want.Type)
		require.True(t, ok)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.User, got.User)
		assert.Equal(t, want.AuthID, got.AuthID)
		if want.Type == ProtoEd25519 {
			assert.Equal(t, want.Ed25519PublicKey, got.Ed25519PublicKey)
		} else {
			assert.Equal(t, want.CredentialID, got.CredentialID)
			assert.Equal(t, want.PublicKey, got.PublicKey)
		}
	}
}

func TestKeyRingLoadMalformedLine(t *testing.T) {
	r := NewKeyRing(0)
	assert.Error(t, r.Load([]byte("only two fields\n")))
}

func TestKeyRingLoadUnknownProto(t *testing.T) {
	r := NewKeyRing(0)
	assert.Error(t, r.Load([]byte("glenda example.com rsa aa bb\n")))
}

func TestSourceCombinators(t *testing.T) {
	r1 := NewKeyRing(0)
	require.NoError(t, r1.Add(ed25519Key("glenda", "example.com")))
	r2 := NewKeyRing(0)
	require.NoError(t, r2.Add(ed25519Key("glenda", "example.com")))
	r3 := NewKeyRing(0) // missing the key

	_, ok := All(r1, r2).Lookup("glenda", "example.com", ProtoEd25519)
	assert.True(t, ok)

	_, ok = All(r1, r3).Lookup("glenda", "example.com", ProtoEd25519)
	assert.False(t, ok, "All requires every source to match")

	_, ok = Any(r3, r1).Lookup("glenda", "example.com", ProtoEd25519)
	assert.True(t, ok, "Any matches if any source does")
}
