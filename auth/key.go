// Package auth implements the key-ring half of the authentication
// coprocessor: registered credentials, their on-disk serialization,
// and the identifier validation the original C implementation applies
// before ever trusting a credential.
package auth

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// Proto identifies the signature scheme a Key speaks.
type Proto uint64

const (
	ProtoEd25519 Proto = 1
	ProtoFIDO2   Proto = 2
)

func (p Proto) String() string {
	switch p {
	case ProtoEd25519:
		return "ed25519"
	case ProtoFIDO2:
		return "fido2"
	default:
		return "unknown"
	}
}

// ParseProto maps the RPC wire name of a protocol ("ed25519"/"fido2")
// to its Proto constant.
func ParseProto(name string) (Proto, bool) {
	switch name {
	case "ed25519":
		return ProtoEd25519, true
	case "fido2":
		return ProtoFIDO2, true
	default:
		return 0, false
	}
}

// Key is one registered credential: an Ed25519 keypair or a FIDO2
// credential, scoped to a (user, auth_id) pair the way the RPC layer
// looks it up.
type Key struct {
	Type   Proto
	User   string
	AuthID string

	// FIDO2
	CredentialID []byte
	PublicKey    []byte

	// Ed25519
	Ed25519PublicKey  [32]byte
	Ed25519PrivateKey [64]byte
}

const (
	minIdentifierLen = 1
	maxIdentifierLen = 256
	minCredentialLen = 16
	maxCredentialLen = 256
	minPublicKeyLen  = 32
	maxPublicKeyLen  = 256
)

// validateIdentifier rejects empty, over-long, or control-character
// bearing identifiers, mirroring auth_validate_identifier.
func validateIdentifier(field, s string) error {
	if len(s) < minIdentifierLen {
		return errors.Errorf("auth: %s cannot be empty", field)
	}
	if len(s) > maxIdentifierLen {
		return errors.Errorf("auth: %s too long (max %d chars)", field, maxIdentifierLen)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7F {
			return errors.Errorf("auth: %s contains invalid characters", field)
		}
	}
	return nil
}

// validateCredentialFormat mirrors auth_validate_credential_format: it
// only inspects the FIDO2-shaped fields, since Ed25519 keys carry
// their material in fixed-size arrays that can't be malformed in the
// ways credential_id/public_key can.
func validateCredentialFormat(k *Key) error {
	if err := validateIdentifier("user", k.User); err != nil {
		return err
	}
	if err := validateIdentifier("auth_id", k.AuthID); err != nil {
		return err
	}
	if k.Type != ProtoFIDO2 {
		return nil
	}
	if len(k.CredentialID) < minCredentialLen {
		return errors.Errorf("auth: credential_id too short (min %d bytes)", minCredentialLen)
	}
	if len(k.CredentialID) > maxCredentialLen {
		return errors.Errorf("auth: credential_id too long (max %d bytes)", maxCredentialLen)
	}
	if len(k.PublicKey) < minPublicKeyLen {
		return errors.Errorf("auth: public_key too short (min %d bytes)", minPublicKeyLen)
	}
	if len(k.PublicKey) > maxPublicKeyLen {
		return errors.Errorf("auth: public_key too long (max %d bytes)", maxPublicKeyLen)
	}
	return nil
}

// KeyRing holds every credential registered with the coprocessor. The
// zero value is an empty ring ready to use; unlike the source's arena
// allocated array, growth is just append, since Go already amortizes
// it.
type KeyRing struct {
	keys []Key
}

// NewKeyRing returns an empty KeyRing with capacity pre-reserved, for
// parity with auth_keyring_alloc's up-front allocation.
func NewKeyRing(capacity int) *KeyRing {
	if capacity <= 0 {
		capacity = 16
	}
	return &KeyRing{keys: make([]Key, 0, capacity)}
}

// Add validates and appends key to the ring.
func (r *KeyRing) Add(key Key) error {
	if err := validateCredentialFormat(&key); err != nil {
		return err
	}
	r.keys = append(r.keys, key)
	return nil
}

// Lookup returns the first key matching (user, authID), optionally
// narrowed to proto when it isn't the zero value. It reports whether a
// match was found.
func (r *KeyRing) Lookup(user, authID string, proto Proto) (Key, bool) {
	for _, k := range r.keys {
		if k.User != user || k.AuthID != authID {
			continue
		}
		if proto != 0 && k.Type != proto {
			continue
		}
		return k, true
	}
	return Key{}, false
}

// Remove deletes the key matching (user, authID), narrowed to proto
// when it isn't the zero value.
//
// The C source's auth_keyring_remove takes a type parameter in its
// header but the shipped implementation matches only on (user,
// rp_id), silently ignoring it — a second credential for the same
// identity pair under a different protocol would be removed by
// mistake. The coprocessor's own "/ctl remove" command never carries
// a protocol field, so Remove cannot require one; this is a deliberate
// deviation from the stricter triple match instead: callers that do
// know the protocol (internal key management, tests) still get exact
// matching by passing it, same as Lookup.
func (r *KeyRing) Remove(user, authID string, proto Proto) bool {
	for i, k := range r.keys {
		if k.User != user || k.AuthID != authID {
			continue
		}
		if proto != 0 && k.Type != proto {
			continue
		}
		r.keys = append(r.keys[:i], r.keys[i+1:]...)
		return true
	}
	return false
}

// Keys returns a copy of every registered key.
func (r *KeyRing) Keys() []Key {
	out := make([]Key, len(r.keys))
	copy(out, r.keys)
	return out
}

// Save serializes the ring to its line-oriented text form: one line
// per key, "user auth_id proto credential_hex public_key_hex", hex
// encoding whichever binary fields the key's protocol uses.
func (r *KeyRing) Save() []byte {
	var b strings.Builder
	ew := &errWriter{w: &b}
	for _, k := range r.keys {
		cred, pub := credentialBytes(k)
		ew.writeString(k.User)
		ew.writeString(" ")
		ew.writeString(k.AuthID)
		ew.writeString(" ")
		ew.writeString(k.Type.String())
		ew.writeString(" ")
		ew.writeString(hex.EncodeToString(cred))
		ew.writeString(" ")
		ew.writeString(hex.EncodeToString(pub))
		ew.writeString("\n")
	}
	return []byte(b.String())
}

func credentialBytes(k Key) (cred, pub []byte) {
	if k.Type == ProtoEd25519 {
		return nil, k.Ed25519PublicKey[:]
	}
	return k.CredentialID, k.PublicKey
}

// Load replaces the ring's contents with the keys encoded in data,
// rejecting the whole batch if any line is malformed (matching
// auth_keyring_load's all-or-nothing behavior).
func (r *KeyRing) Load(data []byte) error {
	var loaded []Key
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Split on single spaces, not strings.Fields: an Ed25519 line
		// carries an empty credential field that Fields would drop.
		fields := strings.Split(line, " ")
		if len(fields) != 5 {
			return errors.New("auth: malformed key-ring line")
		}
		proto, ok := ParseProto(fields[2])
		if !ok {
			return errors.Errorf("auth: unknown protocol %q", fields[2])
		}
		cred, err := hex.DecodeString(fields[3])
		if err != nil {
			return errors.Wrap(err, "auth: decode credential")
		}
		pub, err := hex.DecodeString(fields[4])
		if err != nil {
			return errors.Wrap(err, "auth: decode public key")
		}
		k := Key{Type: proto, User: fields[0], AuthID: fields[1]}
		if proto == ProtoEd25519 {
			if len(pub) != 32 {
				return errors.New("auth: ed25519 public key must be 32 bytes")
			}
			copy(k.Ed25519PublicKey[:], pub)
		} else {
			k.CredentialID = cred
			k.PublicKey = pub
			if err := validateCredentialFormat(&k); err != nil {
				return err
			}
		}
		loaded = append(loaded, k)
	}
	r.keys = loaded
	return nil
}

// errWriter defers error checking across several sequential writes to
// a single check at the end, the pattern the original's multi-write
// encoders use.
type errWriter struct {
	w   *strings.Builder
	err error
}

func (e *errWriter) writeString(s string) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(s)
}
