package authcrypto

import (
	"bytes"

	"github.com/pkg/errors"
)

// Assertion is the result of asking an authenticator to sign a
// challenge for a previously registered credential.
type Assertion struct {
	AuthData  []byte
	Signature []byte
}

// FIDO2Authenticator is the boundary between the RPC state machine and
// an actual FIDO2 token. Implementations may talk to real hardware;
// MockAuthenticator below returns fixed, deterministic data so the
// coprocessor and its tests can run with no token attached.
type FIDO2Authenticator interface {
	// GenerateChallenge fills challenge with 32 bytes to be signed.
	GenerateChallenge(challenge *[32]byte) error

	// Register creates a new credential for (user, authID), returning
	// its credential id and public key.
	Register(user, authID string) (credentialID, publicKey []byte, err error)

	// GetAssertion asks the authenticator holding credentialID to sign
	// challenge, scoped to rp (the relying party / auth_id).
	GetAssertion(rp string, challenge [32]byte, credentialID []byte) (Assertion, error)

	// VerifySignature checks an assertion's signature against
	// publicKey.
	VerifySignature(rp string, challenge [32]byte, a Assertion, publicKey []byte) error
}

// MockAuthenticator is a deterministic stand-in for a hardware FIDO2
// token: every operation returns the same fixed credential id, public
// key, authenticator data, and signature bytes, letting the rest of
// the coprocessor be exercised without real hardware.
type MockAuthenticator struct{}

// The mock's fixed byte strings, transcribed from the reference
// authenticator's own mock data so a captured wire trace against it
// matches byte for byte.
var (
	mockCredID = []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
		0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f, 0x20,
		0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28, 0x29, 0x2a, 0x2b, 0x2c, 0x2d, 0x2e, 0x2f, 0x30,
		0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39, 0x3a, 0x3b, 0x3c, 0x3d, 0x3e, 0x3f, 0x40,
	}
	mockPublicKey = []byte{
		0x04, 0xa1, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7, 0xa8, 0xa9, 0xaa, 0xab, 0xac, 0xad, 0xae, 0xaf,
		0xb0, 0xb1, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xbb, 0xbc, 0xbd, 0xbe, 0xbf,
		0xc0, 0xc1, 0xc2, 0xc3, 0xc4, 0xc5, 0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xcb, 0xcc, 0xcd, 0xce, 0xcf,
		0xd0, 0xd1, 0xd2, 0xd3, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda, 0xdb, 0xdc, 0xdd, 0xde, 0xdf,
		0xe0,
	}
	mockAuthData = []byte{
		0x49, 0x96, 0x0d, 0xe5, 0x88, 0x0e, 0x8c, 0x68, 0x74, 0x34, 0x17, 0x0f, 0x64, 0x76, 0x60, 0x5b,
		0x8f, 0xe4, 0xae, 0xb9, 0xa2, 0x86, 0x32, 0xc7, 0x99, 0x5c, 0xf3, 0xba, 0x83, 0x1d, 0x97, 0x63,
		0x01, 0x00, 0x00, 0x00, 0x01,
	}
	mockSignature = []byte{
		0xe1, 0xe2, 0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea, 0xeb, 0xec, 0xed, 0xee, 0xef, 0xf0,
		0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8, 0xf9, 0xfa, 0xfb, 0xfc, 0xfd, 0xfe, 0xff, 0x00,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
		0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f, 0x20,
	}
)

// GenerateChallenge deterministically fills challenge so that mock
// runs are reproducible: challenge[i] = (i*7+13) mod 256.
func (MockAuthenticator) GenerateChallenge(challenge *[32]byte) error {
	for i := range challenge {
		challenge[i] = byte((i*7 + 13) & 0xff)
	}
	return nil
}

func (MockAuthenticator) Register(user, authID string) ([]byte, []byte, error) {
	if user == "" {
		return nil, nil, errors.New("fido2: user name is required")
	}
	if authID == "" {
		return nil, nil, errors.New("fido2: auth id is required")
	}
	credID := make([]byte, len(mockCredID))
	copy(credID, mockCredID)
	pub := make([]byte, len(mockPublicKey))
	copy(pub, mockPublicKey)
	return credID, pub, nil
}

func (MockAuthenticator) GetAssertion(rp string, challenge [32]byte, credentialID []byte) (Assertion, error) {
	if len(credentialID) == 0 {
		return Assertion{}, errors.New("fido2: credential ID is required")
	}
	if len(credentialID) != len(mockCredID) {
		return Assertion{}, errors.New("fido2: invalid credential ID length")
	}
	if !bytes.Equal(credentialID, mockCredID) {
		return Assertion{}, errors.New("fido2: credential not found")
	}
	auth := make([]byte, len(mockAuthData))
	copy(auth, mockAuthData)
	sig := make([]byte, len(mockSignature))
	copy(sig, mockSignature)
	return Assertion{AuthData: auth, Signature: sig}, nil
}

func (MockAuthenticator) VerifySignature(rp string, challenge [32]byte, a Assertion, publicKey []byte) error {
	if len(a.Signature) == 0 {
		return errors.New("fido2: signature is required")
	}
	if len(publicKey) == 0 {
		return errors.New("fido2: public key is required")
	}
	if len(a.Signature) == len(mockSignature) && bytes.Equal(a.Signature, mockSignature) {
		return nil
	}
	return errors.New("fido2: signature verification failed")
}
