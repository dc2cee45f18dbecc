// Package authcrypto implements the two signature schemes the
// authentication coprocessor accepts: Ed25519 over the standard
// library, and an opaque FIDO2 authenticator interface with a
// deterministic mock implementation for environments with no hardware
// token attached.
package authcrypto

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
)

// GenerateChallenge fills challenge with 32 bytes suitable for an
// Ed25519 conversation. It delegates to the same crypto/rand source
// ed25519.GenerateKey uses.
func GenerateChallenge(challenge *[32]byte) error {
	priv, err := randomBytes(32)
	if err != nil {
		return errors.Wrap(err, "authcrypto: generate challenge")
	}
	copy(challenge[:], priv)
	return nil
}

// SignChallenge signs challenge with privateKey, the 64-byte Ed25519
// private key seed-plus-public-key form crypto/ed25519 expects.
func SignChallenge(challenge [32]byte, privateKey [64]byte) ([]byte, error) {
	sig := ed25519.Sign(ed25519.PrivateKey(privateKey[:]), challenge[:])
	return sig, nil
}

// VerifySignature reports whether signature is a valid Ed25519
// signature of challenge under publicKey.
func VerifySignature(challenge [32]byte, signature []byte, publicKey [32]byte) error {
	if len(signature) != ed25519.SignatureSize {
		return errors.New("authcrypto: ed25519 signature wrong length")
	}
	if !ed25519.Verify(ed25519.PublicKey(publicKey[:]), challenge[:], signature) {
		return errors.New("authcrypto: ed25519 signature verification failed")
	}
	return nil
}

// GenerateKeyPair returns a fresh Ed25519 key pair in the fixed-size
// array form Key stores them in.
func GenerateKeyPair() (pub [32]byte, priv [64]byte, err error) {
	p, s, err := ed25519.GenerateKey(nil)
	if err != nil {
		return pub, priv, errors.Wrap(err, "authcrypto: generate key pair")
	}
	copy(pub[:], p)
	copy(priv[:], s)
	return pub, priv, nil
}
