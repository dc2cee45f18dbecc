package authrpc

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// challengeSize is the wire length of a packed challenge: a 4-byte
// timestamp followed by 32 bytes of random material.
const challengeSize = 4 + 32

// packChallenge lays out a challenge the way the coprocessor sends it
// over /rpc: [timestamp:4][challenge:32], timestamp a Unix time in
// seconds truncated to 32 bits. The signing side decodes the
// timestamp but does not check it; only the 32 challenge bytes are
// signed.
func packChallenge(timestamp uint32, challenge [32]byte) []byte {
	out := make([]byte, challengeSize)
	binary.LittleEndian.PutUint32(out[:4], timestamp)
	copy(out[4:], challenge[:])
	return out
}

func unpackChallenge(data []byte) (timestamp uint32, challenge [32]byte, err error) {
	if len(data) != challengeSize {
		return 0, challenge, errors.Errorf("authrpc: challenge must be %d bytes, got %d", challengeSize, len(data))
	}
	timestamp = binary.LittleEndian.Uint32(data[:4])
	copy(challenge[:], data[4:])
	return timestamp, challenge, nil
}

// Ed25519 response blobs are proto:u64=1 | pubkey:32 | signature:64.
const ed25519BlobSize = 8 + 32 + 64

func packEd25519Response(pub [32]byte, sig []byte) ([]byte, error) {
	if len(sig) != 64 {
		return nil, errors.Errorf("authrpc: ed25519 signature must be 64 bytes, got %d", len(sig))
	}
	out := make([]byte, ed25519BlobSize)
	binary.LittleEndian.PutUint64(out[:8], uint64(1))
	copy(out[8:40], pub[:])
	copy(out[40:104], sig)
	return out, nil
}

func unpackEd25519Response(data []byte) (pub [32]byte, sig []byte, err error) {
	if len(data) != ed25519BlobSize {
		return pub, nil, errors.Errorf("authrpc: ed25519 response must be %d bytes, got %d", ed25519BlobSize, len(data))
	}
	if p := binary.LittleEndian.Uint64(data[:8]); p != 1 {
		return pub, nil, errors.Errorf("authrpc: expected ed25519 proto tag, got %d", p)
	}
	copy(pub[:], data[8:40])
	sig = append([]byte(nil), data[40:104]...)
	return pub, sig, nil
}

// FIDO2 response blobs are proto:u64=2 | auth_data_len:u64 | auth_data
// | signature, with the signature occupying the remainder of the blob.
func packFIDO2Response(authData, sig []byte) []byte {
	out := make([]byte, 8+8+len(authData)+len(sig))
	binary.LittleEndian.PutUint64(out[:8], uint64(2))
	binary.LittleEndian.PutUint64(out[8:16], uint64(len(authData)))
	copy(out[16:16+len(authData)], authData)
	copy(out[16+len(authData):], sig)
	return out
}

func unpackFIDO2Response(data []byte) (authData, sig []byte, err error) {
	if len(data) < 16 {
		return nil, nil, errors.New("authrpc: fido2 response too short")
	}
	if p := binary.LittleEndian.Uint64(data[:8]); p != 2 {
		return nil, nil, errors.Errorf("authrpc: expected fido2 proto tag, got %d", p)
	}
	n := binary.LittleEndian.Uint64(data[8:16])
	if uint64(len(data)-16) < n {
		return nil, nil, errors.New("authrpc: fido2 auth_data length exceeds blob")
	}
	authData = append([]byte(nil), data[16:16+n]...)
	sig = append([]byte(nil), data[16+n:]...)
	if len(sig) == 0 {
		return nil, nil, errors.New("authrpc: fido2 response missing signature")
	}
	return authData, sig, nil
}

// protoTag peeks the leading 8-byte protocol tag of a response blob
// without fully decoding it, so HandleWrite can dispatch to the right
// unpacker.
func protoTag(data []byte) (uint64, error) {
	if len(data) < 8 {
		return 0, errors.New("authrpc: response too short to contain a protocol tag")
	}
	return binary.LittleEndian.Uint64(data[:8]), nil
}
