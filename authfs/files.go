package authfs

import (
	"encoding/hex"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"ninep.dev/ninep/auth"
	"ninep.dev/ninep/authrpc"
)

// ctlHandle is the write-only command channel: register a credential,
// remove one, or persist the ring to its backing file.
type ctlHandle struct {
	fs *Backend
}

func (h *ctlHandle) ReadAt(p []byte, off int64) (int, error) {
	return 0, io.EOF
}

func (h *ctlHandle) WriteAt(p []byte, off int64) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	cmd, err := authrpc.ParseCommand(line)
	if err != nil {
		return 0, errors.Wrap(err, "authfs: ctl")
	}
	switch cmd.Verb {
	case "register":
		if err := h.register(cmd); err != nil {
			return 0, err
		}
	case "remove":
		if err := h.remove(cmd); err != nil {
			return 0, err
		}
	case "save":
		if err := h.save(); err != nil {
			return 0, err
		}
	default:
		return 0, errors.Errorf("authfs: unknown ctl command %q", cmd.Verb)
	}
	return len(p), nil
}

func (h *ctlHandle) register(cmd authrpc.Command) error {
	if err := cmd.Require("user", "auth-id", "proto"); err != nil {
		return err
	}
	proto, ok := auth.ParseProto(cmd.Params["proto"])
	if !ok {
		return errors.Errorf("authfs: register: unknown protocol %q", cmd.Params["proto"])
	}
	key := auth.Key{Type: proto, User: cmd.Params["user"], AuthID: cmd.Params["auth-id"]}
	switch proto {
	case auth.ProtoEd25519:
		pub, err := decodeHexParam(cmd, "pubkey")
		if err != nil {
			return err
		}
		if len(pub) != 32 {
			return errors.New("authfs: register: ed25519 pubkey must be 32 bytes")
		}
		copy(key.Ed25519PublicKey[:], pub)
	case auth.ProtoFIDO2:
		cred, err := decodeHexParam(cmd, "credential-id")
		if err != nil {
			return err
		}
		pub, err := decodeHexParam(cmd, "pubkey")
		if err != nil {
			return err
		}
		key.CredentialID = cred
		key.PublicKey = pub
	}
	if err := h.fs.ring.Add(key); err != nil {
		return errors.Wrap(err, "authfs: register")
	}
	h.fs.log.Logf("register user=%s auth-id=%s proto=%s", key.User, key.AuthID, proto)
	return nil
}

func decodeHexParam(cmd authrpc.Command, name string) ([]byte, error) {
	v, ok := cmd.Params[name]
	if !ok {
		return nil, errors.Errorf("authfs: register: missing %q", name)
	}
	b, err := hex.DecodeString(v)
	if err != nil {
		return nil, errors.Wrapf(err, "authfs: register: decode %s", name)
	}
	return b, nil
}

func (h *ctlHandle) remove(cmd authrpc.Command) error {
	if err := cmd.Require("user", "auth-id"); err != nil {
		return err
	}
	user, authID := cmd.Params["user"], cmd.Params["auth-id"]
	var proto auth.Proto
	if p, ok := cmd.Params["proto"]; ok {
		proto, ok = auth.ParseProto(p)
		if !ok {
			return errors.Errorf("authfs: remove: unknown protocol %q", cmd.Params["proto"])
		}
	}
	if !h.fs.ring.Remove(user, authID, proto) {
		return errors.Errorf("authfs: remove: no key for %s/%s", user, authID)
	}
	h.fs.log.Logf("remove user=%s auth-id=%s", user, authID)
	return nil
}

func (h *ctlHandle) save() error {
	if h.fs.keyPath == "" {
		return errors.New("authfs: save: no key-ring file configured")
	}
	if err := os.WriteFile(h.fs.keyPath, h.fs.ring.Save(), 0600); err != nil {
		return errors.Wrap(err, "authfs: save")
	}
	h.fs.log.Logf("save path=%s", h.fs.keyPath)
	return nil
}

func (h *ctlHandle) Close() error { return nil }

// rpcHandle is one authentication conversation, bound to the fid that
// opened it. The first write is always the "start" command; every
// write after that is the binary challenge or response payload
// HandleWrite expects, and every read re-derives its bytes from the
// conversation's current state.
type rpcHandle struct {
	fs   *Backend
	conv *authrpc.Conv

	mu     sync.Mutex
	cached []byte
}

func (h *rpcHandle) ReadAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if off == 0 {
		data, err := h.conv.HandleRead(h.fs.authenticator)
		if err != nil {
			return 0, err
		}
		h.cached = data
	}
	if int64(len(h.cached)) <= off {
		return 0, io.EOF
	}
	n := copy(p, h.cached[off:])
	return n, nil
}

func (h *rpcHandle) WriteAt(p []byte, off int64) (int, error) {
	if h.conv.CurrentState() == authrpc.StateNone {
		cmd, err := authrpc.ParseCommand(strings.TrimRight(string(p), "\n"))
		if err != nil {
			return 0, errors.Wrap(err, "authfs: rpc")
		}
		if err := authrpc.Dispatch(h.conv, cmd, h.fs.ring, h.fs.authenticator); err != nil {
			return 0, err
		}
		h.fs.log.Logf("start user=%s auth-id=%s proto=%s role=%s", h.conv.User, h.conv.AuthID, h.conv.Proto, h.conv.Role)
		return len(p), nil
	}

	data := make([]byte, len(p))
	copy(data, p)
	if err := h.conv.HandleWrite(data, h.fs.ring, h.fs.authenticator); err != nil {
		h.fs.log.Logf("auth error user=%s auth-id=%s: %v", h.conv.User, h.conv.AuthID, err)
		return 0, err
	}
	if h.conv.CurrentState() == authrpc.StateDone {
		h.fs.log.Logf("done user=%s auth-id=%s verified=%t", h.conv.User, h.conv.AuthID, h.conv.Verified)
	}
	return len(p), nil
}

func (h *rpcHandle) Close() error { return nil }

// logHandle serves a point-in-time snapshot of the event log, taken
// on the handle's first read so a long read sees a consistent view
// even as new events are appended.
type logHandle struct {
	fs       *Backend
	snapshot []byte
	taken    bool
}

func (h *logHandle) ReadAt(p []byte, off int64) (int, error) {
	if !h.taken {
		h.snapshot = h.fs.log.Bytes()
		h.taken = true
	}
	if off >= int64(len(h.snapshot)) {
		return 0, io.EOF
	}
	return copy(p, h.snapshot[off:]), nil
}

func (h *logHandle) WriteAt(p []byte, off int64) (int, error) {
	return 0, errors.New("authfs: log is read-only")
}

func (h *logHandle) Close() error { return nil }

// keyHandle serves the key-ring's serialized text form: an auditor's
// read-only view of every registered credential.
type keyHandle struct {
	fs       *Backend
	snapshot []byte
	taken    bool
}

func (h *keyHandle) ReadAt(p []byte, off int64) (int, error) {
	if !h.taken {
		h.snapshot = h.fs.ring.Save()
		h.taken = true
	}
	if off >= int64(len(h.snapshot)) {
		return 0, io.EOF
	}
	return copy(p, h.snapshot[off:]), nil
}

func (h *keyHandle) WriteAt(p []byte, off int64) (int, error) {
	return 0, errors.New("authfs: key is read-only")
}

func (h *keyHandle) Close() error { return nil }
