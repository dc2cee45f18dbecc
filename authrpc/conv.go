// Package authrpc implements the RPC state machine of the
// authentication coprocessor: the conversation record a Tauth-style
// exchange drives through challenge generation, signing, and
// verification, and the wire forms the challenge and signed response
// travel in.
package authrpc

import (
	"sync"
	"time"

	"ninep.dev/ninep/auth"
)

// State is a conversation's position in the challenge/response state
// machine.
type State int

const (
	StateNone State = iota
	StateStarted
	StateChallengeReady
	StateChallengeSent
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateStarted:
		return "started"
	case StateChallengeReady:
		return "challenge-ready"
	case StateChallengeSent:
		return "challenge-sent"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Timeout is the maximum age, from Conv.StartTime, that a
// conversation may be read from or written to before every subsequent
// operation on it fails with an expiry error.
const Timeout = 10 * time.Second

// Conv is one authentication conversation, bound to a single client
// fid for its lifetime.
type Conv struct {
	mu sync.Mutex

	Tag       uint64
	User      string
	AuthID    string
	Role      string // "client" or "server"
	Proto     auth.Proto
	Key       *auth.Key
	State     State
	StartTime time.Time
	Challenge [32]byte
	AuthData  []byte
	Signature []byte
	Verified  bool
	Err       error

	// clientResponse is the signed wire blob a client-role Conv
	// produced in HandleWrite, re-emitted verbatim by HandleRead once
	// the conversation reaches StateDone.
	clientResponse []byte
}

// NewConv starts a fresh conversation for (user, authID), in
// StateNone until HandleStart finishes configuring it.
func NewConv(tag uint64, user, authID string) *Conv {
	return &Conv{Tag: tag, User: user, AuthID: authID, State: StateNone, StartTime: time.Now()}
}

// Expired reports whether the conversation has outlived Timeout,
// measured from when it was created — matching auth_rpc_handle_read
// and auth_rpc_handle_write's identical checks on every read and
// write.
func (c *Conv) Expired() bool {
	return time.Since(c.StartTime) > Timeout
}

// CurrentState returns the conversation's state under lock, for
// callers (authfs's /rpc file handler) that must decide whether an
// incoming write is the initial "start" command or an in-flight
// binary payload before calling into HandleWrite.
func (c *Conv) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.State
}
