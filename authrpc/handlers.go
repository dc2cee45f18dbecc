package authrpc

import (
	"github.com/pkg/errors"

	"ninep.dev/ninep/auth"
	"ninep.dev/ninep/authcrypto"
)

// ErrExpired is returned by HandleRead and HandleWrite once a conversation has
// outlived Timeout. Its text is what a client sees on the wire.
var ErrExpired = errors.New("auth: conversation expired")

// HandleStart processes a "start" command written to a fresh
// conversation's rpc file:
// start user=glenda [auth-id=main] [proto=ed25519] role=client|server.
//
// A role=server conversation generates its challenge eagerly and
// lands in StateChallengeReady, ready for the first read. A
// role=client conversation has nothing to emit yet — it is waiting to
// be handed the server's challenge out of band — so it lands in
// StateStarted instead.
//
// proto is optional. A client, or either role naming a proto, binds
// its credential here and fails if none is registered. A server with
// no proto starts without a key: the protocol and credential are
// bound later, from the tag of the first signed blob written back.
func (c *Conv) HandleStart(cmd Command, ring *auth.KeyRing, authenticator authcrypto.FIDO2Authenticator) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State != StateNone {
		return errors.Errorf("authrpc: start called in state %s", c.State)
	}
	if err := cmd.Require("user"); err != nil {
		return err
	}
	protoName, hasProto := cmd.Params["proto"]
	var proto auth.Proto
	if hasProto {
		p, ok := auth.ParseProto(protoName)
		if !ok {
			return errors.Errorf("authrpc: unknown protocol %q", protoName)
		}
		proto = p
	}
	role := cmd.Params["role"]
	if role != "client" && role != "server" {
		return errors.New("auth: invalid role")
	}

	c.User = cmd.Params["user"]
	c.AuthID = cmd.Params["auth-id"]
	c.Role = role

	if hasProto || role == "client" {
		k, ok := ring.Lookup(c.User, c.AuthID, proto)
		if !ok {
			return errors.New("auth: no credential found")
		}
		key := k
		c.Key = &key
		c.Proto = key.Type
	}

	if role == "client" {
		c.State = StateStarted
		return nil
	}

	if err := c.generateChallengeLocked(authenticator); err != nil {
		c.State = StateError
		c.Err = err
		return err
	}
	c.State = StateChallengeReady
	return nil
}

// HandleRead produces the bytes a read of the conversation's rpc file
// should return.
func (c *Conv) HandleRead(authenticator authcrypto.FIDO2Authenticator) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Expired() {
		c.State = StateError
		return nil, ErrExpired
	}
	switch c.State {
	case StateChallengeReady, StateChallengeSent:
		c.State = StateChallengeSent
		return packChallenge(uint32(c.StartTime.Unix()), c.Challenge), nil
	case StateDone:
		if c.Role == "client" {
			return c.clientResponse, nil
		}
		return []byte("done"), nil
	case StateError:
		if c.Err != nil {
			return nil, c.Err
		}
		return nil, errors.New("authrpc: conversation failed")
	default:
		return nil, errors.Errorf("authrpc: read called in state %s", c.State)
	}
}

func (c *Conv) generateChallengeLocked(authenticator authcrypto.FIDO2Authenticator) error {
	switch c.Proto {
	case auth.ProtoFIDO2:
		if authenticator == nil {
			return errors.New("authrpc: no fido2 authenticator configured")
		}
		return authenticator.GenerateChallenge(&c.Challenge)
	default:
		// Ed25519, or no protocol declared yet: a plain random
		// challenge serves either way, and the response blob's tag
		// settles the protocol later.
		return authcrypto.GenerateChallenge(&c.Challenge)
	}
}

// HandleWrite accepts data written back to the conversation's rpc
// file. In StateStarted (role=client) data is the server's packed
// challenge, which the conversation signs and turns into a response
// blob cached for the next read. In StateChallengeSent (role=server)
// data is the signed response blob, which is verified against the
// bound key.
func (c *Conv) HandleWrite(data []byte, ring *auth.KeyRing, authenticator authcrypto.FIDO2Authenticator) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Expired() {
		c.State = StateError
		return ErrExpired
	}

	switch c.State {
	case StateStarted:
		return c.handleClientSignLocked(data, ring, authenticator)
	case StateChallengeSent:
		return c.handleServerVerifyLocked(data, ring, authenticator)
	default:
		return errors.Errorf("authrpc: write called in state %s", c.State)
	}
}

func (c *Conv) handleClientSignLocked(data []byte, ring *auth.KeyRing, authenticator authcrypto.FIDO2Authenticator) error {
	if c.Role != "client" {
		return errors.Errorf("authrpc: write called in state %s", c.State)
	}
	_, challenge, err := unpackChallenge(data)
	if err != nil {
		c.State = StateError
		c.Err = err
		return err
	}
	c.Challenge = challenge

	// Start binds a client's credential before it reaches this state.
	if c.Key == nil {
		err := errors.New("auth: no credential found")
		c.State = StateError
		c.Err = err
		return err
	}

	blob, err := c.signLocked(authenticator)
	if err != nil {
		c.State = StateError
		c.Err = err
		return err
	}
	c.clientResponse = blob
	c.State = StateDone
	return nil
}

func (c *Conv) signLocked(authenticator authcrypto.FIDO2Authenticator) ([]byte, error) {
	switch c.Proto {
	case auth.ProtoEd25519:
		sig, err := authcrypto.SignChallenge(c.Challenge, c.Key.Ed25519PrivateKey)
		if err != nil {
			return nil, err
		}
		c.Signature = sig
		return packEd25519Response(c.Key.Ed25519PublicKey, sig)
	case auth.ProtoFIDO2:
		if authenticator == nil {
			return nil, errors.New("authrpc: no fido2 authenticator configured")
		}
		assertion, err := authenticator.GetAssertion(c.AuthID, c.Challenge, c.Key.CredentialID)
		if err != nil {
			return nil, err
		}
		c.AuthData, c.Signature = assertion.AuthData, assertion.Signature
		return packFIDO2Response(assertion.AuthData, assertion.Signature), nil
	default:
		return nil, errors.Errorf("authrpc: unsupported protocol %d", c.Proto)
	}
}

func (c *Conv) handleServerVerifyLocked(data []byte, ring *auth.KeyRing, authenticator authcrypto.FIDO2Authenticator) error {
	tag, err := protoTag(data)
	if err != nil {
		c.State = StateError
		c.Err = err
		return err
	}
	declared := auth.Proto(tag)
	if declared != auth.ProtoEd25519 && declared != auth.ProtoFIDO2 {
		err = errors.Errorf("authrpc: response carries unknown protocol tag %d", tag)
		c.State = StateError
		c.Err = err
		return err
	}

	// A proto-less start left the conversation without a key; the
	// response's own tag names the protocol, so bind both now.
	if c.Proto == 0 {
		c.Proto = declared
	}
	if c.Key == nil {
		if k, ok := ring.Lookup(c.User, c.AuthID, declared); ok {
			key := k
			c.Key = &key
		} else {
			err = errors.New("auth: no credential found")
			c.State = StateError
			c.Err = err
			return err
		}
	}

	switch declared {
	case auth.ProtoEd25519:
		err = c.verifyEd25519Locked(data)
	case auth.ProtoFIDO2:
		err = c.verifyFIDO2Locked(data, authenticator)
	}
	if err != nil {
		c.State = StateError
		c.Err = err
		return err
	}

	c.Verified = true
	c.State = StateDone
	return nil
}

func (c *Conv) verifyEd25519Locked(data []byte) error {
	if c.Proto != auth.ProtoEd25519 {
		return errors.New("authrpc: ed25519 response does not match conversation protocol")
	}
	pub, sig, err := unpackEd25519Response(data)
	if err != nil {
		return err
	}
	if pub != c.Key.Ed25519PublicKey {
		return errors.New("authrpc: response public key does not match registered key")
	}
	c.Signature = sig
	return authcrypto.VerifySignature(c.Challenge, sig, pub)
}

func (c *Conv) verifyFIDO2Locked(data []byte, authenticator authcrypto.FIDO2Authenticator) error {
	if c.Proto != auth.ProtoFIDO2 {
		return errors.New("authrpc: fido2 response does not match conversation protocol")
	}
	if authenticator == nil {
		return errors.New("authrpc: no fido2 authenticator configured")
	}
	authData, sig, err := unpackFIDO2Response(data)
	if err != nil {
		return err
	}
	c.AuthData = authData
	c.Signature = sig
	return authenticator.VerifySignature(c.AuthID, c.Challenge, authcrypto.Assertion{AuthData: authData, Signature: sig}, c.Key.PublicKey)
}

// Dispatch routes a parsed ctl command to the matching handler. read
// and write commands carry their payload out of band (through the rpc
// file's own Read/Write), so only start is dispatched here; authfs
// calls HandleRead/HandleWrite directly from its file handlers.
func Dispatch(c *Conv, cmd Command, ring *auth.KeyRing, authenticator authcrypto.FIDO2Authenticator) error {
	switch cmd.Verb {
	case "start":
		return c.HandleStart(cmd, ring, authenticator)
	default:
		return errors.Errorf("authrpc: unknown command %q", cmd.Verb)
	}
}
