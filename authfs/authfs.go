// Package authfs exposes the authentication coprocessor itself as a
// 9P server: a fixed four-file tree, /ctl /rpc /log /key, that lets a
// client register credentials, drive a challenge/response
// conversation, and audit both the event trail and the registered
// key-ring, all without any host filesystem underneath it.
package authfs

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"ninep.dev/ninep"
	"ninep.dev/ninep/auth"
	"ninep.dev/ninep/authcrypto"
	"ninep.dev/ninep/internal/qidpool"
	"ninep.dev/ninep/proto"
	"ninep.dev/ninep/server"
)

// The four files exposed directly under the served root. Paths are
// the backend-relative names server.Session threads back through
// Walk/Open/etc; there is no nesting below the root.
const (
	pathRoot = ""
	pathCtl  = "ctl"
	pathRpc  = "rpc"
	pathLog  = "log"
	pathKey  = "key"
)

var rootNames = []string{pathCtl, pathRpc, pathLog, pathKey}

// Backend implements server.Backend over the auth coprocessor's
// key-ring and conversation engine. A Backend must be created with
// New.
type Backend struct {
	ring          *auth.KeyRing
	authenticator authcrypto.FIDO2Authenticator
	keyPath       string
	qids          *qidpool.Pool
	log           *eventLog

	tagMu   sync.Mutex
	nextTag uint64
}

// Option configures a Backend constructed by New.
type Option func(*Backend)

// WithFIDO2Authenticator sets the authenticator used for fido2
// conversations. Without this option, fido2 conversations fail; Ed25519
// conversations never need it.
func WithFIDO2Authenticator(a authcrypto.FIDO2Authenticator) Option {
	return func(b *Backend) { b.authenticator = a }
}

// WithKeyRingFile enables the ctl "save" command, persisting the ring
// to path in its text serialization each time "save" is written to
// /ctl. Other ctl commands do not write the file.
func WithKeyRingFile(path string) Option {
	return func(b *Backend) { b.keyPath = path }
}

// WithLogCapacity overrides the number of entries the /log ring buffer
// retains (default 256).
func WithLogCapacity(n int) Option {
	return func(b *Backend) { b.log = newEventLog(n) }
}

// New creates a Backend serving ring over 9P. ring must not be nil; a
// freshly constructed auth.NewKeyRing is fine.
func New(ring *auth.KeyRing, opts ...Option) *Backend {
	b := &Backend{
		ring: ring,
		qids: qidpool.New(),
		log:  newEventLog(256),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.qids.LoadOrStoreQid(pathRoot, ninep.Qid{Type: ninep.QTDIR, Path: 0})
	for i, name := range rootNames {
		b.qids.LoadOrStoreQid(name, ninep.Qid{Type: ninep.QTFILE, Path: uint64(i + 1)})
	}
	return b
}

func (b *Backend) allocTag() uint64 {
	b.tagMu.Lock()
	defer b.tagMu.Unlock()
	b.nextTag++
	return b.nextTag
}

// Attach binds the root of the four-file tree.
func (b *Backend) Attach(uname, aname string) (string, ninep.Qid, error) {
	qid, _ := b.qids.Load(pathRoot)
	return pathRoot, qid, nil
}

// Walk resolves a single path element, which must name one of the
// root's four children (the tree has no further nesting).
func (b *Backend) Walk(path, name string) (string, ninep.Qid, error) {
	if name == "." {
		qid, ok := b.qids.Load(path)
		if !ok {
			return "", ninep.Qid{}, errors.Errorf("authfs: %s: no such file", path)
		}
		return path, qid, nil
	}
	if path != pathRoot {
		return "", ninep.Qid{}, errors.Errorf("authfs: %s: not a directory", path)
	}
	for _, n := range rootNames {
		if n == name {
			qid, _ := b.qids.Load(n)
			return n, qid, nil
		}
	}
	return "", ninep.Qid{}, errors.Errorf("authfs: %s: no such file", name)
}

func fileMode(path string) uint32 {
	switch path {
	case pathCtl:
		return 0200
	case pathRpc:
		return 0600
	case pathLog, pathKey:
		return 0400
	default:
		return 0
	}
}

func (b *Backend) fileLen(path string) uint64 {
	switch path {
	case pathKey:
		return uint64(len(b.ring.Save()))
	case pathLog:
		return uint64(len(b.log.Bytes()))
	default:
		return 0
	}
}

// Stat reports synthetic metadata: the root is a directory owned by
// "auth", mode 0555; /ctl is write-only, /rpc read-write, /log and
// /key read-only.
func (b *Backend) Stat(path string) (proto.Stat, error) {
	qid, ok := b.qids.Load(path)
	if !ok {
		return proto.Stat{}, errors.Errorf("authfs: %s: no such file", path)
	}
	now := uint32(time.Now().Unix())
	if path == pathRoot {
		return proto.Stat{
			Qid: qid, Mode: ninep.DMDIR | 0555,
			Atime: now, Mtime: now,
			Name: "/", Uid: "auth", Gid: "auth", Muid: "auth",
		}, nil
	}
	return proto.Stat{
		Qid: qid, Mode: fileMode(path),
		Atime: now, Mtime: now,
		Length: b.fileLen(path),
		Name:   path, Uid: "auth", Gid: "auth", Muid: "auth",
	}, nil
}

// Wstat is unsupported: every field of every file here is synthesized
// on read, so there is nothing to persist a metadata change into.
func (b *Backend) Wstat(path string, st proto.Stat) error {
	return errors.New("authfs: metadata is read-only")
}

// Open services Topen for each of the four files plus the root
// directory listing. A fresh /rpc open always starts a brand new
// conversation: one conversation per open fid.
func (b *Backend) Open(path string, mode uint8) (server.FileHandle, server.DirIter, ninep.Qid, uint32, error) {
	qid, ok := b.qids.Load(path)
	if !ok {
		return nil, nil, ninep.Qid{}, 0, errors.Errorf("authfs: %s: no such file", path)
	}
	switch path {
	case pathRoot:
		return nil, newRootDirIter(b), qid, 0, nil
	case pathCtl:
		return &ctlHandle{fs: b}, nil, qid, 0, nil
	case pathRpc:
		tag := b.allocTag()
		return &rpcHandle{fs: b, conv: newConv(tag)}, nil, qid, 0, nil
	case pathLog:
		return &logHandle{fs: b}, nil, qid, 0, nil
	case pathKey:
		return &keyHandle{fs: b}, nil, qid, 0, nil
	default:
		return nil, nil, ninep.Qid{}, 0, errors.Errorf("authfs: %s: no such file", path)
	}
}

// Create is unsupported: the tree's four files are fixed at
// construction.
func (b *Backend) Create(path, name string, perm uint32, mode uint8) (string, server.FileHandle, server.DirIter, ninep.Qid, uint32, error) {
	return "", nil, nil, ninep.Qid{}, 0, errors.New("authfs: file creation not supported")
}

// Remove is unsupported for the same reason as Create.
func (b *Backend) Remove(path string) error {
	return errors.New("authfs: file removal not supported")
}
