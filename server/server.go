// Package server implements the server side of a 9P2000 session: the
// per-connection fid table, request dispatch, and directory-read
// continuation on top of a pluggable Backend.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ninep.dev/ninep"
	"ninep.dev/ninep/proto"
)

// DefaultMsize is used when a client does not negotiate a smaller one.
const DefaultMsize = 1 << 20

// MinMsize is the smallest msize a Session will negotiate down to.
const MinMsize = 4096

// Session serves 9P requests from a single client connection against
// a Backend. A Session must be created with NewSession.
type Session struct {
	rwc     io.ReadWriteCloser
	backend Backend
	log     zerolog.Logger

	msize   uint32
	version string

	fids *fidTable

	mu      sync.Mutex
	pending map[uint16]context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger a Session uses for diagnostic messages.
// The zero value logs nothing.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// NewSession creates a Session that serves requests on rwc against
// backend, until rwc is closed or Serve returns.
func NewSession(rwc io.ReadWriteCloser, backend Backend, opts ...Option) *Session {
	s := &Session{
		rwc:     rwc,
		backend: backend,
		log:     zerolog.Nop(),
		msize:   DefaultMsize,
		fids:    newFidTable(),
		pending: make(map[uint16]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve reads and answers requests until the connection is closed or
// ctx is canceled. It always returns a non-nil error (io.EOF on a
// clean close).
func (s *Session) Serve(ctx context.Context) error {
	defer s.fids.closeAll()
	defer s.rwc.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		m, err := proto.ReadMsg(s.rwc)
		if err != nil {
			// ReadMsg wraps its read errors; unwrap a clean close so
			// callers can compare against io.EOF directly.
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return err
		}
		if s.version != "" && m.Len() > int64(s.msize) {
			s.reply(proto.Rerror{MsgTag: m.Tag(), Ename: "message exceeds msize"})
			return errMsizeExceeded
		}
		s.dispatch(ctx, m)
	}
}

func (s *Session) reply(m proto.Msg) {
	if err := proto.WriteMsg(s.rwc, m); err != nil {
		s.log.Debug().Err(err).Msg("write reply failed")
	}
}

func (s *Session) dispatch(ctx context.Context, m proto.Msg) {
	s.log.Debug().Str("type", proto.TypeName(m.Type())).Uint16("tag", m.Tag()).Msg("request")
	if tv, ok := m.(proto.Tversion); ok {
		s.negotiateVersion(tv)
		return
	}
	if s.version == "" {
		s.reply(proto.Rerror{MsgTag: m.Tag(), Ename: "Tversion required"})
		return
	}

	// Tflush needs to see the pending-request table before a new
	// entry is registered for it, so it bypasses trackTag.
	if fl, ok := m.(proto.Tflush); ok {
		s.handleFlush(fl)
		return
	}

	done := s.trackTag(ctx, m.Tag())
	defer done()

	switch req := m.(type) {
	case proto.Tauth:
		s.reply(proto.Rerror{MsgTag: req.MsgTag, Ename: "authentication not required"})
	case proto.Tattach:
		s.handleAttach(req)
	case proto.Twalk:
		s.handleWalk(req)
	case proto.Topen:
		s.handleOpen(req)
	case proto.Tcreate:
		s.handleCreate(req)
	case proto.Tread:
		s.handleRead(req)
	case proto.Twrite:
		s.handleWrite(req)
	case proto.Tclunk:
		s.handleClunk(req)
	case proto.Tremove:
		s.handleRemove(req)
	case proto.Tstat:
		s.handleStat(req)
	case proto.Twstat:
		s.handleWstat(req)
	default:
		s.reply(proto.Rerror{MsgTag: m.Tag(), Ename: "unexpected message type"})
	}
}

func (s *Session) negotiateVersion(m proto.Tversion) {
	// Version negotiation resets the session: every fid still bound
	// is clunked before the reply goes out.
	s.fids.closeAll()

	msize := m.Msize
	if msize > s.msize {
		msize = s.msize
	}
	if msize < MinMsize {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "msize too small"})
		return
	}
	s.msize = msize
	if m.Version == "9P2000" {
		s.version = "9P2000"
		s.reply(proto.Rversion{MsgTag: ninep.NoTag, Msize: s.msize, Version: "9P2000"})
	} else {
		s.version = ""
		s.reply(proto.Rversion{MsgTag: ninep.NoTag, Msize: s.msize, Version: "unknown"})
	}
}

func (s *Session) handleFlush(m proto.Tflush) {
	s.mu.Lock()
	cancel, ok := s.pending[m.Oldtag]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	s.reply(proto.Rflush{MsgTag: m.MsgTag})
}

// trackTag registers a cancel func for the request identified by tag
// in the pending table that handleFlush consults, and returns a func
// to unregister it once the request completes. The derived context is
// not passed to the Backend, and Serve handles one request at a time,
// so a Tflush never interrupts a request: it is answered with Rflush
// after the request it names has already been answered.
func (s *Session) trackTag(ctx context.Context, tag uint16) func() {
	_, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.pending[tag] = cancel
	s.mu.Unlock()
	return func() {
		cancel()
		s.mu.Lock()
		delete(s.pending, tag)
		s.mu.Unlock()
	}
}

func (s *Session) handleAttach(m proto.Tattach) {
	path, qid, err := s.backend.Attach(m.Uname, m.Aname)
	if err != nil {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: err.Error()})
		return
	}
	if !s.fids.add(m.Fid, &fidAux{path: path, qid: qid}) {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "fid already in use"})
		return
	}
	s.reply(proto.Rattach{MsgTag: m.MsgTag, Qid: qid})
}

func (s *Session) handleWalk(m proto.Twalk) {
	aux, ok := s.fids.get(m.Fid)
	if !ok {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "unknown fid"})
		return
	}
	if aux.opened {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "fid is open"})
		return
	}

	path, qid := aux.path, aux.qid
	wqid := make([]ninep.Qid, 0, len(m.Wname))
	for _, name := range m.Wname {
		newpath, newqid, err := s.backend.Walk(path, name)
		if err != nil {
			break
		}
		path, qid = newpath, newqid
		wqid = append(wqid, qid)
	}

	if len(m.Wname) > 0 && len(wqid) == 0 {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "file does not exist"})
		return
	}
	if len(wqid) == len(m.Wname) {
		newAux := &fidAux{path: path, qid: qid}
		if m.Newfid == m.Fid {
			s.fids.clunk(m.Fid)
			s.fids.add(m.Newfid, newAux)
		} else if !s.fids.add(m.Newfid, newAux) {
			s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "newfid already in use"})
			return
		}
	}
	s.reply(proto.Rwalk{MsgTag: m.MsgTag, Wqid: wqid})
}

func (s *Session) handleOpen(m proto.Topen) {
	aux, ok := s.fids.get(m.Fid)
	if !ok {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "unknown fid"})
		return
	}
	if aux.opened {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "fid already open"})
		return
	}
	h, d, qid, iounit, err := s.backend.Open(aux.path, m.Mode)
	if err != nil {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: err.Error()})
		return
	}
	aux.handle, aux.dir, aux.qid, aux.openMode, aux.opened = h, d, qid, m.Mode, true
	s.reply(proto.Ropen{MsgTag: m.MsgTag, Qid: qid, Iounit: iounit})
}

func (s *Session) handleCreate(m proto.Tcreate) {
	aux, ok := s.fids.get(m.Fid)
	if !ok {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "unknown fid"})
		return
	}
	if aux.opened {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "fid is open"})
		return
	}
	newpath, h, d, qid, iounit, err := s.backend.Create(aux.path, m.Name, m.Perm, m.Mode)
	if err != nil {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: err.Error()})
		return
	}
	aux.path, aux.handle, aux.dir, aux.qid, aux.openMode, aux.opened = newpath, h, d, qid, m.Mode, true
	s.reply(proto.Rcreate{MsgTag: m.MsgTag, Qid: qid, Iounit: iounit})
}

func (s *Session) handleRead(m proto.Tread) {
	aux, ok := s.fids.get(m.Fid)
	if !ok {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "unknown fid"})
		return
	}
	if !aux.opened {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "fid not open"})
		return
	}
	max := int(m.Count)
	if headroom := int(s.msize) - proto.HeaderLen - 4; max > headroom {
		max = headroom
	}

	if aux.qid.IsDir() {
		if aux.dir == nil {
			s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "not a directory handle"})
			return
		}
		data, err := aux.dir.ReadDir(m.Offset, max)
		if err != nil {
			s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: err.Error()})
			return
		}
		s.reply(proto.Rread{MsgTag: m.MsgTag, Data: data})
		return
	}

	buf := make([]byte, max)
	n, err := aux.handle.ReadAt(buf, int64(m.Offset))
	if err != nil && err != io.EOF {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: err.Error()})
		return
	}
	s.reply(proto.Rread{MsgTag: m.MsgTag, Data: buf[:n]})
}

func (s *Session) handleWrite(m proto.Twrite) {
	aux, ok := s.fids.get(m.Fid)
	if !ok {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "unknown fid"})
		return
	}
	if !aux.opened || aux.handle == nil {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "fid not open for writing"})
		return
	}
	n, err := aux.handle.WriteAt(m.Data, int64(m.Offset))
	if err != nil {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: err.Error()})
		return
	}
	s.reply(proto.Rwrite{MsgTag: m.MsgTag, Count: uint32(n)})
}

func (s *Session) handleClunk(m proto.Tclunk) {
	aux, ok := s.fids.clunk(m.Fid)
	if !ok {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "unknown fid"})
		return
	}
	if aux.handle != nil {
		aux.handle.Close()
	}
	if aux.dir != nil {
		aux.dir.Close()
	}
	s.reply(proto.Rclunk{MsgTag: m.MsgTag})
}

func (s *Session) handleRemove(m proto.Tremove) {
	aux, ok := s.fids.clunk(m.Fid)
	if !ok {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "unknown fid"})
		return
	}
	if aux.handle != nil {
		aux.handle.Close()
	}
	if aux.dir != nil {
		aux.dir.Close()
	}
	if err := s.backend.Remove(aux.path); err != nil {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: err.Error()})
		return
	}
	s.reply(proto.Rremove{MsgTag: m.MsgTag})
}

func (s *Session) handleStat(m proto.Tstat) {
	aux, ok := s.fids.get(m.Fid)
	if !ok {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "unknown fid"})
		return
	}
	st, err := s.backend.Stat(aux.path)
	if err != nil {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: err.Error()})
		return
	}
	s.reply(proto.Rstat{MsgTag: m.MsgTag, Stat: st})
}

func (s *Session) handleWstat(m proto.Twstat) {
	aux, ok := s.fids.get(m.Fid)
	if !ok {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: "unknown fid"})
		return
	}
	if err := s.backend.Wstat(aux.path, m.Stat); err != nil {
		s.reply(proto.Rerror{MsgTag: m.MsgTag, Ename: err.Error()})
		return
	}
	if m.Stat.Name != proto.DontTouchString {
		// A wstat rename moves the file within its parent; the fid
		// keeps naming it, so its path must follow.
		if i := strings.LastIndexByte(aux.path, '/'); i >= 0 {
			aux.path = aux.path[:i+1] + m.Stat.Name
		} else {
			aux.path = m.Stat.Name
		}
	}
	s.reply(proto.Rwstat{MsgTag: m.MsgTag})
}

var errMsizeExceeded = errors.New("message exceeds negotiated msize")

// Listen accepts connections on l and serves each one against a fresh
// Backend built by newBackend, until ctx is canceled or l.Accept fails
// permanently. It supervises connection goroutines with an errgroup so
// shutdown can wait for every in-flight connection to finish.
func Listen(ctx context.Context, l net.Listener, newBackend func() Backend, opts ...Option) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return l.Close()
	})
	g.Go(func() error {
		for {
			conn, err := l.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			g.Go(func() error {
				sess := NewSession(conn, newBackend(), opts...)
				err := sess.Serve(ctx)
				if err == io.EOF || ctx.Err() != nil {
					return nil
				}
				return err
			})
		}
	})
	return g.Wait()
}
