// Package client implements the client side of a 9P2000 session:
// version negotiation, attach, multi-hop walk, and the per-call
// request/reply correlation that lets several requests be in flight
// on one connection at once.
package client

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"ninep.dev/ninep"
	"ninep.dev/ninep/internal/pool"
	"ninep.dev/ninep/proto"
)

// DefaultMsize is proposed during Mount if the caller does not
// override it with WithMsize.
const DefaultMsize = 1 << 20

// ioHdrSize is the largest per-message overhead of a Tread/Twrite
// exchange; msize - ioHdrSize is the conventional default iounit when
// a server reports none at open.
const ioHdrSize = 24

// Client is a 9P2000 client session over a single connection. A
// Client must be created with New and mounted with Mount before any
// other method is used.
//
// Multiple goroutines may issue requests on a Client concurrently;
// replies are correlated with requests by tag, the way the protocol
// intends.
type Client struct {
	rwc   io.ReadWriteCloser
	msize uint32

	tags pool.TagPool
	fids pool.FidPool

	mu      sync.Mutex
	pending map[uint16]chan proto.Msg
	closed  bool
	readErr error

	Root   ninep.Fid
	RootQid ninep.Qid
}

// Option configures a Client constructed by New.
type Option func(*Client)

// WithMsize sets the msize a Client proposes during Mount. The server
// may negotiate a smaller value; Client.Msize reports the result.
func WithMsize(msize uint32) Option {
	return func(c *Client) { c.msize = msize }
}

// New creates a Client that will speak 9P2000 over rwc. Call Mount
// before issuing any other request.
func New(rwc io.ReadWriteCloser, opts ...Option) *Client {
	c := &Client{
		rwc:     rwc,
		msize:   DefaultMsize,
		pending: make(map[uint16]chan proto.Msg),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Msize returns the negotiated maximum message size. It is only
// meaningful after a successful Mount.
func (c *Client) Msize() uint32 { return c.msize }

// Mount negotiates the protocol version and attaches to the tree
// named aname on behalf of uname, binding Client.Root to the root of
// that tree. afid, if not ninep.NoFid, names a completed
// authentication conversation (see Auth).
func (c *Client) Mount(ctx context.Context, afid ninep.Fid, uname, aname string) error {
	go c.readLoop()

	rv, err := c.call(ctx, proto.Tversion{MsgTag: ninep.NoTag, Msize: c.msize, Version: "9P2000"})
	if err != nil {
		return errors.Wrap(err, "client: version")
	}
	version, ok := rv.(proto.Rversion)
	if !ok {
		return errors.Errorf("client: unexpected reply to Tversion: %T", rv)
	}
	if version.Version != "9P2000" {
		return errors.Errorf("client: server rejected version 9P2000: %q", version.Version)
	}
	if version.Msize > c.msize {
		return errors.Errorf("client: server proposed larger msize %d than requested %d", version.Msize, c.msize)
	}
	c.msize = version.Msize

	fid, ok := c.fids.Get()
	if !ok {
		return errors.New("client: fid pool exhausted")
	}
	ra, err := c.call(ctx, proto.Tattach{
		MsgTag: 0, Fid: ninep.Fid(fid), Afid: afid, Uname: uname, Aname: aname,
	})
	if err != nil {
		return errors.Wrap(err, "client: attach")
	}
	attach, ok := ra.(proto.Rattach)
	if !ok {
		if rerr, ok := ra.(proto.Rerror); ok {
			return errors.Errorf("client: attach: %s", rerr.Ename)
		}
		return errors.Errorf("client: unexpected reply to Tattach: %T", ra)
	}
	c.Root = ninep.Fid(fid)
	c.RootQid = attach.Qid
	return nil
}

// Auth begins an authentication conversation before Mount, returning
// the fid bound to it. The caller drives the conversation by reading
// and writing the returned fid with Read/Write, then passes the fid
// to Mount as afid once the server reports it done.
func (c *Client) Auth(ctx context.Context, uname, aname string) (ninep.Fid, ninep.Qid, error) {
	fid, ok := c.fids.Get()
	if !ok {
		return 0, ninep.Qid{}, errors.New("client: fid pool exhausted")
	}
	reply, err := c.call(ctx, proto.Tauth{MsgTag: 0, Afid: ninep.Fid(fid), Uname: uname, Aname: aname})
	if err != nil {
		return 0, ninep.Qid{}, err
	}
	ra, ok := reply.(proto.Rauth)
	if !ok {
		return 0, ninep.Qid{}, replyError(reply)
	}
	return ninep.Fid(fid), ra.Aqid, nil
}

// Walk binds a new fid to the file named by the slash-separated path
// relative to from, performing as many Twalk round-trips as needed to
// stay within proto.MaxWalk elements per message. It returns the new
// fid and the qid of the last element walked; the qids of
// intermediate elements are not returned.
func (c *Client) Walk(ctx context.Context, from ninep.Fid, path string) (ninep.Fid, ninep.Qid, error) {
	newfid, ok := c.fids.Get()
	if !ok {
		return 0, ninep.Qid{}, errors.New("client: fid pool exhausted")
	}
	names := splitPath(path)
	if len(names) == 0 {
		// A zero-element Twalk duplicates from onto newfid without
		// returning any qids, so the qid of the duplicate is whatever
		// from currently names.
		reply, err := c.call(ctx, proto.Twalk{MsgTag: 0, Fid: from, Newfid: ninep.Fid(newfid), Wname: nil})
		if err != nil {
			return 0, ninep.Qid{}, err
		}
		if _, ok := reply.(proto.Rwalk); !ok {
			c.fids.Free(newfid)
			return 0, ninep.Qid{}, replyError(reply)
		}
		qid := c.RootQid
		if from != c.Root {
			if st, err := c.Stat(ctx, ninep.Fid(newfid)); err == nil {
				qid = st.Qid
			}
		}
		return ninep.Fid(newfid), qid, nil
	}

	fid := from
	var lastQid ninep.Qid
	bound := false
	for len(names) > 0 {
		chunk := names
		if len(chunk) > proto.MaxWalk {
			chunk = chunk[:proto.MaxWalk]
		}
		target := ninep.Fid(newfid)
		reply, err := c.call(ctx, proto.Twalk{MsgTag: 0, Fid: fid, Newfid: target, Wname: chunk})
		if err != nil {
			if bound {
				c.Clunk(ctx, ninep.Fid(newfid))
			} else {
				c.fids.Free(newfid)
			}
			return 0, ninep.Qid{}, err
		}
		rw, ok := reply.(proto.Rwalk)
		if !ok {
			if bound {
				c.Clunk(ctx, ninep.Fid(newfid))
			} else {
				c.fids.Free(newfid)
			}
			return 0, ninep.Qid{}, replyError(reply)
		}
		if len(rw.Wqid) < len(chunk) {
			if bound {
				c.Clunk(ctx, ninep.Fid(newfid))
			} else {
				c.fids.Free(newfid)
			}
			return 0, ninep.Qid{}, errors.Errorf("client: walk: %q not found", strings.Join(names, "/"))
		}
		lastQid = rw.Wqid[len(rw.Wqid)-1]
		fid = ninep.Fid(newfid)
		bound = true
		names = names[len(chunk):]
	}
	return ninep.Fid(newfid), lastQid, nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Open issues Topen for fid under the given 9P open mode.
func (c *Client) Open(ctx context.Context, fid ninep.Fid, mode uint8) (ninep.Qid, uint32, error) {
	reply, err := c.call(ctx, proto.Topen{MsgTag: 0, Fid: fid, Mode: mode})
	if err != nil {
		return ninep.Qid{}, 0, err
	}
	ro, ok := reply.(proto.Ropen)
	if !ok {
		return ninep.Qid{}, 0, replyError(reply)
	}
	return ro.Qid, ro.Iounit, nil
}

// Create issues Tcreate, creating name inside the directory fid and
// leaving fid bound to the new file, open under mode.
func (c *Client) Create(ctx context.Context, fid ninep.Fid, name string, perm uint32, mode uint8) (ninep.Qid, uint32, error) {
	reply, err := c.call(ctx, proto.Tcreate{MsgTag: 0, Fid: fid, Name: name, Perm: perm, Mode: mode})
	if err != nil {
		return ninep.Qid{}, 0, err
	}
	rc, ok := reply.(proto.Rcreate)
	if !ok {
		return ninep.Qid{}, 0, replyError(reply)
	}
	return rc.Qid, rc.Iounit, nil
}

// Read reads up to len(p) bytes from fid at offset, issuing one Tread
// per msize-bounded chunk until p is full or the server returns fewer
// bytes than requested (the short-read-means-EOF 9P convention). A
// zero-byte reply returns io.EOF.
func (c *Client) Read(ctx context.Context, fid ninep.Fid, offset uint64, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		count := len(p) - total
		if max := int(c.msize) - ioHdrSize; count > max {
			count = max
		}
		reply, err := c.call(ctx, proto.Tread{MsgTag: 0, Fid: fid, Offset: offset + uint64(total), Count: uint32(count)})
		if err != nil {
			return total, err
		}
		rr, ok := reply.(proto.Rread)
		if !ok {
			return total, replyError(reply)
		}
		n := copy(p[total:], rr.Data)
		total += n
		if n == 0 {
			return total, io.EOF
		}
		if n < count {
			return total, nil
		}
	}
	return total, nil
}

// Write writes all of p to fid at offset, looping across multiple
// Twrite messages if p is larger than a single message can carry.
func (c *Client) Write(ctx context.Context, fid ninep.Fid, offset uint64, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		chunk := p[total:]
		if max := int(c.msize) - ioHdrSize; len(chunk) > max {
			chunk = chunk[:max]
		}
		reply, err := c.call(ctx, proto.Twrite{MsgTag: 0, Fid: fid, Offset: offset + uint64(total), Data: chunk})
		if err != nil {
			return total, err
		}
		rw, ok := reply.(proto.Rwrite)
		if !ok {
			return total, replyError(reply)
		}
		if rw.Count == 0 {
			return total, errors.New("client: short write")
		}
		total += int(rw.Count)
	}
	return total, nil
}

// Stat issues Tstat for fid.
func (c *Client) Stat(ctx context.Context, fid ninep.Fid) (proto.Stat, error) {
	reply, err := c.call(ctx, proto.Tstat{MsgTag: 0, Fid: fid})
	if err != nil {
		return proto.Stat{}, err
	}
	rs, ok := reply.(proto.Rstat)
	if !ok {
		return proto.Stat{}, replyError(reply)
	}
	return rs.Stat, nil
}

// Wstat issues Twstat for fid. Fields of st left at their "don't
// touch" sentinel values are left unchanged on the server.
func (c *Client) Wstat(ctx context.Context, fid ninep.Fid, st proto.Stat) error {
	reply, err := c.call(ctx, proto.Twstat{MsgTag: 0, Fid: fid, Stat: st})
	if err != nil {
		return err
	}
	if _, ok := reply.(proto.Rwstat); !ok {
		return replyError(reply)
	}
	return nil
}

// Clunk releases fid without affecting the underlying file, and
// returns the fid to the pool for reuse.
func (c *Client) Clunk(ctx context.Context, fid ninep.Fid) error {
	reply, err := c.call(ctx, proto.Tclunk{MsgTag: 0, Fid: fid})
	c.fids.Free(uint32(fid))
	if err != nil {
		return err
	}
	if _, ok := reply.(proto.Rclunk); !ok {
		return replyError(reply)
	}
	return nil
}

// Remove deletes the file named by fid and clunks it, regardless of
// whether the remove itself succeeded (matching the 9P rule that
// Tremove always consumes the fid).
func (c *Client) Remove(ctx context.Context, fid ninep.Fid) error {
	reply, err := c.call(ctx, proto.Tremove{MsgTag: 0, Fid: fid})
	c.fids.Free(uint32(fid))
	if err != nil {
		return err
	}
	if _, ok := reply.(proto.Rremove); !ok {
		return replyError(reply)
	}
	return nil
}

// Close closes the underlying connection and fails every call still
// awaiting a reply.
func (c *Client) Close() error {
	return c.rwc.Close()
}

func replyError(m proto.Msg) error {
	if re, ok := m.(proto.Rerror); ok {
		return errors.New(re.Ename)
	}
	return errors.Errorf("client: unexpected reply type %T", m)
}

// call allocates a tag, sends req with that tag, and waits for the
// matching reply or ctx cancellation.
func (c *Client) call(ctx context.Context, req proto.Msg) (proto.Msg, error) {
	var tag uint16
	if _, ok := req.(proto.Tversion); ok {
		tag = ninep.NoTag
	} else {
		t, ok := c.tags.Get()
		if !ok {
			return nil, errors.New("client: tag pool exhausted")
		}
		tag = t
		defer c.tags.Free(tag)
	}
	req = retag(req, tag)

	ch := make(chan proto.Msg, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, c.readErr
	}
	c.pending[tag] = ch
	c.mu.Unlock()

	if err := proto.WriteMsg(c.rwc, req); err != nil {
		c.mu.Lock()
		delete(c.pending, tag)
		c.mu.Unlock()
		return nil, errors.Wrap(err, "client: write request")
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			c.mu.Lock()
			err := c.readErr
			c.mu.Unlock()
			if err == nil {
				err = errors.New("client: connection closed")
			}
			return nil, err
		}
		return reply, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, tag)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// readLoop reads replies from the connection for the lifetime of the
// Client, dispatching each to the goroutine awaiting its tag.
func (c *Client) readLoop() {
	for {
		m, err := proto.ReadMsg(c.rwc)
		if err != nil {
			c.mu.Lock()
			c.closed = true
			c.readErr = err
			pending := c.pending
			c.pending = nil
			c.mu.Unlock()
			for _, ch := range pending {
				close(ch)
			}
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[m.Tag()]
		if ok {
			delete(c.pending, m.Tag())
		}
		c.mu.Unlock()
		if ok {
			ch <- m
		}
	}
}
