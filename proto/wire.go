package proto

import (
	"encoding/binary"
	"math"

	"ninep.dev/ninep"
)

// Shorthand for parsing numbers, kept close to the byte layout they
// describe rather than spelled out at each call site.
var (
	guint16 = binary.LittleEndian.Uint16
	guint32 = binary.LittleEndian.Uint32
	guint64 = binary.LittleEndian.Uint64

	buint16 = binary.LittleEndian.PutUint16
	buint32 = binary.LittleEndian.PutUint32
	buint64 = binary.LittleEndian.PutUint64
)

// wbuf is an append-only byte-packing cursor used by each message's
// encode method. The caller pre-sizes buf to the exact wire length of
// the message (computed by wireLen) so none of the p* helpers below
// ever need to grow it.
type wbuf struct {
	b []byte
}

func newWbuf(n int) *wbuf {
	return &wbuf{b: make([]byte, 0, n)}
}

func (w *wbuf) puint8(v uint8) {
	w.b = append(w.b, v)
}

func (w *wbuf) puint16(v uint16) {
	var tmp [2]byte
	buint16(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
}

func (w *wbuf) puint32(v uint32) {
	var tmp [4]byte
	buint32(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
}

func (w *wbuf) puint64(v uint64) {
	var tmp [8]byte
	buint64(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
}

func (w *wbuf) pbytes(p []byte) {
	w.b = append(w.b, p...)
}

func (w *wbuf) pstring(s string) {
	if len(s) > math.MaxUint16 {
		panic(errLongString)
	}
	w.puint16(uint16(len(s)))
	w.b = append(w.b, s...)
}

func (w *wbuf) pqid(q ninep.Qid) {
	w.puint8(q.Type)
	w.puint32(q.Version)
	w.puint64(q.Path)
}

func (w *wbuf) pheader(size uint32, mtype uint8, tag uint16) {
	w.puint32(size)
	w.puint8(mtype)
	w.puint16(tag)
}

// rbuf is a read cursor over a decode buffer. Every method that would
// run past the end of the buffer sets err and returns the zero value,
// so callers can chain several reads and check err once at the end.
type rbuf struct {
	b   []byte
	off int
	err error
}

func newRbuf(b []byte) *rbuf {
	return &rbuf{b: b}
}

func (r *rbuf) remaining() int {
	return len(r.b) - r.off
}

func (r *rbuf) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.remaining() < n {
		r.err = errShortBuffer
		return false
	}
	return true
}

func (r *rbuf) guint8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.b[r.off]
	r.off++
	return v
}

func (r *rbuf) guint16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := guint16(r.b[r.off:])
	r.off += 2
	return v
}

func (r *rbuf) guint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := guint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *rbuf) guint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := guint64(r.b[r.off:])
	r.off += 8
	return v
}

func (r *rbuf) gbytes(n int) []byte {
	if n == 0 || !r.need(n) {
		return nil
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p
}

// gstring reads a 2-byte length prefix followed by that many bytes,
// enforcing max as the largest permitted string length.
func (r *rbuf) gstring(max int) string {
	n := int(r.guint16())
	if r.err != nil {
		return ""
	}
	if n > max {
		r.err = errLongString
		return ""
	}
	p := r.gbytes(n)
	if r.err != nil {
		return ""
	}
	return string(p)
}

func (r *rbuf) gqid() ninep.Qid {
	var q ninep.Qid
	q.Type = r.guint8()
	q.Version = r.guint32()
	q.Path = r.guint64()
	return q
}

// drained reports whether the cursor consumed exactly the whole buffer,
// the condition Decode requires of every message.
func (r *rbuf) drained() bool {
	return r.err == nil && r.off == len(r.b)
}
