package proto

import "ninep.dev/ninep"

// Stat describes a directory entry: it is carried in Rstat and Twstat
// messages, and one Stat is returned per directory entry when reading
// the bytes of an open directory.
//
// Type and Dev are implementation-specific fields outside the scope of
// the protocol; this module's backends leave them zero, and the codec
// encodes and decodes them unchanged.
type Stat struct {
	Type   uint16
	Dev    uint32
	Qid    ninep.Qid
	Mode   uint32
	Atime  uint32
	Mtime  uint32
	Length uint64
	Name   string
	Uid    string
	Gid    string
	Muid   string
}

// statLen returns the wire length of s, not including the leading
// 2-byte size field that wraps a Stat inside Rstat/Twstat.
func statLen(s Stat) int {
	return minStatLen - 2 + len(s.Name) + len(s.Uid) + len(s.Gid) + len(s.Muid)
}

// EncodeStat renders s the way it appears in a directory listing: the
// self-describing stat record (its own 2-byte size prefix followed by
// its fields), with none of the extra outer wrapping Rstat/Twstat add.
func EncodeStat(s Stat) []byte {
	w := newWbuf(2 + statLen(s))
	encodeStat(w, s)
	return w.b
}

// DecodeStat reads one self-describing stat record from b, the format
// EncodeStat produces, rejecting any trailing bytes.
func DecodeStat(b []byte) (Stat, error) {
	r := newRbuf(b)
	st := decodeStat(r)
	if r.err != nil {
		return Stat{}, r.err
	}
	if !r.drained() {
		return Stat{}, errTrailingBytes
	}
	return st, nil
}

func encodeStat(w *wbuf, s Stat) {
	w.puint16(uint16(statLen(s)))
	w.puint16(s.Type)
	w.puint32(s.Dev)
	w.pqid(s.Qid)
	w.puint32(s.Mode)
	w.puint32(s.Atime)
	w.puint32(s.Mtime)
	w.puint64(s.Length)
	w.pstring(s.Name)
	w.pstring(s.Uid)
	w.pstring(s.Gid)
	w.pstring(s.Muid)
}

// decodeStat reads one wrapped Stat record (including its leading
// 2-byte size prefix) from r, verifying that the prefix matches the
// number of bytes actually consumed.
func decodeStat(r *rbuf) Stat {
	var s Stat
	start := r.off
	size := r.guint16()
	if r.err != nil {
		return Stat{}
	}
	body := int(start) + 2 + int(size)
	if body > len(r.b) {
		r.err = errShortStat
		return Stat{}
	}
	s.Type = r.guint16()
	s.Dev = r.guint32()
	s.Qid = r.gqid()
	s.Mode = r.guint32()
	s.Atime = r.guint32()
	s.Mtime = r.guint32()
	s.Length = r.guint64()
	s.Name = r.gstring(MaxFilenameLen)
	s.Uid = r.gstring(MaxUidLen)
	s.Gid = r.gstring(MaxUidLen)
	s.Muid = r.gstring(MaxUidLen)
	if r.err != nil {
		return Stat{}
	}
	if r.off != body {
		r.err = errStatSizeMismatch
		return Stat{}
	}
	return s
}

// encodeWrappedStat writes the redundant outer length-prefixed form of
// a Stat used inside Rstat and Twstat bodies: a 2-byte count of the
// stat bytes that follow, then the stat record itself, whose own inner
// size field is two less than the outer count (it does not count
// itself). Real implementations differ on whether they trust the inner
// or outer count; this module always writes them consistently and
// decodeWrappedStat rejects a pair that disagrees.
func encodeWrappedStat(w *wbuf, s Stat) {
	w.puint16(uint16(2 + statLen(s)))
	encodeStat(w, s)
}

func decodeWrappedStat(r *rbuf) Stat {
	outer := r.guint16()
	if r.err != nil {
		return Stat{}
	}
	start := r.off
	s := decodeStat(r)
	if r.err != nil {
		return Stat{}
	}
	if r.off-start != int(outer) {
		r.err = errStatSizeMismatch
		return Stat{}
	}
	return s
}

// wrappedStatLen returns the number of wire bytes a Stat occupies
// inside an Rstat/Twstat body, including both length prefixes.
func wrappedStatLen(s Stat) int {
	return 2 + 2 + statLen(s)
}

// DontTouch reports whether s describes a Twstat request that leaves
// every field unchanged (the all-sentinel "don't touch anything" Stat
// used to e.g. flush a file without altering its metadata).
func (s Stat) DontTouch() bool {
	return s.Type == 0 && s.Dev == 0 &&
		s.Mode == DontTouch32 && s.Atime == DontTouch32 && s.Mtime == DontTouch32 &&
		s.Length == DontTouch64 &&
		s.Name == DontTouchString && s.Uid == DontTouchString &&
		s.Gid == DontTouchString && s.Muid == DontTouchString
}
