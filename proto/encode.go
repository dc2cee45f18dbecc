package proto

import (
	"fmt"
)

// wireLen computes the total encoded length of m, size field included,
// without doing the encode. Encode uses this to pre-size its buffer
// exactly once instead of growing it.
func wireLen(m Msg) int {
	switch t := m.(type) {
	case Tversion:
		return HeaderLen + 4 + 2 + len(t.Version)
	case Rversion:
		return HeaderLen + 4 + 2 + len(t.Version)
	case Tauth:
		return HeaderLen + 4 + 2 + len(t.Uname) + 2 + len(t.Aname)
	case Rauth:
		return HeaderLen + QidLen
	case Tattach:
		return HeaderLen + 4 + 4 + 2 + len(t.Uname) + 2 + len(t.Aname)
	case Rattach:
		return HeaderLen + QidLen
	case Rerror:
		return HeaderLen + 2 + len(t.Ename)
	case Tflush:
		return HeaderLen + 2
	case Rflush:
		return HeaderLen
	case Twalk:
		n := HeaderLen + 4 + 4 + 2
		for _, name := range t.Wname {
			n += 2 + len(name)
		}
		return n
	case Rwalk:
		return HeaderLen + 2 + QidLen*len(t.Wqid)
	case Topen:
		return HeaderLen + 4 + 1
	case Ropen:
		return HeaderLen + QidLen + 4
	case Tcreate:
		return HeaderLen + 4 + 2 + len(t.Name) + 4 + 1
	case Rcreate:
		return HeaderLen + QidLen + 4
	case Tread:
		return HeaderLen + 4 + 8 + 4
	case Rread:
		return HeaderLen + 4 + len(t.Data)
	case Twrite:
		return HeaderLen + 4 + 8 + 4 + len(t.Data)
	case Rwrite:
		return HeaderLen + 4
	case Tclunk:
		return HeaderLen + 4
	case Rclunk:
		return HeaderLen
	case Tremove:
		return HeaderLen + 4
	case Rremove:
		return HeaderLen
	case Tstat:
		return HeaderLen + 4
	case Rstat:
		return HeaderLen + wrappedStatLen(t.Stat)
	case Twstat:
		return HeaderLen + 4 + wrappedStatLen(t.Stat)
	case Rwstat:
		return HeaderLen
	default:
		panic(fmt.Sprintf("proto: unknown message type %T", m))
	}
}

// Encode serializes m to its wire representation. It returns an error
// instead of panicking on any bound violation (oversized strings, too
// many walk elements) so that callers building messages from untrusted
// input never need to recover from a panic.
func Encode(m Msg) ([]byte, error) {
	if err := checkBounds(m); err != nil {
		return nil, err
	}
	n := wireLen(m)
	w := newWbuf(n)
	w.pheader(uint32(n), m.Type(), m.Tag())

	switch t := m.(type) {
	case Tversion:
		w.puint32(t.Msize)
		w.pstring(t.Version)
	case Rversion:
		w.puint32(t.Msize)
		w.pstring(t.Version)
	case Tauth:
		w.puint32(uint32(t.Afid))
		w.pstring(t.Uname)
		w.pstring(t.Aname)
	case Rauth:
		w.pqid(t.Aqid)
	case Tattach:
		w.puint32(uint32(t.Fid))
		w.puint32(uint32(t.Afid))
		w.pstring(t.Uname)
		w.pstring(t.Aname)
	case Rattach:
		w.pqid(t.Qid)
	case Rerror:
		w.pstring(t.Ename)
	case Tflush:
		w.puint16(t.Oldtag)
	case Rflush:
	case Twalk:
		w.puint32(uint32(t.Fid))
		w.puint32(uint32(t.Newfid))
		w.puint16(uint16(len(t.Wname)))
		for _, name := range t.Wname {
			w.pstring(name)
		}
	case Rwalk:
		w.puint16(uint16(len(t.Wqid)))
		for _, q := range t.Wqid {
			w.pqid(q)
		}
	case Topen:
		w.puint32(uint32(t.Fid))
		w.puint8(t.Mode)
	case Ropen:
		w.pqid(t.Qid)
		w.puint32(t.Iounit)
	case Tcreate:
		w.puint32(uint32(t.Fid))
		w.pstring(t.Name)
		w.puint32(t.Perm)
		w.puint8(t.Mode)
	case Rcreate:
		w.pqid(t.Qid)
		w.puint32(t.Iounit)
	case Tread:
		w.puint32(uint32(t.Fid))
		w.puint64(t.Offset)
		w.puint32(t.Count)
	case Rread:
		w.puint32(uint32(len(t.Data)))
		w.pbytes(t.Data)
	case Twrite:
		w.puint32(uint32(t.Fid))
		w.puint64(t.Offset)
		w.puint32(uint32(len(t.Data)))
		w.pbytes(t.Data)
	case Rwrite:
		w.puint32(t.Count)
	case Tclunk:
		w.puint32(uint32(t.Fid))
	case Rclunk:
	case Tremove:
		w.puint32(uint32(t.Fid))
	case Rremove:
	case Tstat:
		w.puint32(uint32(t.Fid))
	case Rstat:
		encodeWrappedStat(w, t.Stat)
	case Twstat:
		w.puint32(uint32(t.Fid))
		encodeWrappedStat(w, t.Stat)
	case Rwstat:
	default:
		panic(fmt.Sprintf("proto: unknown message type %T", m))
	}
	return w.b, nil
}

// checkBounds validates the length limits Encode must enforce before
// it commits to a buffer size.
func checkBounds(m Msg) error {
	switch t := m.(type) {
	case Tversion:
		if len(t.Version) > MaxVersionLen {
			return errLongVersion
		}
	case Rversion:
		if len(t.Version) > MaxVersionLen {
			return errLongVersion
		}
	case Tauth:
		if len(t.Uname) > MaxUidLen {
			return errLongUsername
		}
		if len(t.Aname) > MaxAttachLen {
			return errLongAname
		}
	case Tattach:
		if len(t.Uname) > MaxUidLen {
			return errLongUsername
		}
		if len(t.Aname) > MaxAttachLen {
			return errLongAname
		}
	case Rerror:
		if len(t.Ename) > MaxErrorLen {
			return errLongError
		}
	case Twalk:
		if len(t.Wname) > MaxWalk {
			return errMaxWalk
		}
		for _, name := range t.Wname {
			if len(name) > MaxFilenameLen {
				return errLongFilename
			}
		}
	case Rwalk:
		if len(t.Wqid) > MaxWalk {
			return errMaxWalk
		}
	case Tcreate:
		if len(t.Name) > MaxFilenameLen {
			return errLongFilename
		}
	case Rstat:
		if statLen(t.Stat) > MaxStatLen-2 {
			return errLongStat
		}
	case Twstat:
		if statLen(t.Stat) > MaxStatLen-2 {
			return errLongStat
		}
	}
	return nil
}
