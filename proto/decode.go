package proto

import "ninep.dev/ninep"

func fidOf(v uint32) ninep.Fid { return ninep.Fid(v) }

// decodeQidList reads n consecutive 13-byte Qids from r.
func decodeQidList(r *rbuf, n int) []ninep.Qid {
	if n == 0 || r.err != nil {
		return nil
	}
	qs := make([]ninep.Qid, n)
	for i := range qs {
		qs[i] = r.gqid()
	}
	return qs
}

// Decode parses a single 9P message from a buffer that holds exactly
// one message: the first four bytes are the declared size, and the
// buffer's length must equal that size exactly, with no leftover
// bytes and no truncation. On any error it returns a zero Msg (nil)
// so callers can't accidentally act on a partially-decoded value.
func Decode(b []byte) (Msg, error) {
	if len(b) < MinMsgSize {
		return nil, errShortHeader
	}
	size := guint32(b[0:4])
	if int(size) != len(b) {
		return nil, errSizeMismatch
	}
	mtype := b[4]
	r := newRbuf(b[5:])
	tag := r.guint16()

	var m Msg
	switch mtype {
	case msgTversion:
		msize := r.guint32()
		version := r.gstring(MaxVersionLen)
		m = Tversion{MsgTag: tag, Msize: msize, Version: version}
	case msgRversion:
		msize := r.guint32()
		version := r.gstring(MaxVersionLen)
		m = Rversion{MsgTag: tag, Msize: msize, Version: version}
	case msgTauth:
		afid := r.guint32()
		uname := r.gstring(MaxUidLen)
		aname := r.gstring(MaxAttachLen)
		m = Tauth{MsgTag: tag, Afid: fidOf(afid), Uname: uname, Aname: aname}
	case msgRauth:
		aqid := r.gqid()
		m = Rauth{MsgTag: tag, Aqid: aqid}
	case msgTattach:
		fid := r.guint32()
		afid := r.guint32()
		uname := r.gstring(MaxUidLen)
		aname := r.gstring(MaxAttachLen)
		m = Tattach{MsgTag: tag, Fid: fidOf(fid), Afid: fidOf(afid), Uname: uname, Aname: aname}
	case msgRattach:
		qid := r.gqid()
		m = Rattach{MsgTag: tag, Qid: qid}
	case msgRerror:
		ename := r.gstring(MaxErrorLen)
		m = Rerror{MsgTag: tag, Ename: ename}
	case msgTflush:
		oldtag := r.guint16()
		m = Tflush{MsgTag: tag, Oldtag: oldtag}
	case msgRflush:
		m = Rflush{MsgTag: tag}
	case msgTwalk:
		fid := r.guint32()
		newfid := r.guint32()
		nwname := r.guint16()
		if r.err == nil && int(nwname) > MaxWalk {
			r.err = errMaxWalk
		}
		var wname []string
		if r.err == nil && nwname > 0 {
			wname = make([]string, nwname)
			for i := range wname {
				wname[i] = r.gstring(MaxFilenameLen)
			}
		}
		m = Twalk{MsgTag: tag, Fid: fidOf(fid), Newfid: fidOf(newfid), Wname: wname}
	case msgRwalk:
		nwqid := r.guint16()
		if r.err == nil && int(nwqid) > MaxWalk {
			r.err = errMaxWalk
		}
		qs := decodeQidList(r, int(nwqid))
		m = Rwalk{MsgTag: tag, Wqid: qs}
	case msgTopen:
		fid := r.guint32()
		mode := r.guint8()
		m = Topen{MsgTag: tag, Fid: fidOf(fid), Mode: mode}
	case msgRopen:
		qid := r.gqid()
		iounit := r.guint32()
		m = Ropen{MsgTag: tag, Qid: qid, Iounit: iounit}
	case msgTcreate:
		fid := r.guint32()
		name := r.gstring(MaxFilenameLen)
		perm := r.guint32()
		mode := r.guint8()
		m = Tcreate{MsgTag: tag, Fid: fidOf(fid), Name: name, Perm: perm, Mode: mode}
	case msgRcreate:
		qid := r.gqid()
		iounit := r.guint32()
		m = Rcreate{MsgTag: tag, Qid: qid, Iounit: iounit}
	case msgTread:
		fid := r.guint32()
		offset := r.guint64()
		count := r.guint32()
		m = Tread{MsgTag: tag, Fid: fidOf(fid), Offset: offset, Count: count}
	case msgRread:
		count := r.guint32()
		data := r.gbytes(int(count))
		m = Rread{MsgTag: tag, Data: data}
	case msgTwrite:
		fid := r.guint32()
		offset := r.guint64()
		count := r.guint32()
		data := r.gbytes(int(count))
		m = Twrite{MsgTag: tag, Fid: fidOf(fid), Offset: offset, Data: data}
	case msgRwrite:
		count := r.guint32()
		m = Rwrite{MsgTag: tag, Count: count}
	case msgTclunk:
		fid := r.guint32()
		m = Tclunk{MsgTag: tag, Fid: fidOf(fid)}
	case msgRclunk:
		m = Rclunk{MsgTag: tag}
	case msgTremove:
		fid := r.guint32()
		m = Tremove{MsgTag: tag, Fid: fidOf(fid)}
	case msgRremove:
		m = Rremove{MsgTag: tag}
	case msgTstat:
		fid := r.guint32()
		m = Tstat{MsgTag: tag, Fid: fidOf(fid)}
	case msgRstat:
		st := decodeWrappedStat(r)
		m = Rstat{MsgTag: tag, Stat: st}
	case msgTwstat:
		fid := r.guint32()
		st := decodeWrappedStat(r)
		m = Twstat{MsgTag: tag, Fid: fidOf(fid), Stat: st}
	case msgRwstat:
		m = Rwstat{MsgTag: tag}
	default:
		return nil, errInvalidType
	}

	if r.err != nil {
		return nil, r.err
	}
	if !r.drained() {
		return nil, errTrailingBytes
	}
	return m, nil
}
