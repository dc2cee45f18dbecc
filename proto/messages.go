package proto

import (
	"fmt"

	"ninep.dev/ninep"
)

// Msg is any 9P2000 message. Every concrete type below implements it.
type Msg interface {
	// Type returns the wire message type number.
	Type() uint8
	// Tag is the transaction identifier that pairs a reply with the
	// request it answers. Tversion/Rversion always use ninep.NoTag.
	Tag() uint16
	// Len returns the encoded length of the message in bytes,
	// including the 4-byte size field itself.
	Len() int64
}

type Tversion struct {
	MsgTag  uint16
	Msize   uint32
	Version string
}

func (m Tversion) Type() uint8 { return msgTversion }
func (m Tversion) Tag() uint16 { return m.MsgTag }
func (m Tversion) Len() int64  { return int64(wireLen(m)) }
func (m Tversion) String() string {
	return fmt.Sprintf("Tversion tag=%d msize=%d version=%q", m.MsgTag, m.Msize, m.Version)
}

type Rversion struct {
	MsgTag  uint16
	Msize   uint32
	Version string
}

func (m Rversion) Type() uint8 { return msgRversion }
func (m Rversion) Tag() uint16 { return m.MsgTag }
func (m Rversion) Len() int64  { return int64(wireLen(m)) }
func (m Rversion) String() string {
	return fmt.Sprintf("Rversion tag=%d msize=%d version=%q", m.MsgTag, m.Msize, m.Version)
}

type Tauth struct {
	MsgTag uint16
	Afid   ninep.Fid
	Uname  string
	Aname  string
}

func (m Tauth) Type() uint8 { return msgTauth }
func (m Tauth) Tag() uint16 { return m.MsgTag }
func (m Tauth) Len() int64  { return int64(wireLen(m)) }
func (m Tauth) String() string {
	return fmt.Sprintf("Tauth tag=%d afid=%d uname=%q aname=%q", m.MsgTag, m.Afid, m.Uname, m.Aname)
}

type Rauth struct {
	MsgTag uint16
	Aqid   ninep.Qid
}

func (m Rauth) Type() uint8 { return msgRauth }
func (m Rauth) Tag() uint16 { return m.MsgTag }
func (m Rauth) Len() int64  { return int64(wireLen(m)) }
func (m Rauth) String() string {
	return fmt.Sprintf("Rauth tag=%d aqid=%s", m.MsgTag, m.Aqid)
}

type Tattach struct {
	MsgTag uint16
	Fid    ninep.Fid
	Afid   ninep.Fid
	Uname  string
	Aname  string
}

func (m Tattach) Type() uint8 { return msgTattach }
func (m Tattach) Tag() uint16 { return m.MsgTag }
func (m Tattach) Len() int64  { return int64(wireLen(m)) }
func (m Tattach) String() string {
	return fmt.Sprintf("Tattach tag=%d fid=%d afid=%d uname=%q aname=%q",
		m.MsgTag, m.Fid, m.Afid, m.Uname, m.Aname)
}

type Rattach struct {
	MsgTag uint16
	Qid    ninep.Qid
}

func (m Rattach) Type() uint8 { return msgRattach }
func (m Rattach) Tag() uint16 { return m.MsgTag }
func (m Rattach) Len() int64  { return int64(wireLen(m)) }
func (m Rattach) String() string {
	return fmt.Sprintf("Rattach tag=%d qid=%s", m.MsgTag, m.Qid)
}

// Rerror reports the failure of whatever request shares its tag. There
// is no Terror: the protocol has no request counterpart.
type Rerror struct {
	MsgTag uint16
	Ename  string
}

func (m Rerror) Type() uint8  { return msgRerror }
func (m Rerror) Tag() uint16  { return m.MsgTag }
func (m Rerror) Len() int64   { return int64(wireLen(m)) }
func (m Rerror) Error() string { return m.Ename }
func (m Rerror) String() string {
	return fmt.Sprintf("Rerror tag=%d ename=%q", m.MsgTag, m.Ename)
}

type Tflush struct {
	MsgTag uint16
	Oldtag uint16
}

func (m Tflush) Type() uint8 { return msgTflush }
func (m Tflush) Tag() uint16 { return m.MsgTag }
func (m Tflush) Len() int64  { return int64(wireLen(m)) }
func (m Tflush) String() string {
	return fmt.Sprintf("Tflush tag=%d oldtag=%d", m.MsgTag, m.Oldtag)
}

type Rflush struct {
	MsgTag uint16
}

func (m Rflush) Type() uint8 { return msgRflush }
func (m Rflush) Tag() uint16 { return m.MsgTag }
func (m Rflush) Len() int64  { return int64(wireLen(m)) }
func (m Rflush) String() string {
	return fmt.Sprintf("Rflush tag=%d", m.MsgTag)
}

type Twalk struct {
	MsgTag uint16
	Fid    ninep.Fid
	Newfid ninep.Fid
	Wname  []string
}

func (m Twalk) Type() uint8 { return msgTwalk }
func (m Twalk) Tag() uint16 { return m.MsgTag }
func (m Twalk) Len() int64  { return int64(wireLen(m)) }
func (m Twalk) String() string {
	return fmt.Sprintf("Twalk tag=%d fid=%d newfid=%d wname=%v", m.MsgTag, m.Fid, m.Newfid, m.Wname)
}

type Rwalk struct {
	MsgTag uint16
	Wqid   []ninep.Qid
}

func (m Rwalk) Type() uint8 { return msgRwalk }
func (m Rwalk) Tag() uint16 { return m.MsgTag }
func (m Rwalk) Len() int64  { return int64(wireLen(m)) }
func (m Rwalk) String() string {
	return fmt.Sprintf("Rwalk tag=%d wqid=%v", m.MsgTag, m.Wqid)
}

type Topen struct {
	MsgTag uint16
	Fid    ninep.Fid
	Mode   uint8
}

func (m Topen) Type() uint8 { return msgTopen }
func (m Topen) Tag() uint16 { return m.MsgTag }
func (m Topen) Len() int64  { return int64(wireLen(m)) }
func (m Topen) String() string {
	return fmt.Sprintf("Topen tag=%d fid=%d mode=%#o", m.MsgTag, m.Fid, m.Mode)
}

type Ropen struct {
	MsgTag uint16
	Qid    ninep.Qid
	Iounit uint32
}

func (m Ropen) Type() uint8 { return msgRopen }
func (m Ropen) Tag() uint16 { return m.MsgTag }
func (m Ropen) Len() int64  { return int64(wireLen(m)) }
func (m Ropen) String() string {
	return fmt.Sprintf("Ropen tag=%d qid=%s iounit=%d", m.MsgTag, m.Qid, m.Iounit)
}

type Tcreate struct {
	MsgTag uint16
	Fid    ninep.Fid
	Name   string
	Perm   uint32
	Mode   uint8
}

func (m Tcreate) Type() uint8 { return msgTcreate }
func (m Tcreate) Tag() uint16 { return m.MsgTag }
func (m Tcreate) Len() int64  { return int64(wireLen(m)) }
func (m Tcreate) String() string {
	return fmt.Sprintf("Tcreate tag=%d fid=%d name=%q perm=%#o mode=%#o",
		m.MsgTag, m.Fid, m.Name, m.Perm, m.Mode)
}

type Rcreate struct {
	MsgTag uint16
	Qid    ninep.Qid
	Iounit uint32
}

func (m Rcreate) Type() uint8 { return msgRcreate }
func (m Rcreate) Tag() uint16 { return m.MsgTag }
func (m Rcreate) Len() int64  { return int64(wireLen(m)) }
func (m Rcreate) String() string {
	return fmt.Sprintf("Rcreate tag=%d qid=%s iounit=%d", m.MsgTag, m.Qid, m.Iounit)
}

type Tread struct {
	MsgTag uint16
	Fid    ninep.Fid
	Offset uint64
	Count  uint32
}

func (m Tread) Type() uint8 { return msgTread }
func (m Tread) Tag() uint16 { return m.MsgTag }
func (m Tread) Len() int64  { return int64(wireLen(m)) }
func (m Tread) String() string {
	return fmt.Sprintf("Tread tag=%d fid=%d offset=%d count=%d", m.MsgTag, m.Fid, m.Offset, m.Count)
}

type Rread struct {
	MsgTag uint16
	Data   []byte
}

func (m Rread) Type() uint8 { return msgRread }
func (m Rread) Tag() uint16 { return m.MsgTag }
func (m Rread) Len() int64  { return int64(wireLen(m)) }
func (m Rread) String() string {
	return fmt.Sprintf("Rread tag=%d count=%d", m.MsgTag, len(m.Data))
}

type Twrite struct {
	MsgTag uint16
	Fid    ninep.Fid
	Offset uint64
	Data   []byte
}

func (m Twrite) Type() uint8 { return msgTwrite }
func (m Twrite) Tag() uint16 { return m.MsgTag }
func (m Twrite) Len() int64  { return int64(wireLen(m)) }
func (m Twrite) String() string {
	return fmt.Sprintf("Twrite tag=%d fid=%d offset=%d count=%d", m.MsgTag, m.Fid, m.Offset, len(m.Data))
}

type Rwrite struct {
	MsgTag uint16
	Count  uint32
}

func (m Rwrite) Type() uint8 { return msgRwrite }
func (m Rwrite) Tag() uint16 { return m.MsgTag }
func (m Rwrite) Len() int64  { return int64(wireLen(m)) }
func (m Rwrite) String() string {
	return fmt.Sprintf("Rwrite tag=%d count=%d", m.MsgTag, m.Count)
}

type Tclunk struct {
	MsgTag uint16
	Fid    ninep.Fid
}

func (m Tclunk) Type() uint8 { return msgTclunk }
func (m Tclunk) Tag() uint16 { return m.MsgTag }
func (m Tclunk) Len() int64  { return int64(wireLen(m)) }
func (m Tclunk) String() string {
	return fmt.Sprintf("Tclunk tag=%d fid=%d", m.MsgTag, m.Fid)
}

type Rclunk struct {
	MsgTag uint16
}

func (m Rclunk) Type() uint8 { return msgRclunk }
func (m Rclunk) Tag() uint16 { return m.MsgTag }
func (m Rclunk) Len() int64  { return int64(wireLen(m)) }
func (m Rclunk) String() string {
	return fmt.Sprintf("Rclunk tag=%d", m.MsgTag)
}

type Tremove struct {
	MsgTag uint16
	Fid    ninep.Fid
}

func (m Tremove) Type() uint8 { return msgTremove }
func (m Tremove) Tag() uint16 { return m.MsgTag }
func (m Tremove) Len() int64  { return int64(wireLen(m)) }
func (m Tremove) String() string {
	return fmt.Sprintf("Tremove tag=%d fid=%d", m.MsgTag, m.Fid)
}

type Rremove struct {
	MsgTag uint16
}

func (m Rremove) Type() uint8 { return msgRremove }
func (m Rremove) Tag() uint16 { return m.MsgTag }
func (m Rremove) Len() int64  { return int64(wireLen(m)) }
func (m Rremove) String() string {
	return fmt.Sprintf("Rremove tag=%d", m.MsgTag)
}

type Tstat struct {
	MsgTag uint16
	Fid    ninep.Fid
}

func (m Tstat) Type() uint8 { return msgTstat }
func (m Tstat) Tag() uint16 { return m.MsgTag }
func (m Tstat) Len() int64  { return int64(wireLen(m)) }
func (m Tstat) String() string {
	return fmt.Sprintf("Tstat tag=%d fid=%d", m.MsgTag, m.Fid)
}

type Rstat struct {
	MsgTag uint16
	Stat   Stat
}

func (m Rstat) Type() uint8 { return msgRstat }
func (m Rstat) Tag() uint16 { return m.MsgTag }
func (m Rstat) Len() int64  { return int64(wireLen(m)) }
func (m Rstat) String() string {
	return fmt.Sprintf("Rstat tag=%d stat=%+v", m.MsgTag, m.Stat)
}

type Twstat struct {
	MsgTag uint16
	Fid    ninep.Fid
	Stat   Stat
}

func (m Twstat) Type() uint8 { return msgTwstat }
func (m Twstat) Tag() uint16 { return m.MsgTag }
func (m Twstat) Len() int64  { return int64(wireLen(m)) }
func (m Twstat) String() string {
	return fmt.Sprintf("Twstat tag=%d fid=%d stat=%+v", m.MsgTag, m.Fid, m.Stat)
}

type Rwstat struct {
	MsgTag uint16
}

func (m Rwstat) Type() uint8 { return msgRwstat }
func (m Rwstat) Tag() uint16 { return m.MsgTag }
func (m Rwstat) Len() int64  { return int64(wireLen(m)) }
func (m Rwstat) String() string {
	return fmt.Sprintf("Rwstat tag=%d", m.MsgTag)
}
