package proto

// MaxWalk is the maximum number of path elements carried by a single
// Twalk/Rwalk message.
const MaxWalk = 16

// MaxVersionLen is the maximum length, in bytes, of the protocol version
// string in Tversion/Rversion.
const MaxVersionLen = 64

// MaxFilenameLen is the maximum length, in bytes, of a single path element.
const MaxFilenameLen = 512

// MaxUidLen is the maximum length, in bytes, of a uid/gid/muid field.
const MaxUidLen = 256

// MaxErrorLen is the maximum length, in bytes, of an Rerror ename field.
const MaxErrorLen = 512

// MaxAttachLen is the maximum length, in bytes, of a Tattach/Tauth aname.
const MaxAttachLen = 512

// HeaderLen is the length, in bytes, of the common message header:
// size[4] type[1] tag[2].
const HeaderLen = 7

// QidLen is the encoded length, in bytes, of a Qid: type[1] version[4] path[8].
const QidLen = 13

// minStatLen is the encoded length of a Stat record with all four
// string fields empty.
const minStatLen = 2 + 2 + 4 + QidLen + 4 + 4 + 4 + 8 + 2 + 2 + 2 + 2

// MaxStatLen is the largest a Stat record is allowed to be.
const MaxStatLen = minStatLen + MaxFilenameLen + 3*MaxUidLen

// MinMsgSize is the smallest possible message (header plus no payload).
const MinMsgSize = HeaderLen

// DontTouch32 is the "leave unchanged" sentinel for 32-bit Stat fields.
const DontTouch32 = ^uint32(0)

// DontTouch64 is the "leave unchanged" sentinel for 64-bit Stat fields.
const DontTouch64 = ^uint64(0)

// DontTouchString is the "leave unchanged" sentinel for string Stat fields.
const DontTouchString = ""
