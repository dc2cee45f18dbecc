package ninep

import "fmt"

// Fid is a client-chosen integer that names a file on the server for the
// duration of a session.
type Fid uint32

// NoFid is the distinguished Fid value meaning "none", used as the afid of
// a Tattach when no authentication is required.
const NoFid Fid = 0xFFFFFFFF

// NoTag is the distinguished tag value reserved for Tversion.
const NoTag uint16 = 0xFFFF

// Qid bits, the high bits of a file's Mode.
const (
	QTDIR    uint8 = 0x80
	QTAPPEND uint8 = 0x40
	QTEXCL   uint8 = 0x20
	QTMOUNT  uint8 = 0x10
	QTAUTH   uint8 = 0x08
	QTTMP    uint8 = 0x04
	QTFILE   uint8 = 0x00
)

// Mode bits, the high bits of the 32-bit Stat.Mode field.
const (
	DMDIR    uint32 = 0x80000000
	DMAPPEND uint32 = 0x40000000
	DMEXCL   uint32 = 0x20000000
	DMMOUNT  uint32 = 0x10000000
	DMAUTH   uint32 = 0x08000000
	DMTMP    uint32 = 0x04000000
	DMPERM   uint32 = 0x1FF // low 9 bits: rwxrwxrwx
)

// Open mode bits (the low bits of Topen.Mode / Tcreate.Mode).
const (
	OREAD  uint8 = 0
	OWRITE uint8 = 1
	ORDWR  uint8 = 2
	OEXEC  uint8 = 3

	OTRUNC  uint8 = 0x10
	ORCLOSE uint8 = 0x40
)

// Qid is the server's identity for a file: two Qids are equal iff all three
// fields match, and equal Qids denote the same file for the session.
type Qid struct {
	Type    uint8
	Version uint32
	Path    uint64
}

func (q Qid) String() string {
	return fmt.Sprintf("(%016x %d %x)", q.Path, q.Version, q.Type)
}

// IsDir reports whether the Qid names a directory.
func (q Qid) IsDir() bool { return q.Type&QTDIR != 0 }

// QidType computes the Qid type bits corresponding to a Stat mode word.
func QidType(mode uint32) uint8 {
	var t uint8
	if mode&DMDIR != 0 {
		t |= QTDIR
	}
	if mode&DMAPPEND != 0 {
		t |= QTAPPEND
	}
	if mode&DMEXCL != 0 {
		t |= QTEXCL
	}
	if mode&DMTMP != 0 {
		t |= QTTMP
	}
	if mode&DMAUTH != 0 {
		t |= QTAUTH
	}
	return t
}
