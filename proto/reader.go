package proto

import (
	"io"

	"github.com/pkg/errors"
)

// MaxMsgSize bounds the size field accepted by ReadMsg; it guards
// against a peer claiming an absurd message length before any buffer
// is allocated for it.
const MaxMsgSize = 1 << 24

// ReadMsg reads one complete, framed 9P message from r and decodes it.
// It first reads the 4-byte size prefix, then reads exactly size-4
// more bytes, retrying on short reads the way io.ReadFull does, and
// finally decodes the resulting buffer with Decode.
func ReadMsg(r io.Reader) (Msg, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "proto: read size header")
	}
	size := guint32(hdr[:])
	if size < MinMsgSize {
		return nil, errShortHeader
	}
	if size > MaxMsgSize {
		return nil, errTooBig
	}
	buf := make([]byte, size)
	copy(buf[:4], hdr[:])
	if _, err := io.ReadFull(r, buf[4:]); err != nil {
		return nil, errors.Wrap(err, "proto: read message body")
	}
	m, err := Decode(buf)
	if err != nil {
		return nil, errors.Wrap(err, "proto: decode")
	}
	return m, nil
}

// WriteMsg encodes m and writes it to w in a single Write call.
func WriteMsg(w io.Writer, m Msg) error {
	b, err := Encode(m)
	if err != nil {
		return errors.Wrap(err, "proto: encode")
	}
	_, err = w.Write(b)
	return errors.Wrap(err, "proto: write message")
}
