package client

import "ninep.dev/ninep/proto"

// retag returns a copy of req with its tag field set to tag. A Client
// fills in the tag of each outgoing request itself (callers of the
// exported methods never choose one), so every request type needs a
// way to stamp its allocated tag on just before the write.
func retag(req proto.Msg, tag uint16) proto.Msg {
	switch m := req.(type) {
	case proto.Tversion:
		m.MsgTag = tag
		return m
	case proto.Tauth:
		m.MsgTag = tag
		return m
	case proto.Tattach:
		m.MsgTag = tag
		return m
	case proto.Tflush:
		m.MsgTag = tag
		return m
	case proto.Twalk:
		m.MsgTag = tag
		return m
	case proto.Topen:
		m.MsgTag = tag
		return m
	case proto.Tcreate:
		m.MsgTag = tag
		return m
	case proto.Tread:
		m.MsgTag = tag
		return m
	case proto.Twrite:
		m.MsgTag = tag
		return m
	case proto.Tclunk:
		m.MsgTag = tag
		return m
	case proto.Tremove:
		m.MsgTag = tag
		return m
	case proto.Tstat:
		m.MsgTag = tag
		return m
	case proto.Twstat:
		m.MsgTag = tag
		return m
	default:
		return req
	}
}
