package proto

import "ninep.dev/ninep"

// encodeQid appends the 13-byte wire form of q: type[1] version[4] path[8].
func encodeQid(w *wbuf, q ninep.Qid) {
	w.pqid(q)
}

// decodeQid reads a 13-byte Qid from r.
func decodeQid(r *rbuf) ninep.Qid {
	return r.gqid()
}
