package authfs

import "ninep.dev/ninep/authrpc"

// newConv starts a fresh conversation for a newly opened /rpc fid.
// User and auth id are unknown until the first "start" command names
// them.
func newConv(tag uint64) *authrpc.Conv {
	return authrpc.NewConv(tag, "", "")
}
