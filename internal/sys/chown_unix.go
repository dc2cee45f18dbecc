// +build android darwin dragonfly freebsd linux nacl netbsd openbsd solaris

package sys

import (
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"
)

// Chown changes the owner and group of the named file, resolving the
// supplied names to numeric ids first. An empty name leaves that half
// of the ownership unchanged.
func Chown(path, uid, gid string) error {
	uidNum, err := lookupUid(uid)
	if err != nil {
		return err
	}
	gidNum, err := lookupGid(gid)
	if err != nil {
		return err
	}
	return unix.Chown(path, uidNum, gidNum)
}

func lookupUid(name string) (int, error) {
	if name == "" {
		return -1, nil
	}
	if n, err := strconv.Atoi(name); err == nil {
		return n, nil
	}
	u, err := user.Lookup(name)
	if err != nil {
		return -1, err
	}
	return strconv.Atoi(u.Uid)
}

func lookupGid(name string) (int, error) {
	if name == "" {
		return -1, nil
	}
	if n, err := strconv.Atoi(name); err == nil {
		return n, nil
	}
	g, err := user.LookupGroup(name)
	if err != nil {
		return -1, err
	}
	return strconv.Atoi(g.Gid)
}
