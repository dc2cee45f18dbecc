package fsfile

import (
	"os"

	"ninep.dev/ninep"
)

// modeOS converts a 9P mode mask to an os.FileMode.
func modeOS(perm uint32) os.FileMode {
	var mode os.FileMode
	if perm&ninep.DMDIR != 0 {
		mode = os.ModeDir
	}
	if perm&ninep.DMAPPEND != 0 {
		mode |= os.ModeAppend
	}
	if perm&ninep.DMEXCL != 0 {
		mode |= os.ModeExclusive
	}
	if perm&ninep.DMTMP != 0 {
		mode |= os.ModeTemporary
	}
	mode |= os.FileMode(perm) & os.ModePerm
	return mode
}

// mode9P converts an os.FileMode to a 9P mode mask.
func mode9P(mode os.FileMode) uint32 {
	var perm uint32
	if mode&os.ModeDir != 0 {
		perm |= ninep.DMDIR
	}
	if mode&os.ModeAppend != 0 {
		perm |= ninep.DMAPPEND
	}
	if mode&os.ModeExclusive != 0 {
		perm |= ninep.DMEXCL
	}
	if mode&os.ModeTemporary != 0 {
		perm |= ninep.DMTMP
	}
	return perm | uint32(mode&os.ModePerm)
}
