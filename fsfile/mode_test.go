package fsfile

import (
	"os"
	"testing"

	"ninep.dev/ninep"
)

func TestModeOS(t *testing.T) {
	var perm uint32 = ninep.DMDIR | ninep.DMEXCL | ninep.DMTMP | 0750
	mode := modeOS(perm)
	if mode&os.ModeDir == 0 {
		t.Error("DMDIR")
	}
	if mode&os.ModeExclusive == 0 {
		t.Error("DMEXCL")
	}
	if mode&os.ModeTemporary == 0 {
		t.Error("DMTMP")
	}
	if mode&os.ModePerm != 0750 {
		t.Errorf("perm %o != %o", mode&os.ModePerm, perm&0777)
	}
}

func TestMode9P(t *testing.T) {
	var mode os.FileMode = os.ModeDir | os.ModeExclusive | os.ModeTemporary | 0750
	perm := mode9P(mode)
	if perm&ninep.DMDIR == 0 {
		t.Error("ModeDir")
	}
	if perm&ninep.DMEXCL == 0 {
		t.Error("ModeExclusive")
	}
	if perm&ninep.DMTMP == 0 {
		t.Error("ModeTemporary")
	}
	if perm&0777 != 0750 {
		t.Error("ModePerm")
	}
}
