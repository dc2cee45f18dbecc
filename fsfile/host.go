package fsfile

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"ninep.dev/ninep"
	"ninep.dev/ninep/internal/sys"
	"ninep.dev/ninep/proto"
)

// hostFS adapts a directory on the host filesystem to the 9P
// semantics a Backend needs: every path it is handed is relative to
// rootPath and is guaranteed, before any syscall touches it, to
// resolve to rootPath or a descendant of it.
type hostFS struct {
	rootPath string // canonicalized, absolute
}

var errEscape = errors.New("path escapes root")

func newHostFS(root string) (*hostFS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "fsfile: resolve root path")
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.Wrap(err, "fsfile: canonicalize root path")
	}
	return &hostFS{rootPath: real}, nil
}

// resolve maps a backend-relative path (slash-separated, "" meaning
// the root) to the absolute host path it names, verifying along the
// way that the result cannot have escaped rootPath. It does not
// require the file to exist: if the final element is absent, the
// parent directory's canonical form is checked instead. A symlinked
// parent can still smuggle a path past this fallback; that gap is
// carried forward unchanged rather than closed here.
func (h *hostFS) resolve(rel string) (string, error) {
	if rel == "" {
		return h.rootPath, nil
	}
	abs := filepath.Join(h.rootPath, filepath.FromSlash(rel))

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		parent, err := filepath.EvalSymlinks(filepath.Dir(abs))
		if err != nil {
			return "", err
		}
		if !withinRoot(h.rootPath, parent) {
			return "", errEscape
		}
		return abs, nil
	}
	if !withinRoot(h.rootPath, real) {
		return "", errEscape
	}
	return abs, nil
}

func withinRoot(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// checkComponent rejects the path-escape attempts Walk must refuse
// before ever reaching the host filesystem: ".." and any absolute
// element.
func checkComponent(name string) error {
	if name == ".." || filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return errEscape
	}
	return nil
}

func (h *hostFS) walk(rel, name string) (string, ninep.Qid, error) {
	if name == "." {
		st, err := h.stat(rel)
		if err != nil {
			return "", ninep.Qid{}, err
		}
		return rel, st.Qid, nil
	}
	if err := checkComponent(name); err != nil {
		return "", ninep.Qid{}, err
	}
	child := name
	if rel != "" {
		child = rel + "/" + name
	}
	st, err := h.stat(child)
	if err != nil {
		return "", ninep.Qid{}, err
	}
	return child, st.Qid, nil
}

func (h *hostFS) stat(rel string) (proto.Stat, error) {
	abs, err := h.resolve(rel)
	if err != nil {
		return proto.Stat{}, err
	}
	fi, err := os.Lstat(abs)
	if err != nil {
		return proto.Stat{}, err
	}
	return statFileInfo(fi, rel), nil
}

func statFileInfo(fi os.FileInfo, rel string) proto.Stat {
	mode := mode9P(fi.Mode())
	qtype := uint8(ninep.QTFILE)
	if fi.IsDir() {
		qtype = ninep.QTDIR
	}
	uid, gid, muid := sys.FileOwner(fi)
	name := fi.Name()
	if rel == "" {
		name = "/"
	}
	return proto.Stat{
		Qid:    ninep.Qid{Type: qtype, Version: uint32(fi.ModTime().Unix()), Path: inode(fi)},
		Mode:   mode,
		Atime:  uint32(fi.ModTime().Unix()),
		Mtime:  uint32(fi.ModTime().Unix()),
		Length: uint64(fi.Size()),
		Name:   name,
		Uid:    uid,
		Gid:    gid,
		Muid:   muid,
	}
}

func (h *hostFS) open(rel string, mode uint8) (*os.File, error) {
	abs, err := h.resolve(rel)
	if err != nil {
		return nil, err
	}
	flag := openFlag(mode)
	fi, err := os.Stat(abs)
	if err == nil && fi.IsDir() {
		return os.OpenFile(abs, os.O_RDONLY, 0)
	}
	return os.OpenFile(abs, flag, 0)
}

// openFlag translates a 9P open/create mode byte to the host open(2)
// flags it corresponds to.
func openFlag(mode uint8) int {
	var flag int
	switch mode & 3 {
	case ninep.OREAD:
		flag = os.O_RDONLY
	case ninep.OWRITE:
		flag = os.O_WRONLY
	case ninep.ORDWR:
		flag = os.O_RDWR
	case ninep.OEXEC:
		flag = os.O_RDONLY
	}
	if mode&ninep.OTRUNC != 0 {
		flag |= os.O_TRUNC
	}
	return flag
}

func (h *hostFS) create(rel, name string, perm uint32, mode uint8) (string, *os.File, error) {
	if err := checkComponent(name); err != nil {
		return "", nil, err
	}
	dir, err := h.resolve(rel)
	if err != nil {
		return "", nil, err
	}
	abs := filepath.Join(dir, name)
	child := name
	if rel != "" {
		child = rel + "/" + name
	}
	if perm&ninep.DMDIR != 0 {
		if err := os.Mkdir(abs, modeOS(perm).Perm()|0700); err != nil {
			return "", nil, err
		}
		f, err := os.Open(abs)
		return child, f, err
	}
	flag := os.O_RDWR | os.O_CREATE | os.O_EXCL
	switch mode & 3 {
	case ninep.OREAD:
		flag = os.O_RDONLY | os.O_CREATE | os.O_EXCL
	case ninep.OWRITE:
		flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(abs, flag, modeOS(perm).Perm()|0600)
	if err != nil {
		return "", nil, err
	}
	return child, f, nil
}

func (h *hostFS) remove(rel string) error {
	abs, err := h.resolve(rel)
	if err != nil {
		return err
	}
	return os.Remove(abs)
}

// wstat applies the non-sentinel fields of st to the file named by
// rel, in the order the source does: mode, length, name (rename
// inside the same parent), times, then ownership.
func (h *hostFS) wstat(rel string, st proto.Stat) error {
	abs, err := h.resolve(rel)
	if err != nil {
		return err
	}
	if st.Mode != proto.DontTouch32 {
		if err := os.Chmod(abs, modeOS(st.Mode).Perm()); err != nil {
			return err
		}
	}
	if st.Length != proto.DontTouch64 {
		if err := os.Truncate(abs, int64(st.Length)); err != nil {
			return err
		}
	}
	if st.Name != proto.DontTouchString {
		newAbs := filepath.Join(filepath.Dir(abs), st.Name)
		if err := os.Rename(abs, newAbs); err != nil {
			return err
		}
		abs = newAbs
	}
	if st.Atime != proto.DontTouch32 || st.Mtime != proto.DontTouch32 {
		fi, err := os.Lstat(abs)
		if err != nil {
			return err
		}
		atime, mtime := time.Unix(int64(st.Atime), 0), time.Unix(int64(st.Mtime), 0)
		if st.Atime == proto.DontTouch32 {
			atime = fi.ModTime()
		}
		if st.Mtime == proto.DontTouch32 {
			mtime = fi.ModTime()
		}
		if err := os.Chtimes(abs, atime, mtime); err != nil {
			return err
		}
	}
	if st.Uid != proto.DontTouchString || st.Gid != proto.DontTouchString {
		if err := sys.Chown(abs, st.Uid, st.Gid); err != nil {
			return err
		}
	}
	return nil
}
