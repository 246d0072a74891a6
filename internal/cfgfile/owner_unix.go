//go:build unix

package cfgfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileMeta is what survives a rewrite: owner ids and permission bits.
type fileMeta struct {
	uid  int
	gid  int
	mode os.FileMode
}

func statMeta(path string) (fileMeta, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileMeta{}, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	return fileMeta{
		uid:  int(st.Uid),
		gid:  int(st.Gid),
		mode: permMode(uint32(st.Mode)),
	}, nil
}

// permMode converts raw st_mode permission bits to an os.FileMode.
func permMode(raw uint32) os.FileMode {
	mode := os.FileMode(raw & 0o777)
	if raw&unix.S_ISUID != 0 {
		mode |= os.ModeSetuid
	}
	if raw&unix.S_ISGID != 0 {
		mode |= os.ModeSetgid
	}
	if raw&unix.S_ISVTX != 0 {
		mode |= os.ModeSticky
	}
	return mode
}

func chown(path string, uid, gid int) error {
	return os.Chown(path, uid, gid)
}
