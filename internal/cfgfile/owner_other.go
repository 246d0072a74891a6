//go:build !unix

package cfgfile

import "os"

type fileMeta struct {
	uid  int
	gid  int
	mode os.FileMode
}

func statMeta(path string) (fileMeta, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return fileMeta{}, err
	}
	return fileMeta{uid: -1, gid: -1, mode: fi.Mode().Perm()}, nil
}

// chown is a no-op where numeric owners do not exist.
func chown(string, int, int) error {
	return nil
}
