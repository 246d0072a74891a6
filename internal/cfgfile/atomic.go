package cfgfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/muurk/zerostock/internal/deviceconfig"
)

// BackupSuffix is appended to the target path for the pre-write copy.
const BackupSuffix = ".bak"

// writeTemp writes data to a new temporary file next to path and forces it
// to stable storage. The caller renames or removes the returned file.
func writeTemp(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", deviceconfig.NewIOError(dir, "failed to create directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", deviceconfig.NewIOError(path, "failed to create temporary file", err)
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", deviceconfig.NewIOError(name, "failed to write temporary file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", deviceconfig.NewIOError(name, "failed to sync temporary file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return "", deviceconfig.NewIOError(name, "failed to close temporary file", err)
	}
	return name, nil
}

func commit(tmp, path string) error {
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return deviceconfig.NewIOError(path, "failed to replace file", err)
	}
	return nil
}

// copyBackup copies src to dst keeping src's permission bits.
func copyBackup(src, dst string) Outcome {
	out := Outcome{Step: StepBackup}

	in, err := os.Open(src)
	if err != nil {
		out.Err = err
		return out
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		out.Err = err
		return out
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		out.Err = err
		return out
	}
	if _, err := io.Copy(f, in); err != nil {
		f.Close()
		out.Err = err
		return out
	}
	if err := f.Close(); err != nil {
		out.Err = err
		return out
	}
	if err := os.Chmod(dst, fi.Mode().Perm()); err != nil {
		out.Err = err
		return out
	}
	out.Applied = true
	return out
}

// priorMeta returns the metadata of an existing file, or nil when path does
// not exist. Other stat failures are returned.
func priorMeta(path string) (*fileMeta, error) {
	meta, err := statMeta(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// WriteFileAtomic replaces path with data through a temporary sibling and a
// rename. An existing file keeps its owner and permission bits; a new file
// gets mode. Ownership steps are returned as outcomes, not errors.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) ([]Outcome, error) {
	prior, err := priorMeta(path)
	if err != nil {
		return nil, deviceconfig.NewIOError(path, "failed to stat file", err)
	}

	tmp, err := writeTemp(path, data)
	if err != nil {
		return nil, err
	}
	if err := commit(tmp, path); err != nil {
		return nil, err
	}

	if prior == nil {
		out := Outcome{Step: StepChmod}
		out.Err = os.Chmod(path, mode)
		out.Applied = out.Err == nil
		return []Outcome{out}, nil
	}

	own := Outcome{Step: StepChown}
	if prior.uid >= 0 {
		own.Err = chownFile(path, prior.uid, prior.gid)
		own.Applied = own.Err == nil
	}
	perm := Outcome{Step: StepChmod}
	perm.Err = os.Chmod(path, prior.mode)
	perm.Applied = perm.Err == nil
	if own.Err != nil {
		own.Err = fmt.Errorf("%s: %w", path, own.Err)
	}
	return []Outcome{own, perm}, nil
}
