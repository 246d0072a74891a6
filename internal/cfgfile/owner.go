package cfgfile

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
)

// Owner lookup and chown, replaced in tests.
var (
	lookupOwner = resolveOwner
	chownFile   = chown
)

// resolveOwner maps a user and group name to numeric ids. The group falls
// back to the user's primary group when it does not exist.
func resolveOwner(userName, groupName string) (int, int, error) {
	if userName == "" {
		return 0, 0, fmt.Errorf("no owner configured")
	}
	u, err := user.Lookup(userName)
	if err != nil {
		return 0, 0, err
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, fmt.Errorf("non-numeric uid %q", u.Uid)
	}

	gidStr := u.Gid
	if groupName != "" {
		if g, err := user.LookupGroup(groupName); err == nil {
			gidStr = g.Gid
		}
	}
	gid, err := strconv.Atoi(gidStr)
	if err != nil {
		return 0, 0, fmt.Errorf("non-numeric gid %q", gidStr)
	}
	return uid, gid, nil
}

// restoreOwnership applies the configured owner, or the prior owner when the
// configured one cannot be resolved, then restores prior permission bits.
// A file created from scratch gets newMode instead.
func restoreOwnership(path, userName, groupName string, prior *fileMeta, newMode os.FileMode) []Outcome {
	own := Outcome{Step: StepChown}
	uid, gid, err := lookupOwner(userName, groupName)
	switch {
	case err == nil:
		own.Err = chownFile(path, uid, gid)
		own.Applied = own.Err == nil
	case prior != nil && prior.uid >= 0:
		own.Err = chownFile(path, prior.uid, prior.gid)
		own.Applied = own.Err == nil
	}

	mode := Outcome{Step: StepChmod}
	switch {
	case prior != nil:
		mode.Err = os.Chmod(path, prior.mode)
		mode.Applied = mode.Err == nil
	case newMode != 0:
		mode.Err = os.Chmod(path, newMode)
		mode.Applied = mode.Err == nil
	}
	return []Outcome{own, mode}
}
