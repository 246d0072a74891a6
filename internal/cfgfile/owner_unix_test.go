//go:build unix

package cfgfile

import (
	"errors"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"testing"
)

// TestApplyOwnership tests owner resolution and the prior-owner fallback
func TestApplyOwnership(t *testing.T) {
	current, err := user.Current()
	if err != nil {
		t.Skipf("cannot resolve current user: %v", err)
	}

	tests := []struct {
		name      string
		ownerUser string
	}{
		{"Configured owner resolvable", current.Username},
		{"Configured owner unknown", "zerostock-no-such-user"},
		{"No owner configured", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "configuration.cfg")
			if err := os.WriteFile(path, []byte("[base]\n"), 0o640); err != nil {
				t.Fatalf("failed to seed file: %v", err)
			}
			prior, err := statMeta(path)
			if err != nil {
				t.Fatalf("statMeta() error = %v", err)
			}

			p := New(Target{Path: path, OwnerUser: tt.ownerUser, OwnerGroup: "zerostock-no-such-group"})
			res, err := p.Apply(tickerUpdate("ABC"))
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}

			own, ok := res.Outcome(StepChown)
			if !ok || !own.Applied || !own.Ok() {
				t.Errorf("chown outcome = %+v", own)
			}

			after, err := statMeta(path)
			if err != nil {
				t.Fatalf("statMeta() error = %v", err)
			}
			if after.uid != prior.uid || after.gid != prior.gid {
				t.Errorf("owner = %d:%d, want %d:%d", after.uid, after.gid, prior.uid, prior.gid)
			}
			if after.mode != 0o640 {
				t.Errorf("mode = %v, want 0640", after.mode)
			}
		})
	}
}

// TestOwnershipFallback tests which ids are applied when the configured
// owner differs from the prior owner of the file
func TestOwnershipFallback(t *testing.T) {
	const configuredUID, configuredGID = 4242, 4343

	tests := []struct {
		name      string
		resolves  bool
		wantPrior bool
	}{
		{"Configured owner wins", true, false},
		{"Unresolvable owner keeps prior", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origLookup, origChown := lookupOwner, chownFile
			t.Cleanup(func() { lookupOwner, chownFile = origLookup, origChown })

			lookupOwner = func(userName, groupName string) (int, int, error) {
				if userName != "pi" || groupName != "pi" {
					t.Errorf("lookupOwner(%q, %q), want pi/pi", userName, groupName)
				}
				if !tt.resolves {
					return 0, 0, errors.New("unknown user pi")
				}
				return configuredUID, configuredGID, nil
			}
			var gotUID, gotGID, calls int
			chownFile = func(path string, uid, gid int) error {
				calls++
				gotUID, gotGID = uid, gid
				return nil
			}

			path := filepath.Join(t.TempDir(), "configuration.cfg")
			if err := os.WriteFile(path, []byte("[base]\n"), 0o640); err != nil {
				t.Fatalf("failed to seed file: %v", err)
			}
			prior, err := statMeta(path)
			if err != nil {
				t.Fatalf("statMeta() error = %v", err)
			}

			p := New(Target{Path: path, OwnerUser: "pi", OwnerGroup: "pi"})
			res, err := p.Apply(tickerUpdate("ABC"))
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if own, ok := res.Outcome(StepChown); !ok || !own.Applied {
				t.Errorf("chown outcome = %+v", own)
			}

			wantUID, wantGID := configuredUID, configuredGID
			if tt.wantPrior {
				wantUID, wantGID = prior.uid, prior.gid
			}
			if calls != 1 || gotUID != wantUID || gotGID != wantGID {
				t.Errorf("chown called %d times with %d:%d, want once with %d:%d",
					calls, gotUID, gotGID, wantUID, wantGID)
			}
		})
	}
}

// TestStatMetaSpecialBits tests that setgid survives the mode conversion
func TestStatMetaSpecialBits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configuration.cfg")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}
	if err := os.Chmod(path, 0o640|os.ModeSetgid); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}
	meta, err := statMeta(path)
	if err != nil {
		t.Fatalf("statMeta() error = %v", err)
	}
	if meta.mode != 0o640|os.ModeSetgid {
		t.Errorf("mode = %v, want %v", meta.mode, 0o640|os.ModeSetgid)
	}

	if _, err := statMeta(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("statMeta(missing) error = %v, want ErrNotExist", err)
	}
}

// TestResolveOwner tests name to id mapping
func TestResolveOwner(t *testing.T) {
	current, err := user.Current()
	if err != nil {
		t.Skipf("cannot resolve current user: %v", err)
	}

	uid, gid, err := resolveOwner(current.Username, "zerostock-no-such-group")
	if err != nil {
		t.Fatalf("resolveOwner() error = %v", err)
	}
	if uid != os.Getuid() {
		t.Errorf("uid = %d, want %d", uid, os.Getuid())
	}
	if want := current.Gid; want != "" && strconv.Itoa(gid) != want {
		t.Errorf("gid = %d, want primary group %s", gid, want)
	}

	if _, _, err := resolveOwner("zerostock-no-such-user", ""); err == nil {
		t.Error("expected error for unknown user")
	}
	if _, _, err := resolveOwner("", ""); err == nil {
		t.Error("expected error for empty user")
	}
}

// TestWriteFileAtomic tests that a rewrite keeps the prior mode
func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wpa_supplicant.conf")

	if _, err := WriteFileAtomic(path, []byte("a\n"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if err := os.Chmod(path, 0o640); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}
	outcomes, err := WriteFileAtomic(path, []byte("b\n"), 0o600)
	if err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	for _, o := range outcomes {
		if !o.Ok() {
			t.Errorf("outcome %s failed: %v", o.Step, o.Err)
		}
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if fi.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", fi.Mode().Perm())
	}
	if got := readFile(t, path); got != "b\n" {
		t.Errorf("content = %q", got)
	}
}
