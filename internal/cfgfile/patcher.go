package cfgfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/zerostock/internal/deviceconfig"
	"github.com/muurk/zerostock/internal/logging"
)

// DefaultNewFileMode is used for a settings file created from scratch.
const DefaultNewFileMode os.FileMode = 0o644

// Target identifies the settings file and the identity it should be owned
// by after each write. It is passed explicitly instead of living in
// package globals.
type Target struct {
	Path        string
	OwnerUser   string
	OwnerGroup  string
	NewFileMode os.FileMode
}

// WriteResult describes a committed write.
type WriteResult struct {
	Path     string
	Created  bool
	Changed  bool
	Outcomes []Outcome
}

// Patcher reads and patches one settings file. It keeps no document state
// between calls; every operation loads the file fresh.
type Patcher struct {
	target   Target
	observer CommitObserver
}

// CommitObserver is told about each rename over the target. A mark always
// precedes the rename; a failed rename is followed by an unmark.
type CommitObserver interface {
	MarkOwnWrite(path string)
	UnmarkOwnWrite(path string)
}

// New creates a Patcher for target.
func New(target Target) *Patcher {
	if target.NewFileMode == 0 {
		target.NewFileMode = DefaultNewFileMode
	}
	return &Patcher{target: target}
}

// Target returns the file this patcher operates on
func (p *Patcher) Target() Target {
	return p.target
}

// OnCommit registers o to be told about each rename over the target. The
// watcher uses it to tell its own writes from external edits.
func (p *Patcher) OnCommit(o CommitObserver) {
	p.observer = o
}

// Load reads and parses the file. A missing file is an empty document.
func (p *Patcher) Load() (*Document, bool, error) {
	data, err := os.ReadFile(p.target.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Parse(nil), false, nil
	}
	if err != nil {
		return nil, false, deviceconfig.NewIOError(p.target.Path, "failed to read settings file", err)
	}
	return Parse(data), true, nil
}

// Read resolves every whitelisted key present in the file into the base
// and display parts of a snapshot. Keys not found are left out; numeric
// values that do not parse are reported as the raw string.
func (p *Patcher) Read() (deviceconfig.Snapshot, error) {
	doc, _, err := p.Load()
	if err != nil {
		return deviceconfig.Snapshot{}, err
	}
	return ReadSnapshot(doc), nil
}

// ReadSnapshot extracts whitelisted keys from doc.
func ReadSnapshot(doc *Document) deviceconfig.Snapshot {
	base := &deviceconfig.BaseSettings{}
	display := &deviceconfig.DisplaySettings{}

	for _, f := range deviceconfig.Fields {
		raw, ok := doc.Get(f.Section, f.Key)
		if !ok {
			continue
		}
		switch f.Key {
		case deviceconfig.KeyRefreshInterval:
			base.RefreshIntervalMinutes = coerce(f.Kind, raw)
		case deviceconfig.KeyDataRange:
			base.DataRangeDays = coerce(f.Kind, raw)
		case deviceconfig.KeyDataAPIBaseURL:
			base.DataAPIBaseURL = &raw
		case deviceconfig.KeyTicker:
			base.Ticker = &raw
		case deviceconfig.KeyMode:
			display.Mode = &raw
		}
	}

	var snap deviceconfig.Snapshot
	if !base.IsEmpty() {
		snap.Base = base
	}
	if display.Mode != nil {
		snap.Display = display
	}
	return snap
}

func coerce(kind deviceconfig.ValueKind, raw string) any {
	switch kind {
	case deviceconfig.KindInt:
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	case deviceconfig.KindFloat:
		// json.Number keeps the fractional part, so 7 reads back as 7.0
		f, err := strconv.ParseFloat(raw, 64)
		if err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return json.Number(deviceconfig.FormatFloat(f))
		}
	}
	return raw
}

// Patch applies updates to doc in whitelist order.
func Patch(doc *Document, updates *deviceconfig.UpdateSet) {
	for _, section := range updates.Sections() {
		doc.EnsureSection(section)
		for _, u := range updates.Section(section) {
			doc.Set(section, u.Key, u.Value.String())
		}
	}
}

// Apply patches the file with updates and persists it atomically. Only a
// failure to produce the new content on disk is returned; backup and
// ownership steps are reported in the result.
func (p *Patcher) Apply(updates *deviceconfig.UpdateSet) (*WriteResult, error) {
	if updates.Empty() {
		return &WriteResult{Path: p.target.Path}, nil
	}

	doc, existed, err := p.Load()
	if err != nil {
		return nil, err
	}
	before := doc.Bytes()
	Patch(doc, updates)
	after := doc.Bytes()

	res, err := p.persist(after, existed)
	if err != nil {
		return nil, err
	}
	res.Changed = !bytes.Equal(before, after)

	logging.Info("Settings file updated",
		zap.String("path", p.target.Path),
		zap.Int("keys", updates.Len()),
		zap.Bool("created", res.Created),
		zap.Bool("changed", res.Changed),
	)
	return res, nil
}

// Restore swaps the file with its backup copy. The current content becomes
// the new backup, so restoring twice returns to where it started.
func (p *Patcher) Restore() (*WriteResult, error) {
	backup := p.target.Path + BackupSuffix
	data, err := os.ReadFile(backup)
	if err != nil {
		return nil, deviceconfig.NewIOError(backup, "no backup to restore", err)
	}

	_, statErr := os.Stat(p.target.Path)
	res, err := p.persist(data, statErr == nil)
	if err != nil {
		return nil, err
	}
	res.Changed = true

	logging.Info("Settings file restored from backup",
		zap.String("path", p.target.Path),
		zap.String("backup", backup),
	)
	return res, nil
}

func (p *Patcher) persist(data []byte, existed bool) (*WriteResult, error) {
	path := p.target.Path

	var prior *fileMeta
	if existed {
		meta, err := priorMeta(path)
		if err != nil {
			logging.Warn("Could not stat settings file before write",
				zap.String("path", path), zap.Error(err))
		}
		prior = meta
	}

	tmp, err := writeTemp(path, data)
	if err != nil {
		return nil, err
	}

	res := &WriteResult{Path: path, Created: !existed}
	if existed {
		backup := copyBackup(path, path+BackupSuffix)
		backup.Log()
		res.Outcomes = append(res.Outcomes, backup)
	}

	if p.observer != nil {
		p.observer.MarkOwnWrite(path)
	}
	if err := commit(tmp, path); err != nil {
		if p.observer != nil {
			p.observer.UnmarkOwnWrite(path)
		}
		return nil, err
	}

	for _, o := range restoreOwnership(path, p.target.OwnerUser, p.target.OwnerGroup, prior, p.target.NewFileMode) {
		o.Log()
		res.Outcomes = append(res.Outcomes, o)
	}
	return res, nil
}

// Outcome returns the outcome recorded for step, if any
func (r *WriteResult) Outcome(step string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if strings.EqualFold(o.Step, step) {
			return o, true
		}
	}
	return Outcome{}, false
}
