package cfgfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/muurk/zerostock/internal/deviceconfig"
)

func newTestPatcher(t *testing.T, content *string) *Patcher {
	t.Helper()
	path := filepath.Join(t.TempDir(), "configuration.cfg")
	if content != nil {
		if err := os.WriteFile(path, []byte(*content), 0o600); err != nil {
			t.Fatalf("failed to seed settings file: %v", err)
		}
	}
	return New(Target{Path: path})
}

func ptr(s string) *string { return &s }

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func tickerUpdate(ticker string) *deviceconfig.UpdateSet {
	u := &deviceconfig.UpdateSet{}
	u.Set(deviceconfig.SectionBase, deviceconfig.KeyTicker, deviceconfig.StringValue(ticker))
	return u
}

// TestReadMissingFile tests that an absent file reads as empty
func TestReadMissingFile(t *testing.T) {
	p := newTestPatcher(t, nil)

	snap, err := p.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if snap.Base != nil || snap.Display != nil {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

// TestReadIsolation tests that only keys present in the file are reported
func TestReadIsolation(t *testing.T) {
	p := newTestPatcher(t, ptr("[base]\nticker=ABC"))

	snap, err := p.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if got, want := string(data), `{"base":{"ticker":"ABC"}}`; got != want {
		t.Errorf("snapshot = %s, want %s", got, want)
	}
}

// TestReadCoercion tests numeric coercion and the raw string fallback
func TestReadCoercion(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantRange any
		wantPoll  any
	}{
		{"Numbers", "[base]\nrefresh_interval_minutes : 5\ndata_range_days : 1.5\n", json.Number("1.5"), 5},
		{"Integral float", "[base]\nrefresh_interval_minutes : 5\ndata_range_days : 7\n", json.Number("7.0"), 5},
		{"Exponent", "[base]\nrefresh_interval_minutes : 5\ndata_range_days : 1e1\n", json.Number("10.0"), 5},
		{"Unparseable", "[base]\nrefresh_interval_minutes : soon\ndata_range_days : a week\n", "a week", "soon"},
		{"Float for int", "[base]\nrefresh_interval_minutes : 5.5\ndata_range_days : 1\n", json.Number("1.0"), "5.5"},
		{"Infinity stays text", "[base]\nrefresh_interval_minutes : 1\ndata_range_days : inf\n", "inf", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPatcher(t, ptr(tt.content))
			snap, err := p.Read()
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if snap.Base == nil {
				t.Fatal("expected base section")
			}
			if snap.Base.DataRangeDays != tt.wantRange {
				t.Errorf("DataRangeDays = %#v, want %#v", snap.Base.DataRangeDays, tt.wantRange)
			}
			if snap.Base.RefreshIntervalMinutes != tt.wantPoll {
				t.Errorf("RefreshIntervalMinutes = %#v, want %#v", snap.Base.RefreshIntervalMinutes, tt.wantPoll)
			}
		})
	}
}

// TestReadEncodesFloatWithFraction tests the JSON form of an integral float
func TestReadEncodesFloatWithFraction(t *testing.T) {
	p := newTestPatcher(t, ptr("[base]\ndata_range_days : 7\n"))
	snap, err := p.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `{"base":{"data_range_days":7.0}}`; string(data) != want {
		t.Errorf("snapshot = %s, want %s", data, want)
	}
}

// TestReadDisplayMode tests the display section is reported on its own
func TestReadDisplayMode(t *testing.T) {
	p := newTestPatcher(t, ptr("[epd2in13v3]\nmode = candle ; default\n[base]\n"))

	snap, err := p.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if snap.Base != nil {
		t.Errorf("expected no base section, got %+v", snap.Base)
	}
	if snap.Display == nil || snap.Display.Mode == nil || *snap.Display.Mode != "candle" {
		t.Errorf("Display = %+v, want mode candle", snap.Display)
	}
}

// TestApplyNewFile tests creating the file and section from nothing
func TestApplyNewFile(t *testing.T) {
	p := newTestPatcher(t, nil)

	res, err := p.Apply(tickerUpdate("ABC"))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !res.Created {
		t.Error("expected Created")
	}
	if _, ok := res.Outcome(StepBackup); ok {
		t.Error("expected no backup step for a new file")
	}

	if got, want := readFile(t, p.Target().Path), "[base]\nticker : ABC\n"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
	if strings.Count(readFile(t, p.Target().Path), "[base]") != 1 {
		t.Error("expected exactly one [base] header")
	}

	fi, err := os.Stat(p.Target().Path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if fi.Mode().Perm() != DefaultNewFileMode {
		t.Errorf("mode = %v, want %v", fi.Mode().Perm(), DefaultNewFileMode)
	}
	if _, err := os.Stat(p.Target().Path + BackupSuffix); !os.IsNotExist(err) {
		t.Errorf("expected no backup file, stat error = %v", err)
	}
}

// TestApplyEmptyUpdateSet tests that nothing is written for an empty set
func TestApplyEmptyUpdateSet(t *testing.T) {
	p := newTestPatcher(t, nil)

	if _, err := p.Apply(&deviceconfig.UpdateSet{}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, err := os.Stat(p.Target().Path); !os.IsNotExist(err) {
		t.Errorf("expected no file to be created, stat error = %v", err)
	}
}

// TestApplyBackupAndMode tests the .bak copy and permission restoration
func TestApplyBackupAndMode(t *testing.T) {
	original := "# display settings\n[base]\nticker : OLD  # symbol\n"
	p := newTestPatcher(t, ptr(original))

	res, err := p.Apply(tickerUpdate("NEW"))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Created || !res.Changed {
		t.Errorf("Created = %v, Changed = %v", res.Created, res.Changed)
	}
	if o, ok := res.Outcome(StepBackup); !ok || !o.Applied || !o.Ok() {
		t.Errorf("backup outcome = %+v", o)
	}

	if got := readFile(t, p.Target().Path+BackupSuffix); got != original {
		t.Errorf("backup = %q, want %q", got, original)
	}
	if got, want := readFile(t, p.Target().Path), "# display settings\n[base]\nticker : NEW  # symbol\n"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}

	fi, err := os.Stat(p.Target().Path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", fi.Mode().Perm())
	}
}

// TestApplyLeavesNoTempFiles tests the directory holds only the file and its backup
func TestApplyLeavesNoTempFiles(t *testing.T) {
	p := newTestPatcher(t, ptr("[base]\n"))

	for i := 0; i < 3; i++ {
		if _, err := p.Apply(tickerUpdate(fmt.Sprintf("T%d", i))); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(p.Target().Path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 2 {
		t.Errorf("directory entries = %v, want settings file and backup", names)
	}
}

// TestApplyFailureLeavesFileUntouched tests that an unusable location is surfaced
func TestApplyFailureLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create blocker: %v", err)
	}

	p := New(Target{Path: filepath.Join(blocker, "configuration.cfg")})
	_, err := p.Apply(tickerUpdate("ABC"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !deviceconfig.IsIOError(err) {
		t.Errorf("expected IO error, got %T: %v", err, err)
	}
	if got := readFile(t, blocker); got != "x" {
		t.Errorf("blocker content changed to %q", got)
	}
}

// TestApplyMultipleSections tests a full update set against a realistic file
func TestApplyMultipleSections(t *testing.T) {
	original := "[base]\n" +
		"refresh_interval_minutes : 5  # every 5 min\n" +
		"data_api_base_url = https://api.example.com\n" +
		"ticker : BTC\n" +
		"\n" +
		"[epd2in13v3]\n" +
		"mode : line\n"
	p := newTestPatcher(t, ptr(original))

	u := &deviceconfig.UpdateSet{}
	u.Set(deviceconfig.SectionBase, deviceconfig.KeyRefreshInterval, deviceconfig.IntValue(10))
	u.Set(deviceconfig.SectionBase, deviceconfig.KeyDataRange, deviceconfig.FloatValue(7))
	u.Set(deviceconfig.SectionDisplay, deviceconfig.KeyMode, deviceconfig.StringValue("candle"))

	if _, err := p.Apply(u); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := "[base]\n" +
		"refresh_interval_minutes : 10  # every 5 min\n" +
		"data_api_base_url = https://api.example.com\n" +
		"ticker : BTC\n" +
		"data_range_days : 7.0\n" +
		"\n" +
		"[epd2in13v3]\n" +
		"mode : candle\n"
	if got := readFile(t, p.Target().Path); got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

// TestRestore tests swapping the file with its backup
func TestRestore(t *testing.T) {
	original := "[base]\nticker : OLD\n"
	p := newTestPatcher(t, ptr(original))

	if _, err := p.Restore(); err == nil {
		t.Fatal("expected error without a backup")
	}

	if _, err := p.Apply(tickerUpdate("NEW")); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, err := p.Restore(); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if got := readFile(t, p.Target().Path); got != original {
		t.Errorf("content after restore = %q, want %q", got, original)
	}
	if got := readFile(t, p.Target().Path+BackupSuffix); got != "[base]\nticker : NEW\n" {
		t.Errorf("backup after restore = %q", got)
	}
}

func genUpdateSet() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 1440),
		gen.Float64Range(0.1, 365),
		gen.Identifier(),
		gen.Bool(),
	).Map(func(v []any) *deviceconfig.UpdateSet {
		u := &deviceconfig.UpdateSet{}
		u.Set(deviceconfig.SectionBase, deviceconfig.KeyRefreshInterval, deviceconfig.IntValue(v[0].(int)))
		u.Set(deviceconfig.SectionBase, deviceconfig.KeyDataRange, deviceconfig.FloatValue(v[1].(float64)))
		u.Set(deviceconfig.SectionBase, deviceconfig.KeyTicker, deviceconfig.StringValue(v[2].(string)))
		if v[3].(bool) {
			u.Set(deviceconfig.SectionDisplay, deviceconfig.KeyMode, deviceconfig.StringValue(deviceconfig.ModeLine))
		}
		return u
	})
}

// genSettingText generates free text including the characters the file
// grammar treats specially.
func genSettingText() gopter.Gen {
	alphabet := []rune("aZ9-./:= \t[]#;\r\n")
	return gen.SliceOf(gen.IntRange(0, len(alphabet)-1)).Map(func(idx []int) string {
		runes := make([]rune, len(idx))
		for i, n := range idx {
			runes[i] = alphabet[n]
		}
		return string(runes)
	})
}

func countHeaders(doc *Document) int {
	n := 0
	for _, l := range doc.lines {
		if _, ok := parseHeader(l.text); ok {
			n++
		}
	}
	return n
}

// TestPatchProperties tests idempotence and non-interference over generated input
func TestPatchProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	seeds := []string{
		"",
		"[base]\nticker : X  # symbol\n",
		"# header\r\n[base]\r\nrefresh_interval_minutes=3;fast\r\n\r\n[epd2in13v3]\r\nmode : line",
		"[epd2in13v3]\n# only a comment\n",
	}

	properties.Property("applying twice equals applying once", prop.ForAll(
		func(u *deviceconfig.UpdateSet, seed int) bool {
			doc := Parse([]byte(seeds[seed]))
			Patch(doc, u)
			once := doc.Bytes()
			doc = Parse(once)
			Patch(doc, u)
			return string(doc.Bytes()) == string(once)
		},
		genUpdateSet(),
		gen.IntRange(0, len(seeds)-1),
	))

	properties.Property("accepted strings are written once and read back", prop.ForAll(
		func(text string, seed int) bool {
			u, err := deviceconfig.Validate(map[string]any{
				"base": map[string]any{
					deviceconfig.KeyTicker:         text,
					deviceconfig.KeyDataAPIBaseURL: text,
				},
			})
			if err != nil {
				return deviceconfig.IsValidationError(err)
			}
			doc := Parse([]byte(seeds[seed]))
			Patch(doc, u)
			once := doc.Bytes()
			doc = Parse(once)
			Patch(doc, u)
			if string(doc.Bytes()) != string(once) {
				return false
			}
			want := strings.TrimSpace(text)
			ticker, _ := doc.Get(deviceconfig.SectionBase, deviceconfig.KeyTicker)
			url, _ := doc.Get(deviceconfig.SectionBase, deviceconfig.KeyDataAPIBaseURL)
			seedDoc := Parse([]byte(seeds[seed]))
			headers := countHeaders(seedDoc)
			if !seedDoc.HasSection(deviceconfig.SectionBase) {
				headers++
			}
			return ticker == want && url == want && countHeaders(doc) == headers
		},
		genSettingText(),
		gen.IntRange(0, len(seeds)-1),
	))

	properties.Property("untouched lines survive byte for byte", prop.ForAll(
		func(u *deviceconfig.UpdateSet, comment string, value string, crlf bool) bool {
			eol := "\n"
			if crlf {
				eol = "\r\n"
			}
			untouched := []string{
				"  note_" + value + " = " + value + "   # " + comment,
				"data_api_base_url:" + value + " ;" + comment,
				"# " + comment,
			}
			in := "[base]" + eol + strings.Join(untouched, eol) + eol
			doc := Parse([]byte(in))
			Patch(doc, u)
			out := string(doc.Bytes())
			for _, l := range untouched {
				if !strings.Contains(out, l+eol) {
					return false
				}
			}
			return true
		},
		genUpdateSet(),
		gen.AlphaString(),
		gen.Identifier(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
