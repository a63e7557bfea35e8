package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idelchi/diskcheck/internal/report"
)

// env holds the directories of one test invocation.
type env struct {
	root    string
	logDir  string
	dataDir string
}

func newEnv(t *testing.T) env {
	t.Helper()

	base := t.TempDir()
	e := env{
		root:    filepath.Join(base, "root"),
		logDir:  filepath.Join(base, "logs"),
		dataDir: filepath.Join(base, "data"),
	}

	e.write(t, "a/big.bin", 3000)
	e.write(t, "a/small.txt", 100)
	e.write(t, "top.bin", 2500)

	return e
}

func (e env) write(t *testing.T, rel string, size int) string {
	t.Helper()

	path := filepath.Join(e.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))

	return path
}

// run executes the command tree with args and the test directories.
func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := New("test").Command()
	cmd.SetArgs(append(args,
		"--env-file", filepath.Join(e.root, "missing.env"),
		"--log-dir", e.logDir,
		"--data-dir", e.dataDir,
	))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()

	return stdout.String(), err
}

func (e env) scan(t *testing.T, args ...string) *report.Report {
	t.Helper()

	out, err := e.run(t, "", append([]string{"scan", e.root, "--min-size", "1KB", "--output", "json"}, args...)...)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))

	return &rep
}

func TestScan(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)

	rep := e.scan(t)

	req.True(rep.Initial)
	req.Equal(int64(5600), rep.TotalBytes)
	req.Len(rep.Records, 3)
	req.Equal(filepath.Join(e.root, "a"), rep.Records[0].Path)
	req.Equal(report.KindDir, rep.Records[0].Kind)
	req.Equal(filepath.Join(e.root, "a", "big.bin"), rep.Records[1].Path)
	req.Equal(filepath.Join(e.root, "top.bin"), rep.Records[2].Path)

	logs, err := filepath.Glob(filepath.Join(e.logDir, "diskcheck_*.log"))
	req.NoError(err)
	req.Len(logs, 1)

	content, err := os.ReadFile(logs[0])
	req.NoError(err)
	req.Contains(string(content), "scan started")
	req.Contains(string(content), "Large file report")
	req.Contains(string(content), "Initial scan, 3 large entries found")

	data, err := filepath.Glob(filepath.Join(e.dataDir, "large_files_*.json"))
	req.NoError(err)
	req.Len(data, 1)
	req.FileExists(filepath.Join(e.dataDir, "history.db"))
}

func TestScan_FlagsNewEntries(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)

	e.scan(t)

	again := e.scan(t)
	req.False(again.Initial)
	req.Empty(again.NewRecords())

	added := e.write(t, "b/new.bin", 5000)

	third := e.scan(t)
	req.False(third.Initial)

	paths := make([]string, 0, len(third.NewRecords()))
	for _, rec := range third.NewRecords() {
		paths = append(paths, rec.Path)
	}

	req.ElementsMatch([]string{added, filepath.Dir(added)}, paths)
}

func TestScan_NoSave(t *testing.T) {
	e := newEnv(t)

	e.scan(t, "--no-save")
	require.True(t, e.scan(t).Initial, "unsaved scans are not compared against")
}

func TestScan_Table(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "scan", e.root, "--min-size", "1KB", "--top", "1")
	require.NoError(t, err)
	require.Contains(t, out, "(1 of 3)")
	require.Contains(t, out, filepath.Join(e.root, "a"))
	require.NotContains(t, out, "top.bin")
}

func TestScan_InvalidFlags(t *testing.T) {
	e := newEnv(t)

	for _, args := range [][]string{
		{"scan", e.root, "--kind", "links"},
		{"scan", e.root, "--output", "xml"},
		{"scan", e.root, "--depth", "-1"},
		{"scan", e.root, "--min-size", "lots"},
	} {
		_, err := e.run(t, "", args...)
		require.Error(t, err, args)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "", "scan", filepath.Join(e.root, "missing"))
	require.ErrorContains(t, err, "no root could be scanned")
}

func TestScan_SameDayReplacesDataFile(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)

	out, err := e.run(t, "", "scan", "--help")
	req.NoError(err)
	req.Contains(out, "A second scan on the same day replaces that day's data file")

	e.scan(t)
	added := e.write(t, "b/new.bin", 5000)
	second := e.scan(t)

	data, err := filepath.Glob(filepath.Join(e.dataDir, "large_files_*.json"))
	req.NoError(err)
	req.Len(data, 1)

	content, err := os.ReadFile(data[0])
	req.NoError(err)

	var records []report.Record
	req.NoError(json.Unmarshal(content, &records))
	req.Len(records, len(second.Records))

	paths := make([]string, 0, len(records))
	for _, rec := range records {
		paths = append(paths, rec.Path)
	}

	req.Contains(paths, added)

	logs, err := filepath.Glob(filepath.Join(e.logDir, "diskcheck_*.log"))
	req.NoError(err)
	req.Len(logs, 1)

	text, err := os.ReadFile(logs[0])
	req.NoError(err)
	req.Equal(2, strings.Count(string(text), "Large file report"))
}

func TestScan_UnwritableLog(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)

	// A regular file where the log directory should be.
	blocked := filepath.Join(filepath.Dir(e.logDir), "logs-file")
	req.NoError(os.WriteFile(blocked, []byte("x"), 0o644))

	cmd := New("test").Command()
	cmd.SetArgs([]string{
		"scan", e.root, "--min-size", "1KB", "--output", "json",
		"--env-file", filepath.Join(e.root, "missing.env"),
		"--log-dir", blocked,
		"--data-dir", e.dataDir,
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	req.ErrorContains(cmd.Execute(), "creating log directory")

	data, err := filepath.Glob(filepath.Join(e.dataDir, "large_files_*.json"))
	req.NoError(err)
	req.Empty(data)
	req.NoFileExists(filepath.Join(e.dataDir, "history.db"))
}

func TestTree(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "tree", e.root, "--depth", "1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "a"+string(filepath.Separator))
	require.Contains(t, lines[2], "top.bin")
}

func TestClean_Paths(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.root, "top.bin")

	out, err := e.run(t, "", "clean", path, "--dry-run")
	require.NoError(t, err)
	require.Contains(t, out, "Would delete 1 entries")
	require.FileExists(t, path)

	_, err = e.run(t, "n\n", "clean", path)
	require.ErrorIs(t, err, ErrAborted)
	require.FileExists(t, path)

	out, err = e.run(t, "y\n", "clean", path)
	require.NoError(t, err)
	require.Contains(t, out, "Deleted 1 entries")
	require.NoFileExists(t, path)
}

func TestClean_Yes(t *testing.T) {
	e := newEnv(t)
	dir := filepath.Join(e.root, "a")

	out, err := e.run(t, "", "clean", dir, "--yes")
	require.NoError(t, err)
	require.Contains(t, out, "Deleted 1 entries, 3.0 KiB")
	require.NoDirExists(t, dir)
}

func TestClean_RefusesDataDir(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.dataDir, 0o755))

	out, err := e.run(t, "", "clean", e.dataDir, "--yes")
	require.NoError(t, err)
	require.Contains(t, out, "protected path")
	require.DirExists(t, e.dataDir)
}

func TestHistory(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)

	out, err := e.run(t, "", "history")
	req.NoError(err)
	req.Contains(out, "No scans recorded.")

	first := e.scan(t)
	second := e.scan(t)

	out, err = e.run(t, "", "history", "--output", "json")
	req.NoError(err)

	var entries []historyEntry
	req.NoError(json.Unmarshal([]byte(out), &entries))
	req.Len(entries, 2)
	req.Equal(second.ScanID, entries[0].ID)
	req.Equal(first.ScanID, entries[1].ID)
	req.Equal(int64(5600), entries[0].TotalBytes)
	req.Equal(3, entries[0].Findings)
}

func TestSchedule(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "schedule", "--format", "cron", "--time", "07:30")
	require.NoError(t, err)
	require.Contains(t, out, "30 7 * * * ")
	require.Contains(t, out, "# DiskFileCheck")

	out, err = e.run(t, "", "schedule", "--format", "batch", "--action", "delete", "--task-name", "Nightly")
	require.NoError(t, err)
	require.Contains(t, out, `schtasks /delete /tn "Nightly" /f`)

	_, err = e.run(t, "", "schedule", "--format", "launchd")
	require.Error(t, err)
}
