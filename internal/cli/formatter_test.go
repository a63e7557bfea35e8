package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/idelchi/diskcheck/internal/cleanup"
	"github.com/idelchi/diskcheck/internal/dirstat"
	"github.com/idelchi/diskcheck/internal/report"
)

func TestPrintTable(t *testing.T) {
	req := require.New(t)

	result := &dirstat.Result{
		Entries: []dirstat.Entry{
			{Path: "/c/users", Size: 6 << 30, Dir: true},
			{Path: "/c/users/video.mkv", Size: 4 << 30},
		},
		Warnings:   []dirstat.Warning{{Path: "/c/locked", Err: "permission denied"}},
		TotalBytes: 8 << 30,
		FileCount:  10,
		DirCount:   2,
	}

	rep := report.New("scan", time.Now(), []string{"/c"}, 1<<30, result, map[string]struct{}{"/c/users": {}})

	var buf bytes.Buffer
	req.NoError(PrintTable(rep, 0, &buf, false))
	out := buf.String()

	req.Contains(out, "Top entries of 1.0 GiB or more (2 of 2)")
	req.Contains(out, "75.0")
	req.Contains(out, "/c/users/video.mkv (new)")
	req.Contains(out, "Skipped 1 unreadable entries")
	req.Contains(out, "New entries:  1")
	req.Contains(out, "Total files:  10 in 2 directories")
	req.NotContains(out, "\x1b[", "no color codes when not colored")
}

func TestPrintTable_Empty(t *testing.T) {
	rep := report.New("scan", time.Now(), []string{"/c"}, 10<<20, &dirstat.Result{}, nil)

	var buf bytes.Buffer
	require.NoError(t, PrintTable(rep, 5, &buf, false))
	require.Contains(t, buf.String(), "No entries of 10 MiB or more.")
	require.NotContains(t, buf.String(), "New entries")
}

func TestPrintCleanup(t *testing.T) {
	var buf bytes.Buffer

	result := &cleanup.Result{
		DryRun:     true,
		Removed:    []cleanup.Removal{{Target: "temp", Path: "/tmp/a.tmp", Size: 2048}},
		Failed:     []cleanup.Failure{{Path: "/tmp/b.tmp", Err: "busy"}},
		FreedBytes: 2048,
	}

	require.NoError(t, PrintCleanup(result, &buf))
	require.Contains(t, buf.String(), "/tmp/a.tmp")
	require.Contains(t, buf.String(), "! /tmp/b.tmp: busy")
	require.Contains(t, buf.String(), "Would delete 1 entries, 2.0 KiB.")
}
