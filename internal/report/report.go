// Package report turns scan results into the dated log report and data file.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/idelchi/diskcheck/internal/dirstat"
)

const (
	// KindFile marks a file record.
	KindFile = "file"
	// KindDir marks a directory record.
	KindDir = "dir"

	timeLayout = "2006-01-02 15:04:05"
	rule       = "================================================================================"
)

// Record is one finding in the data file.
type Record struct {
	// Path is the absolute path.
	Path string `json:"path"`
	// Size is the (cumulative) size in bytes.
	Size int64 `json:"size"`
	// Kind is "file" or "dir".
	Kind string `json:"kind"`
	// Modified is the modification time of the entry.
	Modified time.Time `json:"modified"`
	// Timestamp is the time of the scan that produced the record.
	Timestamp time.Time `json:"timestamp"`
	// New is true when the path was not reported by the previous scan.
	New bool `json:"new"`
}

// Report is the outcome of one scheduled run.
type Report struct {
	ScanID     string            `json:"scan_id"`
	StartedAt  time.Time         `json:"started_at"`
	Elapsed    time.Duration     `json:"elapsed"`
	Roots      []string          `json:"roots"`
	Threshold  int64             `json:"threshold"`
	Initial    bool              `json:"initial"`
	Volumes    []Volume          `json:"volumes,omitempty"`
	Records    []Record          `json:"records"`
	Warnings   []dirstat.Warning `json:"warnings"`
	TotalBytes int64             `json:"total_bytes"`
	FileCount  int64             `json:"file_count"`
	DirCount   int64             `json:"dir_count"`
}

// New builds a report from a scan result.
//
// seen holds the paths reported by the previous scan; a nil map marks this
// run as the initial scan, in which case no record is flagged as new.
func New(scanID string, startedAt time.Time, roots []string, threshold int64,
	result *dirstat.Result, seen map[string]struct{},
) *Report {
	initial := seen == nil

	records := lo.Map(result.Entries, func(e dirstat.Entry, _ int) Record {
		_, known := seen[e.Path]

		return Record{
			Path:      e.Path,
			Size:      e.Size,
			Kind:      lo.Ternary(e.Dir, KindDir, KindFile),
			Modified:  e.ModTime,
			Timestamp: startedAt,
			New:       !initial && !known,
		}
	})

	return &Report{
		ScanID:     scanID,
		StartedAt:  startedAt,
		Elapsed:    result.Elapsed,
		Roots:      roots,
		Threshold:  threshold,
		Initial:    initial,
		Records:    records,
		Warnings:   result.Warnings,
		TotalBytes: result.TotalBytes,
		FileCount:  result.FileCount,
		DirCount:   result.DirCount,
	}
}

// NewRecords returns the records flagged as new.
func (r *Report) NewRecords() []Record {
	return lo.Filter(r.Records, func(rec Record, _ int) bool { return rec.New })
}

// Paths holds the dated output files of one day.
type Paths struct {
	// Log is the append-only log file receiving log records and reports.
	Log string
	// Data is the list-of-records data file.
	Data string
}

// DailyPaths returns the output files for the day of now.
func DailyPaths(logDir, dataDir string, now time.Time) Paths {
	day := now.Format("20060102")

	return Paths{
		Log:  filepath.Join(logDir, "diskcheck_"+day+".log"),
		Data: filepath.Join(dataDir, "large_files_"+day+".json"),
	}
}

// WriteJSON writes the records as an indented JSON list.
func WriteJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}

	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return err
	}

	return nil
}

// WriteDataFile replaces the data file at path with the report's records.
// The file is written next to its destination and renamed into place.
func WriteDataFile(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating data file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Gone after a successful rename

	if err := WriteJSON(tmp, r.Records); err != nil {
		_ = tmp.Close()

		return err
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing data file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing data file: %w", err)
	}

	return nil
}

// WriteText writes the human-readable report.
//
//nolint:errcheck // Write errors surface through the final Fprintf
func WriteText(w io.Writer, r *Report) error {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Large file report")
	fmt.Fprintf(w, "Scan:       %s\n", r.ScanID)
	fmt.Fprintf(w, "Started:    %s\n", r.StartedAt.Format(timeLayout))
	fmt.Fprintf(w, "Roots:      %s\n", strings.Join(r.Roots, ", "))
	fmt.Fprintf(w, "Threshold:  %s\n", humanize.IBytes(uint64(r.Threshold))) //nolint:gosec // Threshold is never negative

	for _, v := range r.Volumes {
		fmt.Fprintf(w, "Volume:     %s\n", v)
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	if r.Initial {
		fmt.Fprintf(w, "Initial scan, %d large entries found:\n\n", len(r.Records))
	} else {
		fmt.Fprintf(w, "%d large entries found, %d new since the previous scan:\n\n",
			len(r.Records), len(r.NewRecords()))
	}

	if len(r.Records) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"#", "Size", "Kind", "New", "Modified", "Path"})
		table.SetAutoWrapText(false)
		table.SetAutoFormatHeaders(true)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)

		for i, rec := range r.Records {
			table.Append([]string{
				fmt.Sprintf("%d", i+1),
				humanize.IBytes(uint64(rec.Size)), //nolint:gosec // Sizes are never negative
				rec.Kind,
				lo.Ternary(rec.New, "*", ""),
				formatTime(rec.Modified),
				rec.Path,
			})
		}

		table.Render()
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "Skipped %d unreadable entries:\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  - %s: %s\n", warn.Path, warn.Err)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Scanned:    %s in %d files, %d directories\n",
		humanize.IBytes(uint64(r.TotalBytes)), r.FileCount, r.DirCount) //nolint:gosec // Sizes are never negative
	fmt.Fprintf(w, "Elapsed:    %v\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Finished:   %s\n", r.StartedAt.Add(r.Elapsed).Format(timeLayout))

	_, err := fmt.Fprintf(w, "%s\n\n", rule)

	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Format("2006-01-02 15:04")
}
