package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/idelchi/diskcheck/internal/cleanup"
	"github.com/idelchi/diskcheck/internal/history"
	"github.com/idelchi/diskcheck/internal/report"
)

// printer styles console output; the zero value prints plain text.
type printer struct {
	colored bool
}

func (p printer) paint(style color.Style, s string) string {
	if !p.colored {
		return s
	}

	return style.Render(s)
}

func humanSize(n int64) string {
	return humanize.IBytes(uint64(max(n, 0)))
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	return table
}

// PrintJSON outputs the report in JSON format.
func PrintJSON(v any, writer io.Writer) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintTable outputs the top entries of the report in human-readable form.
// New entries and warnings are highlighted when colored is set.
//
//nolint:errcheck // Write errors surface through the final Fprintf
func PrintTable(rep *report.Report, top int, writer io.Writer, colored bool) error {
	p := printer{colored: colored}

	records := rep.Records
	if top > 0 && len(records) > top {
		records = records[:top]
	}

	if len(records) == 0 {
		fmt.Fprintf(writer, "\nNo entries of %s or more.\n", humanSize(rep.Threshold))
	} else {
		fmt.Fprintf(writer, "\nTop entries of %s or more (%d of %d):\n\n", humanSize(rep.Threshold), len(records), len(rep.Records))

		table := newTable(writer, "#", "Size", "%", "Kind", "Path")

		for i, rec := range records {
			pct := 0.0
			if rep.TotalBytes > 0 {
				pct = 100.0 * float64(rec.Size) / float64(rep.TotalBytes)
			}

			path := rec.Path
			if rec.New {
				path = p.paint(color.New(color.FgGreen, color.OpBold), path+" (new)")
			}

			table.Append([]string{
				fmt.Sprintf("%d", i+1),
				humanSize(rec.Size),
				fmt.Sprintf("%.1f", pct),
				rec.Kind,
				path,
			})
		}

		table.Render()
	}

	if len(rep.Warnings) > 0 {
		fmt.Fprintln(writer, p.paint(color.New(color.FgYellow), fmt.Sprintf("\nSkipped %d unreadable entries:", len(rep.Warnings))))

		for _, warn := range rep.Warnings {
			fmt.Fprintf(writer, "  - %s: %s\n", warn.Path, warn.Err)
		}
	}

	fmt.Fprintln(writer, "\nStats:")

	for _, v := range rep.Volumes {
		fmt.Fprintf(writer, "  Volume:       %s\n", v)
	}

	if !rep.Initial {
		fmt.Fprintf(writer, "  New entries:  %d\n", len(rep.NewRecords()))
	}

	fmt.Fprintf(writer, "  Total files:  %d in %d directories\n", rep.FileCount, rep.DirCount)
	fmt.Fprintf(writer, "  Total size:   %s (%d bytes)\n", humanSize(rep.TotalBytes), rep.TotalBytes)

	_, err := fmt.Fprintf(writer, "  Elapsed:      %v\n", rep.Elapsed)

	return err
}

// PrintCleanup lists the removed (or, in dry-run mode, removable) entries and failures.
//
//nolint:errcheck // Write errors surface through the final Fprintf
func PrintCleanup(result *cleanup.Result, writer io.Writer) error {
	verb := lo.Ternary(result.DryRun, "Would delete", "Deleted")

	if len(result.Removed) > 0 {
		table := newTable(writer, "Size", "Target", "Path")

		for _, removal := range result.Removed {
			table.Append([]string{humanSize(removal.Size), removal.Target, removal.Path})
		}

		table.Render()
	}

	for _, failure := range result.Failed {
		fmt.Fprintf(writer, "  ! %s: %s\n", failure.Path, failure.Err)
	}

	_, err := fmt.Fprintf(writer, "%s %d entries, %s.\n", verb, len(result.Removed), humanSize(result.FreedBytes))

	return err
}

// PrintHistory lists recorded scans, newest first.
func PrintHistory(scans []history.Scan, writer io.Writer) error {
	if len(scans) == 0 {
		_, err := fmt.Fprintln(writer, "No scans recorded.")

		return err
	}

	table := newTable(writer, "Started", "Scan", "Roots", "Threshold", "Scanned", "Entries", "Warnings")

	for _, scan := range scans {
		table.Append([]string{
			scan.StartedAt.Format("2006-01-02 15:04"),
			scan.ID,
			strings.Join(scan.Roots, ", "),
			humanSize(scan.Threshold),
			humanSize(scan.TotalBytes),
			fmt.Sprintf("%d", scan.Findings),
			fmt.Sprintf("%d", scan.Warnings),
		})
	}

	table.Render()

	return nil
}

// historyEntry is the JSON form of a recorded scan.
type historyEntry struct {
	ID         string   `json:"id"`
	StartedAt  string   `json:"started_at"`
	Roots      []string `json:"roots"`
	Threshold  int64    `json:"threshold"`
	TotalBytes int64    `json:"total_bytes"`
	Findings   int      `json:"findings"`
	Warnings   int      `json:"warnings"`
}

// PrintHistoryJSON lists recorded scans in JSON format.
func PrintHistoryJSON(scans []history.Scan, writer io.Writer) error {
	return PrintJSON(lo.Map(scans, func(s history.Scan, _ int) historyEntry {
		return historyEntry{
			ID:         s.ID,
			StartedAt:  s.StartedAt.Format(time.RFC3339),
			Roots:      s.Roots,
			Threshold:  s.Threshold,
			TotalBytes: s.TotalBytes,
			Findings:   s.Findings,
			Warnings:   s.Warnings,
		}
	}), writer)
}
