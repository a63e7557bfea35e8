package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/idelchi/diskcheck/internal/cleanup"
	"github.com/idelchi/diskcheck/internal/config"
	"github.com/idelchi/diskcheck/internal/dirstat"
	"github.com/idelchi/diskcheck/internal/history"
	"github.com/idelchi/diskcheck/internal/logging"
	"github.com/idelchi/diskcheck/internal/report"
)

// runner carries the streams and global options of one command invocation.
type runner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	debug  bool
	now    func() time.Time
}

func newRunner(cmd *cobra.Command, global *globalOptions) *runner {
	return &runner{
		stdin:  cmd.InOrStdin(),
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
		debug:  global.debug,
		now:    time.Now,
	}
}

// isTerminal reports whether w is a terminal. Non-file writers are not.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

// progress returns a progress hook printing to stderr and a function that
// clears the status line, or a nil hook when stderr is not a terminal.
func (r *runner) progress(enabled bool) (func(files, bytes int64), func()) {
	if !enabled || r.debug || !isTerminal(r.stderr) {
		return nil, func() {}
	}

	// Hide cursor for in-place updates; restore on exit.
	fmt.Fprint(r.stderr, "\033[?25l")

	hook := func(files, bytes int64) {
		msg := fmt.Sprintf("Scanning… %d files, %s",
			files, humanize.IBytes(uint64(bytes))) //nolint:gosec // Bytes is always positive
		fmt.Fprintf(r.stderr, "\r\033[2K%s\r", msg)
	}

	return hook, func() {
		fmt.Fprint(r.stderr, "\r\033[2K\r\033[?25h")
	}
}

// openLog opens the dated log file and returns a logger writing to it and to stderr.
func (r *runner) openLog(cfg *config.Config, now time.Time) (*os.File, *slog.Logger, error) {
	paths := report.DailyPaths(cfg.LogDir, cfg.DataDir, now)

	file, err := logging.Open(paths.Log)
	if err != nil {
		return nil, nil, err
	}

	return file, logging.New(logging.Config{File: file, Console: r.stderr, Debug: r.debug}), nil
}

func (r *runner) scan(ctx context.Context, cfg *config.Config, options scanOptions) error {
	now := r.now()
	paths := report.DailyPaths(cfg.LogDir, cfg.DataDir, now)

	logFile, log, err := r.openLog(cfg, now)
	if err != nil {
		return err
	}
	defer logFile.Close()

	scanID := uuid.NewString()
	threshold := cfg.MinSizeBytes()
	exclusions := dirstat.NewExclusionList(cfg.Excludes...)

	log = log.With("scan", scanID)
	log.Info("scan started",
		"roots", strings.Join(cfg.Roots, ", "),
		"threshold", humanize.IBytes(uint64(threshold)), //nolint:gosec // Threshold is never negative
		"excludes", exclusions.String(),
	)

	hook, done := r.progress(options.output != "json")

	var (
		results []*dirstat.Result
		failed  []error
	)

	for _, root := range cfg.Roots {
		result, err := dirstat.Run(ctx, dirstat.Options{
			Root:       root,
			MinSize:    threshold,
			Exclusions: exclusions,
			Patterns:   options.patterns,
			Kind:       dirstat.Kind(options.kind),
			Depth:      options.depth,
			Logger:     log,
		}, hook)
		if err != nil {
			if ctx.Err() != nil {
				done()

				return err
			}

			log.Error("scan of root failed", "root", root, "err", err)
			failed = append(failed, err)

			continue
		}

		results = append(results, result)
	}

	done()

	if len(results) == 0 {
		return fmt.Errorf("no root could be scanned: %w", errors.Join(failed...))
	}

	merged := dirstat.Merge(results...)

	volumes, errs := report.Volumes(ctx, cfg.Roots)
	for _, err := range errs {
		log.Warn("reading volume usage", "err", err)
	}

	store, seen := r.previous(ctx, cfg, log)
	defer store.Close()

	rep := report.New(scanID, now, cfg.Roots, threshold, merged, seen)
	rep.Volumes = volumes

	if !options.noReport {
		if err := report.WriteText(logFile, rep); err != nil {
			return fmt.Errorf("writing report to %s: %w", paths.Log, err)
		}

		if err := report.WriteDataFile(paths.Data, rep); err != nil {
			log.Warn("writing data file", "path", paths.Data, "err", err)
		} else {
			log.Info("data file written", "path", paths.Data, "records", len(rep.Records))
		}
	}

	if !options.noSave && store != nil {
		r.save(ctx, store, rep, cfg.HistoryKeep, log)
	}

	log.Info("scan finished",
		"entries", len(rep.Records),
		"new", len(rep.NewRecords()),
		"warnings", len(rep.Warnings),
		"elapsed", rep.Elapsed,
	)

	if options.output == "json" {
		return PrintJSON(rep, r.stdout)
	}

	return PrintTable(rep, options.top, r.stdout, isTerminal(r.stdout))
}

// previous opens the history store and returns the paths of the last scan.
// Both are nil when the store is unavailable or empty.
func (r *runner) previous(ctx context.Context, cfg *config.Config, log *slog.Logger) (*history.Store, map[string]struct{}) {
	store, err := history.Open(filepath.Join(cfg.DataDir, history.FileName))
	if err != nil {
		log.Warn("history unavailable", "err", err)

		return nil, nil
	}

	findings, err := store.Previous(ctx)
	if err != nil {
		log.Warn("reading previous scan", "err", err)

		return store, nil
	}

	if findings == nil {
		return store, nil
	}

	return store, lo.MapValues(findings, func(history.Finding, string) struct{} { return struct{}{} })
}

func (r *runner) save(ctx context.Context, store *history.Store, rep *report.Report, keep int, log *slog.Logger) {
	findings := lo.Map(rep.Records, func(rec report.Record, _ int) history.Finding {
		return history.Finding{Path: rec.Path, Size: rec.Size, Dir: rec.Kind == report.KindDir, ModTime: rec.Modified}
	})

	scan := history.Scan{
		ID:         rep.ScanID,
		StartedAt:  rep.StartedAt,
		Roots:      rep.Roots,
		Threshold:  rep.Threshold,
		TotalBytes: rep.TotalBytes,
		Findings:   len(rep.Records),
		Warnings:   len(rep.Warnings),
	}

	if err := store.Save(ctx, scan, findings); err != nil {
		log.Warn("saving scan to history", "err", err)

		return
	}

	pruned, err := store.Prune(ctx, keep)
	if err != nil {
		log.Warn("pruning history", "err", err)

		return
	}

	log.Debug("history pruned", "removed", pruned, "keep", keep)
}

func (r *runner) tree(ctx context.Context, cfg *config.Config, root string, depth int, threshold int64) error {
	log := logging.New(logging.Config{Console: r.stderr, Debug: r.debug})

	hook, done := r.progress(true)

	result, err := dirstat.Run(ctx, dirstat.Options{
		Root:       root,
		MinSize:    threshold,
		Exclusions: dirstat.NewExclusionList(cfg.Excludes...),
		Depth:      depth,
		Logger:     log,
	}, hook)

	done()

	if err != nil {
		return err
	}

	return report.WriteTree(r.stdout, result)
}

func (r *runner) clean(ctx context.Context, cfg *config.Config, paths []string, options cleanOptions, keep time.Duration) error {
	logFile, log, err := r.openLog(cfg, r.now())
	if err != nil {
		return err
	}
	defer logFile.Close()

	opts := cleanup.Options{
		DryRun:        true,
		KeepNewerThan: keep,
		Protected:     append([]string{cfg.LogDir, cfg.DataDir}, cfg.Roots...),
		Now:           r.now,
		Logger:        log,
	}

	// Always list the candidates first.
	var planned *cleanup.Result
	if len(paths) > 0 {
		planned, err = cleanup.RemovePaths(ctx, paths, opts)
	} else {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return fmt.Errorf("locating home directory: %w", herr)
		}

		planned, err = cleanup.Run(ctx, cleanup.DefaultTargets(home), opts)
	}

	if err != nil {
		return err
	}

	if options.dryRun || len(planned.Removed) == 0 {
		return PrintCleanup(planned, r.stdout)
	}

	if !options.yes {
		if err := PrintCleanup(planned, r.stdout); err != nil {
			return err
		}

		ok, err := r.confirm(fmt.Sprintf("Delete %d entries (%s)?",
			len(planned.Removed), humanize.IBytes(uint64(planned.FreedBytes)))) //nolint:gosec // Sizes are never negative
		if err != nil {
			return err
		}

		if !ok {
			log.Info("cleanup aborted")

			return ErrAborted
		}
	}

	opts.DryRun = false

	// Delete what was listed, not what a second walk would find.
	var result *cleanup.Result
	if len(paths) > 0 {
		result, err = cleanup.RemovePaths(ctx, paths, opts)
	} else {
		result, err = cleanup.Delete(ctx, planned.Removed, opts)
	}

	if err != nil {
		return err
	}

	log.Info("cleanup finished",
		"removed", len(result.Removed),
		"failed", len(result.Failed),
		"freed", humanize.IBytes(uint64(result.FreedBytes)), //nolint:gosec // Sizes are never negative
	)

	return PrintCleanup(result, r.stdout)
}

// confirm asks a yes/no question on stdin. A closed or non-interactive stdin
// answers no.
func (r *runner) confirm(question string) (bool, error) {
	if f, ok := r.stdin.(*os.File); ok && !isatty.IsTerminal(f.Fd()) {
		return false, fmt.Errorf("%w: stdin is not a terminal, use --yes to confirm", ErrAborted)
	}

	fmt.Fprintf(r.stdout, "%s [y/N]: ", question)

	answer, err := bufio.NewReader(r.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (r *runner) history(ctx context.Context, cfg *config.Config, limit int, output string) error {
	store, err := history.Open(filepath.Join(cfg.DataDir, history.FileName))
	if err != nil {
		return err
	}
	defer store.Close()

	scans, err := store.List(ctx, limit)
	if err != nil {
		return err
	}

	if output == "json" {
		return PrintHistoryJSON(scans, r.stdout)
	}

	return PrintHistory(scans, r.stdout)
}
