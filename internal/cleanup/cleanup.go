// Package cleanup deletes temporary files and selected paths, or lists what
// would be deleted in dry-run mode.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/idelchi/diskcheck/internal/dirstat"
)

// DefaultKeepNewerThan protects recently modified files.
const DefaultKeepNewerThan = 24 * time.Hour

// ErrProtected is returned for paths that are never deleted.
var ErrProtected = errors.New("protected path")

// ProtectedKeywords are name fragments of files that are always kept.
//
//nolint:gochecknoglobals // Config constant
var ProtectedKeywords = []string{"system", "boot", "windows", "program", "service"}

// Target is a group of directories and the file patterns removed from them.
type Target struct {
	// Name identifies the target.
	Name string
	// Description is shown while cleaning.
	Description string
	// Paths are the directories to clean.
	Paths []string
	// Patterns are glob patterns matched case-insensitively against file names.
	Patterns []string
}

// Options configures a cleanup run.
type Options struct {
	// DryRun lists the candidates without deleting anything.
	DryRun bool
	// KeepNewerThan keeps files modified within this window.
	KeepNewerThan time.Duration
	// Protected are paths that RemovePaths refuses, such as the scan roots.
	Protected []string
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Logger receives progress records. Nil discards them.
	Logger *slog.Logger
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}

	return time.Now()
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.New(slog.DiscardHandler)
}

// Removal is one deleted (or, in dry-run mode, deletable) path.
type Removal struct {
	Target string `json:"target,omitempty"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

// Failure is a path that could not be deleted or inspected.
type Failure struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// Result summarizes a cleanup run.
type Result struct {
	DryRun     bool          `json:"dry_run"`
	Removed    []Removal     `json:"removed"`
	Failed     []Failure     `json:"failed"`
	FreedBytes int64         `json:"freed_bytes"`
	Elapsed    time.Duration `json:"elapsed"`
}

func (r *Result) fail(path string, err error) {
	r.Failed = append(r.Failed, Failure{Path: path, Err: err.Error()})
}

// isProtectedName reports whether a file name contains a protected keyword.
func isProtectedName(name string) bool {
	name = strings.ToLower(name)

	for _, keyword := range ProtectedKeywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}

	return false
}

// matchesAny reports whether name matches any of the glob patterns.
func matchesAny(name string, patterns []string) bool {
	name = strings.ToLower(name)

	for _, p := range patterns {
		if ok, _ := filepath.Match(strings.ToLower(p), name); ok {
			return true
		}
	}

	return false
}

// candidates walks dir and returns the files eligible for deletion, sorted by path.
func candidates(ctx context.Context, dir string, target Target, opts Options, result *Result) ([]Removal, error) {
	var (
		mu    sync.Mutex
		found []Removal
	)

	cutoff := opts.now().Add(-opts.KeepNewerThan)

	//nolint:varnamelen // d is standard for DirEntry
	err := fastwalk.Walk(&fastwalk.Config{Follow: false}, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			mu.Lock()
			result.fail(path, err)
			mu.Unlock()

			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !d.Type().IsRegular() {
			return nil
		}

		if !matchesAny(d.Name(), target.Patterns) || isProtectedName(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			mu.Lock()
			result.fail(path, err)
			mu.Unlock()

			return nil //nolint:nilerr // Recorded as a failure
		}

		if opts.KeepNewerThan > 0 && info.ModTime().After(cutoff) {
			return nil
		}

		mu.Lock()
		found = append(found, Removal{Target: target.Name, Path: path, Size: info.Size()})
		mu.Unlock()

		return nil
	})

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })

	return found, err
}

// Run cleans every target. Missing directories are skipped; files that cannot
// be deleted are recorded in the result and the run continues.
func Run(ctx context.Context, targets []Target, opts Options) (*Result, error) {
	log := opts.logger()
	start := time.Now()
	result := &Result{DryRun: opts.DryRun, Removed: []Removal{}, Failed: []Failure{}}

	for _, target := range targets {
		log.Info("cleaning target", "target", target.Name, "description", target.Description, "dry_run", opts.DryRun)

		for _, dir := range target.Paths {
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				log.Debug("skipping missing directory", "path", dir)

				continue
			}

			found, err := candidates(ctx, dir, target, opts, result)
			if err != nil {
				return nil, fmt.Errorf("walking %q: %w", dir, err)
			}

			for _, removal := range found {
				result.delete(removal, opts.DryRun, log)
			}
		}
	}

	result.Elapsed = time.Since(start)

	return result, nil
}

// Delete removes exactly the given files, usually the list of a previous dry
// run, without walking the targets again.
func Delete(ctx context.Context, planned []Removal, opts Options) (*Result, error) {
	log := opts.logger()
	start := time.Now()
	result := &Result{DryRun: opts.DryRun, Removed: []Removal{}, Failed: []Failure{}}

	for _, removal := range planned {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result.delete(removal, opts.DryRun, log)
	}

	result.Elapsed = time.Since(start)

	return result, nil
}

func (r *Result) delete(removal Removal, dryRun bool, log *slog.Logger) {
	if err := remove(removal.Path, false, dryRun); err != nil {
		log.Warn("cleanup failed", "path", removal.Path, "err", err)
		r.fail(removal.Path, err)

		return
	}

	log.Debug("removed", "path", removal.Path, "size", removal.Size, "dry_run", dryRun)
	r.Removed = append(r.Removed, removal)
	r.FreedBytes += removal.Size
}

// RemovePaths deletes the given files or directories (recursively), for
// example entries taken from a report. Protected names and paths equal to or
// containing a protected path are refused.
func RemovePaths(ctx context.Context, paths []string, opts Options) (*Result, error) {
	log := opts.logger()
	start := time.Now()
	result := &Result{DryRun: opts.DryRun, Removed: []Removal{}, Failed: []Failure{}}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, err := filepath.Abs(path)
		if err != nil {
			result.fail(path, err)

			continue
		}

		if err := checkProtected(path, opts.Protected, runtime.GOOS == "windows"); err != nil {
			log.Warn("refusing to remove path", "path", path, "err", err)
			result.fail(path, err)

			continue
		}

		info, err := os.Lstat(path)
		if err != nil {
			result.fail(path, err)

			continue
		}

		size := info.Size()
		if info.IsDir() {
			size = treeSize(path)
		}

		if err := remove(path, info.IsDir(), opts.DryRun); err != nil {
			log.Warn("remove failed", "path", path, "err", err)
			result.fail(path, err)

			continue
		}

		log.Info("removed", "path", path, "size", size, "dry_run", opts.DryRun)
		result.Removed = append(result.Removed, Removal{Path: path, Size: size})
		result.FreedBytes += size
	}

	result.Elapsed = time.Since(start)

	return result, nil
}

// checkProtected refuses volume roots, protected names and any path that is,
// or contains, a protected path. Paths are compared case-insensitively when
// fold is set.
func checkProtected(path string, protected []string, fold bool) error {
	if filepath.Dir(path) == path {
		return fmt.Errorf("%w: %s is a volume root", ErrProtected, path)
	}

	if isProtectedName(filepath.Base(path)) {
		return fmt.Errorf("%w: %s has a protected name", ErrProtected, path)
	}

	for _, p := range protected {
		p = filepath.Clean(p)

		if dirstat.HasPathPrefix(p, path, fold) {
			return fmt.Errorf("%w: %s contains %s", ErrProtected, path, p)
		}
	}

	return nil
}

func remove(path string, recursive, dryRun bool) error {
	if dryRun {
		return nil
	}

	if recursive {
		return os.RemoveAll(path)
	}

	return os.Remove(path)
}

// treeSize sums the regular files below dir, ignoring unreadable entries.
func treeSize(dir string) int64 {
	var (
		mu    sync.Mutex
		total int64
	)

	_ = fastwalk.Walk(&fastwalk.Config{Follow: false}, dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil //nolint:nilerr // Unreadable entries count as zero
		}

		if info, err := d.Info(); err == nil {
			mu.Lock()
			total += info.Size()
			mu.Unlock()
		}

		return nil
	})

	return total
}
