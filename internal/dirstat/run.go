package dirstat

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charlievieth/fastwalk"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

// ErrNotDirectory is returned when the scan root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Options configures a directory walk.
type Options struct {
	// Root is the directory to scan.
	Root string
	// MinSize is the threshold in bytes. Entries below it are not reported.
	MinSize int64
	// Exclusions holds path prefixes and names that are skipped entirely.
	Exclusions ExclusionList
	// Patterns contains regex patterns to exclude, matched against slash paths.
	Patterns []string
	// Kind selects files, directories or both.
	Kind Kind
	// Depth is the maximum reported depth (0=unlimited). Sizes always cover the full tree.
	Depth int
	// TopN trims the result to the N largest entries (0=unlimited).
	TopN int
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// Logger receives debug records and walk warnings. Nil discards them.
	Logger *slog.Logger
}

// calculateDepth returns the depth of a path relative to the root.
func calculateDepth(path, root string) int {
	relPath := strings.TrimPrefix(path, root)

	relPath = strings.TrimPrefix(relPath, string(filepath.Separator))
	if relPath == "" {
		return 0
	}

	return strings.Count(relPath, string(filepath.Separator)) + 1
}

// parentDir returns the directory containing path.
func parentDir(path string) string {
	return filepath.Dir(path)
}

// shouldExcludeByPattern checks if path matches any exclusion regex.
func shouldExcludeByPattern(path string, patterns []*regexp.Regexp) *regexp.Regexp {
	if len(patterns) == 0 {
		return nil
	}

	fPath := filepath.ToSlash(path)

	for _, re := range patterns {
		if re.MatchString(fPath) {
			return re
		}
	}

	return nil
}

// compilePatterns compiles the exclusion regexes.
func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling exclusion pattern %q: %w", p, err)
		}

		compiled = append(compiled, re)
	}

	return compiled, nil
}

// startProgressReporter invokes hook(files, bytes) on each tick until ctx is done.
//
//nolint:varnamelen // c is idiomatic for collector
func startProgressReporter(ctx context.Context, c *collector, hook func(int64, int64), interval time.Duration) {
	if hook == nil {
		return
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hook(c.progress())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Run walks the directory tree at opt.Root and returns every file and
// directory whose cumulative size is at least opt.MinSize, largest first.
//
// Entries in opt.Exclusions or matching opt.Patterns are skipped and contribute
// nothing to any total. Unreadable entries contribute zero and are recorded as
// warnings; they never abort the walk. The walk can be cancelled via ctx and
// progress updates are sent to progressHook if provided.
//
//nolint:gocognit,funlen // Walk callback keeps the filtering in one place.
func Run(ctx context.Context, opt Options, progressHook func(int64, int64)) (*Result, error) {
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if opt.Root == "" {
		opt.Root = "."
	}

	root, err := filepath.Abs(filepath.Clean(opt.Root))
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	// validate path exists and is accessible
	if statInfo, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("accessing path %q: %w", root, err)
	} else if !statInfo.IsDir() {
		return nil, fmt.Errorf("path %q: %w", root, ErrNotDirectory)
	}

	excludeRegexes, err := compilePatterns(opt.Patterns)
	if err != nil {
		return nil, err
	}

	collector := newCollector(root, opt.MinSize, opt.Kind, opt.Depth)

	if opt.Exclusions.Excludes(root) {
		log.Warn("scan root is excluded, skipping", "root", root)

		return collector.finalize(opt.TopN), nil
	}

	// Create child context to ensure progress reporter cleanup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startProgressReporter(ctx, collector, progressHook, opt.ProgressInterval)

	log.Debug("starting walk",
		"root", root,
		"min_size", opt.MinSize,
		"kind", string(opt.Kind),
		"exclusions", opt.Exclusions.String(),
		"patterns", strings.Join(opt.Patterns, ","),
	)

	start := time.Now()

	conf := &fastwalk.Config{
		Follow: false, // Don't follow symlinks
	}

	//nolint:varnamelen // d is standard for DirEntry
	walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// fastwalk reports a failed directory listing with a second call for the directory.
			log.Warn("skipping unreadable entry", "path", path, "err", err)
			collector.addWarning(path, err)

			if d != nil && d.IsDir() {
				collector.denyDir(path)
			}

			return nil
		}

		// Check cancellation periodically
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if path != root {
			if opt.Exclusions.Excludes(path) {
				log.Debug("excluding path", "path", path)

				if d.IsDir() {
					return filepath.SkipDir
				}

				return nil
			}

			if matched := shouldExcludeByPattern(path, excludeRegexes); matched != nil {
				log.Debug("excluding path", "path", path, "regex", matched.String())

				if d.IsDir() {
					return filepath.SkipDir
				}

				return nil
			}
		}

		depth := calculateDepth(path, root)

		if d.IsDir() {
			var modTime time.Time
			if info, err := d.Info(); err == nil {
				modTime = info.ModTime()
			}

			collector.addDir(path, depth, modTime)

			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		fileInfo, err := d.Info()
		if err != nil {
			log.Warn("skipping unreadable file", "path", path, "err", err)
			collector.addWarning(path, err)

			return nil //nolint:nilerr // Intentionally skip errors during walk
		}

		collector.addFile(path, depth, fileInfo.Size(), fileInfo.ModTime())

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %q: %w", root, walkErr)
	}

	result := collector.finalize(opt.TopN)
	result.Elapsed = time.Since(start)

	log.Debug("walk finished",
		"root", root,
		"entries", len(result.Entries),
		"warnings", len(result.Warnings),
		"elapsed", result.Elapsed,
	)

	return result, nil
}
