package dirstat

import (
	"sort"
	"sync"
	"time"
)

// Kind selects which entries are reported.
type Kind string

const (
	// KindAll reports both files and directories.
	KindAll Kind = "all"
	// KindFiles reports regular files only.
	KindFiles Kind = "files"
	// KindDirs reports directories only.
	KindDirs Kind = "dirs"
)

// Kinds lists the accepted values for Kind.
//
//nolint:gochecknoglobals // Config constant
var Kinds = []Kind{KindAll, KindFiles, KindDirs}

func (k Kind) files() bool { return k == KindAll || k == KindFiles || k == "" }

func (k Kind) dirs() bool { return k == KindAll || k == KindDirs || k == "" }

// Entry represents a single file or directory and its size.
type Entry struct {
	// Path is the absolute file or directory path.
	Path string `json:"path"`
	// Size is the size in bytes. For directories it is the cumulative size
	// of all regular files below it.
	Size int64 `json:"size"`
	// Dir is true for directories.
	Dir bool `json:"dir"`
	// ModTime is the modification time of the entry itself.
	ModTime time.Time `json:"modified"`
}

// Warning records an entry that could not be read during the walk.
type Warning struct {
	// Path is the entry that failed.
	Path string `json:"path"`
	// Err is the error text.
	Err string `json:"error"`
}

// Result holds the outcome of a directory walk.
type Result struct {
	// Root is the absolute path that was walked.
	Root string `json:"root"`
	// Entries holds the paths at or above the threshold, largest first.
	Entries []Entry `json:"entries"`
	// Warnings lists the entries that were skipped because of errors.
	Warnings []Warning `json:"warnings"`
	// TotalBytes is the cumulative size of all regular files counted.
	TotalBytes int64 `json:"total_bytes"`
	// FileCount is the number of regular files counted.
	FileCount int64 `json:"file_count"`
	// DirCount is the number of directories visited.
	DirCount int64 `json:"dir_count"`
	// Elapsed is the total time taken for the walk.
	Elapsed time.Duration `json:"elapsed"`
}

// dirStat accumulates the size of one directory.
type dirStat struct {
	size    int64
	depth   int
	modTime time.Time
	denied  bool
}

// collector aggregates sizes from concurrent fastwalk callbacks using a mutex.
type collector struct {
	mu         sync.Mutex // Protect concurrent access
	root       string
	minSize    int64
	kind       Kind
	depth      int
	dirs       map[string]*dirStat
	files      []Entry
	warnings   []Warning
	fileCount  int64
	totalBytes int64
}

// newCollector creates a collector with the requested configuration.
func newCollector(root string, minSize int64, kind Kind, depth int) *collector {
	return &collector{
		root:    root,
		minSize: minSize,
		kind:    kind,
		depth:   depth,
		dirs:    make(map[string]*dirStat),
		files:   make([]Entry, 0),
	}
}

// addWarning records a skipped entry.
func (c *collector) addWarning(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.warnings = append(c.warnings, Warning{Path: path, Err: err.Error()})
}

// addDir registers a visited directory.
func (c *collector) addDir(path string, depth int, modTime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stat := c.dir(path)
	stat.depth = depth
	stat.modTime = modTime
}

// denyDir marks a directory whose listing failed. It is left out of the results.
func (c *collector) denyDir(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dir(path).denied = true
}

// dir returns the accumulator for path, creating it if needed. Callers hold c.mu.
func (c *collector) dir(path string) *dirStat {
	stat, ok := c.dirs[path]
	if !ok {
		stat = &dirStat{depth: -1}
		c.dirs[path] = stat
	}

	return stat
}

// addFile records a regular file and adds its size to every ancestor up to the root.
func (c *collector) addFile(path string, depth int, size int64, modTime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fileCount++
	c.totalBytes += size

	for dir := parentDir(path); ; {
		c.dir(dir).size += size

		if dir == c.root {
			break
		}

		parent := parentDir(dir)
		if parent == dir || len(parent) < len(c.root) {
			break
		}

		dir = parent
	}

	if !c.kind.files() || size < c.minSize || !c.reportable(depth) {
		return
	}

	c.files = append(c.files, Entry{Path: path, Size: size, ModTime: modTime})
}

func (c *collector) reportable(depth int) bool {
	return c.depth <= 0 || depth <= c.depth
}

// progress returns the current file and byte counters.
func (c *collector) progress() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fileCount, c.totalBytes
}

// finalize produces the final Result from the collected data.
// Entries are sorted by size (largest first) with ties broken by path.
func (c *collector) finalize(topN int) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]Entry, 0, len(c.files))
	entries = append(entries, c.files...)

	if c.kind.dirs() {
		for path, stat := range c.dirs {
			if path == c.root || stat.denied || stat.depth < 0 {
				continue
			}

			if stat.size < c.minSize || !c.reportable(stat.depth) {
				continue
			}

			entries = append(entries, Entry{Path: path, Size: stat.size, Dir: true, ModTime: stat.modTime})
		}
	}

	Sort(entries)

	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}

	warnings := make([]Warning, len(c.warnings))
	copy(warnings, c.warnings)
	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].Path < warnings[j].Path
	})

	return &Result{
		Root:       c.root,
		Entries:    entries,
		Warnings:   warnings,
		TotalBytes: c.totalBytes,
		FileCount:  c.fileCount,
		DirCount:   int64(len(c.dirs)),
	}
}

// Sort orders entries by descending size, then by ascending path.
func Sort(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Size != entries[j].Size {
			return entries[i].Size > entries[j].Size
		}

		return entries[i].Path < entries[j].Path
	})
}
