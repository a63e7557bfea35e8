package dirstat

import (
	"runtime"
	"time"

	"github.com/samber/lo"
)

// Merge combines the results of several roots into one.
//
// Overlapping roots (for example a drive and a folder on it) report some
// paths twice; entries and warnings are de-duplicated by path and re-sorted.
// Totals of a root lying inside another root are already part of the outer
// root's totals and are not added again.
func Merge(results ...*Result) *Result {
	results = lo.Filter(results, func(r *Result, _ int) bool { return r != nil })

	merged := &Result{
		Entries:  make([]Entry, 0),
		Warnings: make([]Warning, 0),
	}

	var elapsed time.Duration

	fold := runtime.GOOS == "windows"

	for i, r := range results {
		merged.Entries = append(merged.Entries, r.Entries...)
		merged.Warnings = append(merged.Warnings, r.Warnings...)
		elapsed += r.Elapsed

		if nested(results, i, fold) {
			continue
		}

		merged.TotalBytes += r.TotalBytes
		merged.FileCount += r.FileCount
		merged.DirCount += r.DirCount
	}

	if len(results) == 1 {
		merged.Root = results[0].Root
	}

	merged.Entries = lo.UniqBy(merged.Entries, func(e Entry) string { return e.Path })
	merged.Warnings = lo.UniqBy(merged.Warnings, func(w Warning) string { return w.Path })
	merged.Elapsed = elapsed

	Sort(merged.Entries)

	return merged
}

// nested reports whether the root of results[i] lies inside the root of another
// result. Of two identical roots only the first one counts.
func nested(results []*Result, i int, fold bool) bool {
	root := results[i].Root
	if root == "" {
		return false
	}

	for j, other := range results {
		if j == i || other.Root == "" || !HasPathPrefix(root, other.Root, fold) {
			continue
		}

		if len(other.Root) < len(root) || j < i {
			return true
		}
	}

	return false
}
