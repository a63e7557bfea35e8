package dirstat

import (
	"path/filepath"
	"runtime"
	"strings"
)

// ExclusionList is a set of path prefixes and bare names skipped during a scan.
//
// An entry containing a path separator (or a volume name) is a prefix: it
// excludes that path and everything below it. Any other entry is a name and
// excludes every file or directory with exactly that base name.
type ExclusionList struct {
	prefixes []string
	names    []string
	fold     bool
}

// NewExclusionList builds an exclusion list from raw entries. Matching is
// case-insensitive on Windows.
func NewExclusionList(entries ...string) ExclusionList {
	return newExclusionList(runtime.GOOS == "windows", entries...)
}

func newExclusionList(fold bool, entries ...string) ExclusionList {
	list := ExclusionList{fold: fold}

	for _, e := range entries {
		e = strings.TrimSpace(strings.Trim(e, "'\""))
		if e == "" {
			continue
		}

		if strings.ContainsAny(e, `/\`) || filepath.VolumeName(e) != "" {
			list.prefixes = append(list.prefixes, filepath.Clean(filepath.FromSlash(e)))
		} else {
			list.names = append(list.names, e)
		}
	}

	return list
}

// Len returns the number of entries in the list.
func (l ExclusionList) Len() int {
	return len(l.prefixes) + len(l.names)
}

// String returns the entries joined by commas.
func (l ExclusionList) String() string {
	return strings.Join(append(append([]string{}, l.prefixes...), l.names...), ",")
}

// Excludes reports whether path is excluded by the list.
func (l ExclusionList) Excludes(path string) bool {
	if l.Len() == 0 {
		return false
	}

	path = filepath.Clean(path)
	base := filepath.Base(path)

	for _, name := range l.names {
		if l.equal(base, name) {
			return true
		}
	}

	for _, prefix := range l.prefixes {
		if HasPathPrefix(path, prefix, l.fold) {
			return true
		}
	}

	return false
}

func (l ExclusionList) equal(a, b string) bool {
	if l.fold {
		return strings.EqualFold(a, b)
	}

	return a == b
}

// HasPathPrefix reports whether path equals prefix or lies below it, comparing
// case-insensitively when fold is set.
// "C:\Windows" matches "C:\Windows\System32" but not "C:\WindowsApps".
func HasPathPrefix(path, prefix string, fold bool) bool {
	if len(path) < len(prefix) {
		return false
	}

	head := path[:len(prefix)]
	if fold {
		if !strings.EqualFold(head, prefix) {
			return false
		}
	} else if head != prefix {
		return false
	}

	if len(path) == len(prefix) {
		return true
	}

	// A prefix ending in a separator (a volume root such as "C:\" or "/") covers everything below it.
	if last := prefix[len(prefix)-1]; last == filepath.Separator || last == '/' {
		return true
	}

	return path[len(prefix)] == filepath.Separator || path[len(prefix)] == '/'
}
