//go:build !windows

package cleanup

import (
	"os"
	"path/filepath"
)

// DefaultTargets returns the temporary-file locations cleaned on Unix-like systems.
func DefaultTargets(home string) []Target {
	return []Target{
		{
			Name:        "temp",
			Description: "Temporary files",
			Paths:       []string{os.TempDir()},
			Patterns:    []string{"*.tmp", "*.temp", "~*"},
		},
		{
			Name:        "cache",
			Description: "Thumbnail cache",
			Paths:       []string{filepath.Join(home, ".cache", "thumbnails")},
			Patterns:    []string{"*.png"},
		},
		{
			Name:        "downloads",
			Description: "Interrupted downloads",
			Paths:       []string{filepath.Join(home, "Downloads")},
			Patterns:    []string{"*.crdownload", "*.part", "*.partial"},
		},
	}
}
