//go:build windows

package cleanup

import (
	"os"
	"path/filepath"
)

// DefaultTargets returns the temporary-file locations cleaned on Windows.
func DefaultTargets(home string) []Target {
	systemRoot := os.Getenv("SystemRoot")
	if systemRoot == "" {
		systemRoot = `C:\Windows`
	}

	local := filepath.Join(home, "AppData", "Local")

	return []Target{
		{
			Name:        "temp",
			Description: "User and system temporary files",
			Paths:       []string{filepath.Join(local, "Temp"), filepath.Join(systemRoot, "Temp")},
			Patterns:    []string{"*.tmp", "*.temp", "~*", "*.log", "*.dmp"},
		},
		{
			Name:        "browser",
			Description: "Browser and WebCache leftovers",
			Paths: []string{
				filepath.Join(local, "Microsoft", "Windows", "INetCache"),
				filepath.Join(local, "Microsoft", "Windows", "WebCache"),
			},
			Patterns: []string{"*.tmp", "*.dat.tmp", "*.log"},
		},
		{
			Name:        "downloads",
			Description: "Interrupted downloads",
			Paths:       []string{filepath.Join(home, "Downloads")},
			Patterns:    []string{"*.crdownload", "*.part", "*.partial"},
		},
		{
			Name:        "crashdumps",
			Description: "Application crash dumps",
			Paths:       []string{filepath.Join(local, "CrashDumps")},
			Patterns:    []string{"*.dmp"},
		},
	}
}
