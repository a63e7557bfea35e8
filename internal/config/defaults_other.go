//go:build !windows

package config

import (
	"os"
)

// DefaultRoots returns the user's home directory, or "/" if it cannot be determined.
func DefaultRoots() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return []string{"/"}
	}

	return []string{home}
}

// DefaultExcludes returns the pseudo filesystems and caches skipped during a scan.
func DefaultExcludes() []string {
	return []string{"/proc", "/sys", "/dev", "/run", ".git"}
}
