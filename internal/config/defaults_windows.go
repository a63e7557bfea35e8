//go:build windows

package config

import (
	"os"
)

func systemDrive() string {
	if drive := os.Getenv("SystemDrive"); drive != "" {
		return drive
	}

	return "C:"
}

// DefaultRoots returns the system drive root.
func DefaultRoots() []string {
	return []string{systemDrive() + `\`}
}

// DefaultExcludes returns the system directories skipped during a scan.
func DefaultExcludes() []string {
	drive := systemDrive()

	return []string{
		drive + `\Windows`,
		drive + `\$Recycle.Bin`,
		drive + `\System Volume Information`,
		drive + `\Program Files`,
		drive + `\Program Files (x86)`,
		drive + `\ProgramData`,
	}
}
