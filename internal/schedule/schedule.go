// Package schedule renders the commands that register the daily scan with the
// host task scheduler. The commands are printed, never executed.
package schedule

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"time"
)

// Defaults for the scheduled task.
const (
	DefaultTaskName = "DiskFileCheck"
	DefaultTime     = "20:00"
	DefaultArgs     = "scan"
)

// Formats lists the supported script formats.
//
//nolint:gochecknoglobals // Config constant
var Formats = []string{"powershell", "batch", "cron"}

// Actions lists the supported actions.
//
//nolint:gochecknoglobals // Config constant
var Actions = []string{"create", "delete", "query", "run"}

var (
	// ErrFormat is returned for an unknown script format.
	ErrFormat = errors.New("unknown format")
	// ErrAction is returned for an unknown action.
	ErrAction = errors.New("unknown action")
)

//go:embed templates/*.tmpl
var templates embed.FS

// Data holds the values substituted into a template.
type Data struct {
	Action     string
	Executable string
	Arguments  string
	TaskName   string
	// Time is the daily start time as HH:MM.
	Time string
}

// Hour returns the hour of Time for cron.
func (d Data) Hour() int {
	t, _ := time.Parse("15:04", d.Time)

	return t.Hour()
}

// Minute returns the minute of Time for cron.
func (d Data) Minute() int {
	t, _ := time.Parse("15:04", d.Time)

	return t.Minute()
}

// DefaultFormat is the format suited to the current platform.
func DefaultFormat(goos string) string {
	if goos == "windows" {
		return "powershell"
	}

	return "cron"
}

// Executable returns the absolute path of the running binary with symlinks resolved.
func Executable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}

	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return exe, nil
}

// Render renders the script for format with data.
func Render(format string, data Data) (string, error) {
	if !slices.Contains(Formats, format) {
		return "", fmt.Errorf("%w %q, must be one of %s", ErrFormat, format, strings.Join(Formats, ", "))
	}

	if !slices.Contains(Actions, data.Action) {
		return "", fmt.Errorf("%w %q, must be one of %s", ErrAction, data.Action, strings.Join(Actions, ", "))
	}

	if _, err := time.Parse("15:04", data.Time); err != nil {
		return "", fmt.Errorf("parsing time %q: %w", data.Time, err)
	}

	if data.TaskName == "" {
		data.TaskName = DefaultTaskName
	}

	if data.Arguments == "" {
		data.Arguments = DefaultArgs
	}

	tmpl, err := template.ParseFS(templates, "templates/"+format+".tmpl")
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s script: %w", format, err)
	}

	return buf.String(), nil
}
