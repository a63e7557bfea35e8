// Command diskcheck finds large files and directories and writes a dated report.
package main

import (
	"fmt"
	"os"

	"github.com/idelchi/diskcheck/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "unknown"

func main() {
	if err := cli.New(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "diskcheck:", err)
		os.Exit(1)
	}
}
