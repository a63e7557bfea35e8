package report

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/disk"
)

// Volume is the usage of the filesystem holding a scan root.
type Volume struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
}

func (v Volume) String() string {
	return fmt.Sprintf("%s %s used of %s (%.1f%%), %s free",
		v.Path, humanize.IBytes(v.Used), humanize.IBytes(v.Total), v.UsedPercent, humanize.IBytes(v.Free))
}

// Volumes returns the usage of the volume of each root. Roots on the same
// drive letter are reported once; roots whose usage cannot be read are
// returned in the error slice.
func Volumes(ctx context.Context, roots []string) ([]Volume, []error) {
	var (
		volumes []Volume
		errs    []error
	)

	for _, root := range roots {
		usage, err := disk.UsageWithContext(ctx, volumeRoot(root))
		if err != nil {
			errs = append(errs, fmt.Errorf("reading usage of %q: %w", root, err))

			continue
		}

		volumes = append(volumes, Volume{
			Path:        usage.Path,
			Total:       usage.Total,
			Free:        usage.Free,
			Used:        usage.Used,
			UsedPercent: usage.UsedPercent,
		})
	}

	return lo.UniqBy(volumes, func(v Volume) string { return v.Path }), errs
}

// volumeRoot returns "C:\" for paths with a volume name and the path itself otherwise.
func volumeRoot(path string) string {
	if vol := filepath.VolumeName(path); vol != "" {
		return vol + string(filepath.Separator)
	}

	return path
}
