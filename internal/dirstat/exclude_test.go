package dirstat

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExclusionList_Excludes(t *testing.T) {
	base := filepath.Join(string(filepath.Separator)+"vol", "drive")
	windows := filepath.Join(base, "Windows")

	tests := []struct {
		name string
		list ExclusionList
		path string
		want bool
	}{
		{"empty list", newExclusionList(false), windows, false},
		{"exact prefix", newExclusionList(false, windows), windows, true},
		{"below prefix", newExclusionList(false, windows), filepath.Join(windows, "System32", "x.dll"), true},
		{"sibling sharing prefix", newExclusionList(false, windows), filepath.Join(base, "WindowsApps"), false},
		{"case folded prefix", newExclusionList(true, windows), filepath.Join(base, "WINDOWS", "Temp"), true},
		{"case sensitive prefix", newExclusionList(false, windows), filepath.Join(base, "WINDOWS", "Temp"), false},
		{"name anywhere", newExclusionList(false, "node_modules"), filepath.Join(base, "src", "node_modules"), true},
		{"name is not substring", newExclusionList(false, "node_modules"), filepath.Join(base, "node_modules_old"), false},
		{"volume root covers all", newExclusionList(false, string(filepath.Separator)), windows, true},
		{"quoted entry", newExclusionList(false, `"$Recycle.Bin"`), filepath.Join(base, "$Recycle.Bin"), true},
		{"slash form prefix", newExclusionList(false, filepath.ToSlash(windows)), filepath.Join(windows, "a"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.list.Excludes(tt.path))
		})
	}
}

func TestExclusionList_Len(t *testing.T) {
	list := newExclusionList(false, "a", "", "  ", filepath.Join("x", "y"))

	require.Equal(t, 2, list.Len())
	require.Equal(t, filepath.Join("x", "y")+",a", list.String())
}
