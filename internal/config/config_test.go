package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "10", want: 10 << 20},
		{in: "0.5", want: 512 << 10},
		{in: " 0 ", want: 0},
		{in: "500KB", want: 500_000},
		{in: "2GiB", want: 2 << 30},
		{in: "-1", wantErr: true},
		{in: "lots", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "10EB", wantErr: true},
		{in: "8EiB", wantErr: true},
		{in: "1e14", wantErr: true},
		{in: "7EiB", want: 7 << 60},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseSize_TooLarge(t *testing.T) {
	for _, in := range []string{"10EB", "1e14"} {
		_, err := ParseSize(in)
		require.ErrorIs(t, err, ErrSizeTooLarge, in)
	}
}

func TestValidate_RejectsOverflowingMinSize(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.MinSize = "10EB"
	require.ErrorIs(t, cfg.Validate(), ErrSizeTooLarge)
}

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)

	cfg, err := Load("")
	req.NoError(err)

	req.Equal("10", cfg.MinSize)
	req.Equal(int64(10<<20), cfg.MinSizeBytes())
	req.Equal(DefaultRoots(), cfg.Roots)
	req.Equal(DefaultExcludes(), cfg.Excludes)
	req.Equal(30, cfg.HistoryKeep)
	req.Equal(24*time.Hour, cfg.KeepRecent)
	req.Equal("DiskFileCheck", cfg.TaskName)
	req.Equal("20:00", cfg.TaskTime)
	req.NotEmpty(cfg.LogDir)
	req.NotEmpty(cfg.DataDir)
}

func TestLoad_Environment(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()

	t.Setenv("DISKCHECK_MIN_SIZE", "1GB")
	t.Setenv("DISKCHECK_ROOTS", "/a,/b")
	t.Setenv("DISKCHECK_LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("DISKCHECK_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("DISKCHECK_TASK_TIME", "06:30")

	cfg, err := Load("")
	req.NoError(err)

	req.Equal(int64(1_000_000_000), cfg.MinSizeBytes())
	req.Equal([]string{"/a", "/b"}, cfg.Roots)
	req.Equal(filepath.Join(dir, "logs"), cfg.LogDir)
	req.Equal(filepath.Join(dir, "data"), cfg.DataDir)
	req.Equal("06:30", cfg.TaskTime)
}

func TestLoad_EnvFile(t *testing.T) {
	req := require.New(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(envFile, []byte("DISKCHECK_HISTORY_KEEP=7\n"), 0o600))

	// Registers cleanup for the variable godotenv sets.
	t.Setenv("DISKCHECK_HISTORY_KEEP", "")
	req.NoError(os.Unsetenv("DISKCHECK_HISTORY_KEEP"))

	cfg, err := Load(envFile)
	req.NoError(err)
	req.Equal(7, cfg.HistoryKeep)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"DISKCHECK_MIN_SIZE":     "huge",
		"DISKCHECK_HISTORY_KEEP": "0",
		"DISKCHECK_TASK_TIME":    "8pm",
		"DISKCHECK_KEEP_RECENT":  "soon",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)

			_, err := Load("")
			require.Error(t, err)
		})
	}
}
