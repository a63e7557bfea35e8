package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Parallel()

	data := Data{Executable: `C:\Tools\diskcheck.exe`, TaskName: DefaultTaskName, Time: DefaultTime}

	tests := []struct {
		format string
		action string
		want   []string
	}{
		{
			format: "powershell",
			action: "create",
			want: []string{
				`New-ScheduledTaskAction -Execute 'C:\Tools\diskcheck.exe' -Argument 'scan'`,
				`New-ScheduledTaskTrigger -Daily -At '20:00'`,
				`Register-ScheduledTask -TaskName 'DiskFileCheck'`,
			},
		},
		{
			format: "powershell",
			action: "delete",
			want:   []string{`Unregister-ScheduledTask -TaskName 'DiskFileCheck' -Confirm:$false`},
		},
		{
			format: "batch",
			action: "create",
			want: []string{
				"@echo off",
				`schtasks /create /tn "DiskFileCheck" /tr "\"C:\Tools\diskcheck.exe\" scan" /sc daily /st 20:00 /f`,
			},
		},
		{
			format: "batch",
			action: "query",
			want:   []string{`schtasks /query /tn "DiskFileCheck" /fo list`},
		},
		{
			format: "batch",
			action: "run",
			want:   []string{`schtasks /run /tn "DiskFileCheck"`},
		},
		{
			format: "cron",
			action: "create",
			want:   []string{`0 20 * * * 'C:\Tools\diskcheck.exe' scan`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.action, func(t *testing.T) {
			t.Parallel()

			d := data
			d.Action = tt.action

			out, err := Render(tt.format, d)
			require.NoError(t, err)

			for _, want := range tt.want {
				require.Contains(t, out, want)
			}
		})
	}
}

func TestRender_Defaults(t *testing.T) {
	out, err := Render("cron", Data{Action: "create", Executable: "/usr/local/bin/diskcheck", Time: "7:30"})
	require.NoError(t, err)
	require.Equal(t, "# DiskFileCheck: add with `crontab -e`\n30 7 * * * '/usr/local/bin/diskcheck' scan\n", out)
}

func TestRender_Invalid(t *testing.T) {
	_, err := Render("fish", Data{Action: "create", Time: DefaultTime})
	require.ErrorIs(t, err, ErrFormat)

	_, err = Render("cron", Data{Action: "enable", Time: DefaultTime})
	require.ErrorIs(t, err, ErrAction)

	_, err = Render("cron", Data{Action: "create", Time: "25:00"})
	require.Error(t, err)
}

func TestDefaultFormat(t *testing.T) {
	require.Equal(t, "powershell", DefaultFormat("windows"))
	require.Equal(t, "cron", DefaultFormat("linux"))
}
