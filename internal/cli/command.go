package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/idelchi/diskcheck/internal/cleanup"
	"github.com/idelchi/diskcheck/internal/config"
	"github.com/idelchi/diskcheck/internal/dirstat"
	"github.com/idelchi/diskcheck/internal/schedule"
)

// ErrAborted is returned when a deletion is not confirmed.
var ErrAborted = errors.New("aborted")

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// globalOptions holds the persistent flags.
type globalOptions struct {
	envFile string
	logDir  string
	dataDir string
	debug   bool
}

func (g *globalOptions) register(flags *pflag.FlagSet) {
	flags.StringVar(&g.envFile, "env-file", config.DefaultEnvFile, "Optional dotenv file with DISKCHECK_* settings")
	flags.StringVar(&g.logDir, "log-dir", "", "Directory for the dated log files (default <exe dir>/logs)")
	flags.StringVar(&g.dataDir, "data-dir", "", "Directory for data files and history (default <exe dir>/data)")
	flags.BoolVar(&g.debug, "debug", false, "Enable debug output")
}

// load reads the configuration and applies the persistent flags on top.
func (g *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(g.envFile)
	if err != nil {
		return nil, err
	}

	if g.logDir != "" {
		cfg.LogDir = g.logDir
	}

	if g.dataDir != "" {
		cfg.DataDir = g.dataDir
	}

	return cfg, nil
}

// scanOptions holds the flags of the scan command.
type scanOptions struct {
	minSize  string
	excludes []string
	patterns []string
	kind     string
	depth    int
	top      int
	output   string
	noSave   bool
	noReport bool
}

//nolint:gochecknoglobals // Config constant
var allowedOutputs = []string{"table", "json"}

func (o *scanOptions) register(flags *pflag.FlagSet) {
	flags.SortFlags = false
	flags.StringVarP(&o.minSize, "min-size", "m", "10",
		"Minimum size to report (e.g. 500MB, 2GiB; a bare number is MB)")
	flags.StringSliceVarP(&o.excludes, "exclude", "e", nil,
		"Additional path prefixes or names to exclude")
	flags.StringSliceVar(&o.patterns, "exclude-regex", nil, "Regex patterns to exclude")
	flags.StringVarP(&o.kind, "kind", "k", string(dirstat.KindAll), "Entries to report: all, files or dirs")
	flags.IntVarP(&o.depth, "depth", "d", 0, "Maximum reported depth (0=unlimited)")
	flags.IntVarP(&o.top, "top", "t", 20, "Number of entries to display (0=all)")
	flags.StringVarP(&o.output, "output", "o", "table", "Output format: json or table")
	flags.BoolVar(&o.noSave, "no-save", false, "Do not record the scan in the history database")
	flags.BoolVar(&o.noReport, "no-report", false, "Do not write the log report and data file")
}

func (o scanOptions) validate() error {
	if !slices.Contains(allowedOutputs, o.output) {
		return fmt.Errorf("invalid output format %q: must be one of %v", o.output, allowedOutputs)
	}

	if !slices.Contains(dirstat.Kinds, dirstat.Kind(o.kind)) {
		return fmt.Errorf("invalid kind %q: must be one of %v", o.kind, dirstat.Kinds)
	}

	if o.depth < 0 {
		return errors.New("depth cannot be negative")
	}

	if o.top < 0 {
		return errors.New("top cannot be negative")
	}

	return nil
}

// Execute runs the CLI with the process arguments. An interrupt cancels the
// running command.
func (c CLI) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return c.Command().ExecuteContext(ctx)
}

// Command builds the command tree.
func (c CLI) Command() *cobra.Command {
	var global globalOptions

	root := &cobra.Command{
		Use:   "diskcheck",
		Short: "Find large files and directories",
		Long: heredoc.Doc(`
			diskcheck scans a drive for large files and directories and writes a dated
			report, meant to be run once a day by the task scheduler.

			Settings are read from DISKCHECK_* environment variables and an optional .env
			file; flags take precedence. Logs go to <log-dir>/diskcheck_YYYYMMDD.log and
			findings to <data-dir>/large_files_YYYYMMDD.json.
		`),
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	global.register(root.PersistentFlags())

	root.AddCommand(
		scanCommand(&global),
		treeCommand(&global),
		cleanCommand(&global),
		historyCommand(&global),
		scheduleCommand(&global),
	)

	return root
}

func scanCommand(global *globalOptions) *cobra.Command {
	var options scanOptions

	cmd := &cobra.Command{
		Use:   "scan [roots...]",
		Short: "Scan for files and directories above the size threshold",
		Long: heredoc.Doc(`
			Scan walks each root (the configured roots when none are given), sums the
			size of every directory and reports the entries at or above --min-size,
			largest first.

			Excluded entries are path prefixes (C:\Windows) or names (node_modules).
			Unreadable directories are skipped and listed as warnings.

			The report is appended to the dated log file, the findings replace the
			dated data file, and the scan is recorded in the history database so the
			next run can flag new entries.

			A second scan on the same day replaces that day's data file; earlier
			results remain in the log file and the history database.
		`),
		Example: heredoc.Doc(`
			diskcheck scan
			diskcheck scan D:\ --min-size 1GB --kind dirs --depth 2
			diskcheck scan --exclude node_modules --output json
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := options.validate(); err != nil {
				return err
			}

			cfg, err := global.load()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("min-size") {
				cfg.MinSize = options.minSize
			}

			if _, err := config.ParseSize(cfg.MinSize); err != nil {
				return fmt.Errorf("invalid min-size: %w", err)
			}

			cfg.Excludes = append(cfg.Excludes, options.excludes...)

			if len(args) > 0 {
				cfg.Roots = args
			}

			return newRunner(cmd, global).scan(cmd.Context(), cfg, options)
		},
	}

	options.register(cmd.Flags())

	return cmd
}

func treeCommand(global *globalOptions) *cobra.Command {
	var (
		depth   int
		minSize string
	)

	cmd := &cobra.Command{
		Use:   "tree [root]",
		Short: "Print the size tree of a directory",
		Long: heredoc.Doc(`
			Tree prints the directories and files below root down to --depth, each
			level sorted by size. Defaults to the first configured root.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if depth < 1 {
				return errors.New("depth must be at least 1")
			}

			threshold, err := config.ParseSize(minSize)
			if err != nil {
				return fmt.Errorf("invalid min-size: %w", err)
			}

			cfg, err := global.load()
			if err != nil {
				return err
			}

			root := cfg.Roots[0]
			if len(args) > 0 {
				root = args[0]
			}

			return newRunner(cmd, global).tree(cmd.Context(), cfg, root, depth, threshold)
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", 3, "Maximum depth to display")
	cmd.Flags().StringVarP(&minSize, "min-size", "m", "0", "Hide entries below this size (a bare number is MB)")

	return cmd
}

// cleanOptions holds the flags of the clean command.
type cleanOptions struct {
	dryRun     bool
	yes        bool
	keepRecent string
}

func cleanCommand(global *globalOptions) *cobra.Command {
	var options cleanOptions

	cmd := &cobra.Command{
		Use:   "clean [paths...]",
		Short: "Delete temporary files or the given paths",
		Long: heredoc.Docf(`
			Without arguments, clean deletes temporary files, caches and interrupted
			downloads from the usual locations. Files modified within --keep-recent and
			files whose names contain %s are kept.

			With arguments, clean deletes the given files or directories, such as
			entries from a report. Drive roots, the scan roots and the log and data
			directories are refused.

			A confirmation is asked for unless --yes or --dry-run is given.
		`, strings.Join(cleanup.ProtectedKeywords, ", ")),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}

			keep := cfg.KeepRecent
			if cmd.Flags().Changed("keep-recent") {
				if keep, err = time.ParseDuration(options.keepRecent); err != nil {
					return fmt.Errorf("invalid keep-recent: %w", err)
				}
			}

			return newRunner(cmd, global).clean(cmd.Context(), cfg, args, options, keep)
		},
	}

	cmd.Flags().BoolVarP(&options.dryRun, "dry-run", "n", false, "List what would be deleted without deleting")
	cmd.Flags().BoolVarP(&options.yes, "yes", "y", false, "Delete without asking for confirmation")
	cmd.Flags().StringVar(&options.keepRecent, "keep-recent", "24h", "Keep files modified within this duration")

	return cmd
}

func historyCommand(global *globalOptions) *cobra.Command {
	var (
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(allowedOutputs, output) {
				return fmt.Errorf("invalid output format %q: must be one of %v", output, allowedOutputs)
			}

			cfg, err := global.load()
			if err != nil {
				return err
			}

			return newRunner(cmd, global).history(cmd.Context(), cfg, limit, output)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Number of scans to list (0=all)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: json or table")

	return cmd
}

func scheduleCommand(global *globalOptions) *cobra.Command {
	var data schedule.Data

	format := schedule.DefaultFormat(runtime.GOOS)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the commands that register the daily scan",
		Long: heredoc.Docf(`
			Schedule prints a script for the task scheduler. It does not run it.

			Formats: %s
			Actions: %s
		`, strings.Join(schedule.Formats, ", "), strings.Join(schedule.Actions, ", ")),
		Example: heredoc.Doc(`
			diskcheck schedule > register.ps1
			diskcheck schedule --format batch --time 07:30
			diskcheck schedule --format cron >> my.crontab
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("task-name") {
				data.TaskName = cfg.TaskName
			}

			if !cmd.Flags().Changed("time") {
				data.Time = cfg.TaskTime
			}

			if data.Executable, err = schedule.Executable(); err != nil {
				return err
			}

			rendered, err := schedule.Render(format, data)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)

			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&format, "format", "f", format, "Script format: "+strings.Join(schedule.Formats, ", "))
	flags.StringVarP(&data.Action, "action", "a", "create", "Action: "+strings.Join(schedule.Actions, ", "))
	flags.StringVar(&data.Time, "time", schedule.DefaultTime, "Daily start time (HH:MM)")
	flags.StringVar(&data.TaskName, "task-name", schedule.DefaultTaskName, "Scheduler task name")
	flags.StringVar(&data.Arguments, "args", schedule.DefaultArgs, "Arguments passed to diskcheck")

	return cmd
}
