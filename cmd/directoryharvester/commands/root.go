package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"DirectoryHarvester/internal/app"
	"DirectoryHarvester/internal/config"
	"DirectoryHarvester/internal/logging"
)

type flags struct {
	configPath      string
	url             string
	outputDir       string
	maxPages        int
	headless        bool
	checkpointEvery int
	logLevel        string
	logFile         string
	journal         string
}

// NewRootCmd builds the directoryharvester command.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *flags) {
	f := &flags{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:           "directoryharvester",
		Short:         "directoryharvester walks a paginated member directory and saves every row to CSV.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}

			logger, closeLog, err := logging.Open(cfg.Logging.Level, cfg.Logging.File)
			if err != nil {
				return err
			}
			defer closeLog()

			if err := app.New(cfg, logger).Run(cmd.Context()); err != nil {
				logger.Error("harvest could not start", "error", err)
				return err
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "YAML config file (default from $DIRECTORY_HARVESTER_CONFIG)")
	fs.StringVar(&f.url, "url", defaults.Harvest.URL, "directory URL to harvest")
	fs.StringVar(&f.outputDir, "output-dir", defaults.Output.Dir, "directory for CSV output")
	fs.IntVar(&f.maxPages, "max-pages", defaults.Harvest.MaxPages, "maximum number of pages to visit")
	fs.BoolVar(&f.headless, "headless", defaults.Browser.IsHeadless(), "run Chrome without a window")
	fs.IntVar(&f.checkpointEvery, "checkpoint-every", defaults.Harvest.CheckpointEvery, "write output and backup every N pages")
	fs.StringVar(&f.logLevel, "log-level", defaults.Logging.Level, "log level: debug, info, warn or error")
	fs.StringVar(&f.logFile, "log-file", defaults.Logging.File, "file the log is appended to, empty for console only")
	fs.StringVar(&f.journal, "journal", "", "SQLite run journal (default <output-dir>/harvest.db, \"\" disables)")

	return cmd, f
}

// resolveConfig layers explicitly set flags over the file and environment configuration.
func resolveConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}

	fs := cmd.Flags()
	if fs.Changed("url") {
		cfg.Harvest.URL = f.url
	}
	if fs.Changed("output-dir") {
		cfg.Output.Dir = f.outputDir
	}
	if fs.Changed("max-pages") {
		cfg.Harvest.MaxPages = f.maxPages
	}
	if fs.Changed("headless") {
		headless := f.headless
		cfg.Browser.Headless = &headless
	}
	if fs.Changed("checkpoint-every") {
		cfg.Harvest.CheckpointEvery = f.checkpointEvery
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if fs.Changed("log-file") {
		cfg.Logging.File = f.logFile
	}
	if fs.Changed("journal") {
		cfg.Journal.Path = f.journal
		cfg.Journal.Disabled = f.journal == ""
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// ExecuteContext runs the root command and exits non-zero when it fails.
func ExecuteContext(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
