package main

import (
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"duprank/pkg/config"
)

var (
	verbose    bool
	workers    int
	configPath string
	logFile    string
	logLevel   string
)

func buildRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duprank",
		Short: "Find duplicate files and rank which copy to keep",
		Long: `duprank finds files with identical content and ranks the copies in each
group by user-chosen criteria. The first file of every group is the original;
the rest are duplicates. Nothing on disk is modified.

Commands:
  find       Scan paths, group duplicates and rank them
  criteria   List the letters accepted by --rank-by and --sort-by

Examples:
  # Keep the newest copy, prefer shorter paths on ties
  duprank find -S Ma /backup /photos

  # Collapse identical directories and write a JSON report
  duprank find -D --format json -o report.json /backup

  # Prefer files found under the first path given
  duprank find -S p /originals /copies

Configuration:
  Settings are read from built-in defaults, then a YAML file (--config or
  DUPRANK_CONFIG), then DUPRANK_* environment variables, then flags.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().IntVar(&workers, "workers", runtime.NumCPU(), "Number of parallel workers for hashing and ranking")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	return cmd
}

// loadConfig layers changed persistent flags over the file and environment settings.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") || cfg.Workers <= 0 {
		cfg.Workers = workers
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}

func newLogger(cfg config.Config) (*slog.Logger, func() error) {
	level := cfg.Level()
	if verbose && level > slog.LevelInfo {
		level = slog.LevelInfo
	}
	return config.SetupLogger(cfg.LogFile, level)
}
