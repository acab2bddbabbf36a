package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"duprank/pkg/config"
	"duprank/pkg/progress"
	"duprank/pkg/report"
	"duprank/pkg/usecase"
)

type findOptions struct {
	rankBy     criteriaValue
	sortBy     criteriaValue
	format     formatValue
	mergeDirs  bool
	outputPath string
	minSize    int64
	maxDepth   int

	preferred          []string
	mustMatchPreferred bool
	keepAllPreferred   bool
	findHardlinked     bool
}

func buildFindCommand() *cobra.Command {
	opts := &findOptions{}

	cmd := &cobra.Command{
		Use:   "find [paths...]",
		Short: "Find duplicate files and rank each group",
		Long: `Scans the given paths (default: current directory) and groups files with
byte-identical content:
  - Groups files by size (fast pre-filter)
  - Compares a partial hash (first and last 4 KiB) of larger files
  - Confirms every match with a full xxhash64 of the content

Each group is then ranked with --rank-by. Every letter names an attribute;
lowercase prefers the smaller value, uppercase the larger one. Later letters
only break ties left by earlier ones, and the full path breaks any final tie.

  a  basename       f  full path        d  path depth
  s  size           m  modification     h  hardlink count
  l  name length    o  natural order    p  command-line path index

Groups are printed in --sort-by order of their originals.

With --merge-directories, directories whose entire content is duplicated
elsewhere are reported as one group instead of file by file.

Hardlinks to the same file are one file and are never reported as
duplicates of each other unless --hardlinked is given.

Files below a --preferred path win over every other copy. With
--must-match-preferred only groups holding a preferred file are reported;
with --keep-all-preferred groups made only of preferred files are dropped
and preferred copies are never marked for removal.

Examples:
  duprank find ./backup                    # defaults: -S mf --sort-by f
  duprank find -S Ma ./backup              # newest first, then alphabetical
  duprank find -S pd /originals /copies    # earlier path wins, shallow first
  duprank find -D --sort-by S ./backup     # merge dirs, biggest groups first
  duprank find --preferred /originals --keep-all-preferred /originals /copies
  duprank find --format yaml -o dupes.yaml ./backup`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.VarP(&opts.rankBy, "rank-by", "S", "Criteria for ranking copies within a group (default \"mf\")")
	flags.Var(&opts.sortBy, "sort-by", "Criteria for ordering groups by their original (default \"f\")")
	flags.Var(&opts.format, "format", "Report format: text, json or yaml (default \"text\")")
	flags.BoolVarP(&opts.mergeDirs, "merge-directories", "D", false, "Report fully duplicated directories as a single group")
	flags.StringVarP(&opts.outputPath, "output", "o", "", "Write the report to a file instead of stdout")
	flags.Int64Var(&opts.minSize, "min-size", 1, "Ignore files smaller than this many bytes")
	flags.IntVar(&opts.maxDepth, "max-depth", 0, "Do not descend more than this many levels below each path (0 = unlimited)")
	flags.StringArrayVar(&opts.preferred, "preferred", nil, "Prefer files below this path as originals (repeatable)")
	flags.BoolVar(&opts.mustMatchPreferred, "must-match-preferred", false, "Only report groups that contain a preferred file")
	flags.BoolVar(&opts.keepAllPreferred, "keep-all-preferred", false, "Never mark preferred files for removal")
	flags.BoolVar(&opts.findHardlinked, "hardlinked", false, "Report hardlinks to the same file as duplicates")

	return cmd
}

func runFind(cmd *cobra.Command, args []string, opts *findOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyFindFlags(cmd, &cfg, opts)

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	if opts.outputPath != "" && !cmd.Flags().Changed("format") {
		format = report.FormatForPath(opts.outputPath, format)
	}

	logger, closeLog := newLogger(cfg)
	defer closeLog()

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var reporter *progressReporter
	var onProgress usecase.ProgressCallback
	if verbose {
		reporter = startProgress("Scanning")
		onProgress = func(stage progress.Stage, processed, total int) {
			reporter.Report(string(stage), processed, total)
		}
	}

	defaults := config.Default()
	execution, err := usecase.New(usecase.Options{
		SkipFiles:     append(skipFiles(), cfg.SkipFiles...),
		SkipDirs:      cfg.SkipDirs,
		MaxDepth:      cfg.MaxDepth,
		DefaultRankBy: defaults.RankBy,
		DefaultSortBy: defaults.SortBy,
		Logger:        logger,
	}).RunFind(cmd.Context(), usecase.FindRequest{
		Paths:              paths,
		RankBy:             cfg.RankBy,
		SortBy:             cfg.SortBy,
		MergeDirectories:   cfg.MergeDirectories,
		Preferred:          cfg.Preferred,
		MustMatchPreferred: cfg.MustMatchPreferred,
		KeepAllPreferred:   cfg.KeepAllPreferred,
		FindHardlinked:     cfg.FindHardlinked,
		MinSize:            cfg.MinSize,
		Workers:            cfg.Workers,
		OnProgress:         onProgress,
	})
	reporter.Stop()
	if err != nil {
		return err
	}

	if opts.outputPath == "" {
		return execution.Report.Write(os.Stdout, format)
	}

	if err := execution.Report.Save(opts.outputPath, format); err != nil {
		return err
	}

	s := execution.Report.Summary
	printSummary(
		fmt.Sprintf("Total files:      %d", s.TotalFiles),
		fmt.Sprintf("Groups:           %d", s.Groups),
		fmt.Sprintf("Directory groups: %d", s.DirectoryGroups),
		fmt.Sprintf("Duplicates:       %d", s.Duplicates),
		fmt.Sprintf("Kept preferred:   %d", s.KeptPreferred),
		"Reclaimable:      "+formatBytes(s.ReclaimableBytes),
		"Report saved:     "+opts.outputPath,
	)
	fmt.Printf("\nCompleted in %v\n", execution.Duration.Round(time.Millisecond))

	return nil
}

// applyFindFlags overrides configuration with flags given on the command line.
func applyFindFlags(cmd *cobra.Command, cfg *config.Config, opts *findOptions) {
	flags := cmd.Flags()
	if flags.Changed("rank-by") {
		cfg.RankBy = opts.rankBy.String()
	}
	if flags.Changed("sort-by") {
		cfg.SortBy = opts.sortBy.String()
	}
	if flags.Changed("format") {
		cfg.Format = opts.format.String()
	}
	if flags.Changed("merge-directories") {
		cfg.MergeDirectories = opts.mergeDirs
	}
	if flags.Changed("min-size") {
		cfg.MinSize = opts.minSize
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = opts.maxDepth
	}
	if flags.Changed("preferred") {
		cfg.Preferred = opts.preferred
	}
	if flags.Changed("must-match-preferred") {
		cfg.MustMatchPreferred = opts.mustMatchPreferred
	}
	if flags.Changed("keep-all-preferred") {
		cfg.KeepAllPreferred = opts.keepAllPreferred
	}
	if flags.Changed("hardlinked") {
		cfg.FindHardlinked = opts.findHardlinked
	}
}
