// Package usecase provides application-level orchestration for CLI workflows.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"duprank/pkg/attribute"
	"duprank/pkg/collector"
	"duprank/pkg/comparator"
	"duprank/pkg/criteria"
	"duprank/pkg/dirmerge"
	"duprank/pkg/duplicates"
	"duprank/pkg/progress"
	"duprank/pkg/ranker"
	"duprank/pkg/report"
)

// ErrNoPaths is returned when a find request names no root.
var ErrNoPaths = errors.New("no paths to scan")

// Options configures a Service.
type Options struct {
	SkipFiles []string
	SkipDirs  []string
	MaxDepth  int
	Logger    *slog.Logger
	// Registry overrides the attribute registry. Defaults to attribute.DefaultRegistry().
	Registry *attribute.Registry
	// DefaultRankBy and DefaultSortBy replace empty criteria in a request.
	// They default to criteria.DefaultSpec and ranker.DefaultSortSpec and are
	// checked against Registry when first used.
	DefaultRankBy string
	DefaultSortBy string
}

// ProgressCallback receives workflow stage progress updates.
type ProgressCallback func(stage progress.Stage, processed, total int)

// Service orchestrates command workflows without Cobra dependencies.
type Service struct {
	skipFiles []string
	skipDirs  []string
	maxDepth  int
	logger    *slog.Logger
	registry  *attribute.Registry

	defaultRankBy string
	defaultSortBy string
}

// New creates a use-case service.
func New(opts Options) *Service {
	s := &Service{
		skipFiles: append([]string(nil), opts.SkipFiles...),
		skipDirs:  append([]string(nil), opts.SkipDirs...),
		maxDepth:  opts.MaxDepth,
		logger:    opts.Logger,
		registry:  opts.Registry,

		defaultRankBy: opts.DefaultRankBy,
		defaultSortBy: opts.DefaultSortBy,
	}
	if s.defaultRankBy == "" {
		s.defaultRankBy = criteria.DefaultSpec
	}
	if s.defaultSortBy == "" {
		s.defaultSortBy = ranker.DefaultSortSpec
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.registry == nil {
		s.registry = attribute.DefaultRegistry()
	}
	return s
}

// FindRequest contains inputs for the find workflow.
type FindRequest struct {
	Paths            []string
	RankBy           string
	SortBy           string
	MergeDirectories bool
	MinSize          int64
	Workers          int
	OnProgress       ProgressCallback

	// Preferred marks files below these paths as preferred originals.
	Preferred []string
	// MustMatchPreferred drops clusters without a preferred file.
	MustMatchPreferred bool
	// KeepAllPreferred drops clusters made only of preferred files and never
	// reports a preferred file as removable.
	KeepAllPreferred bool
	// FindHardlinked reports hardlinks to one file as duplicates of each other.
	FindHardlinked bool
}

// FindExecution contains find workflow outputs.
type FindExecution struct {
	Roots           []string
	FileCount       int
	CollectDuration time.Duration
	Duration        time.Duration

	RankChain criteria.Chain
	SortChain criteria.Chain

	// Clusters holds the ranked clusters in output order.
	Clusters []ranker.RankedCluster
	// Entries is Clusters flattened, originals first within each cluster.
	Entries []ranker.Entry

	Merge       *dirmerge.Result
	Duplicates  duplicates.Result
	Diagnostics []comparator.Diagnostic
	Report      *report.Report
}

// RunFind executes the find workflow: collect, cluster, optionally merge
// directories, rank every cluster and order the clusters for output.
// Both criteria strings are parsed before any file is touched.
func (s *Service) RunFind(ctx context.Context, req FindRequest) (FindExecution, error) {
	startTime := time.Now()

	rankChain, err := criteria.ParseOr(req.RankBy, s.defaultRankBy, s.registry)
	if err != nil {
		return FindExecution{}, fmt.Errorf("invalid rank criteria: %w", err)
	}
	sortChain, err := criteria.ParseOr(req.SortBy, s.defaultSortBy, s.registry)
	if err != nil {
		return FindExecution{}, fmt.Errorf("invalid sort criteria: %w", err)
	}

	if len(req.Paths) == 0 {
		return FindExecution{}, ErrNoPaths
	}
	for _, p := range req.Paths {
		if _, err := os.Stat(p); err != nil {
			return FindExecution{}, fmt.Errorf("cannot access path: %w", err)
		}
	}
	for _, p := range req.Preferred {
		if _, err := os.Stat(p); err != nil {
			return FindExecution{}, fmt.Errorf("cannot access preferred path: %w", err)
		}
	}

	execution := FindExecution{RankChain: rankChain, SortChain: sortChain}

	collected, collectDuration, err := s.collectFiles(ctx, req.Paths, req.Preferred)
	if err != nil {
		return FindExecution{}, err
	}
	execution.Roots = collected.Roots
	execution.FileCount = len(collected.Files)
	execution.CollectDuration = collectDuration
	progress.EmitStage(req.OnProgress, progress.StageCollect, len(collected.Files), len(collected.Files))

	finder := duplicates.New(duplicates.Options{
		MinSize:    req.MinSize,
		Workers:    req.Workers,
		Logger:     s.logger,
		OnProgress: progress.ForStage(req.OnProgress, progress.StageHash),

		FindHardlinked:     req.FindHardlinked,
		MustMatchPreferred: req.MustMatchPreferred,
		KeepAllPreferred:   req.KeepAllPreferred,
	})
	found, err := finder.Find(ctx, collected.Files)
	if err != nil {
		return FindExecution{}, fmt.Errorf("failed to find duplicates: %w", err)
	}
	execution.Duplicates = found

	diags := comparator.NewDiagnostics()
	extractor := attribute.NewExtractor()
	rankCmp := comparator.New(rankChain,
		comparator.WithExtractor(extractor),
		comparator.WithDiagnostics(diags),
		comparator.WithLogger(s.logger),
	)

	clusters := found.Clusters
	if req.MergeDirectories {
		merged := dirmerge.New(rankCmp, dirmerge.WithLogger(s.logger)).Merge(clusters, dirmerge.Tree{
			Roots: collected.Roots,
			Files: collected.Files,
		})
		progress.EmitStage(req.OnProgress, progress.StageMerge, len(clusters), len(clusters))
		clusters = merged.Clusters
		execution.Merge = &merged
	}

	r := ranker.New(rankCmp,
		ranker.WithWorkers(req.Workers),
		ranker.WithLogger(s.logger),
		ranker.WithProgress(progress.ForStage(req.OnProgress, progress.StageRank)),
	)
	ranked, err := r.RankAll(ctx, clusters)
	if err != nil {
		return FindExecution{}, fmt.Errorf("failed to rank clusters: %w", err)
	}

	sortCmp := comparator.New(sortChain,
		comparator.WithExtractor(extractor),
		comparator.WithDiagnostics(diags),
		comparator.WithLogger(s.logger),
	)
	execution.Clusters = ranker.Order(ranked, sortCmp)
	execution.Entries = ranker.Flatten(execution.Clusters)
	execution.Diagnostics = diags.List()

	in := report.Input{
		Meta: report.Meta{
			Roots:            execution.Roots,
			RankBy:           rankChain.String(),
			SortBy:           sortChain.String(),
			MergeDirectories: req.MergeDirectories,

			Preferred:          req.Preferred,
			MustMatchPreferred: req.MustMatchPreferred,
			KeepAllPreferred:   req.KeepAllPreferred,
			FindHardlinked:     req.FindHardlinked,
		},
		TotalFiles:         execution.FileCount,
		CollapsedHardlinks: found.CollapsedHardlinks,
		Diagnostics:        execution.Diagnostics,
	}
	if execution.Merge != nil {
		in.Subsumed = execution.Merge.Subsumed
	}
	execution.Report = report.Build(execution.Clusters, in)
	execution.Duration = time.Since(startTime)

	s.logger.Info("find complete",
		"files", execution.FileCount,
		"clusters", len(execution.Clusters),
		"diagnostics", len(execution.Diagnostics),
		"duration", execution.Duration,
	)

	return execution, nil
}

func (s *Service) collectFiles(ctx context.Context, roots, preferred []string) (*collector.Result, time.Duration, error) {
	startTime := time.Now()

	c := collector.New(collector.Options{
		SkipFiles: s.skipFiles,
		SkipDirs:  s.skipDirs,
		MaxDepth:  s.maxDepth,
		Preferred: preferred,
		Logger:    s.logger,
	})

	result, err := c.Collect(ctx, roots)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to collect files: %w", err)
	}

	return result, time.Since(startTime), nil
}

// Criteria lists the registered attributes for display.
func (s *Service) Criteria() []attribute.Attribute {
	return s.registry.Attributes()
}
