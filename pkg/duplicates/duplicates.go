// Package duplicates groups files with identical content into clusters.
// It uses a hybrid approach for performance:
// 1. Group files by size (different sizes can't be duplicates)
// 2. Collapse paths to the same file on disk unless hardlinked duplicates are wanted
// 3. For same-size files above hasher.SmallFileThreshold, compare a partial hash (first + last 4KB)
// 4. Confirm every remaining candidate with a full content hash
// 5. Drop clusters rejected by the preferred-path filters
package duplicates

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"duprank/pkg/entity"
	"duprank/pkg/hasher"
)

// DefaultMinSize skips empty files.
const DefaultMinSize = 1

// Options configures a Finder.
type Options struct {
	// MinSize is the smallest file size considered. Zero and negative values use DefaultMinSize.
	MinSize int64
	// Workers is the number of hashing goroutines. Zero means runtime.NumCPU().
	Workers int
	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
	// OnProgress is called as files are fully hashed.
	OnProgress func(processed, total int)

	// FindHardlinked reports every path of a hardlinked file as a separate
	// duplicate. Otherwise only one path per inode takes part.
	FindHardlinked bool
	// MustMatchPreferred drops clusters without a preferred member.
	MustMatchPreferred bool
	// KeepAllPreferred drops clusters whose members are all preferred.
	KeepAllPreferred bool
}

// Result contains the clusters found.
type Result struct {
	Clusters     []entity.Cluster
	TotalFiles   int
	Candidates   int // files sharing their size with at least one other file
	SkippedSmall int // files below the minimum size
	HashErrors   int
	Unreadable   []string

	CollapsedHardlinks int // paths dropped because another path reaches the same file
	FilteredClusters   int // clusters dropped by the preferred-path filters
}

// Finder groups files by content.
type Finder struct {
	minSize    int64
	hasher     *hasher.Hasher
	logger     *slog.Logger
	onProgress func(processed, total int)

	findHardlinked     bool
	mustMatchPreferred bool
	keepAllPreferred   bool
}

// New creates a Finder with the given options.
func New(opts Options) *Finder {
	f := &Finder{
		minSize:    opts.MinSize,
		hasher:     hasher.New(hasher.WithWorkers(opts.Workers)),
		logger:     opts.Logger,
		onProgress: opts.OnProgress,

		findHardlinked:     opts.FindHardlinked,
		mustMatchPreferred: opts.MustMatchPreferred,
		keepAllPreferred:   opts.KeepAllPreferred,
	}
	if f.minSize <= 0 {
		f.minSize = DefaultMinSize
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

type groupKey struct {
	size int64
	hash string
}

// Find returns every group of two or more files with identical content.
// Members are sorted by path and clusters by their first member.
func (f *Finder) Find(ctx context.Context, files []*entity.Entity) (Result, error) {
	result := Result{TotalFiles: len(files)}

	sizeGroups := make(map[int64][]*entity.Entity)
	for _, file := range files {
		if file.Size < f.minSize {
			result.SkippedSmall++
			continue
		}
		sizeGroups[file.Size] = append(sizeGroups[file.Size], file)
	}

	var small, large []*entity.Entity
	for size, group := range sizeGroups {
		if len(group) > 1 && !f.findHardlinked {
			var collapsed int
			group, collapsed = collapseSameFiles(group)
			result.CollapsedHardlinks += collapsed
		}
		if len(group) < 2 {
			continue
		}
		result.Candidates += len(group)
		if size <= hasher.SmallFileThreshold {
			small = append(small, group...)
		} else {
			large = append(large, group...)
		}
	}

	if len(small)+len(large) == 0 {
		return result, nil
	}

	// Large files must survive a partial hash match before they are read fully.
	if len(large) > 0 {
		partial := f.hashGroups(ctx, large, f.hasher.HashPartialFiles, nil, &result)
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("partial hashing: %w", err)
		}
		large = large[:0]
		for _, group := range partial {
			if len(group) > 1 {
				large = append(large, group...)
			}
		}
	}

	confirmed := append(small, large...)
	full := f.hashGroups(ctx, confirmed, f.hasher.HashFiles, f.onProgress, &result)
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("full hashing: %w", err)
	}

	for key, group := range full {
		if len(group) < 2 {
			continue
		}
		if !f.passesPreferred(group) {
			result.FilteredClusters++
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Path < group[j].Path })
		result.Clusters = append(result.Clusters, entity.Cluster{
			ID:      fmt.Sprintf("%s-%d", key.hash, key.size),
			Members: group,
		})
	}

	sort.Slice(result.Clusters, func(i, j int) bool {
		return result.Clusters[i].Members[0].Path < result.Clusters[j].Members[0].Path
	})
	sort.Strings(result.Unreadable)

	f.logger.Debug("duplicate clusters found",
		"files", result.TotalFiles,
		"candidates", result.Candidates,
		"clusters", len(result.Clusters),
		"collapsed_hardlinks", result.CollapsedHardlinks,
		"filtered", result.FilteredClusters,
	)

	return result, nil
}

func (f *Finder) hashGroups(
	ctx context.Context,
	files []*entity.Entity,
	hashAll func(context.Context, []hasher.FileToHash) <-chan hasher.HashResult,
	onProgress func(processed, total int),
	result *Result,
) map[groupKey][]*entity.Entity {
	byPath := make(map[string]*entity.Entity, len(files))
	toHash := make([]hasher.FileToHash, 0, len(files))
	for _, file := range files {
		byPath[file.Path] = file
		toHash = append(toHash, hasher.FileToHash{Path: file.Path, Size: file.Size})
	}

	groups := make(map[groupKey][]*entity.Entity)
	processed := 0
	for r := range hashAll(ctx, toHash) {
		processed++
		if onProgress != nil {
			onProgress(processed, len(toHash))
		}

		if r.Error != nil {
			result.HashErrors++
			result.Unreadable = append(result.Unreadable, r.Path)
			f.logger.Warn("skipping unreadable file", "path", r.Path, "error", r.Error)
			continue
		}

		file, ok := byPath[r.Path]
		if !ok {
			continue
		}
		key := groupKey{size: file.Size, hash: r.Hash}
		groups[key] = append(groups[key], file)
	}

	return groups
}

// collapseSameFiles keeps one path per file on disk. A preferred path wins,
// then the smallest path. Files with an unknown inode are always kept.
func collapseSameFiles(group []*entity.Entity) ([]*entity.Entity, int) {
	sorted := append([]*entity.Entity(nil), group...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Dev != b.Dev {
			return a.Dev < b.Dev
		}
		if a.Inode != b.Inode {
			return a.Inode < b.Inode
		}
		if a.Preferred != b.Preferred {
			return a.Preferred
		}
		return a.Path < b.Path
	})

	kept := make([]*entity.Entity, 0, len(sorted))
	for _, e := range sorted {
		if n := len(kept); n > 0 && kept[n-1].SameFile(e) {
			continue
		}
		kept = append(kept, e)
	}
	return kept, len(sorted) - len(kept)
}

func (f *Finder) passesPreferred(members []*entity.Entity) bool {
	preferred := 0
	for _, m := range members {
		if m.Preferred {
			preferred++
		}
	}
	if f.mustMatchPreferred && preferred == 0 {
		return false
	}
	if f.keepAllPreferred && preferred == len(members) {
		return false
	}
	return true
}
