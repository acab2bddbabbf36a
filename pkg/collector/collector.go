// Package collector walks root directories and produces file entities for ranking.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"duprank/pkg/entity"
)

// Options configures the collector behavior.
type Options struct {
	// SkipFiles is a list of filenames to skip (e.g., editor swap files)
	SkipFiles []string
	// SkipDirs is a list of directory names to skip
	SkipDirs []string
	// MaxDepth limits recursion below each root. Zero means unlimited.
	MaxDepth int
	// Preferred lists paths whose files are marked as preferred originals.
	Preferred []string
	// Logger receives per-file debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Collector collects file entities from one or more directory trees.
type Collector struct {
	skipFiles map[string]bool
	skipDirs  map[string]bool
	maxDepth  int
	preferred []string
	logger    *slog.Logger
}

type fileID struct {
	dev   uint64
	inode uint64
	nlink uint64
}

// Result is the traversal output.
type Result struct {
	// Roots holds the cleaned absolute roots in command-line order.
	Roots []string
	// Files holds every regular file found, each path once.
	Files []*entity.Entity
	// Skipped counts entries that were not regular files (symlinks, devices, sockets).
	Skipped int
}

// New creates a new Collector with the given options.
func New(opts Options) *Collector {
	c := &Collector{
		skipFiles: make(map[string]bool),
		skipDirs:  make(map[string]bool),
		maxDepth:  opts.MaxDepth,
		preferred: opts.Preferred,
		logger:    opts.Logger,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	for _, f := range opts.SkipFiles {
		c.skipFiles[f] = true
	}
	for _, d := range opts.SkipDirs {
		c.skipDirs[d] = true
	}

	return c
}

// Collect walks every root in order. The index of the root a file was first
// reached through becomes its PathIndex; a file reachable through overlapping
// roots is reported once. Symlinks are never followed.
func (c *Collector) Collect(ctx context.Context, roots []string) (*Result, error) {
	result := &Result{Roots: make([]string, 0, len(roots))}
	seen := make(map[string]bool)

	preferred := make([]string, 0, len(c.preferred))
	for _, p := range c.preferred {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve preferred path %q: %w", p, err)
		}
		preferred = append(preferred, abs)
	}

	for i, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", root, err)
		}
		result.Roots = append(result.Roots, abs)

		err = filepath.Walk(abs, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			depth := depthBelow(abs, path)

			if info.IsDir() {
				if path != abs && c.skipDirs[info.Name()] {
					return filepath.SkipDir
				}
				if c.maxDepth > 0 && depth >= c.maxDepth {
					return filepath.SkipDir
				}
				return nil
			}

			if !info.Mode().IsRegular() {
				result.Skipped++
				return nil
			}
			if c.skipFiles[info.Name()] || seen[path] {
				return nil
			}
			seen[path] = true

			f := entity.NewFile(path, info.Size(), info.ModTime(), depth, 0)
			f.PathIndex = i
			f.Preferred = isPreferred(path, preferred)
			if id, ok := statFile(info); ok {
				f.Nlink = id.nlink
				f.Dev = id.dev
				f.Inode = id.inode
			} else {
				f.Unresolved |= entity.AttrHardlinks
			}

			result.Files = append(result.Files, f)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", abs, err)
		}

		c.logger.Debug("root collected", "root", abs, "index", i, "files", len(result.Files))
	}

	return result, nil
}

// depthBelow counts the path components of path below root. A file given
// directly as a root has depth zero.
func depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func isPreferred(path string, preferred []string) bool {
	for _, p := range preferred {
		if path == p || entity.Contains(p, path) {
			return true
		}
	}
	return false
}
