// Package dirmerge collapses fully duplicated directories into directory clusters.
//
// Two directories are duplicates when every file below one has a content-identical
// counterpart at the same relative path below the other, with nothing left over on
// either side. Such directories become synthetic directory entities that are ranked
// alongside the remaining file clusters under the same criteria chain.
//
// Within each directory cluster one directory is chosen as representative with the
// run's comparator. Everything below the other members is subsumed: those files and
// directories drop out of per-file reporting. Duplicates that live entirely inside the
// representative (two identical files in the same kept directory) are still reported.
package dirmerge

import (
	"encoding/hex"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"duprank/pkg/comparator"
	"duprank/pkg/entity"
)

// Tree is the complete traversal output: every file seen below Roots,
// duplicated or not.
type Tree struct {
	Roots []string
	Files []*entity.Entity
}

// Result contains the merged clusters.
type Result struct {
	// Clusters holds the surviving file clusters in input order followed by the
	// directory clusters.
	Clusters []entity.Cluster
	// Directories holds only the directory clusters.
	Directories []entity.Cluster
	// Subsumed lists the directories absorbed into a representative, sorted.
	Subsumed []string

	SubsumedFiles      int // file cluster members dropped because they live in a subsumed directory
	DroppedClusters    int // file clusters left with fewer than two members
	AbsorbedCandidates int // candidate groups reduced below two members by earlier merges
}

// Merger finds duplicate directories.
type Merger struct {
	cmp    *comparator.Comparator
	logger *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Merger. cmp picks the representative of each directory cluster
// and should be the comparator used to rank the clusters afterwards.
func New(cmp *comparator.Comparator, opts ...Option) *Merger {
	m := &Merger{
		cmp:    cmp,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type dirInfo struct {
	path    string
	depth   int
	files   []*entity.Entity
	partial bool // contains a file outside every cluster
}

type candidate struct {
	key  string
	dirs []*dirInfo
}

// Merge replaces file clusters covered by duplicate directories with directory
// clusters. Clusters that are not file clusters are passed through unchanged.
func (m *Merger) Merge(clusters []entity.Cluster, tree Tree) Result {
	clusterOf := make(map[string]int)
	for i, c := range clusters {
		if c.Kind() != entity.KindFile {
			continue
		}
		for _, f := range c.Members {
			clusterOf[f.Path] = i
		}
	}

	dirs := m.indexDirectories(clusters, tree, clusterOf)
	candidates := groupByFingerprint(dirs, clusterOf)

	var result Result
	subsumed := make(map[string]bool)

	for _, cand := range candidates {
		var members []*dirInfo
		for _, d := range cand.dirs {
			if !underSubsumed(d.path, subsumed, true) {
				members = append(members, d)
			}
		}
		if len(members) < 2 {
			result.AbsorbedCandidates++
			continue
		}

		entities := make([]*entity.Entity, 0, len(members))
		for _, d := range members {
			entities = append(entities, entity.NewDirectory(d.path, d.files))
		}

		rep := entities[0]
		for _, e := range entities[1:] {
			if m.cmp.Less(e, rep) {
				rep = e
			}
		}
		for _, e := range entities {
			if e != rep {
				subsumed[e.Path] = true
			}
		}

		result.Directories = append(result.Directories, entity.Cluster{
			ID:      "dir:" + cand.key,
			Members: entities,
		})
		m.logger.Debug("duplicate directories merged", "representative", rep.Path, "count", len(entities))
	}

	for _, c := range clusters {
		if c.Kind() != entity.KindFile || len(subsumed) == 0 {
			result.Clusters = append(result.Clusters, c)
			continue
		}

		kept := make([]*entity.Entity, 0, len(c.Members))
		for _, f := range c.Members {
			if underSubsumed(f.Path, subsumed, false) {
				result.SubsumedFiles++
				continue
			}
			kept = append(kept, f)
		}

		if len(kept) < 2 {
			result.DroppedClusters++
			continue
		}
		result.Clusters = append(result.Clusters, entity.Cluster{ID: c.ID, Members: kept})
	}

	result.Clusters = append(result.Clusters, result.Directories...)
	for p := range subsumed {
		result.Subsumed = append(result.Subsumed, p)
	}
	sort.Strings(result.Subsumed)

	return result
}

// indexDirectories collects, for every directory below a root, the files it
// contains recursively.
func (m *Merger) indexDirectories(clusters []entity.Cluster, tree Tree, clusterOf map[string]int) map[string]*dirInfo {
	roots := make([]string, 0, len(tree.Roots))
	for _, r := range tree.Roots {
		roots = append(roots, filepath.Clean(r))
	}
	// Shortest first so the outermost of overlapping roots wins.
	sort.Slice(roots, func(i, j int) bool { return len(roots[i]) < len(roots[j]) })

	files := make(map[string]*entity.Entity, len(tree.Files))
	for _, f := range tree.Files {
		files[f.Path] = f
	}
	for _, c := range clusters {
		if c.Kind() != entity.KindFile {
			continue
		}
		for _, f := range c.Members {
			if _, ok := files[f.Path]; !ok {
				files[f.Path] = f
			}
		}
	}

	dirs := make(map[string]*dirInfo)
	for path, f := range files {
		root, ok := rootOf(path, roots)
		if !ok {
			m.logger.Debug("file outside every root", "path", path)
			continue
		}

		_, clustered := clusterOf[path]
		for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
			d, ok := dirs[dir]
			if !ok {
				d = &dirInfo{path: dir, depth: strings.Count(dir, string(filepath.Separator))}
				dirs[dir] = d
			}
			d.files = append(d.files, f)
			if !clustered {
				d.partial = true
			}

			if dir == root || filepath.Dir(dir) == dir {
				break
			}
		}
	}

	for _, d := range dirs {
		sort.Slice(d.files, func(i, j int) bool { return d.files[i].Path < d.files[j].Path })
	}

	return dirs
}

func rootOf(path string, roots []string) (string, bool) {
	for _, r := range roots {
		if entity.Contains(r, path) {
			return r, true
		}
	}
	return "", false
}

// groupByFingerprint groups fully clustered directories by their content
// fingerprint: the sorted (relative path, cluster) pairs of every file below.
// Groups are ordered by their deepest member, shallowest first, so a group whose
// members hold a copy of another group's members is merged before that group.
func groupByFingerprint(dirs map[string]*dirInfo, clusterOf map[string]int) []candidate {
	type bucket struct {
		canonical string
		dirs      []*dirInfo
	}
	buckets := make(map[uint64][]*bucket)

	for _, d := range dirs {
		if d.partial || len(d.files) == 0 {
			continue
		}

		canonical := fingerprint(d, clusterOf)
		sum := xxhash.Sum64String(canonical)

		var target *bucket
		for _, b := range buckets[sum] {
			if b.canonical == canonical {
				target = b
				break
			}
		}
		if target == nil {
			target = &bucket{canonical: canonical}
			buckets[sum] = append(buckets[sum], target)
		}
		target.dirs = append(target.dirs, d)
	}

	var out []candidate
	for sum, list := range buckets {
		sort.Slice(list, func(i, j int) bool { return list[i].canonical < list[j].canonical })
		for i, b := range list {
			if len(b.dirs) < 2 {
				continue
			}
			sort.Slice(b.dirs, func(x, y int) bool { return b.dirs[x].path < b.dirs[y].path })

			key := strconv.FormatUint(sum, 16)
			if i > 0 {
				key += "-" + strconv.Itoa(i)
			}
			out = append(out, candidate{key: key, dirs: b.dirs})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		di, dj := maxDepth(out[i].dirs), maxDepth(out[j].dirs)
		if di != dj {
			return di < dj
		}
		return out[i].dirs[0].path < out[j].dirs[0].path
	})

	return out
}

func fingerprint(d *dirInfo, clusterOf map[string]int) string {
	type pair struct {
		rel     string
		cluster int
	}
	pairs := make([]pair, 0, len(d.files))
	for _, f := range d.files {
		rel, err := filepath.Rel(d.path, f.Path)
		if err != nil {
			rel = f.Path
		}
		pairs = append(pairs, pair{rel: filepath.ToSlash(rel), cluster: clusterOf[f.Path]})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].rel < pairs[j].rel })

	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(hex.EncodeToString([]byte(p.rel)))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(p.cluster))
		b.WriteByte(';')
	}
	return b.String()
}

func maxDepth(dirs []*dirInfo) int {
	best := dirs[0].depth
	for _, d := range dirs[1:] {
		if d.depth > best {
			best = d.depth
		}
	}
	return best
}

// underSubsumed reports whether path lies below a subsumed directory, or is one
// when inclusive is set.
func underSubsumed(path string, subsumed map[string]bool, inclusive bool) bool {
	if len(subsumed) == 0 {
		return false
	}
	if inclusive && subsumed[path] {
		return true
	}
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if subsumed[dir] {
			return true
		}
		if filepath.Dir(dir) == dir {
			return false
		}
	}
}
