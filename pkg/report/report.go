// Package report renders ranked duplicate clusters as JSON, YAML or colored text.
// Reports written as JSON or YAML can be loaded back for later inspection.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"duprank/pkg/attribute"
	"duprank/pkg/comparator"
	"duprank/pkg/entity"
	"duprank/pkg/ranker"
)

// Version is the report schema version.
const Version = 1

// Format selects a report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for an unsupported report format.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat parses a format name. The empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (want text, json or yaml)", ErrUnknownFormat, s)
	}
}

// FormatForPath guesses the format from a file extension, falling back to def.
func FormatForPath(path string, def Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return def
	}
}

// Entry is a single file or directory in a group.
type Entry struct {
	Path      string    `json:"path" yaml:"path"`
	Kind      string    `json:"kind" yaml:"kind"`
	Size      int64     `json:"size" yaml:"size"`
	ModTime   time.Time `json:"mtime" yaml:"mtime"`
	Depth     int       `json:"depth" yaml:"depth"`
	Nlink     uint64    `json:"nlink,omitempty" yaml:"nlink,omitempty"`
	PathIndex int       `json:"path_index" yaml:"path_index"`
	Files     int       `json:"files,omitempty" yaml:"files,omitempty"`
	Preferred bool      `json:"preferred,omitempty" yaml:"preferred,omitempty"`

	// Keep marks a duplicate left in place because it lies below a preferred path.
	Keep bool `json:"keep,omitempty" yaml:"keep,omitempty"`
}

// Group is one ranked cluster: the original followed by its duplicates in rank order.
type Group struct {
	ID          string  `json:"id" yaml:"id"`
	Kind        string  `json:"kind" yaml:"kind"`
	Original    Entry   `json:"original" yaml:"original"`
	Duplicates  []Entry `json:"duplicates" yaml:"duplicates"`
	Reclaimable int64   `json:"reclaimable" yaml:"reclaimable"`
}

// Diagnostic records an attribute that could not be compared.
type Diagnostic struct {
	Path      string `json:"path" yaml:"path"`
	Kind      string `json:"kind" yaml:"kind"`
	Attribute string `json:"attribute" yaml:"attribute"`
	Error     string `json:"error" yaml:"error"`
}

// Meta describes the run that produced the report.
type Meta struct {
	Roots            []string `json:"roots" yaml:"roots"`
	RankBy           string   `json:"rank_by" yaml:"rank_by"`
	SortBy           string   `json:"sort_by" yaml:"sort_by"`
	MergeDirectories bool     `json:"merge_directories" yaml:"merge_directories"`

	Preferred          []string `json:"preferred,omitempty" yaml:"preferred,omitempty"`
	MustMatchPreferred bool     `json:"must_match_preferred,omitempty" yaml:"must_match_preferred,omitempty"`
	KeepAllPreferred   bool     `json:"keep_all_preferred,omitempty" yaml:"keep_all_preferred,omitempty"`
	FindHardlinked     bool     `json:"find_hardlinked,omitempty" yaml:"find_hardlinked,omitempty"`
}

// Summary holds report totals.
type Summary struct {
	TotalFiles          int   `json:"total_files" yaml:"total_files"`
	Groups              int   `json:"groups" yaml:"groups"`
	DirectoryGroups     int   `json:"directory_groups" yaml:"directory_groups"`
	Duplicates          int   `json:"duplicates" yaml:"duplicates"`
	ReclaimableBytes    int64 `json:"reclaimable_bytes" yaml:"reclaimable_bytes"`
	SubsumedDirectories int   `json:"subsumed_directories" yaml:"subsumed_directories"`
	KeptPreferred       int   `json:"kept_preferred,omitempty" yaml:"kept_preferred,omitempty"`
	CollapsedHardlinks  int   `json:"collapsed_hardlinks,omitempty" yaml:"collapsed_hardlinks,omitempty"`
}

// Report is the complete result of a find run.
type Report struct {
	Version     int          `json:"version" yaml:"version"`
	CreatedAt   time.Time    `json:"created_at" yaml:"created_at"`
	Meta        Meta         `json:"meta" yaml:"meta"`
	Summary     Summary      `json:"summary" yaml:"summary"`
	Groups      []Group      `json:"groups" yaml:"groups"`
	Subsumed    []string     `json:"subsumed,omitempty" yaml:"subsumed,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Input gathers everything Build needs besides the ranked clusters.
type Input struct {
	Meta               Meta
	TotalFiles         int
	CollapsedHardlinks int
	Subsumed           []string
	Diagnostics        []comparator.Diagnostic
}

// Build creates a report from ranked clusters already in output order.
func Build(ranked []ranker.RankedCluster, in Input) *Report {
	r := &Report{
		Version:   Version,
		CreatedAt: time.Now().UTC(),
		Meta:      in.Meta,
		Groups:    make([]Group, 0, len(ranked)),
		Subsumed:  in.Subsumed,
	}

	x := attribute.NewExtractor()
	for _, rc := range ranked {
		g := Group{
			ID:         rc.ID,
			Kind:       rc.Kind().String(),
			Original:   newEntry(rc.Original(), x),
			Duplicates: make([]Entry, 0, len(rc.Duplicates())),
		}
		for _, d := range rc.Duplicates() {
			e := newEntry(d, x)
			if in.Meta.KeepAllPreferred && e.Preferred {
				e.Keep = true
				r.Summary.KeptPreferred++
			} else {
				g.Reclaimable += e.Size
				r.Summary.Duplicates++
			}
			g.Duplicates = append(g.Duplicates, e)
		}

		r.Groups = append(r.Groups, g)
		r.Summary.Groups++
		r.Summary.ReclaimableBytes += g.Reclaimable
		if rc.Kind() == entity.KindDirectory {
			r.Summary.DirectoryGroups++
		}
	}

	for _, d := range in.Diagnostics {
		r.Diagnostics = append(r.Diagnostics, Diagnostic{
			Path:      d.Path,
			Kind:      d.Kind.String(),
			Attribute: d.Attribute,
			Error:     d.Err.Error(),
		})
	}

	r.Summary.TotalFiles = in.TotalFiles
	r.Summary.CollapsedHardlinks = in.CollapsedHardlinks
	r.Summary.SubsumedDirectories = len(in.Subsumed)

	return r
}

func newEntry(e *entity.Entity, x *attribute.Extractor) Entry {
	out := Entry{
		Path:      e.Path,
		Kind:      e.Kind.String(),
		Size:      e.Size,
		ModTime:   e.ModTime,
		Depth:     e.Depth,
		Nlink:     e.Nlink,
		PathIndex: e.PathIndex,
		Preferred: e.Preferred,
	}
	if !e.IsDir() {
		return out
	}

	out.Files = len(e.Members)
	out.Nlink = 0
	reg := attribute.DefaultRegistry()
	for letter, set := range map[rune]func(attribute.Value){
		's': func(v attribute.Value) { out.Size = v.Int() },
		'm': func(v attribute.Value) { out.ModTime = v.AsTime() },
		'd': func(v attribute.Value) { out.Depth = int(v.Int()) },
		'p': func(v attribute.Value) { out.PathIndex = int(v.Int()) },
	} {
		attr, ok := reg.Lookup(letter)
		if !ok {
			continue
		}
		if v, err := x.Value(e, attr); err == nil {
			set(v)
		}
	}
	return out
}

// Write encodes the report to w.
func (r *Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		return r.writeText(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Save writes the report to a file. The write goes through a temporary file in the
// same directory so a reader never sees a partial report.
func (r *Report) Save(path string, format Format) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := r.Write(tmp, format); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// Load reads a JSON or YAML report, chosen by file extension.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r Report
	switch FormatForPath(path, FormatJSON) {
	case FormatYAML:
		err = yaml.Unmarshal(data, &r)
	default:
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	if r.Version != Version {
		return nil, fmt.Errorf("unsupported report version %d", r.Version)
	}

	return &r, nil
}
