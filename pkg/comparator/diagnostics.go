package comparator

import (
	"sort"
	"sync"

	"duprank/pkg/criteria"
	"duprank/pkg/entity"
)

// Diagnostic records an entity whose attribute could not be used for ranking.
type Diagnostic struct {
	Path      string
	Kind      entity.Kind
	Attribute string
	Err       error
}

type diagKey struct {
	path      string
	kind      entity.Kind
	attribute string
}

// Diagnostics collects one Diagnostic per entity and attribute.
// It is safe for concurrent use.
type Diagnostics struct {
	entries sync.Map // diagKey -> Diagnostic
}

// NewDiagnostics returns an empty collection.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// record stores the diagnostic and reports whether it was new.
func (d *Diagnostics) record(e *entity.Entity, crit criteria.Criterion, err error) bool {
	key := diagKey{path: e.Path, kind: e.Kind, attribute: crit.Attribute.Name}
	_, loaded := d.entries.LoadOrStore(key, Diagnostic{
		Path:      e.Path,
		Kind:      e.Kind,
		Attribute: crit.Attribute.Name,
		Err:       err,
	})
	return !loaded
}

// List returns the diagnostics sorted by path and attribute.
func (d *Diagnostics) List() []Diagnostic {
	var out []Diagnostic
	d.entries.Range(func(_, v any) bool {
		out = append(out, v.(Diagnostic))
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Attribute < out[j].Attribute
	})

	return out
}

// Len returns the number of diagnostics.
func (d *Diagnostics) Len() int {
	n := 0
	d.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
