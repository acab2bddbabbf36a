package attribute

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"duprank/pkg/entity"
)

// ErrAttributeUnavailable is matched by every UnavailableError.
var ErrAttributeUnavailable = errors.New("attribute unavailable")

// UnavailableError reports metadata upstream traversal could not resolve.
type UnavailableError struct {
	Path      string // entity whose value was requested
	Attribute string
	Cause     string // member path for directories, empty for files
}

func (e *UnavailableError) Error() string {
	if e.Cause != "" {
		return fmt.Sprintf("attribute %s unavailable for %s (member %s)", e.Attribute, e.Path, e.Cause)
	}
	return fmt.Sprintf("attribute %s unavailable for %s", e.Attribute, e.Path)
}

// Is makes errors.Is(err, ErrAttributeUnavailable) match.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrAttributeUnavailable
}

type cacheKey struct {
	entity *entity.Entity
	letter rune
}

type cacheEntry struct {
	value Value
	err   error
}

// Extractor computes attribute values and caches them for the lifetime of a run.
// Create one Extractor per run; it is safe for concurrent use.
type Extractor struct {
	cache sync.Map // cacheKey -> cacheEntry
}

// NewExtractor returns an Extractor with an empty cache.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Value returns the value of attr for e.
func (x *Extractor) Value(e *entity.Entity, attr Attribute) (Value, error) {
	key := cacheKey{entity: e, letter: attr.Letter}
	if hit, ok := x.cache.Load(key); ok {
		entry := hit.(cacheEntry)
		return entry.value, entry.err
	}

	v, err := x.compute(e, attr)

	// Concurrent first writers compute the same value; keep whichever landed.
	actual, _ := x.cache.LoadOrStore(key, cacheEntry{value: v, err: err})
	entry := actual.(cacheEntry)
	return entry.value, entry.err
}

func (x *Extractor) compute(e *entity.Entity, attr Attribute) (Value, error) {
	if !e.IsDir() || attr.Aggregation == AggregateOwn {
		if !e.Available(attr.Requires) {
			return Value{}, &UnavailableError{Path: e.Path, Attribute: attr.Name}
		}
		return attr.Value(e), nil
	}

	if len(e.Members) == 0 {
		return Value{}, &UnavailableError{Path: e.Path, Attribute: attr.Name, Cause: "no members"}
	}

	values := make([]Value, 0, len(e.Members))
	for _, m := range e.Members {
		v, err := x.Value(m, attr)
		if err != nil {
			return Value{}, &UnavailableError{Path: e.Path, Attribute: attr.Name, Cause: m.Path}
		}
		values = append(values, v)
	}

	switch attr.Aggregation {
	case AggregateSum:
		var total int64
		for _, v := range values {
			total += v.num
		}
		return Numeric(total), nil

	case AggregateMin, AggregateMax:
		want := -1
		if attr.Aggregation == AggregateMax {
			want = 1
		}
		best := values[0]
		for _, v := range values[1:] {
			if v.Compare(best) == want {
				best = v
			}
		}
		return best, nil

	case AggregateRelative:
		first := e.Members[0]
		return Numeric(values[0].num - int64(relativeDepth(e.Path, first.Path))), nil

	default:
		return Value{}, fmt.Errorf("attribute %s: unsupported aggregation %s", attr.Name, attr.Aggregation)
	}
}

// relativeDepth counts the path components of path below dir.
func relativeDepth(dir, path string) int {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
