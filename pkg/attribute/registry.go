// Package attribute extracts comparable values from entities for ranking.
//
// Every criterion letter maps to an Attribute in a Registry. An Attribute knows how
// to read its value from a file and how to aggregate it over the members of a
// synthetic directory, so the comparator never needs to know which kind of entity
// it is looking at.
package attribute

import (
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"

	"duprank/pkg/entity"
)

// RegistryVersion identifies the letter table returned by DefaultRegistry.
// Adding or changing a letter bumps the version.
const RegistryVersion = 1

// Aggregation describes how a directory derives its value from its members.
type Aggregation uint8

const (
	// AggregateOwn uses the directory's own path, ignoring members.
	AggregateOwn Aggregation = iota
	AggregateSum
	AggregateMin
	AggregateMax
	// AggregateRelative derives the directory value from a member value minus
	// the member's position below the directory.
	AggregateRelative
)

func (a Aggregation) String() string {
	switch a {
	case AggregateOwn:
		return "own"
	case AggregateSum:
		return "sum"
	case AggregateMin:
		return "min"
	case AggregateMax:
		return "max"
	case AggregateRelative:
		return "relative"
	default:
		return "unknown"
	}
}

// Attribute is one registry entry.
type Attribute struct {
	Letter      rune // lowercase letter selecting the attribute
	Name        string
	Type        Type
	Aggregation Aggregation

	// Requires lists the entity metadata the value depends on.
	Requires entity.Attrs

	// Value extracts the value from a single file, or from the directory itself
	// for AggregateOwn attributes.
	Value func(e *entity.Entity) Value
}

// Registry maps criterion letters to attributes.
type Registry struct {
	byLetter map[rune]Attribute
	ordered  []Attribute
}

// NewRegistry validates attrs and builds a registry.
func NewRegistry(attrs ...Attribute) (*Registry, error) {
	r := &Registry{
		byLetter: make(map[rune]Attribute, len(attrs)),
		ordered:  make([]Attribute, 0, len(attrs)),
	}

	for _, a := range attrs {
		if !unicode.IsLower(a.Letter) || unicode.ToUpper(a.Letter) == a.Letter {
			return nil, fmt.Errorf("attribute %q: letter %q must be a lowercase letter with an uppercase form", a.Name, a.Letter)
		}
		if a.Value == nil {
			return nil, fmt.Errorf("attribute %q: missing value function", a.Name)
		}
		if _, dup := r.byLetter[a.Letter]; dup {
			return nil, fmt.Errorf("attribute %q: letter %q already registered", a.Name, a.Letter)
		}
		if err := checkAggregation(a); err != nil {
			return nil, err
		}

		r.byLetter[a.Letter] = a
		r.ordered = append(r.ordered, a)
	}

	sort.Slice(r.ordered, func(i, j int) bool {
		return r.ordered[i].Letter < r.ordered[j].Letter
	})

	return r, nil
}

func checkAggregation(a Attribute) error {
	switch a.Aggregation {
	case AggregateOwn:
		return nil
	case AggregateSum, AggregateRelative:
		if a.Type != TypeNumeric {
			return fmt.Errorf("attribute %q: %s aggregation needs a numeric type", a.Name, a.Aggregation)
		}
		return nil
	case AggregateMin, AggregateMax:
		if a.Type != TypeNumeric && a.Type != TypeTime {
			return fmt.Errorf("attribute %q: %s aggregation needs a numeric or time type", a.Name, a.Aggregation)
		}
		return nil
	default:
		return fmt.Errorf("attribute %q: unknown aggregation %d", a.Name, a.Aggregation)
	}
}

// Lookup returns the attribute for a lowercase letter.
func (r *Registry) Lookup(letter rune) (Attribute, bool) {
	a, ok := r.byLetter[letter]
	return a, ok
}

// Attributes returns all registered attributes ordered by letter.
func (r *Registry) Attributes() []Attribute {
	return append([]Attribute(nil), r.ordered...)
}

var defaultRegistry = mustRegistry(
	Attribute{
		Letter: 'a', Name: "basename", Type: TypeString, Aggregation: AggregateOwn,
		Value: func(e *entity.Entity) Value { return String(e.Name()) },
	},
	Attribute{
		Letter: 'f', Name: "path", Type: TypeString, Aggregation: AggregateOwn,
		Value: func(e *entity.Entity) Value { return String(e.Path) },
	},
	Attribute{
		Letter: 'd', Name: "depth", Type: TypeNumeric, Aggregation: AggregateRelative,
		Requires: entity.AttrDepth,
		Value:    func(e *entity.Entity) Value { return Numeric(int64(e.Depth)) },
	},
	Attribute{
		Letter: 's', Name: "size", Type: TypeNumeric, Aggregation: AggregateSum,
		Requires: entity.AttrSize,
		Value:    func(e *entity.Entity) Value { return Numeric(e.Size) },
	},
	Attribute{
		Letter: 'm', Name: "mtime", Type: TypeTime, Aggregation: AggregateMax,
		Requires: entity.AttrModTime,
		Value:    func(e *entity.Entity) Value { return Time(e.ModTime) },
	},
	Attribute{
		Letter: 'h', Name: "hardlinks", Type: TypeNumeric, Aggregation: AggregateMax,
		Requires: entity.AttrHardlinks,
		Value:    func(e *entity.Entity) Value { return Numeric(int64(e.Nlink)) },
	},
	Attribute{
		Letter: 'l', Name: "namelength", Type: TypeNumeric, Aggregation: AggregateOwn,
		Value: func(e *entity.Entity) Value { return Numeric(int64(utf8.RuneCountInString(e.Name()))) },
	},
	Attribute{
		Letter: 'o', Name: "natural", Type: TypeNatural, Aggregation: AggregateOwn,
		Value: func(e *entity.Entity) Value { return Natural(e.Name()) },
	},
	Attribute{
		Letter: 'p', Name: "pathindex", Type: TypeNumeric, Aggregation: AggregateMin,
		Requires: entity.AttrPathIndex,
		Value:    func(e *entity.Entity) Value { return Numeric(int64(e.PathIndex)) },
	},
)

// DefaultRegistry returns the built-in letter table.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

func mustRegistry(attrs ...Attribute) *Registry {
	r, err := NewRegistry(attrs...)
	if err != nil {
		panic(err)
	}
	return r
}
