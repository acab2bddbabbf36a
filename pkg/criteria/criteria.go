// Package criteria parses ranking specifications such as "Sa" or "mf".
//
// Each letter selects an attribute from an attribute.Registry. A lowercase letter
// prefers the smallest (earliest, lexically first) value, an uppercase letter the
// largest. Letters are applied left to right; later letters only break ties left
// by earlier ones.
package criteria

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"duprank/pkg/attribute"
)

// DefaultSpec is the built-in rank chain handed to ParseOr by the CLI and the
// find service: oldest first, then full path.
const DefaultSpec = "mf"

// ErrUnknownCriterion is matched by every UnknownCriterionError.
var ErrUnknownCriterion = errors.New("unknown criterion")

// UnknownCriterionError reports a letter absent from the registry.
type UnknownCriterionError struct {
	Spec     string
	Letter   rune
	Position int // rune offset in Spec
}

func (e *UnknownCriterionError) Error() string {
	return fmt.Sprintf("unknown criterion %q at position %d in %q", e.Letter, e.Position, e.Spec)
}

// Is makes errors.Is(err, ErrUnknownCriterion) match.
func (e *UnknownCriterionError) Is(target error) bool {
	return target == ErrUnknownCriterion
}

// Direction selects which end of an attribute's order is preferred.
type Direction uint8

const (
	PreferMin Direction = iota
	PreferMax
)

func (d Direction) String() string {
	if d == PreferMax {
		return "max"
	}
	return "min"
}

// Criterion is one parsed letter.
type Criterion struct {
	Attribute attribute.Attribute
	Direction Direction
}

// Letter returns the letter as written, with case encoding the direction.
func (c Criterion) Letter() rune {
	if c.Direction == PreferMax {
		return unicode.ToUpper(c.Attribute.Letter)
	}
	return c.Attribute.Letter
}

// Apply orients a raw comparison result so that negative means "preferred".
func (c Criterion) Apply(cmp int) int {
	if c.Direction == PreferMax {
		return -cmp
	}
	return cmp
}

// Chain is an ordered list of criteria.
type Chain []Criterion

func (ch Chain) String() string {
	var b strings.Builder
	for _, c := range ch {
		b.WriteRune(c.Letter())
	}
	return b.String()
}

// Parse compiles spec against reg. Any letter missing from reg fails the whole
// parse. An empty (or all-whitespace) spec yields an empty chain, which leaves
// ordering to the comparator's path and kind tie-break; callers that want a
// default chain use ParseOr.
func Parse(spec string, reg *attribute.Registry) (Chain, error) {
	return parse(spec, reg)
}

// ParseOr is like Parse but compiles def instead when spec is empty. An invalid
// def is reported as an error the first time it is needed.
func ParseOr(spec, def string, reg *attribute.Registry) (Chain, error) {
	if strings.TrimSpace(spec) != "" {
		return parse(spec, reg)
	}
	ch, err := parse(def, reg)
	if err != nil {
		return nil, fmt.Errorf("default criteria %q: %w", def, err)
	}
	return ch, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(spec string, reg *attribute.Registry) Chain {
	ch, err := Parse(spec, reg)
	if err != nil {
		panic(err)
	}
	return ch
}

func parse(spec string, reg *attribute.Registry) (Chain, error) {
	chain := make(Chain, 0, len(spec))

	pos := 0
	for _, r := range spec {
		pos++
		if unicode.IsSpace(r) {
			continue
		}

		dir := PreferMin
		letter := r
		if unicode.IsUpper(r) {
			dir = PreferMax
			letter = unicode.ToLower(r)
		}

		attr, ok := reg.Lookup(letter)
		if !ok {
			return nil, &UnknownCriterionError{Spec: spec, Letter: r, Position: pos - 1}
		}

		chain = append(chain, Criterion{Attribute: attr, Direction: dir})
	}

	return chain, nil
}
