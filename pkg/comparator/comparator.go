// Package comparator orders entities by a criteria chain.
//
// An entity below a preferred path always wins over one that is not. Otherwise
// Compare walks the chain left to right and returns on the first criterion that
// distinguishes the two entities. When the chain is exhausted the full path decides,
// so the order is total and every sort over it is reproducible.
package comparator

import (
	"log/slog"
	"strings"

	"duprank/pkg/attribute"
	"duprank/pkg/criteria"
	"duprank/pkg/entity"
)

// Comparator orders entities by a criteria chain.
// It is safe for concurrent use.
type Comparator struct {
	chain     criteria.Chain
	extractor *attribute.Extractor
	diags     *Diagnostics
	logger    *slog.Logger
}

// Option configures a Comparator.
type Option func(*Comparator)

// WithExtractor shares an attribute cache between comparators of the same run.
func WithExtractor(x *attribute.Extractor) Option {
	return func(c *Comparator) {
		if x != nil {
			c.extractor = x
		}
	}
}

// WithDiagnostics collects unavailable attributes into d.
func WithDiagnostics(d *Diagnostics) Option {
	return func(c *Comparator) {
		if d != nil {
			c.diags = d
		}
	}
}

// WithLogger sets the logger used for skipped criteria.
func WithLogger(l *slog.Logger) Option {
	return func(c *Comparator) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Comparator for chain.
func New(chain criteria.Chain, opts ...Option) *Comparator {
	c := &Comparator{
		chain:     chain,
		extractor: attribute.NewExtractor(),
		diags:     NewDiagnostics(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chain returns the criteria chain.
func (c *Comparator) Chain() criteria.Chain {
	return c.chain
}

// Diagnostics returns the collected diagnostics.
func (c *Comparator) Diagnostics() *Diagnostics {
	return c.diags
}

// Compare returns a negative number when a is preferred over b, positive when b
// is preferred, and zero only when a and b are the same entity.
func (c *Comparator) Compare(a, b *entity.Entity) int {
	if a == b {
		return 0
	}
	if a.Preferred != b.Preferred {
		if a.Preferred {
			return -1
		}
		return 1
	}

	for _, crit := range c.chain {
		va, errA := c.extractor.Value(a, crit.Attribute)
		vb, errB := c.extractor.Value(b, crit.Attribute)
		if errA != nil || errB != nil {
			c.skip(a, crit, errA)
			c.skip(b, crit, errB)
			continue
		}

		if r := crit.Apply(va.Compare(vb)); r != 0 {
			return r
		}
	}

	return fallback(a, b)
}

// Less reports whether a is preferred over b.
func (c *Comparator) Less(a, b *entity.Entity) bool {
	return c.Compare(a, b) < 0
}

func (c *Comparator) skip(e *entity.Entity, crit criteria.Criterion, err error) {
	if err == nil {
		return
	}
	if c.diags.record(e, crit, err) {
		c.logger.Debug("criterion skipped", "path", e.Path, "criterion", string(crit.Letter()), "error", err)
	}
}

// fallback orders by full path, then files before directories.
func fallback(a, b *entity.Entity) int {
	if r := strings.Compare(a.Path, b.Path); r != 0 {
		return r
	}
	switch {
	case a.Kind < b.Kind:
		return -1
	case a.Kind > b.Kind:
		return 1
	default:
		return 0
	}
}
