// Package ranker sorts duplicate clusters and designates each cluster's original.
//
// The ranker never looks at entity kinds: files and synthetic directories are ordered
// by the same comparator, and everything kind-specific lives in the attribute
// extractor's aggregation rules.
package ranker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"duprank/pkg/comparator"
	"duprank/pkg/entity"
	"duprank/pkg/progress"
)

// ErrEmptyCluster is matched by every EmptyClusterError.
var ErrEmptyCluster = errors.New("cluster has fewer than two members")

// EmptyClusterError reports a cluster that cannot be ranked.
type EmptyClusterError struct {
	ClusterID string
	Size      int
}

func (e *EmptyClusterError) Error() string {
	return fmt.Sprintf("cluster %q has %d member(s), need at least 2", e.ClusterID, e.Size)
}

// Is makes errors.Is(err, ErrEmptyCluster) match.
func (e *EmptyClusterError) Is(target error) bool {
	return target == ErrEmptyCluster
}

// RankedCluster holds a cluster's members in decided order.
// Members[0] is the original; the rest are duplicates.
type RankedCluster struct {
	ID      string
	Members []*entity.Entity
}

// Original returns the entity to keep.
func (rc RankedCluster) Original() *entity.Entity {
	return rc.Members[0]
}

// Duplicates returns the entities ranked after the original.
func (rc RankedCluster) Duplicates() []*entity.Entity {
	return rc.Members[1:]
}

// Kind returns the kind of the cluster members.
func (rc RankedCluster) Kind() entity.Kind {
	return rc.Original().Kind
}

// Ranker sorts clusters with a comparator.
type Ranker struct {
	cmp        *comparator.Comparator
	workers    int
	logger     *slog.Logger
	onProgress func(processed, total int)
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithWorkers bounds the number of clusters ranked in parallel by RankAll.
// Default is runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithProgress reports the number of clusters ranked by RankAll.
func WithProgress(cb func(processed, total int)) Option {
	return func(r *Ranker) {
		r.onProgress = cb
	}
}

// New creates a Ranker around cmp.
func New(cmp *comparator.Comparator, opts ...Option) *Ranker {
	r := &Ranker{
		cmp:     cmp,
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Comparator returns the comparator used for ranking.
func (r *Ranker) Comparator() *comparator.Comparator {
	return r.cmp
}

// Rank orders the members of c. The input slice is not modified.
func (r *Ranker) Rank(c entity.Cluster) (RankedCluster, error) {
	if len(c.Members) < 2 {
		return RankedCluster{}, &EmptyClusterError{ClusterID: c.ID, Size: len(c.Members)}
	}

	members := slices.Clone(c.Members)
	slices.SortStableFunc(members, r.cmp.Compare)

	return RankedCluster{ID: c.ID, Members: members}, nil
}

// RankAll ranks independent clusters concurrently. The result keeps the input
// order. Cancellation is observed between clusters; a cluster being ranked is
// always finished.
func (r *Ranker) RankAll(ctx context.Context, clusters []entity.Cluster) ([]RankedCluster, error) {
	ranked := make([]RankedCluster, len(clusters))
	if len(clusters) == 0 {
		return ranked, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	done := make(chan struct{}, len(clusters))
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		processed := 0
		for range done {
			processed++
			progress.Emit(r.onProgress, processed, len(clusters))
		}
	}()

	for i := range clusters {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rc, err := r.Rank(clusters[i])
			if err != nil {
				return fmt.Errorf("rank cluster %d: %w", i, err)
			}
			ranked[i] = rc
			done <- struct{}{}
			return nil
		})
	}

	err := g.Wait()
	close(done)
	<-progressDone

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.logger.Debug("clusters ranked", "count", len(ranked), "criteria", r.cmp.Chain().String())
	return ranked, nil
}
