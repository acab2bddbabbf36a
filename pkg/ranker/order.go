package ranker

import (
	"slices"

	"duprank/pkg/comparator"
	"duprank/pkg/entity"
)

// DefaultSortSpec orders clusters by the path of their original.
const DefaultSortSpec = "f"

// Order returns ranked sorted for output. Clusters are compared by their
// originals using cmp, so the sort chain is independent of the ranking chain.
func Order(ranked []RankedCluster, cmp *comparator.Comparator) []RankedCluster {
	out := slices.Clone(ranked)
	slices.SortStableFunc(out, func(a, b RankedCluster) int {
		return cmp.Compare(a.Original(), b.Original())
	})
	return out
}

// Entry is one line of the ordered output.
type Entry struct {
	Entity    *entity.Entity
	ClusterID string
	Original  bool
}

// Flatten lists every member of every cluster in order, marking originals.
func Flatten(ranked []RankedCluster) []Entry {
	n := 0
	for _, rc := range ranked {
		n += len(rc.Members)
	}

	out := make([]Entry, 0, n)
	for _, rc := range ranked {
		for i, e := range rc.Members {
			out = append(out, Entry{
				Entity:    e,
				ClusterID: rc.ID,
				Original:  i == 0,
			})
		}
	}
	return out
}
