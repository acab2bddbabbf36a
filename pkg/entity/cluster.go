package entity

// Cluster is a set of content-identical entities of uniform kind.
// A valid cluster has at least two members.
type Cluster struct {
	// ID identifies the cluster within a run, typically the content hash.
	ID      string
	Members []*Entity
}

// Len returns the number of members.
func (c Cluster) Len() int {
	return len(c.Members)
}

// Kind returns the kind of the cluster members.
// An empty cluster reports KindFile.
func (c Cluster) Kind() Kind {
	if len(c.Members) == 0 {
		return KindFile
	}
	return c.Members[0].Kind
}
