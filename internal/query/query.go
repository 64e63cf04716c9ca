// Package query defines the Query/QueryBatch/QueryResult types shared by
// the router and the executor (spec §3, §4.3, §4.4).
package query

import "github.com/podcopic-labs/ivfcore/internal/ivf"

// Query is a single nearest-neighbor request: a borrowed query vector, the
// desired result count K, and a probe count P. Probes is filled by the
// router during preassignment and consumed list-order by the executor.
//
// Lifetime: a Query is constructed before routing and is not reused after
// the executor has emitted its results.
type Query struct {
	Vector []float32 // borrowed; callers must not mutate it during use
	K      int
	P      int
	Probes []ivf.ListID // len == P once preassigned; filled nearest-first
}

// New creates a Query with an unset probe array of length p, ready for the
// router to fill via SetProbe.
func New(vector []float32, k, p int) *Query {
	probes := make([]ivf.ListID, p)
	for i := range probes {
		probes[i] = ivf.InvalidListID
	}
	return &Query{Vector: vector, K: k, P: p, Probes: probes}
}

// SetProbe assigns the list id for probe slot i, mirroring
// Query::set_list_to_probe.
func (q *Query) SetProbe(i int, listID ivf.ListID) {
	q.Probes[i] = listID
}

// Batch is a slice of independent queries processed together, trivially
// data-parallel over the batch (spec §4.3 batch_preassign_queries, §4.4
// batch_search).
type Batch []*Query

// Result pairs a vector id with its distance to some query vector.
type Result struct {
	Distance float32
	VectorID ivf.VectorID
}

// Less implements the shared (distance, vector_id) total order: a smaller
// distance is closer, ties are broken by the smaller vector id being
// closer (spec §4.4). The same order (distance, list_id) is used by the
// router over centroid candidates.
func Less(a, b Result) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.VectorID < b.VectorID
}

// ResultsBatch is the executor's output for a batch of queries, indexed by
// the input query index regardless of parallel mode (spec §5).
type ResultsBatch [][]Result
