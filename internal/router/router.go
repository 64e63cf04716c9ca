// Package router implements centroid preassignment: given a query
// vector, find the P closest inverted lists by distance between the
// query and each list's centroid (spec §4.3). It follows
// original_source/include/root-node/RootIndex.hpp and RootIndex.cpp.
package router

import (
	"fmt"

	"github.com/podcopic-labs/ivfcore/internal/boundedheap"
	"github.com/podcopic-labs/ivfcore/internal/ivf"
	"github.com/podcopic-labs/ivfcore/internal/ivferrors"
	"github.com/podcopic-labs/ivfcore/internal/kernel"
	"github.com/podcopic-labs/ivfcore/internal/query"
)

// candidate is a (distance, list id) pair from the centroid scan, using
// the same total order as query.Result: closer distance wins, ties
// broken by the smaller id (here, list id instead of vector id), per
// CentroidsResult::operator< in the original.
type candidate struct {
	distance float32
	listID   ivf.ListID
}

func candidateLess(a, b candidate) bool {
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	return a.listID < b.listID
}

// Router holds a private copy of every list's centroid and routes
// queries to their nearest lists. The constructor owns a private copy
// (RootIndex's constructor does a malloc+memcpy for the same reason):
// callers are free to mutate or discard the slice they passed in
// afterward.
type Router struct {
	centroids []float32 // nLists*dim, row-major
	nLists    int
	dim       int
	kern      *kernel.Kernel
}

// New builds a Router over nLists centroids of the given dimension. len(centroids)
// must equal nLists*dim.
func New(centroids []float32, nLists, dim int) (*Router, error) {
	if len(centroids) != nLists*dim {
		return nil, fmt.Errorf("%w: centroids length %d does not match nLists*dim = %d", ivferrors.ErrFormat, len(centroids), nLists*dim)
	}
	owned := make([]float32, len(centroids))
	copy(owned, centroids)
	return &Router{centroids: owned, nLists: nLists, dim: dim, kern: kernel.New(dim)}, nil
}

// NLists returns the number of centroids this router was built over.
func (r *Router) NLists() int { return r.nLists }

func (r *Router) centroid(listID ivf.ListID) []float32 {
	off := int(listID) * r.dim
	return r.centroids[off : off+r.dim]
}

// PreassignQuery fills q.Probes with the q.P nearest list ids to
// q.Vector, closest first, mirroring RootIndex::preassign_query +
// allocate_list_ids.
func (r *Router) PreassignQuery(q *query.Query) error {
	if len(q.Vector) != r.dim {
		return fmt.Errorf("%w: query vector dim %d does not match router dim %d", ivferrors.ErrOutOfRange, len(q.Vector), r.dim)
	}
	if q.P > r.nLists {
		return fmt.Errorf("%w: n_probes %d exceeds list count %d", ivferrors.ErrOutOfRange, q.P, r.nLists)
	}

	heap := boundedheap.New(q.P, candidateLess)
	for listID := 0; listID < r.nLists; listID++ {
		d := r.kern.Dist(q.Vector, r.centroid(ivf.ListID(listID)))
		heap.Offer(candidate{distance: d, listID: ivf.ListID(listID)})
	}

	drained := heap.Drain()
	for i, c := range drained {
		q.SetProbe(i, c.listID)
	}
	// A router with fewer lists than P candidates never happens (checked
	// above), but a heap that received fewer offers than capacity (only
	// possible if nLists < P, already rejected) is the only way Drain
	// returns short; nothing further to pad here.
	return nil
}

// BatchPreassignQueries preassigns every query in batch independently
// (spec §4.3 batch_preassign_queries); the work is embarrassingly
// parallel across queries but is run sequentially here since the
// executor, not the router, owns this module's parallel scheduling
// (spec §5).
func (r *Router) BatchPreassignQueries(batch query.Batch) error {
	for i, q := range batch {
		if err := r.PreassignQuery(q); err != nil {
			return fmt.Errorf("preassign query %d: %w", i, err)
		}
	}
	return nil
}
