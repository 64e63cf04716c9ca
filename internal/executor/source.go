// Package executor runs nearest-neighbor search over a query's
// preassigned lists (spec §4.4), following
// original_source/include/storage-node/StorageIndex.hpp: the same
// add_candidate/get_work_items/extract_results shape, generalized to
// Go's goroutines instead of raw pthreads/OpenMP.
package executor

import (
	"fmt"

	"github.com/podcopic-labs/ivfcore/internal/bufferpool"
	"github.com/podcopic-labs/ivfcore/internal/ivf"
	"github.com/podcopic-labs/ivfcore/internal/ivferrors"
	"github.com/podcopic-labs/ivfcore/internal/store"
)

// Source reads back a list's live entries for scanning. Two
// implementations exist: one aliasing the store's mmap region directly
// (search_preassigned), one going through the buffer pool's cached
// frames (search_preassigned_bpm).
type Source interface {
	// Fetch returns listID's vectors (flattened, n*dim) and ids (length
	// n), plus a release func that must be called once the caller is
	// done reading them.
	Fetch(listID ivf.ListID) (vectors []float32, ids []ivf.VectorID, release func(), err error)
	Dim() int
}

// StoreSource reads lists straight out of the slab's mmap region.
type StoreSource struct {
	st *store.Store
}

// NewStoreSource wraps st for direct mmap-backed reads.
func NewStoreSource(st *store.Store) *StoreSource { return &StoreSource{st: st} }

func (s *StoreSource) Dim() int { return s.st.VectorDim() }

func (s *StoreSource) Fetch(listID ivf.ListID) ([]float32, []ivf.VectorID, func(), error) {
	n, err := s.st.ListLength(listID)
	if err != nil {
		return nil, nil, nil, err
	}
	vecs, err := s.st.GetVectors(listID, n)
	if err != nil {
		return nil, nil, nil, err
	}
	ids, err := s.st.GetIDs(listID, n)
	if err != nil {
		return nil, nil, nil, err
	}
	return vecs, ids, func() {}, nil
}

// PoolSource reads lists through a buffer pool's cached frames.
type PoolSource struct {
	pool *bufferpool.Pool
	dim  int
}

// NewPoolSource wraps pool for buffer-pool-backed reads.
func NewPoolSource(pool *bufferpool.Pool) *PoolSource {
	return &PoolSource{pool: pool, dim: pool.VectorDim()}
}

func (p *PoolSource) Dim() int { return p.dim }

func (p *PoolSource) Fetch(listID ivf.ListID) ([]float32, []ivf.VectorID, func(), error) {
	length, ok := p.pool.ListLength(listID)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: list %d", ivferrors.ErrNotFound, listID)
	}
	first, k, err := p.pool.FetchListPages(listID)
	if err != nil {
		return nil, nil, nil, err
	}
	release := func() { p.pool.UnPinListPages(first, k) }
	if length == 0 {
		return nil, nil, release, nil
	}

	vectors := make([]float32, length*int64(p.dim))
	ids := make([]ivf.VectorID, length)
	cap64 := int64(p.pool.FrameCapacity())
	remaining := length
	var vOff, iOff int64
	for i := 0; i < k; i++ {
		frame := p.pool.Frame(first + i)
		count := cap64
		if remaining < count {
			count = remaining
		}
		copy(vectors[vOff:vOff+count*int64(p.dim)], frame.Vectors[:count*int64(p.dim)])
		copy(ids[iOff:iOff+count], frame.IDs[:count])
		vOff += count * int64(p.dim)
		iOff += count
		remaining -= count
	}
	return vectors, ids, release, nil
}
