package executor

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/podcopic-labs/ivfcore/internal/boundedheap"
	"github.com/podcopic-labs/ivfcore/internal/ivf"
	"github.com/podcopic-labs/ivfcore/internal/ivferrors"
	"github.com/podcopic-labs/ivfcore/internal/kernel"
	"github.com/podcopic-labs/ivfcore/internal/query"
)

// Executor scans a query's preassigned lists and returns its K nearest
// vectors, scheduled according to cfg.ParallelMode (spec §4.4, §5).
type Executor struct {
	src  Source
	kern *kernel.Kernel
	mode ivf.ParallelMode
}

// New builds an Executor reading lists from src, computing distances at
// src.Dim(), scheduled under mode.
func New(src Source, mode ivf.ParallelMode) *Executor {
	return &Executor{src: src, kern: kernel.New(src.Dim()), mode: mode}
}

// Search returns q's K nearest vectors across its preassigned probes,
// ascending by distance (spec §4.4 add_candidate / extract_results).
func (e *Executor) Search(q *query.Query) ([]query.Result, error) {
	heap := boundedheap.New(q.K, query.Less)
	for _, listID := range q.Probes {
		if listID == ivf.InvalidListID {
			continue
		}
		if err := e.scanListInto(listID, q.Vector, heap, nil); err != nil {
			return nil, err
		}
	}
	return heap.Drain(), nil
}

// scanListInto fetches listID, offers every entry to heap (guarded by mu
// when non-nil, for concurrent callers sharing one heap), and releases
// the fetch before returning.
func (e *Executor) scanListInto(listID ivf.ListID, qVec []float32, heap *boundedheap.Bounded[query.Result], mu *sync.Mutex) error {
	vecs, ids, release, err := e.src.Fetch(listID)
	if err != nil {
		return fmt.Errorf("fetch list %d: %w", listID, err)
	}
	defer release()

	dim := e.src.Dim()
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	for i, id := range ids {
		v := vecs[i*dim : (i+1)*dim]
		d := e.kern.Dist(qVec, v)
		heap.Offer(query.Result{Distance: d, VectorID: id})
	}
	return nil
}

// BatchSearch runs Search over every query in batch, scheduled according
// to e.mode (spec §5: sequential, per-query goroutines, or per-(query,
// list) work items).
func (e *Executor) BatchSearch(ctx context.Context, batch query.Batch) (query.ResultsBatch, error) {
	switch e.mode {
	case ivf.ModeSequential:
		return e.batchSequential(batch)
	case ivf.ModePerQuery:
		return e.batchPerQuery(ctx, batch)
	case ivf.ModePerQueryList:
		return e.batchPerQueryList(ctx, batch)
	default:
		return nil, fmt.Errorf("%w: unknown parallel mode %d", ivferrors.ErrOutOfRange, e.mode)
	}
}

func (e *Executor) batchSequential(batch query.Batch) (query.ResultsBatch, error) {
	out := make(query.ResultsBatch, len(batch))
	for i, q := range batch {
		res, err := e.Search(q)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		out[i] = res
	}
	return out, nil
}

// batchPerQuery runs one goroutine per query, each with its own heap, no
// cross-query sharing (spec §5 mode 1).
func (e *Executor) batchPerQuery(ctx context.Context, batch query.Batch) (query.ResultsBatch, error) {
	out := make(query.ResultsBatch, len(batch))
	g, _ := errgroup.WithContext(ctx)
	for i, q := range batch {
		i, q := i, q
		g.Go(func() error {
			res, err := e.Search(q)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// workItem is one (query, list) pair to scan, the unit of distribution
// for mode 2 (QueryListPair in the original).
type workItem struct {
	queryIdx int
	listID   ivf.ListID
}

// batchPerQueryList fans out one goroutine per (query, list) work item.
// Each worker scans its list into a local heap, then merges that heap
// into the query's heap while holding the query's mutex only for the
// merge. Each query gets its own heap and mutex so unrelated queries
// never contend with each other even though their list scans interleave
// across goroutines (spec §5 mode 2).
func (e *Executor) batchPerQueryList(ctx context.Context, batch query.Batch) (query.ResultsBatch, error) {
	heaps := make([]*boundedheap.Bounded[query.Result], len(batch))
	mus := make([]sync.Mutex, len(batch))
	for i, q := range batch {
		heaps[i] = boundedheap.New(q.K, query.Less)
	}

	var items []workItem
	for qi, q := range batch {
		for _, listID := range q.Probes {
			if listID == ivf.InvalidListID {
				continue
			}
			items = append(items, workItem{queryIdx: qi, listID: listID})
		}
	}

	g, _ := errgroup.WithContext(ctx)
	for _, it := range items {
		it := it
		g.Go(func() error {
			local := boundedheap.New(batch[it.queryIdx].K, query.Less)
			if err := e.scanListInto(it.listID, batch[it.queryIdx].Vector, local, nil); err != nil {
				return err
			}
			mu := &mus[it.queryIdx]
			mu.Lock()
			defer mu.Unlock()
			for _, r := range local.Drain() {
				heaps[it.queryIdx].Offer(r)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(query.ResultsBatch, len(batch))
	for i := range batch {
		out[i] = heaps[i].Drain()
	}
	return out, nil
}
