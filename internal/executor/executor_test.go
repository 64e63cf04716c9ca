package executor

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/podcopic-labs/ivfcore/internal/ivf"
	"github.com/podcopic-labs/ivfcore/internal/query"
	"github.com/podcopic-labs/ivfcore/internal/store"
)

func buildTestStore(t *testing.T) *store.Store {
	t.Helper()
	cfg := ivf.DefaultConfig()
	cfg.VectorDim = 2
	cfg.MinTotalSizeBytes = 64
	cfg.MinEntriesPerList = 1

	s, err := store.Open(filepath.Join(t.TempDir(), "slab.bin"), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// list 1: points (0,0), (1,0), (5,5); list 2: points (2,2), (9,9)
	if err := s.InsertEntries(1, []float32{0, 0, 1, 0, 5, 5}, []ivf.VectorID{100, 101, 102}); err != nil {
		t.Fatalf("insert list 1: %v", err)
	}
	if err := s.InsertEntries(2, []float32{2, 2, 9, 9}, []ivf.VectorID{200, 201}); err != nil {
		t.Fatalf("insert list 2: %v", err)
	}
	return s
}

func makeQuery() *query.Query {
	q := query.New([]float32{0, 0}, 2, 2)
	q.SetProbe(0, 1)
	q.SetProbe(1, 2)
	return q
}

func TestSearchReturnsKNearestAscending(t *testing.T) {
	s := buildTestStore(t)
	e := New(NewStoreSource(s), ivf.ModeSequential)

	res, err := e.Search(makeQuery())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("len(res) = %d, want 2", len(res))
	}
	if res[0].VectorID != 100 || res[1].VectorID != 101 {
		t.Fatalf("unexpected order: %+v", res)
	}
	if res[0].Distance > res[1].Distance {
		t.Fatalf("results not ascending: %+v", res)
	}
}

func TestBatchSearchModesAgree(t *testing.T) {
	s := buildTestStore(t)
	batch := query.Batch{makeQuery(), makeQuery()}

	var results []query.ResultsBatch
	for _, mode := range []ivf.ParallelMode{ivf.ModeSequential, ivf.ModePerQuery, ivf.ModePerQueryList} {
		e := New(NewStoreSource(s), mode)
		rb, err := e.BatchSearch(context.Background(), batch)
		if err != nil {
			t.Fatalf("BatchSearch mode %d: %v", mode, err)
		}
		results = append(results, rb)
	}

	for i := 1; i < len(results); i++ {
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Fatalf("mode %d disagrees with sequential: %+v vs %+v", i, results[i], results[0])
		}
	}
}

func TestSearchSkipsInvalidProbes(t *testing.T) {
	s := buildTestStore(t)
	e := New(NewStoreSource(s), ivf.ModeSequential)

	q := query.New([]float32{0, 0}, 5, 2)
	q.SetProbe(0, 1)
	q.SetProbe(1, ivf.InvalidListID)

	res, err := e.Search(q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("len(res) = %d, want 3 (all of list 1, list 2 skipped)", len(res))
	}
}
