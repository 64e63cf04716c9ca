package executor

import (
	"path/filepath"
	"testing"

	"github.com/podcopic-labs/ivfcore/internal/ivf"
	"github.com/podcopic-labs/ivfcore/internal/query"
	"github.com/podcopic-labs/ivfcore/internal/router"
	"github.com/podcopic-labs/ivfcore/internal/store"
)

// TestTwoListMinimalScenario mirrors the two-list minimal scenario: two
// single-entry lists, one centroid each, a query nearer to list 0.
func TestTwoListMinimalScenario(t *testing.T) {
	cfg := ivf.DefaultConfig()
	cfg.VectorDim = 2
	cfg.MinTotalSizeBytes = 64
	cfg.MinEntriesPerList = 1

	s, err := store.Open(filepath.Join(t.TempDir(), "slab.bin"), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.InsertEntries(0, []float32{1.0, 0.0}, []ivf.VectorID{10}); err != nil {
		t.Fatalf("insert list 0: %v", err)
	}
	if err := s.InsertEntries(1, []float32{0.0, 1.0}, []ivf.VectorID{20}); err != nil {
		t.Fatalf("insert list 1: %v", err)
	}

	r, err := router.New([]float32{1, 0, 0, 1}, 2, 2)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	q := query.New([]float32{0.9, 0.1}, 1, 1)
	if err := r.PreassignQuery(q); err != nil {
		t.Fatalf("PreassignQuery: %v", err)
	}
	if q.Probes[0] != 0 {
		t.Fatalf("router picked list %d, want list 0", q.Probes[0])
	}

	e := New(NewStoreSource(s), ivf.ModeSequential)
	res, err := e.Search(q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("len(res) = %d, want 1", len(res))
	}
	if res[0].VectorID != 10 {
		t.Fatalf("got vector id %d, want 10", res[0].VectorID)
	}
	const want = 0.02
	if d := res[0].Distance - want; d > 1e-6 || d < -1e-6 {
		t.Fatalf("distance = %v, want %v +/- 1e-6", res[0].Distance, want)
	}
}

// TestTieBreakOnVectorID mirrors the tie-break scenario: three equidistant
// entries, the two smallest ids must win.
func TestTieBreakOnVectorID(t *testing.T) {
	cfg := ivf.DefaultConfig()
	cfg.VectorDim = 1
	cfg.MinTotalSizeBytes = 64
	cfg.MinEntriesPerList = 1

	s, err := store.Open(filepath.Join(t.TempDir(), "slab.bin"), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.InsertEntries(0, []float32{2.0, 2.0, 2.0}, []ivf.VectorID{7, 3, 5}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	q := query.New([]float32{0.0}, 2, 1)
	q.SetProbe(0, 0)

	e := New(NewStoreSource(s), ivf.ModeSequential)
	res, err := e.Search(q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("len(res) = %d, want 2", len(res))
	}
	if res[0].VectorID != 3 || res[1].VectorID != 5 {
		t.Fatalf("got %+v, want ids [3, 5]", res)
	}
	if res[0].Distance != 4.0 || res[1].Distance != 4.0 {
		t.Fatalf("got distances %v/%v, want 4.0/4.0", res[0].Distance, res[1].Distance)
	}
}

// TestRecallMonotonicityAsProbesGrow checks that widening P never drops a
// neighbor already found at a narrower P for the same query.
func TestRecallMonotonicityAsProbesGrow(t *testing.T) {
	cfg := ivf.DefaultConfig()
	cfg.VectorDim = 2
	cfg.MinTotalSizeBytes = 64
	cfg.MinEntriesPerList = 1

	s, err := store.Open(filepath.Join(t.TempDir(), "slab.bin"), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// Centroids sit at x=0,10,20,30 but list 0's own vector is deliberately
	// placed far from its centroid and closest to the query, so only wide
	// enough probing (P=4) reaches it; narrower P settles for list 3's
	// vector, which sits right next to its centroid.
	centroids := []float32{0, 0, 10, 0, 20, 0, 30, 0}
	nLists := 4
	vectors := [][2]float32{{31, 0}, {10, 0}, {20, 0}, {30, 0}}
	for i, v := range vectors {
		if err := s.InsertEntries(ivf.ListID(i), []float32{v[0], v[1]}, []ivf.VectorID{ivf.VectorID(i)}); err != nil {
			t.Fatalf("insert list %d: %v", i, err)
		}
	}

	r, err := router.New(centroids, nLists, 2)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	e := New(NewStoreSource(s), ivf.ModeSequential)

	qVec := []float32{31, 0} // true nearest is list 0 / vector id 0, distance 0
	var prevFoundTrueNN bool
	for p := 1; p <= nLists; p++ {
		q := query.New(qVec, 1, p)
		if err := r.PreassignQuery(q); err != nil {
			t.Fatalf("PreassignQuery p=%d: %v", p, err)
		}
		res, err := e.Search(q)
		if err != nil {
			t.Fatalf("Search p=%d: %v", p, err)
		}
		found := len(res) > 0 && res[0].VectorID == 0
		if prevFoundTrueNN && !found {
			t.Fatalf("recall regressed going from P=%d to P=%d", p-1, p)
		}
		prevFoundTrueNN = prevFoundTrueNN || found
	}
	if !prevFoundTrueNN {
		t.Fatalf("true nearest neighbor never found even at P=%d", nLists)
	}
}
