package router

import (
	"testing"

	"github.com/podcopic-labs/ivfcore/internal/ivf"
	"github.com/podcopic-labs/ivfcore/internal/query"
)

func TestPreassignQueryOrdersByDistance(t *testing.T) {
	// 4 centroids on a line at x = 0, 1, 2, 3 (dim 1).
	centroids := []float32{0, 1, 2, 3}
	r, err := New(centroids, 4, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	q := query.New([]float32{2.1}, 1, 3)
	if err := r.PreassignQuery(q); err != nil {
		t.Fatalf("PreassignQuery: %v", err)
	}
	want := []ivf.ListID{2, 3, 1}
	for i, w := range want {
		if q.Probes[i] != w {
			t.Fatalf("probe %d = %d, want %d (probes=%v)", i, q.Probes[i], w, q.Probes)
		}
	}
}

func TestPreassignQueryRejectsBadDimension(t *testing.T) {
	r, err := New([]float32{0, 0, 1, 1}, 2, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	q := query.New([]float32{0, 0, 0}, 1, 1)
	if err := r.PreassignQuery(q); err == nil {
		t.Fatalf("expected error for mismatched query dimension")
	}
}

func TestPreassignQueryRejectsTooManyProbes(t *testing.T) {
	r, err := New([]float32{0, 1}, 2, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	q := query.New([]float32{0}, 1, 5)
	if err := r.PreassignQuery(q); err == nil {
		t.Fatalf("expected error when n_probes exceeds list count")
	}
}

func TestBatchPreassignQueriesIndependentPerQuery(t *testing.T) {
	centroids := []float32{0, 10}
	r, err := New(centroids, 2, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	batch := query.Batch{
		query.New([]float32{0.5}, 1, 1),
		query.New([]float32{9.5}, 1, 1),
	}
	if err := r.BatchPreassignQueries(batch); err != nil {
		t.Fatalf("BatchPreassignQueries: %v", err)
	}
	if batch[0].Probes[0] != 0 {
		t.Fatalf("query 0 probe = %d, want 0", batch[0].Probes[0])
	}
	if batch[1].Probes[0] != 1 {
		t.Fatalf("query 1 probe = %d, want 1", batch[1].Probes[0])
	}
}
