package kernel

import (
	"math"
	"math/rand"
	"testing"
)

func randVec(n int, r *rand.Rand) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = r.Float32()*2 - 1
	}
	return v
}

func TestScalarBasic(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := l2sqrScalar(a, b); math.Abs(float64(got)-2.0) > 1e-6 {
		t.Fatalf("l2sqrScalar(a,b) = %v, want 2.0", got)
	}
}

func TestVariantsAgreeWithinTolerance(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, dim := range []int{16, 32, 128, 20, 130} {
		a := randVec(dim, r)
		b := randVec(dim, r)
		want := l2sqrScalar(a, b)

		var got float32
		switch {
		case dim%16 == 0:
			got = l2sqrWide16(a, b)
		default:
			got = l2sqrResidual(a, b)
		}
		if math.Abs(float64(got-want)) > 1e-3 {
			t.Errorf("dim=%d: wide/residual=%v scalar=%v diverge beyond tolerance", dim, got, want)
		}
	}
}

func TestNewSelectsByDimension(t *testing.T) {
	k := New(128)
	if k.Dim() != 128 {
		t.Fatalf("Dim() = %d, want 128", k.Dim())
	}
	a := randVec(128, rand.New(rand.NewSource(1)))
	b := randVec(128, rand.New(rand.NewSource(2)))
	want := l2sqrScalar(a, b)
	got := k.Dist(a, b)
	if math.Abs(float64(got-want)) > 1e-3 {
		t.Errorf("kernel.Dist diverges from scalar beyond tolerance: got=%v want=%v", got, want)
	}
}

func TestRankAgreementOnSeenPairs(t *testing.T) {
	// Distances with a gap >= 1e-3 must rank-agree across variants, per
	// the kernel's contract (spec §4.1).
	r := rand.New(rand.NewSource(7))
	dim := 64
	q := randVec(dim, r)
	cands := make([][]float32, 10)
	for i := range cands {
		cands[i] = randVec(dim, r)
	}
	k := New(dim)
	for i := range cands {
		for j := range cands {
			di := l2sqrScalar(q, cands[i])
			dj := l2sqrScalar(q, cands[j])
			gi := k.Dist(q, cands[i])
			gj := k.Dist(q, cands[j])
			if math.Abs(float64(di-dj)) >= 1e-3 {
				if (di < dj) != (gi < gj) {
					t.Errorf("rank disagreement at i=%d j=%d: scalar (%v,%v) kernel (%v,%v)", i, j, di, dj, gi, gj)
				}
			}
		}
	}
}
