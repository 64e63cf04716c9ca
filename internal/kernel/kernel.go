// Package kernel implements the squared-L2 distance between two dense
// float32 vectors (spec §4.1). The C++ original dispatches through a
// function pointer chosen once by L2Space's constructor based on the
// vector dimension; we keep that shape with a Go function value picked
// once by New.
package kernel

import (
	"github.com/klauspost/cpuid/v2"
)

// Func computes the squared L2 distance between a and b, both of length
// dim. Callers must pass equal-length slices; the kernel trusts its
// construction-time dimension and never re-validates len() on the hot path.
type Func func(a, b []float32) float32

// Kernel holds the distance function selected once for a fixed dimension.
type Kernel struct {
	dim  int
	Dist Func
}

// variant enumerates the implementations New chooses between. New
// assigns Dist directly and the Kernel does not record which variant it
// picked; the variants differ only in last-ULP results.
type variant int

const (
	variantScalar variant = iota
	variantWide16
	variantResidual
)

// New selects the distance function for dim, exactly once, mirroring
// L2Space's constructor: a 16-lane path when dim is a multiple of 16 and
// the CPU advertises AVX2, a residual (16-lane prefix + scalar tail) path
// when dim > 16 but not a multiple of 16, and the scalar fallback
// otherwise or when AVX2 isn't available.
func New(dim int) *Kernel {
	k := &Kernel{dim: dim, Dist: l2sqrScalar}
	if !cpuid.CPU.Supports(cpuid.AVX2) {
		return k
	}
	switch {
	case dim%16 == 0:
		k.Dist = l2sqrWide16
	case dim > 16:
		k.Dist = l2sqrResidual
	}
	return k
}

// Dim returns the dimension this kernel was constructed for.
func (k *Kernel) Dim() int { return k.dim }

// l2sqrScalar is the always-available fallback: a straight scalar
// accumulation of squared differences.
func l2sqrScalar(a, b []float32) float32 {
	var res float32
	n := len(a)
	for i := 0; i < n; i++ {
		t := a[i] - b[i]
		res += t * t
	}
	return res
}

// l2sqrWide16 processes 16 lanes per iteration as two 8-wide
// fused-subtract-then-square-accumulate chunks, horizontal-summing the 8
// accumulator lanes once at the end — the same access pattern as
// L2SqrSIMD16ExtAVX, expressed in portable Go so the compiler can
// autovectorize it on AVX2-capable hardware without hand-written assembly.
// dim is required to be a multiple of 16 by the caller (New only wires
// this in under that condition).
func l2sqrWide16(a, b []float32) float32 {
	var acc [8]float32
	n := len(a)
	i := 0
	for ; i+16 <= n; i += 16 {
		for lane := 0; lane < 8; lane++ {
			t := a[i+lane] - b[i+lane]
			acc[lane] += t * t
		}
		for lane := 0; lane < 8; lane++ {
			t := a[i+8+lane] - b[i+8+lane]
			acc[lane] += t * t
		}
	}
	var res float32
	for _, v := range acc {
		res += v
	}
	return res
}

// l2sqrResidual runs the 16-lane path over the largest multiple-of-16
// prefix of dim and the scalar path over the remaining tail, matching
// L2SqrSIMD16ExtResiduals.
func l2sqrResidual(a, b []float32) float32 {
	n := len(a)
	prefix := n - (n % 16)
	res := l2sqrWide16(a[:prefix], b[:prefix])
	res += l2sqrScalar(a[prefix:], b[prefix:])
	return res
}
