// Package boundedheap implements the fixed-capacity max-heap the design
// notes call for (spec §9): "a fixed-capacity max-heap keyed by (distance,
// id)... sufficient and avoids allocations on the hot path." Both the
// router's centroid search and the executor's per-query candidate set are
// an instance of the same shape — bound the heap at the probe/result count,
// keep the worst candidate at the top, pop-and-push when a better one
// arrives — so this is shared rather than duplicated per caller.
package boundedheap

import "container/heap"

// Less reports whether a is strictly closer than b under the caller's
// total order (e.g. (distance, id) with ties broken by id, per spec
// §4.3/§4.4). The heap is a max-heap over this order: the "largest" (i.e.
// least-close) element sits at the top so it can be evicted first.
type Less[T any] func(a, b T) bool

type container[T any] struct {
	items []T
	less  Less[T]
}

func (c *container[T]) Len() int { return len(c.items) }
func (c *container[T]) Less(i, j int) bool {
	// Max-heap: the top should be the element that is NOT closer, i.e.
	// items[i] belongs above items[j] when items[j] is closer than items[i].
	return c.less(c.items[j], c.items[i])
}
func (c *container[T]) Swap(i, j int) { c.items[i], c.items[j] = c.items[j], c.items[i] }
func (c *container[T]) Push(x any)    { c.items = append(c.items, x.(T)) }
func (c *container[T]) Pop() any {
	old := c.items
	n := len(old)
	x := old[n-1]
	c.items = old[:n-1]
	return x
}

// Bounded is a fixed-capacity max-heap: once it holds cap elements, adding
// a candidate pops the current worst (top) element first whenever the
// candidate is closer than it, and drops the candidate otherwise.
type Bounded[T any] struct {
	c   *container[T]
	cap int
}

// New creates a Bounded heap with the given capacity and ordering.
func New[T any](capacity int, less Less[T]) *Bounded[T] {
	return &Bounded[T]{c: &container[T]{less: less}, cap: capacity}
}

// Len returns the number of candidates currently held.
func (b *Bounded[T]) Len() int { return b.c.Len() }

// Top returns the worst (least-close) candidate currently held. Callers
// must check Len() > 0 first.
func (b *Bounded[T]) Top() T { return b.c.items[0] }

// Offer implements add_candidate (spec §4.3/§4.4): push if under capacity,
// replace the top if the candidate is strictly closer than it, otherwise
// drop the candidate.
func (b *Bounded[T]) Offer(candidate T) {
	if b.c.Len() < b.cap {
		heap.Push(b.c, candidate)
		return
	}
	if b.c.less(candidate, b.c.items[0]) {
		heap.Pop(b.c)
		heap.Push(b.c, candidate)
	}
}

// Drain empties the heap in ascending (closest-first) order, matching the
// spec's "drain the heap into an output sequence so that results are in
// ascending order" contract for both the router and the executor.
func (b *Bounded[T]) Drain() []T {
	n := b.c.Len()
	out := make([]T, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = heap.Pop(b.c).(T)
	}
	return out
}
