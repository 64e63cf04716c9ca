// Package bufferpool implements the fixed-capacity pool of in-memory
// frames that cache inverted lists read from the slab file, evicted
// under a clock (second-chance) policy (spec §4.2 "Buffer pool" / §9).
// It follows original_source/include/buffer_management/Page.hpp and
// BufferPoolManager.hpp: a list occupies a run of consecutive frames
// ("pages" in the original), fetched and pinned as a unit and released
// as a unit.
package bufferpool

import "github.com/podcopic-labs/ivfcore/internal/ivf"

// Frame holds one fixed-capacity chunk of a single list's vectors and
// ids. Multiple frames back one list when its entry count exceeds a
// single frame's capacity.
type Frame struct {
	Vectors     []float32
	IDs         []ivf.VectorID
	ListID      ivf.ListID
	ListSize    int // how many frames the containing list occupies (spec §3)
	PinCount    int
	AccessTimes int
}

func newFrame(capacity, dim int) Frame {
	return Frame{
		Vectors: make([]float32, capacity*dim),
		IDs:     make([]ivf.VectorID, capacity),
		ListID:  ivf.InvalidListID,
	}
}

// reset clears a frame's contents before it's handed to a new list,
// mirroring Page::ResetMemory.
func (f *Frame) reset() {
	for i := range f.Vectors {
		f.Vectors[i] = 0
	}
	for i := range f.IDs {
		f.IDs[i] = ivf.InvalidListID
	}
	f.ListID = ivf.InvalidListID
	f.ListSize = 0
	f.PinCount = 0
	f.AccessTimes = 0
}
