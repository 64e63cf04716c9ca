package store

import (
	"fmt"

	"github.com/google/btree"

	"github.com/podcopic-labs/ivfcore/internal/ivf"
)

// InvertedList is the in-memory metadata for one live list (spec §3):
// offset into the slab, allocated capacity (always a power of two, >= the
// configured minimum), and how many of those entries hold valid data.
type InvertedList struct {
	Offset    int64
	Allocated int64
	Used      int64
}

func (s *Store) totalListSize(allocated int64) int64 {
	return allocated*s.vectorSize + allocated*8
}

// allocList computes cap = next_pow2(max(nUsed, MinEntriesPerList)) and
// carves out size_bytes = cap*(D*4+8) bytes from the free-slot table,
// growing the slab first if no slot is large enough (spec §4.2).
func (s *Store) allocList(nUsed int64) (InvertedList, error) {
	minLen := int64(s.cfg.MinEntriesPerList)
	allocated := nUsed
	if allocated < minLen {
		allocated = minLen
	}
	allocated = int64(ivf.NextPow2(uint64(allocated)))

	size := s.totalListSize(allocated)
	offset, err := s.allocSlot(size)
	if err != nil {
		return InvertedList{}, err
	}
	return InvertedList{Offset: offset, Allocated: allocated, Used: nUsed}, nil
}

// findLargeEnoughSlot performs a first-fit scan: iterate free_slots in
// offset order (btree.Ascend visits in key, i.e. offset, order) and take
// the first slot whose size >= size.
func (s *Store) findLargeEnoughSlot(size int64) (slotItem, bool) {
	var found slotItem
	ok := false
	s.freeSlots.Ascend(func(it btree.Item) bool {
		sl := it.(slotItem)
		if sl.Size >= size {
			found = sl
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// allocSlot performs first-fit allocation, growing the region if no slot
// is large enough. When the chosen slot is larger than needed it is
// shrunk from the left (offset advances, size decreases); an exact-size
// match is removed outright.
func (s *Store) allocSlot(size int64) (int64, error) {
	sl, ok := s.findLargeEnoughSlot(size)
	if !ok {
		if err := s.growRegionUntilEnoughSpace(size); err != nil {
			return 0, err
		}
		sl, ok = s.findLargeEnoughSlot(size)
		if !ok {
			return 0, fmt.Errorf("allocSlot: no slot available after growth (want %d bytes)", size)
		}
	}
	s.freeSlots.Delete(sl)
	offset := sl.Offset
	if sl.Size > size {
		s.freeSlots.ReplaceOrInsert(slotItem{Offset: sl.Offset + size, Size: sl.Size - size})
	}
	return offset, nil
}

// freeSlot inserts slot into free_slots preserving offset order, then
// merges with the immediate left and/or right neighbor when their byte
// ranges touch (spec §4.2 "Free / coalesce"). This is the only operation
// that merges slots and is what preserves invariants I1-I2.
func (s *Store) freeSlot(slot Slot) {
	var left, right *slotItem

	s.freeSlots.AscendGreaterOrEqual(slotItem{Offset: slot.Offset}, func(it btree.Item) bool {
		sl := it.(slotItem)
		right = &sl
		return false
	})
	s.freeSlots.DescendLessOrEqual(slotItem{Offset: slot.Offset}, func(it btree.Item) bool {
		sl := it.(slotItem)
		left = &sl
		return false
	})

	adjLeft := left != nil && left.Offset+left.Size == slot.Offset
	adjRight := right != nil && slot.Offset+slot.Size == right.Offset

	switch {
	case adjLeft && adjRight:
		s.freeSlots.Delete(*left)
		s.freeSlots.Delete(*right)
		s.freeSlots.ReplaceOrInsert(slotItem{Offset: left.Offset, Size: left.Size + slot.Size + right.Size})
	case adjLeft:
		s.freeSlots.Delete(*left)
		s.freeSlots.ReplaceOrInsert(slotItem{Offset: left.Offset, Size: left.Size + slot.Size})
	case adjRight:
		s.freeSlots.Delete(*right)
		s.freeSlots.ReplaceOrInsert(slotItem{Offset: slot.Offset, Size: slot.Size + right.Size})
	default:
		s.freeSlots.ReplaceOrInsert(slotItem{Offset: slot.Offset, Size: slot.Size})
	}
}

// hasFreeSlotAtEnd reports whether free_slots has a slot touching the end
// of the mapped region.
func (s *Store) hasFreeSlotAtEnd() (slotItem, bool) {
	var last slotItem
	ok := false
	s.freeSlots.Descend(func(it btree.Item) bool {
		last = it.(slotItem)
		ok = true
		return false
	})
	if ok && last.Offset+last.Size == s.totalSize {
		return last, true
	}
	return slotItem{}, false
}

// freeSpace sums the size of every free slot (supplemented diagnostic,
// spec §12 / StorageLists::get_free_space).
func (s *Store) freeSpace() int64 {
	var total int64
	s.freeSlots.Ascend(func(it btree.Item) bool {
		total += it.(slotItem).Size
		return true
	})
	return total
}

// largestFreeSlot returns the size of the largest contiguous free range
// (spec §12 / StorageLists::get_largest_continuous_free_space).
func (s *Store) largestFreeSlot() int64 {
	var max int64
	s.freeSlots.Ascend(func(it btree.Item) bool {
		if sz := it.(slotItem).Size; sz > max {
			max = sz
		}
		return true
	})
	return max
}

// doesListNeedReallocation mirrors does_list_need_reallocation: reuse the
// existing capacity when the new length occupies more than half of it and
// no more than all of it; otherwise reallocate.
func doesListNeedReallocation(allocated, newLen int64) bool {
	return newLen <= allocated/2 || newLen > allocated
}
