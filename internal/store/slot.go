package store

import "github.com/google/btree"

// slotItem is a free byte range [Offset, Offset+Size) of the slab. It
// implements btree.Item ordered strictly by Offset, mirroring
// BTreeIndex.go's Item/Less pattern but keyed on byte offset instead of a
// string key. free_slots must stay ordered by offset, non-overlapping, and
// never adjacent — a btree gives us that ordering plus O(log n) neighbor
// lookups for coalescing, instead of a hand-rolled sorted slice with a
// linear insert.
type slotItem struct {
	Offset int64
	Size   int64
}

func (s slotItem) Less(other btree.Item) bool {
	return s.Offset < other.(slotItem).Offset
}

// Slot is the public value type for a free byte range (spec §3, §9: "the
// implementation must not alias a live slot it is about to mutate — design
// the API to take a Slot by value").
type Slot struct {
	Offset int64
	Size   int64
}
