package store

import (
	"fmt"
	"unsafe"

	"github.com/podcopic-labs/ivfcore/internal/ivf"
	"github.com/podcopic-labs/ivfcore/internal/ivferrors"
)

// idsOffset returns the byte offset of the ids region for a list
// allocated at the given base offset with the given capacity: ids start
// immediately after the vectors region (spec §3).
func (s *Store) idsOffset(base, allocated int64) int64 {
	return base + allocated*s.vectorSize
}

// CreateList allocates a new list with capacity for at least nUsed
// entries (spec §4.2 create_list). It is an error to call this for a
// list id that already exists.
func (s *Store) CreateList(listID ivf.ListID, nUsed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idToList[listID]; ok {
		return fmt.Errorf("%w: list %d", ivferrors.ErrAlreadyExists, listID)
	}
	list, err := s.allocList(nUsed)
	if err != nil {
		return err
	}
	s.idToList[listID] = list
	return nil
}

// GetVectors returns a borrowed view of the first n vector entries of
// listID, aliasing the mmap region directly (spec §9: "borrowed pointer
// semantics... callers must not retain these across any operation that
// can resize or remap the region"). The returned slice is invalidated by
// any subsequent call that grows, resizes, or closes the store.
func (s *Store) GetVectors(listID ivf.ListID, n int64) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.idToList[listID]
	if !ok {
		return nil, fmt.Errorf("%w: list %d", ivferrors.ErrNotFound, listID)
	}
	if n < 0 || n > list.Used {
		return nil, fmt.Errorf("%w: requested %d entries, list %d has %d", ivferrors.ErrOutOfRange, n, listID, list.Used)
	}
	if n == 0 {
		return nil, nil
	}
	ptr := (*float32)(unsafe.Pointer(&s.data[list.Offset]))
	floats := unsafe.Slice(ptr, int(list.Allocated)*s.vectorDim)
	return floats[:int(n)*s.vectorDim], nil
}

// GetIDs returns a borrowed view of the first n vector ids of listID,
// under the same aliasing contract as GetVectors.
func (s *Store) GetIDs(listID ivf.ListID, n int64) ([]ivf.VectorID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.idToList[listID]
	if !ok {
		return nil, fmt.Errorf("%w: list %d", ivferrors.ErrNotFound, listID)
	}
	if n < 0 || n > list.Used {
		return nil, fmt.Errorf("%w: requested %d entries, list %d has %d", ivferrors.ErrOutOfRange, n, listID, list.Used)
	}
	if n == 0 {
		return nil, nil
	}
	off := s.idsOffset(list.Offset, list.Allocated)
	ptr := (*ivf.VectorID)(unsafe.Pointer(&s.data[off]))
	ids := unsafe.Slice(ptr, int(list.Allocated))
	return ids[:n], nil
}

// UpdateEntries overwrites entries [startIdx, startIdx+len(vectors)/D)
// of listID in place; it never changes Used or Allocated and never
// touches the allocator (spec §4.2 update_entries). A range that spills
// past Used is rejected with ErrOutOfRange (spec §7) — bulk callers must
// resize the list to its final length before streaming entries in.
func (s *Store) UpdateEntries(listID ivf.ListID, startIdx int64, vectors []float32, ids []ivf.VectorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.idToList[listID]
	if !ok {
		return fmt.Errorf("%w: list %d", ivferrors.ErrNotFound, listID)
	}
	n := int64(len(ids))
	if n == 0 {
		return nil
	}
	if int64(len(vectors)) != n*int64(s.vectorDim) {
		return fmt.Errorf("%w: vectors length %d does not match %d ids at dim %d", ivferrors.ErrOutOfRange, len(vectors), n, s.vectorDim)
	}
	if startIdx < 0 || startIdx+n > list.Used {
		return fmt.Errorf("%w: update range [%d,%d) exceeds used %d for list %d", ivferrors.ErrOutOfRange, startIdx, startIdx+n, list.Used, listID)
	}

	vecBase := list.Offset + startIdx*s.vectorSize
	vptr := (*float32)(unsafe.Pointer(&s.data[vecBase]))
	dst := unsafe.Slice(vptr, len(vectors))
	copy(dst, vectors)

	idBase := s.idsOffset(list.Offset, list.Allocated) + startIdx*8
	iptr := (*ivf.VectorID)(unsafe.Pointer(&s.data[idBase]))
	idst := unsafe.Slice(iptr, len(ids))
	copy(idst, ids)
	return nil
}

// ResizeList changes listID's Used count to newLen, reallocating its
// backing slot only when doesListNeedReallocation reports the current
// capacity no longer fits (spec §4.2 resize_list). When reallocating,
// it preserves min(old Used, new Used) entries of both the
// vectors and ids arrays — including the edge case where the new slot
// happens to start at the same offset as the old one, in which case only
// the ids region needs to move, because its byte offset depends on the
// (possibly changed) allocated capacity even though the vectors did not
// move.
func (s *Store) ResizeList(listID ivf.ListID, newLen int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.idToList[listID]
	if !ok {
		return fmt.Errorf("%w: list %d", ivferrors.ErrNotFound, listID)
	}
	if newLen <= 0 {
		return fmt.Errorf("%w: resize_list requires a positive length, got %d for list %d", ivferrors.ErrOutOfRange, newLen, listID)
	}
	if !doesListNeedReallocation(list.Allocated, newLen) {
		list.Used = newLen
		s.idToList[listID] = list
		return nil
	}

	oldList := list
	copyLen := oldList.Used
	if newLen < copyLen {
		copyLen = newLen
	}

	// Snapshot whatever we need to carry over before the old slot is
	// freed: its bytes may be overwritten the instant the allocator hands
	// the same range back out.
	var vecsCopy []float32
	var idsCopy []ivf.VectorID
	if copyLen > 0 {
		vptr := (*float32)(unsafe.Pointer(&s.data[oldList.Offset]))
		srcVecs := unsafe.Slice(vptr, int(copyLen)*s.vectorDim)
		vecsCopy = make([]float32, len(srcVecs))
		copy(vecsCopy, srcVecs)

		oldIDsOff := s.idsOffset(oldList.Offset, oldList.Allocated)
		iptr := (*ivf.VectorID)(unsafe.Pointer(&s.data[oldIDsOff]))
		srcIDs := unsafe.Slice(iptr, copyLen)
		idsCopy = make([]ivf.VectorID, copyLen)
		copy(idsCopy, srcIDs)
	}

	// Free before allocating so the allocator is free to hand the same
	// offset straight back for shrink-in-place resizes (the case where
	// only the ids region's byte offset actually moved).
	s.freeSlot(Slot{Offset: oldList.Offset, Size: s.totalListSize(oldList.Allocated)})

	newList, err := s.allocList(newLen)
	if err != nil {
		return err
	}

	if copyLen > 0 {
		if newList.Offset != oldList.Offset {
			nvptr := (*float32)(unsafe.Pointer(&s.data[newList.Offset]))
			dstVecs := unsafe.Slice(nvptr, len(vecsCopy))
			copy(dstVecs, vecsCopy)
		}
		newIDsOff := s.idsOffset(newList.Offset, newList.Allocated)
		nptr := (*ivf.VectorID)(unsafe.Pointer(&s.data[newIDsOff]))
		dstIDs := unsafe.Slice(nptr, copyLen)
		copy(dstIDs, idsCopy)
	}

	newList.Used = newLen
	s.idToList[listID] = newList
	return nil
}

// InsertEntries appends vectors/ids to the end of listID, creating it
// first if it does not yet exist (spec §4.2 insert_entries).
func (s *Store) InsertEntries(listID ivf.ListID, vectors []float32, ids []ivf.VectorID) error {
	n := int64(len(ids))
	if n == 0 {
		return nil
	}
	s.mu.Lock()
	_, exists := s.idToList[listID]
	s.mu.Unlock()
	if !exists {
		if err := s.CreateList(listID, 0); err != nil {
			return err
		}
	}

	s.mu.RLock()
	used := s.idToList[listID].Used
	s.mu.RUnlock()

	if err := s.ResizeList(listID, used+n); err != nil {
		return err
	}
	return s.UpdateEntries(listID, used, vectors, ids)
}

// ReserveSpace pre-grows the slab so that at least n bytes of additional
// free space are available without further mmap remapping during a
// subsequent bulk load (spec §12 / StorageLists::reserve_space).
func (s *Store) ReserveSpace(n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	free := s.freeSpace()
	if free >= n {
		return nil
	}
	// growRegionUntilEnoughSpace counts a free slot touching the end of
	// the region toward its target, but that slot is already part of
	// free; add it back so the growth alone covers the shortfall.
	need := n - free
	if tail, ok := s.hasFreeSlotAtEnd(); ok {
		need += tail.Size
	}
	return s.growRegionUntilEnoughSpace(need)
}
