package store

import (
	"fmt"

	"github.com/podcopic-labs/ivfcore/internal/ivf"
	"github.com/podcopic-labs/ivfcore/internal/ivferrors"
)

// BulkCreateLists reads the complete set of (list id, count) pairs up
// front and creates every list at its final capacity in one pass,
// mirroring StorageLists::bulk_create_lists: counting first avoids the
// repeated grow/resize churn that one create_list-per-entry would cause.
func (s *Store) BulkCreateLists(counts map[ivf.ListID]int64) error {
	for listID, n := range counts {
		if s.HasList(listID) {
			continue
		}
		if err := s.CreateList(listID, n); err != nil {
			return fmt.Errorf("bulk create list %d: %w", listID, err)
		}
	}
	return nil
}

// BulkInsertEntries loads vectors/ids into their target lists (given by
// listIDs, one per entry) in MaxBufferSize-entry chunks. When
// cfg.DynamicInsertion is false it counts the entries per list, reserves
// space for the lists it creates, creates each missing list (or grows an
// existing one by its count) once, and then streams entries in with a
// running per-list write offset via UpdateEntries (no per-entry
// allocator churn); lists already created via BulkCreateLists are grown
// by their count like any other existing list. When DynamicInsertion is true each
// chunk is appended via InsertEntries instead, paying the allocator cost
// per insert but requiring no pre-pass (StorageLists::bulk_insert_entries).
func (s *Store) BulkInsertEntries(listIDs []ivf.ListID, vectors []float32, ids []ivf.VectorID) error {
	n := len(ids)
	if n == 0 {
		return nil
	}
	if len(listIDs) != n {
		return fmt.Errorf("%w: listIDs length %d does not match ids length %d", ivferrors.ErrFormat, len(listIDs), n)
	}
	if len(vectors) != n*s.vectorDim {
		return fmt.Errorf("%w: vectors length %d does not match %d entries at dim %d", ivferrors.ErrFormat, len(vectors), n, s.vectorDim)
	}

	chunk := s.cfg.MaxBufferSize
	if chunk <= 0 {
		chunk = n
	}

	if s.cfg.DynamicInsertion {
		return s.bulkInsertDynamic(listIDs, vectors, ids, chunk)
	}
	return s.bulkInsertPreallocated(listIDs, vectors, ids, chunk)
}

func (s *Store) bulkInsertDynamic(listIDs []ivf.ListID, vectors []float32, ids []ivf.VectorID, chunk int) error {
	n := len(ids)
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		for i := start; i < end; i++ {
			v := vectors[i*s.vectorDim : (i+1)*s.vectorDim]
			if err := s.InsertEntries(listIDs[i], v, ids[i:i+1]); err != nil {
				return fmt.Errorf("bulk insert (dynamic) entry %d: %w", i, err)
			}
		}
	}
	return nil
}

// bulkInsertPreallocated groups entries by list, resizes every touched
// list once to its final length, then streams each list's entries in at
// a running offset via UpdateEntries — no allocator call per entry.
func (s *Store) bulkInsertPreallocated(listIDs []ivf.ListID, vectors []float32, ids []ivf.VectorID, chunk int) error {
	n := len(ids)

	counts := make(map[ivf.ListID]int64)
	for _, id := range listIDs {
		counts[id]++
	}
	var reserve int64
	for listID, add := range counts {
		if s.HasList(listID) {
			continue
		}
		capEntries := add
		if m := int64(s.cfg.MinEntriesPerList); capEntries < m {
			capEntries = m
		}
		reserve += s.totalListSize(int64(ivf.NextPow2(uint64(capEntries))))
	}
	if err := s.ReserveSpace(reserve); err != nil {
		return fmt.Errorf("bulk insert: reserve space: %w", err)
	}
	for listID, add := range counts {
		used, err := s.ListLength(listID)
		if err != nil {
			if err := s.CreateList(listID, add); err != nil {
				return fmt.Errorf("bulk insert: create list %d: %w", listID, err)
			}
			continue
		}
		if err := s.ResizeList(listID, used+add); err != nil {
			return fmt.Errorf("bulk insert: resize list %d: %w", listID, err)
		}
	}

	writeOffset := make(map[ivf.ListID]int64)
	for listID := range counts {
		used, _ := s.ListLength(listID)
		writeOffset[listID] = used - counts[listID]
	}

	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		for i := start; i < end; i++ {
			listID := listIDs[i]
			off := writeOffset[listID]
			v := vectors[i*s.vectorDim : (i+1)*s.vectorDim]
			if err := s.UpdateEntries(listID, off, v, ids[i:i+1]); err != nil {
				return fmt.Errorf("bulk insert entry %d into list %d: %w", i, listID, err)
			}
			writeOffset[listID] = off + 1
		}
	}
	return nil
}
