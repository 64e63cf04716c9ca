package store

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/google/btree"

	"github.com/podcopic-labs/ivfcore/internal/ivf"
	"github.com/podcopic-labs/ivfcore/internal/ivferrors"
)

// metadataSnapshot is the exact set of tables spec.md names for the
// metadata interface contract: filename, vector_dim, vector_size,
// total_size, id_to_list_map, free_slots. This stays a plain gob
// round-trip, deliberately not a designed wire format (spec §6/§12).
type metadataSnapshot struct {
	Filename   string
	VectorDim  int
	VectorSize int64
	TotalSize  int64
	IDToList   map[ivf.ListID]InvertedList
	FreeSlots  []Slot
}

// SaveMetadata writes a gob-encoded snapshot of this store's metadata
// tables to w. It does not flush or touch the slab's vector/id contents;
// pair with the slab file itself to fully restore a store.
func (s *Store) SaveMetadata(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := metadataSnapshot{
		Filename:   s.path,
		VectorDim:  s.vectorDim,
		VectorSize: s.vectorSize,
		TotalSize:  s.totalSize,
		IDToList:   make(map[ivf.ListID]InvertedList, len(s.idToList)),
		FreeSlots:  make([]Slot, 0, s.freeSlots.Len()),
	}
	for k, v := range s.idToList {
		snap.IDToList[k] = v
	}
	s.freeSlots.Ascend(func(it btree.Item) bool {
		sl := it.(slotItem)
		snap.FreeSlots = append(snap.FreeSlots, Slot{Offset: sl.Offset, Size: sl.Size})
		return true
	})

	if err := gob.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("%w: encode metadata: %v", ivferrors.ErrIO, err)
	}
	return nil
}

// LoadStoreMetadata reads a snapshot written by SaveMetadata and opens
// the slab file at slabPath (which must be the same size as when the
// snapshot was taken), reconstructing idToList and free_slots from it
// rather than re-deriving them from the slab's raw bytes.
func LoadStoreMetadata(r io.Reader, slabPath string, cfg ivf.Config) (*Store, error) {
	var snap metadataSnapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %v", ivferrors.ErrIO, err)
	}
	if snap.VectorDim != cfg.VectorDim {
		return nil, fmt.Errorf("%w: snapshot vector dim %d does not match config dim %d", ivferrors.ErrFormat, snap.VectorDim, cfg.VectorDim)
	}

	s, err := openMapped(slabPath, cfg, snap.TotalSize)
	if err != nil {
		return nil, err
	}
	for k, v := range snap.IDToList {
		s.idToList[k] = v
	}
	for _, sl := range snap.FreeSlots {
		s.freeSlots.ReplaceOrInsert(slotItem{Offset: sl.Offset, Size: sl.Size})
	}
	return s, nil
}
