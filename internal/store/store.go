// Package store implements the slab allocator: a single mmap'd file
// holding every inverted list's vectors and ids, carved up by a first-fit,
// coalescing free-slot allocator. The mmap growth cycle (unmap -> truncate
// -> remap) and keeping the free-slot table in a btree both follow
// internal/index/BTreeIndex.go's approach to an mmap'd, btree-indexed file;
// the allocator algorithm itself follows StorageLists.cpp's design.
package store

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/btree"
	"golang.org/x/sys/unix"

	"github.com/podcopic-labs/ivfcore/internal/ivf"
	"github.com/podcopic-labs/ivfcore/internal/ivferrors"
)

// Store owns the slab file, its mmap region, and all list metadata.
type Store struct {
	mu sync.RWMutex

	path string
	file *os.File
	data []byte // nil only before the first mmap and after Close

	cfg        ivf.Config
	vectorDim  int
	vectorSize int64 // bytes per vector entry (D*4)
	totalSize  int64

	idToList  map[ivf.ListID]InvertedList
	freeSlots *btree.BTree
}

// Open creates a fresh slab file at path (truncating any existing
// contents) and maps it, mirroring StorageLists' constructor: the file
// is grown to MinTotalSizeBytes and the whole region is one free slot.
// Reopening a slab that already holds lists is done through
// LoadStoreMetadata, not Open.
func Open(path string, cfg ivf.Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open slab %q: %v", ivferrors.ErrIO, path, err)
	}

	s := newStore(path, f, cfg)
	if err := s.truncateTo(cfg.MinTotalSizeBytes); err != nil {
		f.Close()
		return nil, err
	}
	s.totalSize = cfg.MinTotalSizeBytes
	if err := s.mmapCurrent(); err != nil {
		f.Close()
		return nil, err
	}
	s.freeSlots.ReplaceOrInsert(slotItem{Offset: 0, Size: s.totalSize})
	return s, nil
}

// openMapped opens an existing slab file of the given size and maps it
// without touching free_slots or idToList, for use by LoadStoreMetadata
// which reconstructs both from a snapshot.
func openMapped(path string, cfg ivf.Config, totalSize int64) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open slab %q: %v", ivferrors.ErrIO, path, err)
	}
	s := newStore(path, f, cfg)
	s.totalSize = totalSize
	if err := s.mmapCurrent(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func newStore(path string, f *os.File, cfg ivf.Config) *Store {
	return &Store{
		path:       path,
		file:       f,
		cfg:        cfg,
		vectorDim:  cfg.VectorDim,
		vectorSize: int64(cfg.VectorDim) * 4,
		idToList:   make(map[ivf.ListID]InvertedList),
		freeSlots:  btree.New(32),
	}
}

func (s *Store) truncateTo(n int64) error {
	if err := s.file.Truncate(n); err != nil {
		return fmt.Errorf("%w: truncate slab: %v", ivferrors.ErrIO, err)
	}
	return nil
}

func (s *Store) mmapCurrent() error {
	data, err := unix.Mmap(int(s.file.Fd()), 0, int(s.totalSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("%w: mmap slab: %v", ivferrors.ErrIO, err)
	}
	s.data = data
	return nil
}

func (s *Store) unmapCurrent() error {
	if s.data == nil {
		return nil
	}
	if err := unix.Munmap(s.data); err != nil {
		return fmt.Errorf("%w: munmap slab: %v", ivferrors.ErrIO, err)
	}
	s.data = nil
	return nil
}

// growRegionUntilEnoughSpace doubles totalSize (or starts at
// MinTotalSizeBytes) until the newly added space can satisfy need bytes,
// accounting for any free slot already touching the end of the region,
// then remaps (spec §4.2 "Grow").
func (s *Store) growRegionUntilEnoughSpace(need int64) error {
	existingTail := int64(0)
	if tail, ok := s.hasFreeSlotAtEnd(); ok {
		existingTail = tail.Size
	}

	newSize := s.totalSize
	if newSize == 0 {
		newSize = s.cfg.MinTotalSizeBytes
	}
	for (newSize-s.totalSize)+existingTail < need {
		newSize *= 2
	}

	log.Printf("store: growing slab %q from %d to %d bytes", s.path, s.totalSize, newSize)

	if err := s.unmapCurrent(); err != nil {
		return err
	}
	if err := s.truncateTo(newSize); err != nil {
		return err
	}
	oldTotal := s.totalSize
	s.totalSize = newSize
	if err := s.mmapCurrent(); err != nil {
		return err
	}

	added := newSize - oldTotal
	if tail, ok := func() (slotItem, bool) {
		var last slotItem
		found := false
		s.freeSlots.Descend(func(it btree.Item) bool {
			last = it.(slotItem)
			found = true
			return false
		})
		return last, found && last.Offset+last.Size == oldTotal
	}(); ok {
		s.freeSlots.Delete(tail)
		s.freeSlots.ReplaceOrInsert(slotItem{Offset: tail.Offset, Size: tail.Size + added})
	} else {
		s.freeSlots.ReplaceOrInsert(slotItem{Offset: oldTotal, Size: added})
	}
	return nil
}

// msync flushes the mapped region to disk, mirroring BTreeIndex's use of
// unix.Msync after mutating its own mmap region.
func (s *Store) msync() error {
	if s.data == nil {
		return nil
	}
	if err := unix.Msync(s.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("%w: msync slab: %v", ivferrors.ErrIO, err)
	}
	return nil
}

// Close flushes and unmaps the slab. Idempotent, safe to call more than
// once, in the style of key_value_storage.go's Close.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	if err := s.msync(); err != nil {
		return err
	}
	if err := s.unmapCurrent(); err != nil {
		return err
	}
	return s.file.Close()
}

// VectorDim returns the configured vector dimension.
func (s *Store) VectorDim() int { return s.vectorDim }

// VectorSize returns the byte size of a single vector entry.
func (s *Store) VectorSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vectorSize
}

// TotalSize returns the current size in bytes of the mapped slab.
func (s *Store) TotalSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalSize
}

// FreeSpace reports the sum of all free slot sizes (spec §12).
func (s *Store) FreeSpace() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.freeSpace()
}

// LargestFreeSlot reports the size of the largest contiguous free range
// (spec §12).
func (s *Store) LargestFreeSlot() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.largestFreeSlot()
}

// ListLength returns the number of valid entries in listID.
func (s *Store) ListLength(listID ivf.ListID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.idToList[listID]
	if !ok {
		return 0, fmt.Errorf("%w: list %d", ivferrors.ErrNotFound, listID)
	}
	return l.Used, nil
}

// HasList reports whether listID currently has an allocated list.
func (s *Store) HasList(listID ivf.ListID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.idToList[listID]
	return ok
}
