package ivf

import (
	"fmt"

	"github.com/podcopic-labs/ivfcore/internal/ivferrors"
)

// ParallelMode selects how the executor schedules query work (spec §4.4, §5).
type ParallelMode int

const (
	// ModeSequential runs queries one at a time on the calling goroutine.
	ModeSequential ParallelMode = 0
	// ModePerQuery runs one goroutine per query, each with its own heap.
	ModePerQuery ParallelMode = 1
	// ModePerQueryList runs one goroutine per (query, list) work item with
	// per-worker local heaps merged into per-query heaps under a mutex.
	ModePerQueryList ParallelMode = 2
)

// Config carries every configurable constant named in spec §6.
type Config struct {
	VectorDim         int          // D
	NLists            int          // L
	NResults          int          // default K
	NProbes           int          // default P
	MinTotalSizeBytes int64        // power of two, slab growth floor
	MinEntriesPerList int          // MIN_N_ENTRIES_PER_LIST
	MaxBufferSize     int          // bulk-insert I/O chunk size, in entries
	FrameCapacity     int          // F, vectors per buffer-pool frame
	ParallelMode      ParallelMode // PMODE
	DynamicInsertion  bool         // DYNAMIC_INSERTION
}

// DefaultConfig mirrors the magnitudes used by the reference dataset in the
// original source (SIFT1M-scale defaults), scaled down for quick local use.
func DefaultConfig() Config {
	return Config{
		VectorDim:         128,
		NLists:            1024,
		NResults:          1,
		NProbes:           32,
		MinTotalSizeBytes: 32,
		MinEntriesPerList: 1,
		MaxBufferSize:     100_000,
		FrameCapacity:     3000,
		ParallelMode:      ModeSequential,
		DynamicInsertion:  false,
	}
}

// Validate checks the invariants required of these constants before any
// component is constructed from them.
func (c Config) Validate() error {
	if c.VectorDim <= 0 {
		return fmt.Errorf("%w: vector dimension must be > 0, got %d", ivferrors.ErrOutOfRange, c.VectorDim)
	}
	if c.NLists <= 0 {
		return fmt.Errorf("%w: list count must be > 0, got %d", ivferrors.ErrOutOfRange, c.NLists)
	}
	if c.NResults <= 0 {
		return fmt.Errorf("%w: n_results must be > 0, got %d", ivferrors.ErrOutOfRange, c.NResults)
	}
	if c.NProbes <= 0 || c.NProbes > c.NLists {
		return fmt.Errorf("%w: n_probes must be in (0, %d], got %d", ivferrors.ErrOutOfRange, c.NLists, c.NProbes)
	}
	if c.MinTotalSizeBytes <= 0 || !IsPow2(uint64(c.MinTotalSizeBytes)) {
		return fmt.Errorf("%w: min total size bytes must be a power of two, got %d", ivferrors.ErrOutOfRange, c.MinTotalSizeBytes)
	}
	if c.MinEntriesPerList <= 0 {
		return fmt.Errorf("%w: min entries per list must be > 0, got %d", ivferrors.ErrOutOfRange, c.MinEntriesPerList)
	}
	if c.MaxBufferSize <= 0 {
		return fmt.Errorf("%w: max buffer size must be > 0, got %d", ivferrors.ErrOutOfRange, c.MaxBufferSize)
	}
	if c.FrameCapacity <= 0 {
		return fmt.Errorf("%w: frame capacity must be > 0, got %d", ivferrors.ErrOutOfRange, c.FrameCapacity)
	}
	if c.ParallelMode < ModeSequential || c.ParallelMode > ModePerQueryList {
		return fmt.Errorf("%w: unknown parallel mode %d", ivferrors.ErrOutOfRange, c.ParallelMode)
	}
	return nil
}
