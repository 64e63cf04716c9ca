// Package ivferrors defines the structural error sentinels shared by every
// IVF core component. Distance computations, heap updates, and in-memory
// metadata updates never fail; the store, buffer pool, bulk ingestion,
// router, executor, config validation, and file readers return these.
package ivferrors

import "errors"

var (
	// ErrOutOfRange covers zero-entry resize calls, a zero vector
	// dimension, and update_entries ranges that spill past used_entries.
	// Creating a list with zero entries is accepted and does not return it.
	ErrOutOfRange = errors.New("out of range")
	// ErrNotFound covers lookups by an unknown list id.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists covers create_list on an id that already has a list.
	ErrAlreadyExists = errors.New("already exists")
	// ErrIO covers file open/read/truncate/mmap failures.
	ErrIO = errors.New("io error")
	// ErrFormat covers bulk-insert input files whose lengths disagree.
	ErrFormat = errors.New("format error")
	// ErrCapacityExhausted signals the buffer pool could not satisfy a
	// fetch because every frame is pinned. This indicates the pool is
	// under-sized for the probe width times concurrency of the workload;
	// callers that want fatal-assertion behavior should log.Fatal on it
	// themselves.
	ErrCapacityExhausted = errors.New("buffer pool capacity exhausted")
)
