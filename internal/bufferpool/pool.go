package bufferpool

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/podcopic-labs/ivfcore/internal/ivf"
	"github.com/podcopic-labs/ivfcore/internal/ivferrors"
)

// diskLocation is where a list's vectors and ids live in the slab file,
// registered by the caller once it knows them (mirrors
// hash_to_disk_vectors_).
type diskLocation struct {
	VectorsOffset int64
	IDsOffset     int64
	Length        int64
}

// Pool is a fixed-capacity buffer pool of frames backing inverted lists
// read from a read-only file descriptor on the slab
// (original_source/include/buffer_management/BufferPoolManager.hpp).
type Pool struct {
	mu sync.Mutex

	frames        []Frame
	frameCapacity int
	vectorDim     int

	firstFrameOf map[ivf.ListID]int // list id -> first frame index, absent if not resident
	diskLoc      map[ivf.ListID]diskLocation

	replacer *ClockReplacer
	freeList []bool
	freeNum  int

	fd *os.File

	hits, total int64
}

// NewPool opens slabPath read-only for positioned reads and allocates n
// frames, each holding frameCapacity entries of vectorDim floats.
func NewPool(n, frameCapacity, vectorDim int, slabPath string) (*Pool, error) {
	fd, err := os.OpenFile(slabPath, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open slab for buffer pool: %v", ivferrors.ErrIO, err)
	}
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = newFrame(frameCapacity, vectorDim)
	}
	free := make([]bool, n)
	for i := range free {
		free[i] = true
	}
	return &Pool{
		frames:        frames,
		frameCapacity: frameCapacity,
		vectorDim:     vectorDim,
		firstFrameOf:  make(map[ivf.ListID]int),
		diskLoc:       make(map[ivf.ListID]diskLocation),
		replacer:      NewClockReplacer(n),
		freeList:      free,
		freeNum:       n,
		fd:            fd,
	}, nil
}

// Close releases the pool's file descriptor.
func (p *Pool) Close() error { return p.fd.Close() }

// RegisterList records where listID's vectors/ids live on disk and how
// many valid entries it has, so a later FetchListPages can load it. This
// must be called (or updated) whenever the owning store creates,
// resizes, or relocates the list.
func (p *Pool) RegisterList(listID ivf.ListID, vectorsOffset, idsOffset, length int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.diskLoc[listID] = diskLocation{VectorsOffset: vectorsOffset, IDsOffset: idsOffset, Length: length}
}

// Stats reports cumulative hit/total fetch counts (spec §12 supplement).
func (p *Pool) Stats() (hits, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.total
}

// ListLength reports listID's registered entry count, if any.
func (p *Pool) ListLength(listID ivf.ListID) (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	loc, ok := p.diskLoc[listID]
	return loc.Length, ok
}

// FrameCapacity returns the number of entries a single frame holds.
func (p *Pool) FrameCapacity() int { return p.frameCapacity }

// VectorDim returns the vector dimension frames were allocated for.
func (p *Pool) VectorDim() int { return p.vectorDim }

// Frame exposes frame i's current contents. Callers must hold a pin on
// the frame's list (via FetchListPages) for the duration of use.
func (p *Pool) Frame(i int) *Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &p.frames[i]
}

func (p *Pool) listPageSize(n int64) int {
	if n <= 0 {
		return 0
	}
	k := int((n + int64(p.frameCapacity) - 1) / int64(p.frameCapacity))
	if k == 0 {
		k = 1
	}
	return k
}

// lookUpFreeList finds the first run of k consecutive free frames,
// returning its start index, or -1 if no such run exists.
func (p *Pool) lookUpFreeList(k int) int {
	run := 0
	for i, free := range p.freeList {
		if free {
			run++
			if run == k {
				return i - k + 1
			}
		} else {
			run = 0
		}
	}
	return -1
}

func (p *Pool) allocateFreeFrames(start, k int) {
	for i := start; i < start+k; i++ {
		p.freeList[i] = false
	}
	p.freeNum -= k
}

func (p *Pool) resetFrame(i int) {
	p.frames[i].reset()
}

// accessList bumps pin/access bookkeeping for the k frames starting at
// first, marking each frame used in the replacer on its first touch and
// setting its "second chance" ref bit (and clearing its access counter)
// each time the frame has been scanned once per frame the list occupies (AccessList in
// the original, comparing access_times_ against list_size_ — the frame
// count k, not the list's entry count).
func (p *Pool) accessList(first, k int) {
	for i := first; i < first+k; i++ {
		f := &p.frames[i]
		f.PinCount++
		f.AccessTimes++
		if !p.isUsed(i) {
			p.replacer.AccessFrame(i, false)
		}
		p.replacer.Pin(i)
		if f.AccessTimes == f.ListSize {
			p.replacer.AccessFrame(i, true)
			f.AccessTimes = 0
		}
	}
}

func (p *Pool) isUsed(i int) bool { return p.replacer.usedFrame[i] }

// updateSingleFrame reads one frame's worth of vectors and ids from disk
// via a positioned read, handling a final partial frame.
func (p *Pool) updateSingleFrame(frameIdx int, vectorsOffset, idsOffset int64, count int) error {
	f := &p.frames[frameIdx]
	vecBytes := make([]byte, count*p.vectorDim*4)
	if _, err := unix.Pread(int(p.fd.Fd()), vecBytes, vectorsOffset); err != nil {
		return fmt.Errorf("%w: pread vectors: %v", ivferrors.ErrIO, err)
	}
	decodeFloat32LE(vecBytes, f.Vectors[:count*p.vectorDim])

	idBytes := make([]byte, count*8)
	if _, err := unix.Pread(int(p.fd.Fd()), idBytes, idsOffset); err != nil {
		return fmt.Errorf("%w: pread ids: %v", ivferrors.ErrIO, err)
	}
	decodeInt64LE(idBytes, f.IDs[:count])
	return nil
}

// updateFrames loads listID's k frames starting at first from its
// registered disk location, marking the first one via SetFirstFrame.
func (p *Pool) updateFrames(first, k int, listID ivf.ListID) error {
	loc, ok := p.diskLoc[listID]
	if !ok {
		return fmt.Errorf("%w: list %d has no registered disk location", ivferrors.ErrNotFound, listID)
	}
	remaining := loc.Length
	for i := 0; i < k; i++ {
		count := p.frameCapacity
		if remaining < int64(count) {
			count = int(remaining)
		}
		if count == 0 {
			count = p.frameCapacity
		}
		vOff := loc.VectorsOffset + int64(i*p.frameCapacity*p.vectorDim*4)
		idOff := loc.IDsOffset + int64(i*p.frameCapacity*8)
		if err := p.updateSingleFrame(first+i, vOff, idOff, count); err != nil {
			return err
		}
		p.frames[first+i].ListID = listID
		p.frames[first+i].ListSize = k
		p.replacer.SetFirstFrame(first+i, i == 0)
		remaining -= int64(count)
	}
	return nil
}

// FetchListPages returns the [first, first+k) frame range backing
// listID, loading it from disk and evicting other lists if necessary.
func (p *Pool) FetchListPages(listID ivf.ListID) (first, k int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total++

	loc, ok := p.diskLoc[listID]
	if !ok {
		return 0, 0, fmt.Errorf("%w: list %d has no registered disk location", ivferrors.ErrNotFound, listID)
	}
	k = p.listPageSize(loc.Length)
	if k == 0 {
		return 0, 0, nil
	}

	if f, ok := p.firstFrameOf[listID]; ok {
		p.hits++
		p.accessList(f, k)
		return f, k, nil
	}

	start := p.lookUpFreeList(k)
	// A single EvictFrame pass only scans num_pages frames once: a frame
	// whose ref flag is set survives that pass (its flag is cleared
	// instead), so finding no victim doesn't mean none exists, only that
	// this pass's candidates all just got a second chance. Retry up to
	// twice the frame count, which is enough for every ref flag to have
	// been cleared by a prior pass; beyond that the pool is genuinely
	// exhausted (every frame pinned).
	maxAttempts := 2*len(p.frames) + 1
	for start < 0 {
		var victim int
		var ok bool
		for attempt := 0; attempt < maxAttempts; attempt++ {
			victim, ok = p.replacer.EvictFrame()
			if ok {
				break
			}
		}
		if !ok {
			return 0, 0, fmt.Errorf("%w", ivferrors.ErrCapacityExhausted)
		}
		evictedList := p.frames[victim].ListID
		p.freeList[victim] = true
		p.freeNum++
		p.resetFrame(victim)
		delete(p.firstFrameOf, evictedList)

		evictSize := 1
		if evictedList != ivf.InvalidListID {
			if l, ok := p.diskLoc[evictedList]; ok {
				evictSize = p.listPageSize(l.Length)
			}
		}
		for i := 1; i < evictSize; i++ {
			frameIdx := victim + i
			if frameIdx >= len(p.frames) {
				break
			}
			if !p.replacer.EvictNonFirstFrame() {
				break
			}
			p.freeList[frameIdx] = true
			p.freeNum++
			p.resetFrame(frameIdx)
		}
		start = p.lookUpFreeList(k)
	}

	p.allocateFreeFrames(start, k)
	if err := p.updateFrames(start, k, listID); err != nil {
		return 0, 0, err
	}
	p.firstFrameOf[listID] = start
	p.accessList(start, k)
	return start, k, nil
}

// UnPinListPages releases the pin held on the k frames starting at
// first, acquired by a prior FetchListPages call.
func (p *Pool) UnPinListPages(first, k int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := first; i < first+k; i++ {
		f := &p.frames[i]
		f.PinCount--
		if f.PinCount <= 0 {
			f.PinCount = 0
			p.replacer.Unpin(i)
		}
	}
}
