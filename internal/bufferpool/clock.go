package bufferpool

import "log"

// ClockReplacer implements second-chance clock eviction over a fixed
// number of frames, with an extra "first frame" distinction so that a
// list occupying several consecutive frames is evicted as one unit: only
// the first frame of a resident list is ever chosen as an eviction
// candidate, and the remaining frames of that list are evicted
// immediately afterward without going through the ordinary pass
// (original_source/src/buffer_management/ClockReplacer.cpp).
type ClockReplacer struct {
	numPages       int
	numPinnedPages int
	clockPointer   int

	usedFrame  []bool
	refFlag    []bool
	pinned     []bool
	firstFrame []bool
}

// NewClockReplacer creates a replacer over n frames, all initially
// unused and unpinned.
func NewClockReplacer(n int) *ClockReplacer {
	return &ClockReplacer{
		numPages:   n,
		usedFrame:  make([]bool, n),
		refFlag:    make([]bool, n),
		pinned:     make([]bool, n),
		firstFrame: make([]bool, n),
	}
}

// AccessFrame marks frame as used and sets its reference (second-chance)
// bit to refFlag.
func (c *ClockReplacer) AccessFrame(frame int, refFlag bool) {
	c.usedFrame[frame] = true
	c.refFlag[frame] = refFlag
}

// SetFirstFrame records whether frame is the first frame of its list.
func (c *ClockReplacer) SetFirstFrame(frame int, isFirst bool) {
	c.firstFrame[frame] = isFirst
}

// Pin marks frame pinned, incrementing numPinnedPages only the first
// time it transitions from unpinned to pinned.
func (c *ClockReplacer) Pin(frame int) {
	if !c.pinned[frame] {
		c.pinned[frame] = true
		c.numPinnedPages++
	}
}

// Unpin marks frame unpinned, decrementing numPinnedPages only the first
// time it transitions from pinned to unpinned.
func (c *ClockReplacer) Unpin(frame int) {
	if c.pinned[frame] {
		c.pinned[frame] = false
		c.numPinnedPages--
	}
}

// EvictNonFirstFrame evicts the frame currently under the clock hand,
// which must be a non-first, unpinned, used frame belonging to the list
// whose first frame was just evicted, then advances the hand one step.
// It does not itself search for a victim; an ineligible frame is logged
// and left untouched.
func (c *ClockReplacer) EvictNonFirstFrame() bool {
	i := c.clockPointer
	if c.pinned[i] || c.firstFrame[i] || !c.usedFrame[i] {
		log.Printf("bufferpool: EvictNonFirstFrame called on an ineligible frame %d", i)
		return false
	}
	c.firstFrame[i] = true
	c.usedFrame[i] = false
	c.refFlag[i] = false
	c.advance()
	return true
}

// EvictFrame scans starting at the clock hand for the first eligible
// first-frame victim: used, unpinned, and marking the start of a list.
// A set ref flag gives the frame a second chance (the flag is cleared
// and the scan continues) instead of evicting it outright.
func (c *ClockReplacer) EvictFrame() (int, bool) {
	if c.numPinnedPages == c.numPages {
		return 0, false
	}
	for step := 0; step < c.numPages; step++ {
		i := c.clockPointer
		if c.firstFrame[i] && c.usedFrame[i] && !c.pinned[i] {
			if c.refFlag[i] {
				c.refFlag[i] = false
				c.advance()
				continue
			}
			c.usedFrame[i] = false
			c.advance()
			return i, true
		}
		c.advance()
	}
	return 0, false
}

func (c *ClockReplacer) advance() {
	c.clockPointer = (c.clockPointer + 1) % c.numPages
}
