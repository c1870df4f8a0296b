package buffer

import "github.com/ado-labs/pagestore/common"

// Strategy is the pluggable eviction capability: a small set of hit/load
// hooks plus a victim picker, so the pool stays agnostic of FIFO/LRU/CLOCK
// mechanics.
type Strategy interface {
	// OnHit runs when a pin resolves to an already-resident frame.
	OnHit(idx int, frames []Frame)
	// OnLoad runs when a page is freshly loaded into frame idx, whether
	// into a previously empty slot or one just evicted.
	OnLoad(idx int, frames []Frame)
	// PickVictim chooses an unpinned frame to evict. It returns
	// common.ErrNoFreeFrame if every frame is pinned.
	PickVictim(frames []Frame) (int, error)
}

// fifoStrategy evicts the oldest-loaded unpinned frame. A monotonically
// advancing cursor remembers where the next victim search should start;
// it moves forward by one slot on every load, so after the pool's N
// frames have all been filled once the cursor has wrapped back to the
// start and the next eviction correctly picks the oldest survivor.
//
// This cursor is independent of the pool's read/write I/O counters.
type fifoStrategy struct {
	next int
}

// NewFIFO returns a first-in-first-out eviction strategy.
func NewFIFO() Strategy { return &fifoStrategy{} }

func (f *fifoStrategy) OnHit(idx int, frames []Frame) {}

func (f *fifoStrategy) OnLoad(idx int, frames []Frame) {
	f.next = (idx + 1) % len(frames)
}

func (f *fifoStrategy) PickVictim(frames []Frame) (int, error) {
	n := len(frames)
	for i := 0; i < n; i++ {
		idx := (f.next + i) % n
		if frames[idx].PinCount == 0 {
			return idx, nil
		}
	}
	return -1, common.ErrNoFreeFrame
}

// lruStrategy evicts the unpinned frame with the smallest logical-clock
// stamp. The clock advances on every pin, hit or miss.
type lruStrategy struct {
	clock uint64
}

// NewLRU returns a least-recently-used eviction strategy.
func NewLRU() Strategy { return &lruStrategy{} }

func (l *lruStrategy) OnHit(idx int, frames []Frame) {
	l.clock++
	frames[idx].Meta = l.clock
}

func (l *lruStrategy) OnLoad(idx int, frames []Frame) {
	l.clock++
	frames[idx].Meta = l.clock
}

func (l *lruStrategy) PickVictim(frames []Frame) (int, error) {
	victim := -1
	var oldest uint64
	for idx, f := range frames {
		if f.PinCount != 0 {
			continue
		}
		if victim == -1 || f.Meta < oldest {
			victim = idx
			oldest = f.Meta
		}
	}
	if victim == -1 {
		return -1, common.ErrNoFreeFrame
	}
	return victim, nil
}

// clockStrategy is the second-chance CLOCK policy: each frame carries a
// reference bit in Meta (0 or 1). A hand sweeps the frames; an unpinned
// frame with bit=0 is evicted, a bit=1 frame has its bit cleared and is
// given a second chance, and pinned frames are skipped without being
// cleared.
type clockStrategy struct {
	hand int
}

// NewClock returns a second-chance (CLOCK) eviction strategy.
func NewClock() Strategy { return &clockStrategy{} }

func (c *clockStrategy) OnHit(idx int, frames []Frame) {
	frames[idx].Meta = 1
}

func (c *clockStrategy) OnLoad(idx int, frames []Frame) {
	frames[idx].Meta = 0
}

func (c *clockStrategy) PickVictim(frames []Frame) (int, error) {
	n := len(frames)
	for sweeps := 0; sweeps < 2*n; sweeps++ {
		idx := c.hand
		c.hand = (c.hand + 1) % n
		if frames[idx].PinCount != 0 {
			continue
		}
		if frames[idx].Meta == 1 {
			frames[idx].Meta = 0
			continue
		}
		return idx, nil
	}
	return -1, common.ErrNoFreeFrame
}
