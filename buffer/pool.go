// Package buffer implements a buffer pool: a bounded set of frames
// caching pages from a storage.Device, with pin/unpin reference counting
// and a pluggable eviction strategy (FIFO, LRU or CLOCK).
package buffer

import (
	"fmt"

	"github.com/ado-labs/pagestore/common"
	"github.com/ado-labs/pagestore/storage"
	"go.uber.org/zap"
)

// Pool is a fixed-capacity page cache in front of one storage.Device.
type Pool struct {
	device   *storage.Device
	frames   []Frame
	strategy Strategy
	readIO   int64
	writeIO  int64
	log      *zap.Logger
}

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithLogger attaches a structured logger; the zero value logs nothing.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// New creates a pool of the given capacity (number of frames) over device,
// using strategy for eviction decisions.
func New(device *storage.Device, capacity int, strategy Strategy, opts ...Option) (*Pool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("buffer pool: capacity must be positive")
	}
	frames := make([]Frame, capacity)
	for i := range frames {
		frames[i].PageNo = NoPage
		frames[i].Data = make([]byte, storage.PageSize)
	}
	p := &Pool{device: device, frames: frames, strategy: strategy}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	return p, nil
}

// Capacity returns the number of frames in the pool.
func (p *Pool) Capacity() int { return len(p.frames) }

// Handle is a scoped pin: it stays valid, and the underlying frame stays
// resident and stable, from Pin until a matching Unpin/Close.
type Handle struct {
	pool   *Pool
	idx    int
	pageNo PageId
}

// PageNo returns the pinned page's id.
func (h *Handle) PageNo() PageId { return h.pageNo }

// Data returns the frame's backing bytes. Mutations are visible to every
// other holder of the same pin and are only durable after MarkDirty plus
// a flush (ForcePage, ForceFlushPool, or Shutdown).
func (h *Handle) Data() []byte { return h.pool.frames[h.idx].Data }

// Unpin releases the pin. ErrNotFound if the frame no longer holds this
// page (can only happen if Unpin is called twice for the same handle).
func (h *Handle) Unpin() error { return h.pool.unpin(h) }

// Close is an alias for Unpin so Handle satisfies io.Closer, for the
// `defer handle.Close()` scoped-acquisition idiom.
func (h *Handle) Close() error { return h.Unpin() }

// MarkDirty flags the pinned frame as holding unflushed modifications.
func (h *Handle) MarkDirty() error { return h.pool.markDirty(h) }

// ForcePage writes the pinned frame back to the device immediately,
// regardless of its dirty flag, and clears the dirty flag.
func (h *Handle) ForcePage() error { return h.pool.forcePage(h) }

func (p *Pool) frameFor(h *Handle) (*Frame, error) {
	f := &p.frames[h.idx]
	if f.PageNo != h.pageNo {
		return nil, fmt.Errorf("handle for page %d: %w", h.pageNo, common.ErrNotFound)
	}
	return f, nil
}

func (p *Pool) unpin(h *Handle) error {
	f, err := p.frameFor(h)
	if err != nil {
		return err
	}
	if f.PinCount > 0 {
		f.PinCount--
	}
	return nil
}

func (p *Pool) markDirty(h *Handle) error {
	f, err := p.frameFor(h)
	if err != nil {
		return err
	}
	f.Dirty = true
	return nil
}

func (p *Pool) forcePage(h *Handle) error {
	f, err := p.frameFor(h)
	if err != nil {
		return err
	}
	if err := p.device.WritePage(uint32(f.PageNo), f.Data); err != nil {
		return fmt.Errorf("forcePage %d: %w", f.PageNo, err)
	}
	p.writeIO++
	f.Dirty = false
	return nil
}

// Pin resolves page p to a resident, pinned frame, loading or evicting as
// needed. p < -1 fails with ErrPinNegative; -1 itself is never a page a
// caller pins in practice, but is accepted as a boundary value.
func (p *Pool) Pin(page PageId) (*Handle, error) {
	if page < -1 {
		return nil, fmt.Errorf("pin %d: %w", page, common.ErrPinNegative)
	}

	for idx := range p.frames {
		if p.frames[idx].PageNo == page {
			p.frames[idx].PinCount++
			p.strategy.OnHit(idx, p.frames)
			return &Handle{pool: p, idx: idx, pageNo: page}, nil
		}
	}

	emptyIdx := -1
	anyResident := false
	for idx := range p.frames {
		if p.frames[idx].PageNo == NoPage {
			if emptyIdx == -1 {
				emptyIdx = idx
			}
		} else {
			anyResident = true
		}
	}

	if emptyIdx != -1 {
		if !anyResident && uint32(page) >= p.device.TotalPages() {
			if err := p.device.EnsureCapacity(uint32(page) + 1); err != nil {
				return nil, fmt.Errorf("pin %d: %w", page, err)
			}
		}
		if err := p.device.ReadPage(uint32(page), p.frames[emptyIdx].Data); err != nil {
			return nil, fmt.Errorf("pin %d: %w", page, err)
		}
		p.readIO++
		p.frames[emptyIdx].PageNo = page
		p.frames[emptyIdx].PinCount = 1
		p.frames[emptyIdx].Dirty = false
		p.strategy.OnLoad(emptyIdx, p.frames)
		return &Handle{pool: p, idx: emptyIdx, pageNo: page}, nil
	}

	victim, err := p.strategy.PickVictim(p.frames)
	if err != nil {
		return nil, err
	}
	if p.frames[victim].Dirty {
		if err := p.device.WritePage(uint32(p.frames[victim].PageNo), p.frames[victim].Data); err != nil {
			return nil, fmt.Errorf("pin %d: evicting %d: %w", page, p.frames[victim].PageNo, err)
		}
		p.writeIO++
	}
	if err := p.device.ReadPage(uint32(page), p.frames[victim].Data); err != nil {
		return nil, fmt.Errorf("pin %d: %w", page, err)
	}
	p.readIO++
	p.frames[victim].PageNo = page
	p.frames[victim].PinCount = 1
	p.frames[victim].Dirty = false
	p.strategy.OnLoad(victim, p.frames)
	return &Handle{pool: p, idx: victim, pageNo: page}, nil
}

// ForceFlushPool writes every dirty, unpinned frame back to the device.
func (p *Pool) ForceFlushPool() error {
	for idx := range p.frames {
		f := &p.frames[idx]
		if f.Dirty && f.PinCount == 0 {
			if err := p.device.WritePage(uint32(f.PageNo), f.Data); err != nil {
				return fmt.Errorf("forceFlushPool: page %d: %w", f.PageNo, err)
			}
			p.writeIO++
			f.Dirty = false
		}
	}
	return nil
}

// Shutdown flushes every dirty frame and releases the pool's memory.
// ErrPinnedPages if any frame is still pinned.
func (p *Pool) Shutdown() error {
	for _, f := range p.frames {
		if f.PinCount > 0 {
			return fmt.Errorf("shutdown: %w", common.ErrPinnedPages)
		}
	}
	if err := p.ForceFlushPool(); err != nil {
		return err
	}
	for idx := range p.frames {
		p.frames[idx] = Frame{PageNo: NoPage, Data: p.frames[idx].Data}
	}
	return nil
}

// FrameContents returns the page id held by each frame (NoPage if empty).
func (p *Pool) FrameContents() []PageId {
	out := make([]PageId, len(p.frames))
	for i, f := range p.frames {
		out[i] = f.PageNo
	}
	return out
}

// DirtyFlags returns each frame's dirty flag.
func (p *Pool) DirtyFlags() []bool {
	out := make([]bool, len(p.frames))
	for i, f := range p.frames {
		out[i] = f.Dirty
	}
	return out
}

// PinCounts returns each frame's current pin count.
func (p *Pool) PinCounts() []int {
	out := make([]int, len(p.frames))
	for i, f := range p.frames {
		out[i] = f.PinCount
	}
	return out
}

// Stats reports cumulative read/write I/O issued to the device. These
// counters are kept independent of any eviction strategy's internal
// cursor or clock state.
func (p *Pool) Stats() common.PoolStats {
	return common.PoolStats{ReadCount: p.readIO, WriteCount: p.writeIO}
}
