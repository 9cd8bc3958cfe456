package stream

import (
	"log/slog"
	"sync"
)

// Pool is the allocator/recycler for heap-origin Buffers. It tracks a soft
// cap on outstanding heap buffers and, once bound to a DMA-capable
// endpoint, bridges DMA-origin Buffer releases back to that endpoint's
// kernel index pool.
//
// Pool is safe for concurrent use: Alloc/Release may be called from any
// number of Master and reader-task goroutines at once.
type Pool struct {
	name string
	log  *slog.Logger

	mu          sync.Mutex
	softCap     int
	outstanding int
	free        [][]byte
	bufSize     int

	dmaPageCount int
	dmaPageSize  int
	dmaReturn    func(index uint32) error
}

// PoolStats is a snapshot of a Pool's bookkeeping, used for diagnostics.
type PoolStats struct {
	Name         string
	SoftCap      int
	Outstanding  int
	FreeListLen  int
	DMAPageCount int
	DMAPageSize  int
}

// PoolOption configures a Pool at construction time.
type PoolOption func(*Pool)

// WithPoolLogger overrides the Pool's logger (default slog.Default()).
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(p *Pool) { p.log = l }
}

// NewPool creates a Pool allocating bufSize-byte heap buffers, soft-capped
// at softCap outstanding allocations. Exceeding the cap is logged, not
// refused — it is a soft cap, a diagnostic signal that a downstream Slave
// is not keeping up, not a hard backpressure mechanism (spec.md's actual
// backpressure is the DMA driver's own page pool).
func NewPool(name string, softCap, bufSize int, opts ...PoolOption) *Pool {
	p := &Pool{
		name:    name,
		log:     slog.Default(),
		softCap: softCap,
		bufSize: bufSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the pool's diagnostic name.
func (p *Pool) Name() string { return p.name }

// BindDMA records the DMA page geometry and the driver return-index
// callback a DMA endpoint wants Buffer.Release to invoke. Until BindDMA is
// called, releaseDMA is a no-op (there is nothing to bridge to).
func (p *Pool) BindDMA(pageCount, pageSize int, returnFn func(index uint32) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dmaPageCount = pageCount
	p.dmaPageSize = pageSize
	p.dmaReturn = returnFn
}

// Alloc returns a heap-origin Buffer with at least size bytes of capacity,
// drawing from the free-list when possible.
func (p *Pool) Alloc(size int) *Buffer {
	p.mu.Lock()
	if size < p.bufSize {
		size = p.bufSize
	}
	var raw []byte
	for i, f := range p.free {
		if cap(f) >= size {
			raw = f[:size]
			p.free = append(p.free[:i], p.free[i+1:]...)
			break
		}
	}
	p.outstanding++
	if p.outstanding > p.softCap {
		p.log.Warn("rouge/stream: pool soft cap exceeded",
			"pool", p.name, "outstanding", p.outstanding, "soft_cap", p.softCap)
	}
	p.mu.Unlock()

	if raw == nil {
		raw = make([]byte, size)
	}
	return newHeapBuffer(raw, p)
}

// NewDMABuffer wraps a driver-mapped page as a Buffer whose release path
// returns the index to the driver (via the callback set with BindDMA)
// rather than freeing heap memory.
func (p *Pool) NewDMABuffer(raw []byte, index uint32, zeroCopy bool) *Buffer {
	return newDMABuffer(raw, index, zeroCopy, p)
}

func (p *Pool) releaseHeap(raw []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outstanding--
	p.free = append(p.free, raw[:0])
}

func (p *Pool) releaseDMA(index uint32) error {
	p.mu.Lock()
	fn := p.dmaReturn
	p.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(index)
}

// Stats returns a point-in-time snapshot of the pool's bookkeeping.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Name:         p.name,
		SoftCap:      p.softCap,
		Outstanding:  p.outstanding,
		FreeListLen:  len(p.free),
		DMAPageCount: p.dmaPageCount,
		DMAPageSize:  p.dmaPageSize,
	}
}
