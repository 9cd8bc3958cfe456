package dma

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/slaclab/rouge/rougeerr"
	"github.com/slaclab/rouge/stream"
)

// pollDeadline is the readiness-poll deadline used by the reader task, so
// that a shutdown request is noticed within one poll interval.
const pollDeadline = 100 * time.Microsecond

// Option configures an Endpoint at construction time.
type Option func(*Endpoint)

// WithLogger overrides the Endpoint's logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Endpoint) { e.log = l }
}

// WithWriteTimeout overrides the timeout budget for a non-zero-copy
// transmit. Per the specification's design notes, this budget is
// accumulated across retries of a single transfer, never reset per
// retry, to avoid livelock under persistent back-pressure.
func WithWriteTimeout(d time.Duration) Option {
	return func(e *Endpoint) { e.writeTimeout = d }
}

// WithHeapPool overrides the Pool used for non-zero-copy / fallback
// allocation. By default the Endpoint creates its own.
func WithHeapPool(p *stream.Pool) Option {
	return func(e *Endpoint) { e.heapPool = p }
}

// WithFreeIndexTimeout overrides the timeout budget AcceptReq waits for a
// free zero-copy page index before raising a Timeout error.
func WithFreeIndexTimeout(d time.Duration) Option {
	return func(e *Endpoint) { e.freeIndexTimeout = d }
}

// Endpoint is a combined stream.Master and stream.Slave bound to a PCIe DMA
// character device. It implements stream.Slave directly (AcceptFrame
// transmits, AcceptReq allocates) and embeds stream.BaseMaster to deliver
// received Frames downstream.
type Endpoint struct {
	stream.BaseMaster

	dev  Device
	log  *slog.Logger
	path string
	mask LaneMask

	heapPool *stream.Pool

	// mu serializes kernel submit/return operations and the zero-copy
	// free-index pool, per the specification's concurrency model. The
	// reader task does not take mu for its ReadIndex/PollReady calls —
	// only for ReturnIndex, so it can run concurrently with writers.
	mu sync.Mutex

	writeTimeout     time.Duration
	freeIndexTimeout time.Duration
	pageSize         int
	pages            [][]byte

	stopCtx    context.Context
	stopCancel context.CancelFunc
	wg         sync.WaitGroup

	// in-progress receive frame state, owned by the reader task alone.
	rxFrame    *stream.Frame
	rxZeroCopy bool
}

// Open binds a new Endpoint to dev (identified by path for diagnostics and
// OpenError reporting), applies mask, and maps its DMA pages.
func Open(path string, dev Device, mask LaneMask, pageCount int, opts ...Option) (*Endpoint, error) {
	e := &Endpoint{
		dev:              dev,
		path:             path,
		log:              slog.Default(),
		writeTimeout:     50 * time.Millisecond,
		freeIndexTimeout: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := dev.SetMask(mask); err != nil {
		return nil, rougeerr.NewOpenError(path, uint64(mask), err)
	}
	e.mask = mask

	e.pageSize = dev.PageSize()
	pages, err := dev.MapPages(pageCount, e.pageSize)
	if err != nil {
		return nil, rougeerr.NewOpenError(path, uint64(mask), err)
	}
	e.pages = pages

	if e.heapPool == nil {
		e.heapPool = stream.NewPool(path, pageCount, e.pageSize)
	}
	e.heapPool.BindDMA(len(pages), e.pageSize, e.returnIndex)

	e.stopCtx, e.stopCancel = context.WithCancel(context.Background())
	return e, nil
}

// Path returns the device path this Endpoint is bound to.
func (e *Endpoint) Path() string { return e.path }

// Pool returns the Endpoint's backing Pool.
func (e *Endpoint) Pool() *stream.Pool { return e.heapPool }

// pageFor returns the mapped page backing index, or nil if the device has
// no page mapping (copy mode) or index is out of range.
func (e *Endpoint) pageFor(index uint32) []byte {
	if int(index) >= len(e.pages) {
		return nil
	}
	return e.pages[index]
}

func (e *Endpoint) returnIndex(index uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dev.ReturnIndex(index)
}

// Start launches the reader task. It is safe to call once per Endpoint.
func (e *Endpoint) Start() {
	e.wg.Add(1)
	go e.readerLoop()
}

// Close stops the reader task and joins it before returning, per the
// specification's cancellation contract.
func (e *Endpoint) Close() error {
	e.stopCancel()
	e.wg.Wait()
	return nil
}

func (e *Endpoint) readerLoop() {
	defer e.wg.Done()

	e.rxFrame = stream.NewFrame(0)
	e.rxZeroCopy = true

	for {
		select {
		case <-e.stopCtx.Done():
			return
		default:
		}

		pollCtx, cancel := context.WithTimeout(e.stopCtx, pollDeadline)
		ready, err := e.dev.PollReady(pollCtx)
		cancel()
		if err != nil {
			e.log.Error("rouge/dma: poll failed", "path", e.path, "error", err)
			continue
		}
		if !ready {
			continue
		}

		res, err := e.dev.ReadIndex()
		if err != nil {
			e.log.Error("rouge/dma: read index failed", "path", e.path, "error", err)
			continue
		}
		if !res.Ready {
			continue
		}

		var buf *stream.Buffer
		page := e.pageFor(res.Index)
		switch {
		case page != nil && res.Data == nil:
			buf = e.heapPool.NewDMABuffer(page, res.Index, true)
			if res.Size > 0 {
				_ = buf.SetSize(res.Size)
			}
		default:
			buf = e.heapPool.Alloc(len(res.Data))
			_ = buf.SetSize(len(res.Data))
			copy(buf.Data(), res.Data)
		}
		buf.SetError(res.ErrorBits)

		e.rxFrame.SetChannel(res.Vc)
		e.rxFrame.AppendBuffer(buf)
		if !res.Continue {
			frame := e.rxFrame
			if err := e.SendFrame(frame); err != nil {
				e.log.Error("rouge/dma: sendFrame failed", "path", e.path, "error", err)
			}
			e.rxFrame = stream.NewFrame(0)
			e.rxZeroCopy = true
		}
	}
}

// AcceptFrame implements stream.Slave: it is the transmit path. Buffers
// are submitted in order, with the continue flag clear only on the last
// one. Zero-copy Buffers use write-index; others fall back to a
// bounded-timeout copy-write.
func (e *Endpoint) AcceptFrame(f *stream.Frame) error {
	defer f.Release()

	buffers := f.Buffers()
	deadline := time.Now().Add(e.writeTimeout)
	vc := f.Channel()
	lane, _ := e.mask.LaneFor(vc)

	for i, b := range buffers {
		cont := i != len(buffers)-1
		meta := b.Meta()

		if meta.Origin == stream.OriginDMA && meta.ZeroCopy {
			e.mu.Lock()
			err := e.dev.WriteIndex(meta.Index, b.Size(), lane, vc, cont)
			e.mu.Unlock()
			if err != nil {
				return rougeerr.NewAxisError(0)
			}
			b.MarkStale()
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return rougeerr.NewTimeout(e.writeTimeout)
		}
		ctx, cancel := context.WithTimeout(context.Background(), remaining)
		err := e.dev.WriteCopy(ctx, b.Data(), lane, vc, cont)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return rougeerr.NewTimeout(e.writeTimeout)
			}
			return rougeerr.NewAxisError(0)
		}
	}
	return nil
}

// AcceptReq implements stream.Slave: it is the allocation path. It prefers
// zero-copy, acquiring page indices from the driver's free pool under the
// Endpoint's mutex until the requested size is covered; a poll timeout
// surfaces as a Timeout error. When zero-copy is not permitted or the
// device never mapped pages, it falls back to heap allocation sized to at
// least one mapped page.
func (e *Endpoint) AcceptReq(size int, zeroCopyOk bool) (*stream.Frame, error) {
	if !zeroCopyOk || len(e.pages) == 0 {
		f := stream.NewFrame(0)
		want := size
		if want < e.pageSize {
			want = e.pageSize
		}
		f.AppendBuffer(e.heapPool.Alloc(want))
		return f, nil
	}

	f := stream.NewFrame(0)
	covered := 0
	for covered < size {
		ctx, cancel := context.WithTimeout(context.Background(), e.freeIndexTimeout)
		e.mu.Lock()
		index, ready, err := e.dev.FreeIndex(ctx)
		e.mu.Unlock()
		cancel()
		if err != nil {
			f.Release()
			return nil, rougeerr.NewAxisError(0)
		}
		if !ready {
			f.Release()
			return nil, rougeerr.NewTimeout(e.freeIndexTimeout)
		}
		page := e.pageFor(index)
		if page == nil {
			page = make([]byte, e.pageSize)
		}
		buf := e.heapPool.NewDMABuffer(page, index, true)
		_ = buf.SetSize(e.pageSize)
		f.AppendBuffer(buf)
		covered += e.pageSize
	}
	return f, nil
}

// RetBuffer releases b back through the Endpoint's pool.
func (e *Endpoint) RetBuffer(b *stream.Buffer) error { return b.Release() }
