package stream

import "github.com/slaclab/rouge/rougeerr"

// Origin distinguishes how a Buffer's backing memory was obtained, which in
// turn dictates how it is released.
type Origin int

const (
	// OriginHeap marks a Buffer allocated from a Pool's heap free-list.
	OriginHeap Origin = iota
	// OriginDMA marks a Buffer that maps a kernel driver page.
	OriginDMA
)

// Meta is a Buffer's origin tag: for OriginHeap it names nothing further
// (the Pool owns release); for OriginDMA it carries the driver index plus
// the ZeroCopy and Stale status bits from the specification.
type Meta struct {
	Origin Origin

	// Index is the driver page index. Only meaningful when Origin is
	// OriginDMA.
	Index uint32

	// ZeroCopy is set when the Buffer maps a driver page directly.
	ZeroCopy bool

	// Stale is set once ownership of a DMA page has already been
	// returned to the driver (e.g. after a successful zero-copy write
	// submission). A stale Buffer is read-only and must not be
	// returned to the driver a second time.
	Stale bool
}

// releaser abstracts how a Buffer gives its memory back, so the same
// Buffer type serves both heap-backed and DMA-backed origins without the
// stream package depending on a concrete Pool or device type.
type releaser interface {
	releaseHeap(raw []byte)
	releaseDMA(index uint32) error
}

// Buffer is a single contiguous payload region plus metadata. The logical
// payload occupies raw[head : head+size]; bytes in raw[:head] are
// head-room and bytes in raw[head+size:] are tail-room, both available for
// the owner to grow the payload into without reallocating.
type Buffer struct {
	raw  []byte
	head int
	size int
	err  uint32
	meta Meta
	rel  releaser
}

func newHeapBuffer(raw []byte, pool releaser) *Buffer {
	return &Buffer{raw: raw, meta: Meta{Origin: OriginHeap}, rel: pool}
}

func newDMABuffer(raw []byte, index uint32, zeroCopy bool, pool releaser) *Buffer {
	return &Buffer{
		raw:  raw,
		meta: Meta{Origin: OriginDMA, Index: index, ZeroCopy: zeroCopy},
		rel:  pool,
	}
}

// Capacity is the total number of bytes backing the Buffer, head-room,
// payload, and tail-room combined.
func (b *Buffer) Capacity() int { return len(b.raw) }

// Data returns the current logical payload window. The returned slice
// aliases the Buffer's backing array; callers must not retain it past the
// Buffer's lifetime for DMA-origin buffers, since the driver may reuse the
// page once the Buffer is returned.
func (b *Buffer) Data() []byte { return b.raw[b.head : b.head+b.size] }

// Size is the current logical payload length.
func (b *Buffer) Size() int { return b.size }

// SetSize sets the logical payload length. n must not exceed the capacity
// remaining after head-room; violating that is a programming error.
func (b *Buffer) SetSize(n int) error {
	if n < 0 || b.head+n > len(b.raw) {
		return rougeerr.NewProtocolError("buffer size exceeds reserved capacity", nil)
	}
	b.size = n
	return nil
}

// windowFrom returns the Buffer's full writable region starting at
// head-room, independent of the current logical size — used by Writer to
// fill a Buffer sequentially before calling SetSize to publish how much of
// it is valid payload.
func (b *Buffer) windowFrom() []byte { return b.raw[b.head:] }

// HeadRoom is the number of unused bytes before the payload window.
func (b *Buffer) HeadRoom() int { return b.head }

// TailRoom is the number of unused bytes after the payload window.
func (b *Buffer) TailRoom() int { return len(b.raw) - b.head - b.size }

// SetHeadRoom shifts the start of the payload window, preserving the
// current size. Used to reserve space for a header to be filled in later.
func (b *Buffer) SetHeadRoom(n int) error {
	if n < 0 || n+b.size > len(b.raw) {
		return rougeerr.NewProtocolError("head-room exceeds buffer capacity", nil)
	}
	b.head = n
	return nil
}

// SetTailRoom shrinks or grows the payload window from the tail, keeping
// head-room fixed.
func (b *Buffer) SetTailRoom(n int) error {
	if n < 0 {
		return rougeerr.NewProtocolError("negative tail-room", nil)
	}
	newSize := len(b.raw) - b.head - n
	if newSize < 0 {
		return rougeerr.NewProtocolError("tail-room exceeds buffer capacity", nil)
	}
	b.size = newSize
	return nil
}

// Error returns the buffer's hardware/driver error bits.
func (b *Buffer) Error() uint32 { return b.err }

// SetError sets the buffer's hardware/driver error bits.
func (b *Buffer) SetError(code uint32) { b.err = code }

// Meta returns the Buffer's origin tag.
func (b *Buffer) Meta() Meta { return b.meta }

// MarkStale sets the DMA-stale bit. A no-op on heap-origin buffers.
func (b *Buffer) MarkStale() {
	if b.meta.Origin == OriginDMA {
		b.meta.Stale = true
	}
}

// Release returns the Buffer to its origin: a stale DMA buffer is dropped
// without touching the driver (ownership already moved on); a live DMA
// buffer returns its index to the driver; a heap buffer goes back to the
// Pool free-list. Release is idempotent: the first call detaches the Buffer
// from its origin, and any later call does nothing.
func (b *Buffer) Release() error {
	if b.rel == nil {
		return nil
	}
	rel := b.rel
	b.rel = nil
	switch b.meta.Origin {
	case OriginDMA:
		if b.meta.Stale {
			return nil
		}
		return rel.releaseDMA(b.meta.Index)
	default:
		rel.releaseHeap(b.raw)
		return nil
	}
}
