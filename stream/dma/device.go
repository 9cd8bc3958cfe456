package dma

import "context"

// LaneMask is a bit-vector over 8 lanes x 4 virtual channels (32 bits:
// bit i*4+v selects lane i, virtual channel v).
type LaneMask uint32

// Set reports lane/vc as selected in the mask.
func (m LaneMask) Set(lane, vc uint8) LaneMask {
	return m | (1 << (uint(lane)*4 + uint(vc)))
}

// Has reports whether lane/vc is selected.
func (m LaneMask) Has(lane, vc uint8) bool {
	return m&(1<<(uint(lane)*4+uint(vc))) != 0
}

// LaneFor scans the mask for the lowest lane configured to receive vc,
// letting a transmit path recover the lane a Frame's channel (carrying only
// the virtual channel number) belongs to. ok is false when no lane in the
// mask is configured for vc.
func (m LaneMask) LaneFor(vc uint8) (lane uint8, ok bool) {
	for lane := uint8(0); lane < 8; lane++ {
		if m.Has(lane, vc) {
			return lane, true
		}
	}
	return 0, false
}

// ReadResult is the out-params of a single ReadIndex call.
type ReadResult struct {
	// Index is the driver page index holding the received payload.
	// Zero and Ready=false means nothing was available.
	Index uint32
	// Size is the payload size in bytes within the page.
	Size int
	// Lane and Vc identify which (lane, virtual channel) pair this page
	// arrived on, so the endpoint can stamp the delivered Frame's
	// channel accordingly.
	Lane uint8
	Vc   uint8
	// ErrorBits are kernel/hardware-reported error bits for this page.
	ErrorBits uint32
	// Continue is set when this page is not the final page of the
	// current logical frame.
	Continue bool
	// Ready is false when ReadIndex was called with nothing pending.
	Ready bool
	// Data carries the payload directly when the device has no mapped
	// pages (copy mode); nil when Index identifies a mapped page.
	Data []byte
}

// Device abstracts the kernel character-device contract consumed by the
// DMA endpoint. A concrete implementation wraps the real ioctl/mmap
// surface of a driver such as Xilinx's XDMA; tests use an in-memory fake.
type Device interface {
	// SetMask restricts reception to the given (lane, vc) pairs.
	SetMask(mask LaneMask) error

	// MapPages maps n pages of size bytes into user space for
	// zero-copy use, returning one []byte slice per page. A nil slice
	// (with nil error) means the driver does not support mapping; the
	// endpoint then operates entirely in copy mode.
	MapPages(n, size int) ([][]byte, error)

	// PollReady blocks until a page is available to read or ctx's
	// deadline elapses, returning (true, nil) in the former case and
	// (false, nil) in the latter. It must never block past ctx's
	// deadline, since the endpoint uses a short deadline to keep
	// shutdown responsive.
	PollReady(ctx context.Context) (bool, error)

	// ReadIndex retrieves the next available page. Ready is false when
	// nothing is pending (the caller is expected to have already
	// called PollReady, but ReadIndex is safe to call speculatively).
	ReadIndex() (ReadResult, error)

	// ReturnIndex re-arms page index for reception.
	ReturnIndex(index uint32) error

	// FreeIndex acquires one page index from the driver's free-receive
	// pool for outbound zero-copy use, blocking until ctx's deadline.
	// Ready is false on timeout.
	FreeIndex(ctx context.Context) (index uint32, ready bool, err error)

	// WriteIndex submits a previously-mapped page, identified by
	// index, downstream.
	WriteIndex(index uint32, size int, lane, vc uint8, cont bool) error

	// WriteCopy submits payload downstream by copying it into a driver
	// bounce buffer, for Buffers that are not DMA-origin. It must
	// respect ctx's deadline.
	WriteCopy(ctx context.Context, payload []byte, lane, vc uint8, cont bool) error

	// PageSize is the size in bytes of one mapped page.
	PageSize() int
}
