package dma

import (
	"context"
	"sync"
)

// fakeDevice is an in-memory stand-in for the kernel character device,
// supporting loopback: writes submitted via WriteIndex/WriteCopy are
// echoed back as reads, the way a hardware loopback fixture would.
type fakeDevice struct {
	mu       sync.Mutex
	mask     LaneMask
	pages    [][]byte
	pageSize int

	freeIndexes []uint32
	pending     []ReadResult

	loopback    bool
	loopChannel uint8
}

func newFakeDevice(pageCount, pageSize int) *fakeDevice {
	d := &fakeDevice{pageSize: pageSize}
	d.pages = make([][]byte, pageCount)
	for i := range d.pages {
		d.pages[i] = make([]byte, pageSize)
		d.freeIndexes = append(d.freeIndexes, uint32(i))
	}
	return d
}

func (d *fakeDevice) SetMask(mask LaneMask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mask = mask
	return nil
}

func (d *fakeDevice) MapPages(n, size int) ([][]byte, error) {
	return d.pages, nil
}

func (d *fakeDevice) PollReady(ctx context.Context) (bool, error) {
	d.mu.Lock()
	ready := len(d.pending) > 0
	d.mu.Unlock()
	if ready {
		return true, nil
	}
	<-ctx.Done()
	return false, nil
}

func (d *fakeDevice) ReadIndex() (ReadResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return ReadResult{}, nil
	}
	res := d.pending[0]
	d.pending = d.pending[1:]
	res.Ready = true
	return res, nil
}

func (d *fakeDevice) ReturnIndex(index uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.freeIndexes = append(d.freeIndexes, index)
	return nil
}

func (d *fakeDevice) FreeIndex(ctx context.Context) (uint32, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.freeIndexes) == 0 {
		return 0, false, nil
	}
	idx := d.freeIndexes[0]
	d.freeIndexes = d.freeIndexes[1:]
	return idx, true, nil
}

func (d *fakeDevice) WriteIndex(index uint32, size int, lane, vc uint8, cont bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loopback {
		d.pending = append(d.pending, ReadResult{Index: index, Size: size, Lane: lane, Vc: vc, Continue: cont})
	}
	return nil
}

func (d *fakeDevice) WriteCopy(ctx context.Context, payload []byte, lane, vc uint8, cont bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loopback {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		d.pending = append(d.pending, ReadResult{Data: cp, Size: len(cp), Lane: lane, Vc: vc, Continue: cont})
	}
	return nil
}

func (d *fakeDevice) PageSize() int { return d.pageSize }
