package stream

import (
	"bytes"
	"testing"
)

func TestFrameAppendBufferDowngradesZeroCopy(t *testing.T) {
	heapPool := NewPool("heap", 8, 16)
	dmaPool := NewPool("dma", 8, 16)
	dmaPool.BindDMA(4, 16, func(uint32) error { return nil })

	f := NewFrame(2)
	if !f.IsZeroCopy() {
		t.Fatal("empty frame should start zero-copy")
	}

	dmaBuf := dmaPool.NewDMABuffer(make([]byte, 16), 1, true)
	dmaBuf.SetSize(16)
	f.AppendBuffer(dmaBuf)
	if !f.IsZeroCopy() {
		t.Fatal("frame with only zero-copy buffers should stay zero-copy")
	}

	heapBuf := heapPool.Alloc(16)
	heapBuf.SetSize(16)
	f.AppendBuffer(heapBuf)
	if f.IsZeroCopy() {
		t.Fatal("appending a heap buffer should downgrade zero-copy")
	}
}

func TestFrameGetPayloadSumsBufferSizes(t *testing.T) {
	pool := NewPool("heap", 8, 16)
	f := NewFrame(0)

	b1 := pool.Alloc(16)
	b1.SetSize(4)
	b2 := pool.Alloc(16)
	b2.SetSize(6)
	f.AppendBuffer(b1)
	f.AppendBuffer(b2)

	if got := f.GetPayload(); got != 10 {
		t.Fatalf("GetPayload() = %d, want 10", got)
	}
	if f.IsEmpty() {
		t.Fatal("frame with payload reported empty")
	}
}

func TestFrameErrorAggregatesBufferErrors(t *testing.T) {
	pool := NewPool("heap", 8, 16)
	f := NewFrame(0)

	b1 := pool.Alloc(16)
	b1.SetError(0x1)
	b2 := pool.Alloc(16)
	b2.SetError(0x2)
	f.AppendBuffer(b1)
	f.AppendBuffer(b2)

	if got := f.Error(); got != 0x3 {
		t.Fatalf("Error() = 0x%x, want 0x3", got)
	}

	f.SetError(0x4)
	if got := f.Error(); got != 0x7 {
		t.Fatalf("Error() after SetError = 0x%x, want 0x7", got)
	}
}

func TestFrameReaderReadsForwardAcrossBuffers(t *testing.T) {
	pool := NewPool("heap", 8, 4)
	f := NewFrame(0)

	b1 := pool.Alloc(4)
	copy(b1.Data()[:0], []byte{})
	b1.SetSize(4)
	copy(b1.Data(), []byte{0x01, 0x02, 0x03, 0x04})

	b2 := pool.Alloc(4)
	b2.SetSize(2)
	copy(b2.Data(), []byte{0x05, 0x06})

	f.AppendBuffer(b1)
	f.AppendBuffer(b2)

	r := f.NewReader()
	got := make([]byte, 6)
	n, err := r.Read(got)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 6 {
		t.Fatalf("n = %d, want 6", n)
	}
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}
}

func TestFrameWriterFillsBuffersInOrder(t *testing.T) {
	pool := NewPool("heap", 8, 4)
	f := NewFrame(0)

	b1 := pool.Alloc(4)
	b2 := pool.Alloc(4)
	f.AppendBuffer(b1)
	f.AppendBuffer(b2)

	w := f.NewWriter()
	n, err := w.Write([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 6 {
		t.Fatalf("n = %d, want 6", n)
	}
	if !bytes.Equal(b1.Data(), []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Fatalf("b1 = %x, want 01 02 03 04", b1.Data())
	}
	if !bytes.Equal(b2.Data(), []byte{0x05, 0x06}) {
		t.Fatalf("b2 = %x, want 05 06", b2.Data())
	}
	if got := f.GetPayload(); got != 6 {
		t.Fatalf("GetPayload() = %d, want 6", got)
	}
}

func TestFrameWriterOverflowSetsFrameErrorBit(t *testing.T) {
	pool := NewPool("heap", 8, 4)
	f := NewFrame(0)

	b1 := pool.Alloc(4)
	f.AppendBuffer(b1)

	w := f.NewWriter()
	n, err := w.Write([]byte{0x01, 0x02, 0x03, 0x04, 0x05})
	if err == nil {
		t.Fatal("expected overflow error, got nil")
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4 (fits within reserved capacity)", n)
	}
	if f.Error()&ErrOverflow == 0 {
		t.Fatalf("Error() = 0x%x, want overflow bit set", f.Error())
	}
	if !bytes.Equal(b1.Data(), []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Fatalf("b1 = %x, want 01 02 03 04 (bytes that fit should still land)", b1.Data())
	}
}

func TestFrameReaderSeek(t *testing.T) {
	pool := NewPool("heap", 8, 4)
	f := NewFrame(0)

	b1 := pool.Alloc(4)
	b1.SetSize(4)
	copy(b1.Data(), []byte{0x01, 0x02, 0x03, 0x04})
	b2 := pool.Alloc(4)
	b2.SetSize(4)
	copy(b2.Data(), []byte{0x05, 0x06, 0x07, 0x08})
	f.AppendBuffer(b1)
	f.AppendBuffer(b2)

	r := f.NewReader()
	if err := r.Seek(5); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	got := make([]byte, 2)
	if _, err := r.Read(got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, []byte{0x06, 0x07}) {
		t.Fatalf("got %x, want 06 07", got)
	}
}
