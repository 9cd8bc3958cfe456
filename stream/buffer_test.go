package stream

import "testing"

func TestBufferSizeAndHeadTailRoom(t *testing.T) {
	p := NewPool("test", 8, 64)
	b := p.Alloc(64)
	defer b.Release()

	if b.Capacity() != 64 {
		t.Fatalf("capacity = %d, want 64", b.Capacity())
	}

	if err := b.SetHeadRoom(4); err != nil {
		t.Fatalf("SetHeadRoom: %v", err)
	}
	if err := b.SetSize(32); err != nil {
		t.Fatalf("SetSize: %v", err)
	}

	if got := b.HeadRoom(); got != 4 {
		t.Errorf("HeadRoom() = %d, want 4", got)
	}
	if got := b.TailRoom(); got != 64-4-32 {
		t.Errorf("TailRoom() = %d, want %d", got, 64-4-32)
	}
	if got := len(b.Data()); got != 32 {
		t.Errorf("len(Data()) = %d, want 32", got)
	}
}

func TestBufferSetSizeOverflowIsError(t *testing.T) {
	p := NewPool("test", 8, 16)
	b := p.Alloc(16)
	defer b.Release()

	if err := b.SetSize(17); err == nil {
		t.Fatal("expected error setting size beyond capacity")
	}
}

func TestBufferStaleDMASkipsDriverReturn(t *testing.T) {
	var returned []uint32
	pool := NewPool("dma", 8, 4096)
	pool.BindDMA(4, 4096, func(index uint32) error {
		returned = append(returned, index)
		return nil
	})

	b := pool.NewDMABuffer(make([]byte, 4096), 3, true)
	b.MarkStale()

	if err := b.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(returned) != 0 {
		t.Fatalf("stale DMA buffer invoked driver return op: %v", returned)
	}
}

func TestBufferLiveDMAReturnsIndexOnRelease(t *testing.T) {
	var returned []uint32
	pool := NewPool("dma", 8, 4096)
	pool.BindDMA(4, 4096, func(index uint32) error {
		returned = append(returned, index)
		return nil
	})

	b := pool.NewDMABuffer(make([]byte, 4096), 7, true)
	if err := b.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(returned) != 1 || returned[0] != 7 {
		t.Fatalf("returned = %v, want [7]", returned)
	}
}
