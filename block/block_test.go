package block

import (
	"sync"
	"testing"
	"time"

	"github.com/slaclab/rouge/xact"
	"github.com/stretchr/testify/require"
)

// memSlave is an in-memory register file that honours xact.Transaction
// reads and writes against a byte-addressable backing array, recording
// every transaction it services for assertions.
type memSlave struct {
	*xact.DefaultSlave
	mu    sync.Mutex
	mem   []byte
	seen  []xact.Type
	addrs []uint64
	sizes []int

	// corruptWrites simulates hardware that silently stores a different
	// value than what was written, to exercise verify-mismatch.
	corruptWrites bool
	corruptByte   byte
}

func newMemSlave(size int) *memSlave {
	return &memSlave{
		DefaultSlave: xact.NewDefaultSlave(0, 1, 256),
		mem:          make([]byte, size),
	}
}

func (s *memSlave) DoTransaction(t *xact.Transaction) {
	s.mu.Lock()
	s.seen = append(s.seen, t.Type())
	s.addrs = append(s.addrs, t.Address())
	s.sizes = append(s.sizes, t.Size())
	addr := int(t.Address())
	switch t.Type() {
	case xact.Read:
		copy(t.Data(), s.mem[addr:addr+t.Size()])
	case xact.Write, xact.PostWrite:
		if s.corruptWrites {
			for i := 0; i < t.Size(); i++ {
				s.mem[addr+i] = s.corruptByte
			}
		} else {
			copy(s.mem[addr:addr+t.Size()], t.Data())
		}
	}
	s.mu.Unlock()
	t.Complete(nil)
}

// fakeVariable is a minimal block.Variable for tests that don't need the
// full variable package's bit-packing.
type fakeVariable struct {
	lo, hi  int
	overlap bool
	verify  bool
}

func (v fakeVariable) LowByte() int         { return v.lo }
func (v fakeVariable) HighByte() int        { return v.hi }
func (v fakeVariable) AllowOverlap() bool   { return v.overlap }
func (v fakeVariable) RequiresVerify() bool { return v.verify }
func (v fakeVariable) BitMask() []byte      { return nil }

func TestBlockWriteThenFlushIssuesSingleTransaction(t *testing.T) {
	slave := newMemSlave(64)
	master := xact.NewMaster(slave, time.Second)
	b := NewBlock(master, 0, 4, 256)

	v1 := fakeVariable{lo: 0, hi: 3}
	v2 := fakeVariable{lo: 8, hi: 11}
	require.NoError(t, b.AddVariable(v1))
	require.NoError(t, b.AddVariable(v2))

	require.NoError(t, b.Write(v1, []byte{1, 2, 3, 4}))
	require.NoError(t, b.Write(v2, []byte{5, 6, 7, 8}))
	require.NoError(t, b.Flush())

	require.Len(t, slave.seen, 1)
	require.Equal(t, xact.Write, slave.seen[0])
	require.EqualValues(t, 0, slave.addrs[0])
	require.Equal(t, 12, slave.sizes[0])
}

func TestBlockReadRefreshesStaleShadow(t *testing.T) {
	slave := newMemSlave(16)
	slave.mem[0] = 0xAB
	slave.mem[1] = 0xCD
	master := xact.NewMaster(slave, time.Second)
	b := NewBlock(master, 0, 1, 256)

	v := fakeVariable{lo: 0, hi: 1}
	require.NoError(t, b.AddVariable(v))

	data, err := b.Read(v)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAB, 0xCD}, data)
}

func TestBlockRejectsOverlapWithoutAllowOverlap(t *testing.T) {
	slave := newMemSlave(16)
	master := xact.NewMaster(slave, time.Second)
	b := NewBlock(master, 0, 1, 256)

	require.NoError(t, b.AddVariable(fakeVariable{lo: 0, hi: 3}))
	err := b.AddVariable(fakeVariable{lo: 2, hi: 5})
	require.Error(t, err)
}

func TestBlockAllowsOverlapWhenBothOptIn(t *testing.T) {
	slave := newMemSlave(16)
	master := xact.NewMaster(slave, time.Second)
	b := NewBlock(master, 0, 1, 256)

	require.NoError(t, b.AddVariable(fakeVariable{lo: 0, hi: 3, overlap: true}))
	require.NoError(t, b.AddVariable(fakeVariable{lo: 2, hi: 5, overlap: true}))
}

func TestBlockVerifyMismatchAfterHardwareDiverges(t *testing.T) {
	slave := newMemSlave(16)
	master := xact.NewMaster(slave, time.Second)
	b := NewBlock(master, 0, 1, 256)

	v := fakeVariable{lo: 0, hi: 0, verify: true}
	require.NoError(t, b.AddVariable(v))
	require.NoError(t, b.Write(v, []byte{0x05}))

	// Hardware echoes a different value than what was written.
	slave.mu.Lock()
	slave.corruptWrites = true
	slave.corruptByte = 0x04
	slave.mu.Unlock()

	err := b.Flush()
	require.Error(t, err)
}

func TestBlockCoalescedWriteSplitsAtMaxAccess(t *testing.T) {
	slave := newMemSlave(64)
	master := xact.NewMaster(slave, time.Second)
	b := NewBlock(master, 0, 4, 8) // maxAccess smaller than the dirty span

	v1 := fakeVariable{lo: 0, hi: 3}
	v2 := fakeVariable{lo: 8, hi: 11}
	require.NoError(t, b.AddVariable(v1))
	require.NoError(t, b.AddVariable(v2))

	require.NoError(t, b.Write(v1, []byte{1, 2, 3, 4}))
	require.NoError(t, b.Write(v2, []byte{5, 6, 7, 8}))
	require.NoError(t, b.Flush())

	require.Len(t, slave.seen, 2)
	for _, typ := range slave.seen {
		require.Equal(t, xact.Write, typ)
	}
	require.Equal(t, 12, slave.sizes[0]+slave.sizes[1])
	require.LessOrEqual(t, slave.sizes[0], 8)
	require.LessOrEqual(t, slave.sizes[1], 8)
}
