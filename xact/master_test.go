package xact

import (
	"testing"
	"time"

	"github.com/slaclab/rouge/rougeerr"
	"github.com/stretchr/testify/require"
)

// echoSlave completes every transaction immediately with success.
type echoSlave struct {
	*DefaultSlave
}

func newEchoSlave() *echoSlave {
	return &echoSlave{DefaultSlave: NewDefaultSlave(0x1000, 1, 256)}
}

func (s *echoSlave) DoTransaction(t *Transaction) {
	t.Complete(nil)
}

// neverSlave accepts but never completes transactions, to exercise the
// Master's timeout path.
type neverSlave struct {
	*DefaultSlave
}

func newNeverSlave() *neverSlave {
	return &neverSlave{DefaultSlave: NewDefaultSlave(0x2000, 1, 256)}
}

func (s *neverSlave) DoTransaction(t *Transaction) {
	s.AddTransaction(t)
}

func TestReqTransactionRejectsOutOfRangeSize(t *testing.T) {
	m := NewMaster(newEchoSlave(), time.Second)
	_, err := m.ReqTransaction(0x100, 1024, make([]byte, 1024), Write)
	require.Error(t, err)
	require.Equal(t, rougeerr.SizeRange, rougeerr.KindOf(err))
}

func TestReqTransactionAssignsMonotonicNonZeroIDs(t *testing.T) {
	m := NewMaster(newEchoSlave(), time.Second)
	id1, err := m.ReqTransaction(0x100, 4, []byte{0, 0, 0, 0}, Write)
	require.NoError(t, err)
	id2, err := m.ReqTransaction(0x104, 4, []byte{0, 0, 0, 0}, Write)
	require.NoError(t, err)
	require.NotZero(t, id1)
	require.NotZero(t, id2)
	require.NotEqual(t, id1, id2)
}

func TestWaitTransactionSucceedsOnEcho(t *testing.T) {
	m := NewMaster(newEchoSlave(), time.Second)
	id, err := m.ReqTransaction(0x100, 4, []byte{1, 2, 3, 4}, Write)
	require.NoError(t, err)
	require.NoError(t, m.WaitTransaction(id))
}

func TestWaitTransactionTimesOutWhenSlaveNeverCompletes(t *testing.T) {
	m := NewMaster(newNeverSlave(), 10*time.Millisecond)
	id, err := m.ReqTransaction(0x100, 4, []byte{0, 0, 0, 0}, Write)
	require.NoError(t, err)

	start := time.Now()
	err = m.WaitTransaction(id)
	elapsed := time.Since(start)

	require.Error(t, err)
	require.Equal(t, rougeerr.Timeout, rougeerr.KindOf(err))
	require.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
}

func TestWaitTransactionZeroWaitsForAllPending(t *testing.T) {
	m := NewMaster(newEchoSlave(), time.Second)
	_, err := m.ReqTransaction(0x100, 4, []byte{0, 0, 0, 0}, Write)
	require.NoError(t, err)
	_, err = m.ReqTransaction(0x104, 4, []byte{0, 0, 0, 0}, Write)
	require.NoError(t, err)

	require.NoError(t, m.WaitTransaction(0))
}

func TestCloseForciblyCompletesPendingWithCanceled(t *testing.T) {
	m := NewMaster(newNeverSlave(), time.Second)
	id, err := m.ReqTransaction(0x100, 4, []byte{0, 0, 0, 0}, Write)
	require.NoError(t, err)

	m.Close()

	err = m.WaitTransaction(id)
	require.Error(t, err)
	require.Equal(t, rougeerr.Canceled, rougeerr.KindOf(err))
}

func TestDefaultSlaveRejectsWithUnsupported(t *testing.T) {
	m := NewMaster(NewDefaultSlave(0x3000, 1, 256), time.Second)
	id, err := m.ReqTransaction(0x100, 4, []byte{0, 0, 0, 0}, Read)
	require.NoError(t, err)

	err = m.WaitTransaction(id)
	require.Error(t, err)
	require.Equal(t, rougeerr.Unsupported, rougeerr.KindOf(err))
}

func TestCompleteIsAtMostOnce(t *testing.T) {
	tr := newTransaction(1, 0x100, 4, Write, nil)
	tr.Complete(rougeerr.NewTimeout(time.Second))
	tr.Complete(nil) // must be ignored
	require.Equal(t, rougeerr.Timeout, rougeerr.KindOf(tr.Error()))
}
