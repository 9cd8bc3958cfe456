package xact

import (
	"sync"
	"time"

	"github.com/slaclab/rouge/rougeerr"
)

// Master initiates Transactions against a single attached Slave, tracking
// the pending set and blocking waiters on completion with a configured
// timeout.
type Master struct {
	slave   Slave
	timeout time.Duration

	mu      sync.Mutex
	pending map[uint32]*Transaction
}

// NewMaster attaches a Master to slave with the given per-wait timeout.
func NewMaster(slave Slave, timeout time.Duration) *Master {
	return &Master{
		slave:   slave,
		timeout: timeout,
		pending: make(map[uint32]*Transaction),
	}
}

// ReqTransaction validates size against the Slave's capability, allocates
// a globally unique id, registers the Transaction in the pending map, and
// dispatches it to the Slave. It returns the new id immediately; the
// caller uses WaitTransaction to block for completion.
func (m *Master) ReqTransaction(addr uint64, size int, data []byte, typ Type) (uint32, error) {
	if size < m.slave.MinAccess() || size > m.slave.MaxAccess() {
		return 0, rougeerr.NewSizeRange(uint(size), uint(m.slave.MinAccess()), uint(m.slave.MaxAccess()))
	}

	id := nextID()
	t := newTransaction(id, addr, size, typ, data)

	m.mu.Lock()
	m.pending[id] = t
	m.mu.Unlock()

	m.slave.DoTransaction(t)
	return id, nil
}

// WaitTransaction blocks until the Transaction identified by id completes
// or the Master's timeout elapses, in which case the Transaction is
// forcibly completed with a Timeout error. id == 0 waits for every
// currently pending Transaction, returning the first error encountered
// (after waiting out every one of them, so a single bad transaction never
// short-circuits awaiting the rest).
func (m *Master) WaitTransaction(id uint32) error {
	if id == 0 {
		m.mu.Lock()
		all := make([]*Transaction, 0, len(m.pending))
		for _, t := range m.pending {
			all = append(all, t)
		}
		m.mu.Unlock()

		var first error
		for _, t := range all {
			if err := m.waitOne(t); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	m.mu.Lock()
	t, ok := m.pending[id]
	m.mu.Unlock()
	if !ok {
		return rougeerr.NewProtocolError("waitTransaction: unknown id", nil)
	}
	return m.waitOne(t)
}

func (m *Master) waitOne(t *Transaction) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-time.After(m.timeout):
		t.Complete(rougeerr.NewTimeout(m.timeout))
		return t.Error()
	}
}

// EndTransaction releases the Master's reference to id, removing it from
// the pending map. Any borrowed payload region the caller handed to
// ReqTransaction is the caller's to reclaim after this call.
func (m *Master) EndTransaction(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
}

// Stats is a point-in-time snapshot of a Master's pending-transaction
// bookkeeping, used for diagnostics.
type Stats struct {
	Pending int
}

// Stats returns a snapshot of the Master's current pending-transaction
// count.
func (m *Master) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Pending: len(m.pending)}
}

// Close forcibly completes every pending Transaction with Canceled. The
// records stay in the pending map, so a later WaitTransaction on one of
// them reports Canceled; EndTransaction removes them.
func (m *Master) Close() {
	m.mu.Lock()
	all := make([]*Transaction, 0, len(m.pending))
	for _, t := range m.pending {
		all = append(all, t)
	}
	m.mu.Unlock()

	for _, t := range all {
		t.Complete(rougeerr.NewCanceled(nil))
	}
}
