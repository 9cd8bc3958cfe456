package xact

import (
	"sync"

	"github.com/slaclab/rouge/rougeerr"
)

// Slave is the memory-transaction sink contract: it reports its access
// capability and accepts Transactions dispatched by a Master.
type Slave interface {
	// DoTransaction accepts t for processing. The call may complete t
	// inline or defer completion to a background goroutine; either way
	// Complete must be called exactly once.
	DoTransaction(t *Transaction)

	// MinAccess and MaxAccess bound the byte size a single Transaction
	// may request.
	MinAccess() int
	MaxAccess() int

	// Address returns the base address this Slave answers for.
	Address() uint64
}

// DefaultSlave is the embeddable base a concrete Slave builds on: it
// reports capability from construction parameters and rejects every
// Transaction with Unsupported, the Go analogue of the specification's
// "small capability interface" with a provided default implementation.
// Embedders override DoTransaction to do something useful.
type DefaultSlave struct {
	minAccess, maxAccess int
	address               uint64

	mu      sync.Mutex
	tracked map[uint32]*Transaction
}

// NewDefaultSlave builds a DefaultSlave with the given capability bounds.
func NewDefaultSlave(address uint64, minAccess, maxAccess int) *DefaultSlave {
	return &DefaultSlave{
		address:   address,
		minAccess: minAccess,
		maxAccess: maxAccess,
		tracked:   make(map[uint32]*Transaction),
	}
}

// MinAccess returns the smallest transaction size this Slave accepts.
func (s *DefaultSlave) MinAccess() int { return s.minAccess }

// MaxAccess returns the largest transaction size this Slave accepts.
func (s *DefaultSlave) MaxAccess() int { return s.maxAccess }

// Address returns the base address this Slave answers for.
func (s *DefaultSlave) Address() uint64 { return s.address }

// AddTransaction records t so GetTransaction can find it by id, the
// tracking half of the addTransaction/complete contract: a Slave that
// accepts a Transaction must track it until it calls Complete.
func (s *DefaultSlave) AddTransaction(t *Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked[t.ID()] = t
}

// GetTransaction returns the tracked Transaction for id, or nil. Go's
// garbage collector reclaims Transactions once both the Master's pending
// map and a Slave's tracked map drop their reference, so — unlike the
// weak-reference map the specification describes for languages without a
// tracing collector — no eager eviction of dangling entries is needed
// here; RemoveTransaction is the only eviction path.
func (s *DefaultSlave) GetTransaction(id uint32) *Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracked[id]
}

// RemoveTransaction drops id from the tracked set. A Slave calls this
// once it has completed id.
func (s *DefaultSlave) RemoveTransaction(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracked, id)
}

// DoTransaction rejects every Transaction with Unsupported, after
// tracking and untracking it so GetTransaction/RemoveTransaction are
// still exercised by embedders that call the default behaviour directly.
func (s *DefaultSlave) DoTransaction(t *Transaction) {
	s.AddTransaction(t)
	t.Complete(rougeerr.NewUnsupported("default slave accepts no transactions"))
	s.RemoveTransaction(t.ID())
}
