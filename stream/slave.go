package stream

// Slave is the stream-core sink contract. A Slave must be safe against
// being called concurrently from multiple Master threads: it either is
// lock-free or serializes internally.
type Slave interface {
	// AcceptFrame is the sink: a Master hands ownership of f to the
	// Slave. Any threading beyond the call itself is the Slave's
	// business.
	AcceptFrame(f *Frame) error

	// AcceptReq allocates a Frame with at least size bytes of capacity
	// on request from a Master's ReqFrame. The Slave may return a
	// Frame with more or less capacity than requested.
	AcceptReq(size int, zeroCopyOk bool) (*Frame, error)

	// RetBuffer returns a single Buffer to the Slave's pool outside of
	// a full Frame release (used when a Master discards part of a
	// Frame it allocated but never sent).
	RetBuffer(b *Buffer) error

	// Pool returns the Slave's default backing Pool, or nil if it has
	// none (e.g. a pure protocol-translation Slave with no storage of
	// its own).
	Pool() *Pool
}

// DefaultSlave is the embeddable base a concrete Slave implementation
// builds on, the Go analogue of the specification's "small capability
// interface... Default behaviour lives in a provided DefaultSlave
// implementation that new Slaves may delegate to." It allocates purely
// from a Pool and accepts/drops frames without forwarding them anywhere;
// embedders override AcceptFrame to do something useful with the Frame
// while keeping DefaultSlave's AcceptReq/RetBuffer/Pool.
type DefaultSlave struct {
	pool *Pool
}

// NewDefaultSlave builds a DefaultSlave backed by pool.
func NewDefaultSlave(pool *Pool) *DefaultSlave {
	return &DefaultSlave{pool: pool}
}

// AcceptFrame on DefaultSlave releases the Frame's Buffers and discards it.
// Embedders that want to do more override this method.
func (s *DefaultSlave) AcceptFrame(f *Frame) error {
	return f.Release()
}

// AcceptReq allocates a single heap Buffer of at least size bytes from the
// backing Pool and wraps it in a one-Buffer Frame. zeroCopyOk is ignored:
// DefaultSlave has no DMA pool to draw from.
func (s *DefaultSlave) AcceptReq(size int, zeroCopyOk bool) (*Frame, error) {
	f := NewFrame(0)
	f.AppendBuffer(s.pool.Alloc(size))
	return f, nil
}

// RetBuffer releases b back to the Pool.
func (s *DefaultSlave) RetBuffer(b *Buffer) error { return b.Release() }

// Pool returns the backing Pool.
func (s *DefaultSlave) Pool() *Pool { return s.pool }
