package stream

import "github.com/slaclab/rouge/rougeerr"

// Master is the stream-core source contract. A Master may be connected to
// exactly one Slave at a time; fan-out to more than one Slave goes through
// an explicit splitter Slave, never through the Master itself.
type Master interface {
	// SetSlave connects the Master to its single downstream Slave.
	SetSlave(s Slave)

	// Slave returns the currently connected Slave, or nil.
	Slave() Slave

	// ReqFrame asks the downstream Slave to allocate a Frame of at
	// least size bytes. The Slave may return a Frame with less or more
	// capacity than requested.
	ReqFrame(size int, zeroCopyOk bool) (*Frame, error)

	// SendFrame transmits a Frame by invoking the downstream Slave's
	// AcceptFrame synchronously — sending is a same-thread call; any
	// threading is the Slave's business, not the Master's.
	SendFrame(f *Frame) error
}

// BaseMaster is the embeddable single-Slave plumbing every concrete Master
// (DMA endpoint, TCP bridge, file reader) builds on. It implements Master
// entirely in terms of the attached Slave, so concrete types only need to
// produce Frames to hand to SendFrame.
type BaseMaster struct {
	slave Slave
}

// SetSlave connects m to s.
func (m *BaseMaster) SetSlave(s Slave) { m.slave = s }

// Slave returns the connected Slave.
func (m *BaseMaster) Slave() Slave { return m.slave }

// ReqFrame forwards to the connected Slave's AcceptReq.
func (m *BaseMaster) ReqFrame(size int, zeroCopyOk bool) (*Frame, error) {
	if m.slave == nil {
		return nil, rougeerr.NewProtocolError("reqFrame with no slave connected", nil)
	}
	return m.slave.AcceptReq(size, zeroCopyOk)
}

// SendFrame forwards to the connected Slave's AcceptFrame.
func (m *BaseMaster) SendFrame(f *Frame) error {
	if m.slave == nil {
		return rougeerr.NewProtocolError("sendFrame with no slave connected", nil)
	}
	return m.slave.AcceptFrame(f)
}
