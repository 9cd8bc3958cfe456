package stream

// Filter is a combined Master+Slave that passes Frames through to its
// attached Slave unchanged, except that it drops Frames not addressed to
// its configured channel and, if dropErrors is set, Frames carrying a
// non-zero error code. It exists because some Masters — a file reader
// replaying a multi-channel capture, or a Batcher-style frame splitter —
// hand every channel to every downstream Slave, and a Slave that only
// wants one channel needs something upstream of it to do the selection.
type Filter struct {
	BaseMaster

	dropErrors bool
	channel    uint8
}

// NewFilter builds a Filter that passes only Frames on channel, dropping
// the rest. If dropErrors is true, Frames with a non-zero error code are
// also dropped regardless of channel.
func NewFilter(dropErrors bool, channel uint8) *Filter {
	return &Filter{dropErrors: dropErrors, channel: channel}
}

// AcceptFrame drops f if it fails the channel or error check, releasing
// its Buffers; otherwise it forwards f to the Filter's attached Slave
// unchanged.
func (flt *Filter) AcceptFrame(f *Frame) error {
	if f.Channel() != flt.channel {
		return f.Release()
	}
	if flt.dropErrors && f.Error() != 0 {
		return f.Release()
	}
	return flt.SendFrame(f)
}

// AcceptReq forwards the allocation request to the Filter's attached
// Slave: a Filter has no storage of its own.
func (flt *Filter) AcceptReq(size int, zeroCopyOk bool) (*Frame, error) {
	return flt.Slave().AcceptReq(size, zeroCopyOk)
}

// RetBuffer forwards the return to the Filter's attached Slave.
func (flt *Filter) RetBuffer(b *Buffer) error {
	return flt.Slave().RetBuffer(b)
}

// Pool returns the attached Slave's Pool, or nil if none is attached.
func (flt *Filter) Pool() *Pool {
	if flt.Slave() == nil {
		return nil
	}
	return flt.Slave().Pool()
}
