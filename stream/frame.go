package stream

import (
	"github.com/google/uuid"
	"github.com/slaclab/rouge/rougeerr"
)

// Frame is an ordered sequence of Buffers forming one logical message. A
// Frame exclusively owns its Buffers: releasing a Frame releases every
// Buffer it holds.
type Frame struct {
	buffers  []*Buffer
	channel  uint8
	err      uint32
	zeroCopy bool
	// zeroCopySet is not read or written; zeroCopy alone holds the flag,
	// which is true (vacuously) for a Frame with no Buffers.
	zeroCopySet bool

	// TraceID optionally correlates this Frame across log lines and
	// across the Master/Slave boundary, for multi-hop debugging. Empty
	// unless a caller sets it or creates the Frame with NewTracedFrame.
	TraceID string
}

// NewFrame creates an empty Frame on the given channel.
func NewFrame(channel uint8) *Frame {
	return &Frame{channel: channel, zeroCopy: true}
}

// NewTracedFrame creates an empty Frame with a fresh uuid TraceID attached,
// for call sites that want cross-component correlation.
func NewTracedFrame(channel uint8) *Frame {
	f := NewFrame(channel)
	f.TraceID = uuid.NewString()
	return f
}

// AppendBuffer appends b to the Frame, aggregating its error bits and
// updating the zero-copy flag: appending a non-zero-copy Buffer downgrades
// an all-zero-copy Frame rather than erroring, since the Frame's payload
// remains correct.
func (f *Frame) AppendBuffer(b *Buffer) {
	f.buffers = append(f.buffers, b)
	f.err |= b.Error()
	if b.Meta().Origin != OriginDMA || !b.Meta().ZeroCopy {
		f.zeroCopy = false
	}
}

// Buffers returns the Frame's Buffers in order. The returned slice aliases
// the Frame's internal storage; callers must not mutate it.
func (f *Frame) Buffers() []*Buffer { return f.buffers }

// NumBuffers returns the number of Buffers in the Frame.
func (f *Frame) NumBuffers() int { return len(f.buffers) }

// GetPayload returns the sum of the sizes of every Buffer in the Frame.
func (f *Frame) GetPayload() int {
	total := 0
	for _, b := range f.buffers {
		total += b.Size()
	}
	return total
}

// Channel returns the Frame's channel number, 0..255.
func (f *Frame) Channel() uint8 { return f.channel }

// SetChannel sets the Frame's channel number.
func (f *Frame) SetChannel(ch uint8) { f.channel = ch }

// Error returns the Frame's aggregated error bits: the OR of every
// Buffer's error bits plus any reader-side error bits set directly.
func (f *Frame) Error() uint32 { return f.err }

// SetError ORs additional error bits into the Frame's aggregate, used by
// readers to flag protocol-level problems (a short read, a dropped
// reconnect) that are not attributable to any single Buffer.
func (f *Frame) SetError(code uint32) { f.err |= code }

// ErrOverflow is the Frame error bit a Writer sets when a caller attempts
// to write past the payload reserved for the Frame at creation. It is a
// programming error on the writer's part, surfaced on the Frame rather
// than silently truncating the write.
const ErrOverflow uint32 = 0x2

// IsZeroCopy reports whether every Buffer in the Frame is DMA-origin with
// its zero-copy bit set.
func (f *Frame) IsZeroCopy() bool { return f.zeroCopy }

// IsEmpty reports whether the Frame carries no payload.
func (f *Frame) IsEmpty() bool { return f.GetPayload() == 0 }

// Release releases every Buffer the Frame owns. The first error
// encountered is returned, but release continues for the remaining
// Buffers so a single bad release does not leak the rest.
func (f *Frame) Release() error {
	var first error
	for _, b := range f.buffers {
		if err := b.Release(); err != nil && first == nil {
			first = err
		}
	}
	f.buffers = nil
	return first
}

// Reader provides random-access-within-a-buffer, forward-across-buffers
// iteration over a Frame's payload, per the specification's iteration
// model.
type Reader struct {
	f       *Frame
	bufIdx  int
	off     int
}

// NewReader returns a Reader positioned at the start of the Frame.
func (f *Frame) NewReader() *Reader { return &Reader{f: f} }

// Read copies up to len(p) bytes starting at the Reader's current
// position, advancing forward across Buffer boundaries as needed, and
// returns the number of bytes copied. The error is always nil: a read that
// reaches end-of-frame returns n < len(p) (0 once every Buffer has been
// consumed) rather than io.EOF or a ProtocolError.
func (r *Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && r.bufIdx < len(r.f.buffers) {
		buf := r.f.buffers[r.bufIdx].Data()
		if r.off >= len(buf) {
			r.bufIdx++
			r.off = 0
			continue
		}
		copied := copy(p[n:], buf[r.off:])
		n += copied
		r.off += copied
	}
	return n, nil
}

// Seek repositions the Reader to an absolute byte offset within the
// Frame's concatenated payload, supporting the specification's
// random-access-within-a-buffer requirement.
func (r *Reader) Seek(offset int) error {
	if offset < 0 {
		return rougeerr.NewProtocolError("negative seek offset", nil)
	}
	remaining := offset
	for i, b := range r.f.buffers {
		sz := b.Size()
		if remaining <= sz {
			r.bufIdx, r.off = i, remaining
			return nil
		}
		remaining -= sz
	}
	if remaining == 0 {
		r.bufIdx, r.off = len(r.f.buffers), 0
		return nil
	}
	return rougeerr.NewProtocolError("seek offset beyond frame payload", nil)
}

// Writer provides sequential, bounds-checked writing into a Frame's
// Buffers, filling each Buffer's reserved capacity in order and growing
// its reported Size as it goes. A Writer never allocates: the Frame's
// Buffers must already be sized to the payload reqFrame reserved, per the
// specification's "writers must not exceed the payload reserved at frame
// creation" rule.
type Writer struct {
	f       *Frame
	bufIdx  int
	off     int
	started bool
}

// NewWriter returns a Writer positioned at the start of the Frame's first
// Buffer, appending after whatever payload that Buffer already carries.
func (f *Frame) NewWriter() *Writer { return &Writer{f: f} }

// Write copies bytes from p into the Frame's Buffers in order, advancing
// past a Buffer once its reserved capacity is full. If p would overflow
// the Frame's total reserved capacity, Write sets the Frame's overflow
// error bit and returns a ProtocolError along with the number of bytes it
// was able to place before running out of room — this is a programming
// error on the caller's part, surfaced on the Frame rather than silently
// truncated and ignored.
func (w *Writer) Write(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if w.bufIdx >= len(w.f.buffers) {
			w.f.SetError(ErrOverflow)
			return n, rougeerr.NewProtocolError("frame write exceeds reserved payload", nil)
		}
		buf := w.f.buffers[w.bufIdx]
		if !w.started {
			w.off = buf.Size()
			w.started = true
		}

		room := buf.Capacity() - buf.HeadRoom() - w.off
		if room <= 0 {
			w.bufIdx++
			w.started = false
			continue
		}

		chunk := len(p) - n
		if chunk > room {
			chunk = room
		}
		copy(buf.windowFrom()[w.off:w.off+chunk], p[n:n+chunk])
		w.off += chunk
		if err := buf.SetSize(w.off); err != nil {
			return n, err
		}
		n += chunk
	}
	return n, nil
}
