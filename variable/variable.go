package variable

import (
	"math"
	"sync"

	"github.com/slaclab/rouge/block"
	"github.com/slaclab/rouge/rougeerr"
)

// Variable is a typed, bit-packed view onto a block.Block's shadow memory.
// It implements block.Variable so it can be attached directly to one.
type Variable struct {
	name, path string
	mode       Mode
	model      Model

	bitOffset   []int
	bitSize     []int
	totalBits   int
	binPoint    int
	byteReverse bool

	min, max int64 // min < max enables range checking on write

	allowOverlap, requiresVerify, bulk bool

	lowByte, highByte int
	mask              []byte

	mu  sync.Mutex
	blk *block.Block
	err error
}

// New builds a Variable with the given bit layout. bitOffset and bitSize
// must be equal length and non-empty; offsets are byte*8-relative to the
// Block the Variable is eventually attached to.
func New(name, path string, mode Mode, model Model, bitOffset, bitSize []int, opts ...Option) (*Variable, error) {
	if len(bitOffset) == 0 || len(bitOffset) != len(bitSize) {
		return nil, rougeerr.NewProtocolError("bitOffset/bitSize must be equal-length and non-empty", nil)
	}

	total := 0
	lowBit, highBit := bitOffset[0], bitOffset[0]+bitSize[0]-1
	for i := range bitOffset {
		if bitSize[i] <= 0 {
			return nil, rougeerr.NewProtocolError("bitSize entries must be positive", nil)
		}
		total += bitSize[i]
		if bitOffset[i] < lowBit {
			lowBit = bitOffset[i]
		}
		end := bitOffset[i] + bitSize[i] - 1
		if end > highBit {
			highBit = end
		}
	}

	v := &Variable{
		name:      name,
		path:      path,
		mode:      mode,
		model:     model,
		bitOffset: append([]int(nil), bitOffset...),
		bitSize:   append([]int(nil), bitSize...),
		totalBits: total,
		lowByte:   lowBit / 8,
		highByte:  highBit / 8,
	}
	for _, opt := range opts {
		opt(v)
	}

	switch model {
	case Bool:
		if total != 1 {
			return nil, rougeerr.NewProtocolError("bool Variable must have total bit count 1", nil)
		}
	case Float:
		if total != 32 {
			return nil, rougeerr.NewProtocolError("float Variable must have total bit count 32", nil)
		}
	case Double:
		if total != 64 {
			return nil, rougeerr.NewProtocolError("double Variable must have total bit count 64", nil)
		}
	}

	v.mask = bitMaskFor(v.bitOffset, v.bitSize, v.lowByte, v.highByte-v.lowByte+1)
	return v, nil
}

// Option configures a Variable at construction.
type Option func(*Variable)

// WithByteReverse flips the byte order of the packed result, for
// big-endian peripherals.
func WithByteReverse(reverse bool) Option {
	return func(v *Variable) { v.byteReverse = reverse }
}

// WithBinPoint sets the number of implicit fractional bits for Fixed
// Variables.
func WithBinPoint(bits int) Option {
	return func(v *Variable) { v.binPoint = bits }
}

// WithRange enables range checking on write: a decoded value outside
// [min,max] fails with RangeError. Leave min >= max to disable.
func WithRange(min, max int64) Option {
	return func(v *Variable) { v.min, v.max = min, max }
}

// WithAllowOverlap permits this Variable to share bytes with another
// Variable that also allows it.
func WithAllowOverlap(allow bool) Option {
	return func(v *Variable) { v.allowOverlap = allow }
}

// WithVerify requires a read-back compare after every write that touches
// this Variable's bytes.
func WithVerify(verify bool) Option {
	return func(v *Variable) { v.requiresVerify = verify }
}

// WithBulk marks the Variable for inclusion in a bulk read/write sweep (an
// operator dumping or restoring every bulk-flagged Variable at once). The
// flag is advisory: Variable itself does no sweeping, it only records the
// intent for a consumer that does.
func WithBulk(bulk bool) Option {
	return func(v *Variable) { v.bulk = bulk }
}

// Name returns the Variable's name.
func (v *Variable) Name() string { return v.name }

// Path returns the Variable's hierarchical path.
func (v *Variable) Path() string { return v.path }

// Mode returns the Variable's access mode.
func (v *Variable) Mode() Mode { return v.mode }

// Model returns the Variable's value representation.
func (v *Variable) Model() Model { return v.model }

// LowByte implements block.Variable.
func (v *Variable) LowByte() int { return v.lowByte }

// HighByte implements block.Variable.
func (v *Variable) HighByte() int { return v.highByte }

// AllowOverlap implements block.Variable.
func (v *Variable) AllowOverlap() bool { return v.allowOverlap }

// RequiresVerify implements block.Variable.
func (v *Variable) RequiresVerify() bool { return v.requiresVerify }

// Bulk reports whether this Variable is flagged for inclusion in a bulk
// read/write sweep.
func (v *Variable) Bulk() bool { return v.bulk }

// BitMask implements block.Variable.
func (v *Variable) BitMask() []byte { return v.mask }

// Attach binds the Variable to blk, registering it so Block.Flush knows
// whether to verify it and Block.Write/Read can find its byte range.
func (v *Variable) Attach(blk *block.Block) error {
	if err := blk.AddVariable(v); err != nil {
		return err
	}
	v.mu.Lock()
	v.blk = blk
	v.mu.Unlock()
	return nil
}

func (v *Variable) attached() (*block.Block, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.blk == nil {
		return nil, rougeerr.NewProtocolError("variable not attached to a block", nil)
	}
	return v.blk, nil
}

func (v *Variable) windowSize() int { return v.highByte - v.lowByte + 1 }

// LastError returns the error from the most recent failed operation, or
// nil.
func (v *Variable) LastError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *Variable) setErr(err error) error {
	v.mu.Lock()
	v.err = err
	v.mu.Unlock()
	return err
}

func (v *Variable) checkRange(value int64) error {
	if v.min < v.max && (value < v.min || value > v.max) {
		return rougeerr.NewRangeError(value, v.min, v.max)
	}
	return nil
}

// encode packs raw into the window, applying byteReverse after bit-packing.
func (v *Variable) encode(raw uint64) []byte {
	buf := make([]byte, v.windowSize())
	packSegments(buf, v.bitOffset, v.bitSize, v.lowByte, raw)
	if v.byteReverse {
		buf = reverseBytes(buf)
	}
	return buf
}

// decode reverses encode's byteReverse step, then unpacks the bit segments.
func (v *Variable) decode(buf []byte) uint64 {
	if v.byteReverse {
		buf = reverseBytes(buf)
	}
	return unpackSegments(buf, v.bitOffset, v.bitSize, v.lowByte)
}

func (v *Variable) writeRaw(buf []byte) error {
	if v.mode == RO {
		return v.setErr(rougeerr.NewUnsupported("variable is read-only"))
	}
	blk, err := v.attached()
	if err != nil {
		return v.setErr(err)
	}
	if err := blk.Write(v, buf); err != nil {
		return v.setErr(err)
	}
	v.setErr(nil)
	return nil
}

func (v *Variable) readRaw() ([]byte, error) {
	if v.mode == WO {
		return nil, v.setErr(rougeerr.NewUnsupported("variable is write-only"))
	}
	blk, err := v.attached()
	if err != nil {
		return nil, v.setErr(err)
	}
	buf, err := blk.Read(v)
	if err != nil {
		return nil, v.setErr(err)
	}
	v.setErr(nil)
	return buf, nil
}

// SetUint writes value as an unsigned integer across the Variable's bit
// ranges.
func (v *Variable) SetUint(value uint64) error {
	if err := v.checkRange(int64(value)); err != nil {
		return v.setErr(err)
	}
	return v.writeRaw(v.encode(value))
}

// GetUint reads the Variable back as an unsigned integer.
func (v *Variable) GetUint() (uint64, error) {
	buf, err := v.readRaw()
	if err != nil {
		return 0, err
	}
	return v.decode(buf), nil
}

// SetInt writes value as a two's-complement signed integer over the
// Variable's total bit count.
func (v *Variable) SetInt(value int64) error {
	if err := v.checkRange(value); err != nil {
		return v.setErr(err)
	}
	mask := uint64(1)<<uint(v.totalBits) - 1
	if v.totalBits >= 64 {
		mask = ^uint64(0)
	}
	return v.writeRaw(v.encode(uint64(value) & mask))
}

// GetInt reads the Variable back as a sign-extended signed integer.
func (v *Variable) GetInt() (int64, error) {
	buf, err := v.readRaw()
	if err != nil {
		return 0, err
	}
	return signExtend(v.decode(buf), v.totalBits), nil
}

// SetBool writes a single-bit boolean Variable.
func (v *Variable) SetBool(value bool) error {
	var raw uint64
	if value {
		raw = 1
	}
	return v.writeRaw(v.encode(raw))
}

// GetBool reads a single-bit boolean Variable.
func (v *Variable) GetBool() (bool, error) {
	buf, err := v.readRaw()
	if err != nil {
		return false, err
	}
	return v.decode(buf) != 0, nil
}

// SetFloat writes value as an IEEE-754 single or double precision float
// depending on Model, copied verbatim then byte-reversed if configured.
func (v *Variable) SetFloat(value float64) error {
	buf := make([]byte, v.windowSize())
	switch v.model {
	case Float:
		bits := math.Float32bits(float32(value))
		buf[0] = byte(bits)
		buf[1] = byte(bits >> 8)
		buf[2] = byte(bits >> 16)
		buf[3] = byte(bits >> 24)
	case Double:
		bits := math.Float64bits(value)
		for i := 0; i < 8; i++ {
			buf[i] = byte(bits >> uint(8*i))
		}
	default:
		return v.setErr(rougeerr.NewProtocolError("SetFloat requires Float or Double model", nil))
	}
	if v.byteReverse {
		buf = reverseBytes(buf)
	}
	return v.writeRaw(buf)
}

// GetFloat reads the Variable back as a float64, widening a Float model's
// single precision value.
func (v *Variable) GetFloat() (float64, error) {
	buf, err := v.readRaw()
	if err != nil {
		return 0, err
	}
	if v.byteReverse {
		buf = reverseBytes(buf)
	}
	switch v.model {
	case Float:
		bits := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
		return float64(math.Float32frombits(bits)), nil
	case Double:
		var bits uint64
		for i := 0; i < 8; i++ {
			bits |= uint64(buf[i]) << uint(8*i)
		}
		return math.Float64frombits(bits), nil
	default:
		return 0, v.setErr(rougeerr.NewProtocolError("GetFloat requires Float or Double model", nil))
	}
}

// SetFixed writes value as a fixed-point integer with binPoint implicit
// fractional bits.
func (v *Variable) SetFixed(value float64) error {
	scale := math.Pow(2, float64(v.binPoint))
	raw := int64(math.Round(value * scale))
	return v.SetInt(raw)
}

// GetFixed reads the Variable back, scaling by 2^-binPoint.
func (v *Variable) GetFixed() (float64, error) {
	raw, err := v.GetInt()
	if err != nil {
		return 0, err
	}
	scale := math.Pow(2, float64(v.binPoint))
	return float64(raw) / scale, nil
}

// SetBytes writes an opaque payload verbatim; len(data) must equal the
// Variable's window size.
func (v *Variable) SetBytes(data []byte) error {
	if len(data) != v.windowSize() {
		return v.setErr(rougeerr.NewProtocolError("bytes payload length mismatch", nil))
	}
	return v.writeRaw(append([]byte(nil), data...))
}

// GetBytes reads the Variable's raw bytes with no transform.
func (v *Variable) GetBytes() ([]byte, error) {
	return v.readRaw()
}

// SetString writes a null-terminated UTF-8 string, truncated to the
// Variable's window size.
func (v *Variable) SetString(s string) error {
	buf := make([]byte, v.windowSize())
	n := copy(buf, s)
	if n < len(buf) {
		buf[n] = 0
	}
	return v.writeRaw(buf)
}

// GetString reads a null-terminated UTF-8 string, stopping at the first
// zero byte or the window's end.
func (v *Variable) GetString() (string, error) {
	buf, err := v.readRaw()
	if err != nil {
		return "", err
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}
