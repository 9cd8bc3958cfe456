package variable

// packBitsLE writes the low size bits of value into raw starting at the
// absolute bit position startBit, LSB-first, where bit 0 of a byte is its
// least-significant bit.
func packBitsLE(raw []byte, startBit, size int, value uint64) {
	for k := 0; k < size; k++ {
		absBit := startBit + k
		byteIdx, bitIdx := absBit/8, uint(absBit%8)
		if (value>>uint(k))&1 == 1 {
			raw[byteIdx] |= 1 << bitIdx
		} else {
			raw[byteIdx] &^= 1 << bitIdx
		}
	}
}

// unpackBitsLE is the inverse of packBitsLE.
func unpackBitsLE(raw []byte, startBit, size int) uint64 {
	var value uint64
	for k := 0; k < size; k++ {
		absBit := startBit + k
		byteIdx, bitIdx := absBit/8, uint(absBit%8)
		bit := (raw[byteIdx] >> bitIdx) & 1
		value |= uint64(bit) << uint(k)
	}
	return value
}

// packSegments distributes value's bits, LSB-first across the combined
// stream, into raw at the bit ranges described by bitOffset/bitSize, each
// offset relative to loByteOffset*8.
func packSegments(raw []byte, bitOffset, bitSize []int, loByteOffset int, value uint64) {
	k := 0
	for i := range bitOffset {
		size := bitSize[i]
		var seg uint64
		if size >= 64 {
			seg = value >> uint(k)
		} else {
			seg = (value >> uint(k)) & ((uint64(1) << uint(size)) - 1)
		}
		packBitsLE(raw, bitOffset[i]-loByteOffset*8, size, seg)
		k += size
	}
}

// unpackSegments is the inverse of packSegments.
func unpackSegments(raw []byte, bitOffset, bitSize []int, loByteOffset int) uint64 {
	var value uint64
	k := 0
	for i := range bitOffset {
		size := bitSize[i]
		seg := unpackBitsLE(raw, bitOffset[i]-loByteOffset*8, size)
		value |= seg << uint(k)
		k += size
	}
	return value
}

// bitMaskFor builds the ownership mask block.Block.Write merges through:
// windowSize bytes, a bit set for every bit any segment covers.
func bitMaskFor(bitOffset, bitSize []int, loByteOffset, windowSize int) []byte {
	mask := make([]byte, windowSize)
	for i := range bitOffset {
		start := bitOffset[i] - loByteOffset*8
		for k := 0; k < bitSize[i]; k++ {
			absBit := start + k
			mask[absBit/8] |= 1 << uint(absBit%8)
		}
	}
	return mask
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[len(b)-1-i]
	}
	return out
}

func signExtend(raw uint64, bits int) int64 {
	if bits >= 64 {
		return int64(raw)
	}
	signBit := uint64(1) << uint(bits-1)
	if raw&signBit != 0 {
		return int64(raw | (^uint64(0) << uint(bits)))
	}
	return int64(raw)
}
