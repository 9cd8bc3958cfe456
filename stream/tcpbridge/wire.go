package tcpbridge

import (
	"encoding/binary"
	"fmt"
	"io"
)

// wireHeaderSize is the fixed-width header preceding every buffer's
// payload on the wire: channel(1) + flags(1) + error(4) + size(4).
const wireHeaderSize = 10

const flagContinue = 0x01

// writeBuffer writes one length-prefixed buffer message: channel, a
// continuation flag, the buffer's error bits, its size, then its bytes.
func writeBuffer(w io.Writer, channel uint8, cont bool, errBits uint32, data []byte) error {
	hdr := make([]byte, wireHeaderSize)
	hdr[0] = channel
	if cont {
		hdr[1] = flagContinue
	}
	binary.BigEndian.PutUint32(hdr[2:6], errBits)
	binary.BigEndian.PutUint32(hdr[6:10], uint32(len(data)))
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("tcpbridge: write header: %w", err)
	}
	if len(data) > 0 {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("tcpbridge: write payload: %w", err)
		}
	}
	return nil
}

// bufferHeader is one decoded wire header.
type bufferHeader struct {
	channel uint8
	cont    bool
	errBits uint32
	size    uint32
}

// readBufferHeader reads and decodes one wireHeaderSize header.
func readBufferHeader(r io.Reader) (bufferHeader, error) {
	hdr := make([]byte, wireHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return bufferHeader{}, err
	}
	return bufferHeader{
		channel: hdr[0],
		cont:    hdr[1]&flagContinue != 0,
		errBits: binary.BigEndian.Uint32(hdr[2:6]),
		size:    binary.BigEndian.Uint32(hdr[6:10]),
	}, nil
}
