// Package filereader replays a framed on-disk log as a stream.Master. Each
// record is a big-endian u32 header (channel in the high 4 bits, size in
// the low 28 bits; channel 0 is the historical exception, where the low
// bits count 32-bit words rather than bytes) followed by that many bytes of
// payload. Opening a path ending in ".1" auto-continues through ".2",
// ".3", … until the next file is missing.
package filereader
