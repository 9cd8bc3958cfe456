// Package variable implements rouge's typed bit-packed register view: a
// Variable describes how to decode and encode a logical value (unsigned or
// signed integer, bool, floating point, fixed point, opaque bytes, or a
// null-terminated string) against a parallel bitOffset/bitSize list of one
// or more bit ranges within an attached block.Block's shadow memory.
//
// Encoding always treats the Variable's value as a single combined bit
// stream, LSB-first, split across its bit ranges in list order; this lets a
// register split non-contiguous bitfields (status bits scattered across a
// byte shared with other Variables, say) present as one logical value. The
// byteReverse flag flips the byte order of the already-bit-packed result,
// matching how a big-endian peripheral lays out an otherwise little-endian
// field.
package variable
