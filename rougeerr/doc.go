// Package rougeerr defines the error taxonomy shared by rouge's stream and
// memory-transaction cores.
//
// Every failure that can be attributed to a specific cause (a timed-out
// transaction, a malformed frame header, a range violation on a Variable
// write) is represented as an *Error carrying a Kind plus whatever
// structured context that Kind calls for. Background goroutines that hit a
// kernel or socket failure never panic or propagate a bare error to a
// caller's thread; they log it and surface it in-band, as a Frame error bit
// or a Transaction Kind, per the propagation rules in the specification.
package rougeerr
