// Package diag exposes a read-only HTTP diagnostics surface over whatever
// Pool, Master, and Block instances a process registers with it: live
// counters rendered as JSON, separate from the control endpoint's raw-socket
// protocol, for the kind of operator dashboard the corpus builds alongside
// (but never inside) its primary wire protocol.
package diag
