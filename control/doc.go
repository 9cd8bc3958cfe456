// Package control implements rouge's control endpoint: a pair of TCP
// listeners, one for UTF-8 text request/response traffic (port P+1) and one
// for unsolicited publish notifications of variable updates (port P). Each
// request is handled independently — the endpoint keeps no per-connection
// session state beyond the socket itself — and request lines are
// newline-delimited text, the concrete shape behind the specification's
// "no framing beyond the transport's message boundary."
package control
