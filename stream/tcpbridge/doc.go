// Package tcpbridge tunnels rouge Frames across a TCP pub/pull socket pair:
// one outbound connection carrying Frames we send, one inbound connection
// carrying Frames arriving from the remote end. Each carries its own
// reconnect loop with exponential backoff, the way a long-lived network
// client reconnects to a flaky peer.
package tcpbridge
