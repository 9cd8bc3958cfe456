// Package xact implements rouge's asynchronous, at-most-once register
// access protocol: a Transaction is one in-flight read/write/post-write/
// verify request, identified by a globally unique monotonic id. A Master
// issues Transactions against its attached Slave and blocks on completion
// with a configurable timeout; a Slave accepts Transactions and must call
// complete exactly once for each it has accepted.
package xact
