// Package block implements rouge's shadow-memory register window: a Block
// owns a contiguous byte range of a device's address space, mirrored
// locally as shadow bytes, and schedules coalesced read/write Transactions
// against an xact.Master on behalf of the Variables attached to it.
//
// Write marks the affected shadow bytes dirty without dispatching
// anything; Flush coalesces every dirty byte since the last flush into the
// smallest number of ordered Transactions (split at maxAccess boundaries,
// aligned to minAccess), then verifies any attached Variable that asked
// for it. This mirrors how a register-abstraction layer batches many
// Variable.set calls before one explicit "write the dirty blocks" pass,
// rather than issuing a wire transaction per set call.
package block
