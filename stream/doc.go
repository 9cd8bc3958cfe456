// Package stream implements rouge's zero-copy frame-passing fabric: a graph
// of Masters (sources) and Slaves (sinks) exchanging Frames built from
// Buffers, with DMA-index bookkeeping and backpressure against a kernel
// driver.
//
// # Core Philosophy
//
// A Buffer never copies itself implicitly. Its bytes either live on the
// heap, recycled through a Pool's free list, or map a page the kernel DMA
// driver owns, in which case returning the Buffer re-arms the page instead
// of freeing memory. A Frame is an ordered sequence of Buffers forming one
// logical message; appending a non-zero-copy Buffer to an all-zero-copy
// Frame downgrades its zero-copy flag rather than erroring, since the
// Frame's payload is still correct, just no longer entirely DMA-backed.
//
// # Basic Usage
//
//	pool := stream.NewPool("default", 256, 4096)
//	slave := myslave.New(pool)
//	master := myproducer.New(slave)
//	master.SendFrame(frame)
//
// # Thread Safety
//
// Pool is safe for concurrent use: Alloc and Release serialize on an
// internal mutex, so multiple Master threads may draw from one Slave's Pool
// at once. Frame and Buffer have no locking of their own; a Frame and its
// Buffers are used by one goroutine at a time, and SendFrame hands
// ownership to the Slave.
package stream
