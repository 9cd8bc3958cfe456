// Package dma implements rouge's DMA endpoint: a combined stream.Master and
// stream.Slave bound to a PCIe DMA character device, the kind of device a
// Xilinx XDMA IP core exposes as /dev/xdma<N>_h2c_<chan> (host-to-card,
// write) and /dev/xdma<N>_c2h_<chan> (card-to-host, read) device nodes.
//
// The endpoint runs one reader-task goroutine that polls the device for
// readiness on a short deadline (so shutdown stays responsive), retrieves
// pages, and assembles them into Frames to hand downstream. Transmission
// walks a Frame's Buffers in order, submitting each via zero-copy
// write-index when the Buffer maps a driver page, or falling back to a
// timed copy-write otherwise.
package dma
