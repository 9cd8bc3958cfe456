package tcpbridge

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/slaclab/rouge/rougeerr"
	"github.com/slaclab/rouge/stream"
)

// Option configures a Bridge at construction time.
type Option func(*Bridge)

// WithLogger overrides the Bridge's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithPool overrides the Pool used to allocate receive-side buffers.
func WithPool(p *stream.Pool) Option {
	return func(b *Bridge) { b.pool = p }
}

// WithDialTimeout bounds a single dial attempt.
func WithDialTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.dialTimeout = d }
}

// Bridge is a combined stream.Master and stream.Slave tunnelling Frames
// across a pair of TCP sockets: pushAddr for frames this process sends,
// pullAddr for frames arriving from the remote peer. Both directions
// reconnect independently with exponential backoff.
type Bridge struct {
	stream.BaseMaster

	pushAddr, pullAddr string
	log                *slog.Logger
	pool               *stream.Pool
	dialTimeout        time.Duration

	writeMu  sync.Mutex
	pushConn netConn

	reconnects uint32

	stopCtx    context.Context
	stopCancel context.CancelFunc
	wg         sync.WaitGroup
}

// Open configures a Bridge without dialing either socket or starting any
// task: Start launches the pull side, and the push socket is dialed on the
// first AcceptFrame. name identifies the bridge in diagnostics.
func Open(name, pushAddr, pullAddr string, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		pushAddr:    pushAddr,
		pullAddr:    pullAddr,
		log:         slog.Default(),
		dialTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.pool == nil {
		b.pool = stream.NewPool(name, 64, 1<<16)
	}
	b.stopCtx, b.stopCancel = context.WithCancel(context.Background())
	return b, nil
}

// Start launches the pull-side reconnect-aware reader. The push side has no
// task of its own: AcceptFrame (re)connects it on demand.
func (b *Bridge) Start() {
	b.wg.Add(1)
	go b.pullLoop()
}

// Close cancels the pull-side reader, closes the push connection, and joins
// the reader.
func (b *Bridge) Close() error {
	b.stopCancel()
	b.writeMu.Lock()
	conn := b.pushConn
	b.pushConn = nil
	b.writeMu.Unlock()
	if conn != nil {
		conn.Close()
	}
	b.wg.Wait()
	return nil
}

func tcpDial(ctx context.Context, addr string, timeout time.Duration) (netConn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// pushConn is the current outbound connection, guarded by writeMu. It is
// lazily (re)established by AcceptFrame via ensurePushConn.
func (b *Bridge) ensurePushConn() (netConn, error) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if b.pushConn != nil {
		return b.pushConn, nil
	}
	conn, err := runWithReconnect(b.stopCtx, "push:"+b.pushAddr, func(ctx context.Context) (netConn, error) {
		return tcpDial(ctx, b.pushAddr, b.dialTimeout)
	}, defaultBackoffConfig(), &b.reconnects, b.log)
	if err != nil {
		return nil, err
	}
	b.pushConn = conn
	return conn, nil
}

// AcceptFrame implements stream.Slave: it is the transmit path, writing one
// wire message per Buffer with the continuation flag set on all but the
// last, then releases the Frame.
func (b *Bridge) AcceptFrame(f *stream.Frame) error {
	defer f.Release()

	conn, err := b.ensurePushConn()
	if err != nil {
		return rougeerr.NewProtocolError("tcpbridge: push connect failed", err)
	}

	buffers := f.Buffers()
	for i, buf := range buffers {
		cont := i != len(buffers)-1
		if err := writeBuffer(conn, f.Channel(), cont, buf.Error(), buf.Data()); err != nil {
			b.writeMu.Lock()
			if b.pushConn == conn {
				conn.Close()
				b.pushConn = nil
			}
			b.writeMu.Unlock()
			return rougeerr.NewProtocolError("tcpbridge: write failed", err)
		}
	}
	return nil
}

// AcceptReq implements stream.Slave: allocation always comes from the
// heap pool, since a TCP bridge has no zero-copy pages to offer.
func (b *Bridge) AcceptReq(size int, zeroCopyOk bool) (*stream.Frame, error) {
	f := stream.NewFrame(0)
	f.AppendBuffer(b.pool.Alloc(size))
	return f, nil
}

// RetBuffer releases b back through the bridge's pool.
func (b *Bridge) RetBuffer(buf *stream.Buffer) error { return buf.Release() }

// Pool returns the Bridge's receive-side Pool.
func (b *Bridge) Pool() *stream.Pool { return b.pool }

// pullLoop owns the inbound connection exclusively: it dials (with
// reconnect/backoff), reads buffer messages, reassembles Frames, and hands
// each complete Frame to the attached Slave via SendFrame. On any read
// error it discards the in-flight partial frame with its error bit set,
// then reconnects.
func (b *Bridge) pullLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.stopCtx.Done():
			return
		default:
		}

		conn, err := runWithReconnect(b.stopCtx, "pull:"+b.pullAddr, func(ctx context.Context) (netConn, error) {
			return tcpDial(ctx, b.pullAddr, b.dialTimeout)
		}, defaultBackoffConfig(), &b.reconnects, b.log)
		if err != nil {
			return // stopCtx cancelled
		}

		b.readFrames(conn)
	}
}

// readFrames reads buffer messages off conn until a read error, delivering
// each completed Frame downstream. A partial in-flight frame at the point
// of disconnect is discarded with its error bit set, per the bridge's
// reconnect contract.
func (b *Bridge) readFrames(conn netConn) {
	defer conn.Close()
	// Close the connection on shutdown so a blocked read returns.
	stop := context.AfterFunc(b.stopCtx, func() { conn.Close() })
	defer stop()

	r := bufio.NewReader(conn)
	var frame *stream.Frame

	for {
		select {
		case <-b.stopCtx.Done():
			return
		default:
		}

		hdr, err := readBufferHeader(r)
		if err != nil {
			if frame != nil {
				frame.SetError(1)
				_ = b.SendFrame(frame)
			}
			b.log.Warn("tcpbridge: pull connection lost", "addr", b.pullAddr, "error", err)
			return
		}

		buf := b.pool.Alloc(int(hdr.size))
		if err := buf.SetSize(int(hdr.size)); err != nil {
			buf.Release()
			b.log.Error("tcpbridge: buffer too small for payload", "size", hdr.size, "error", err)
			return
		}
		if hdr.size > 0 {
			if _, err := io.ReadFull(r, buf.Data()); err != nil {
				buf.Release()
				if frame != nil {
					frame.SetError(1)
					_ = b.SendFrame(frame)
				}
				b.log.Warn("tcpbridge: pull payload read failed", "addr", b.pullAddr, "error", err)
				return
			}
		}
		buf.SetError(hdr.errBits)

		if frame == nil {
			frame = stream.NewFrame(hdr.channel)
		}
		frame.AppendBuffer(buf)

		if !hdr.cont {
			_ = b.SendFrame(frame)
			frame = nil
		}
	}
}
