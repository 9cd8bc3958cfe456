package filereader

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/slaclab/rouge/stream"
)

const headerSize = 4

// rotationSuffix matches a trailing ".N" rotation index, e.g. "log.1".
var rotationSuffix = regexp.MustCompile(`\.([0-9]+)$`)

// Option configures a Reader at construction time.
type Option func(*Reader)

// WithLogger overrides the Reader's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) { r.log = l }
}

// WithPool overrides the Pool used to allocate payload Buffers.
func WithPool(p *stream.Pool) Option {
	return func(r *Reader) { r.pool = p }
}

// Reader is a stream.Master that replays a framed on-disk log, rotating
// through "name.1", "name.2", … until the next numbered file is missing.
type Reader struct {
	stream.BaseMaster

	path string
	log  *slog.Logger
	pool *stream.Pool

	active int32

	stopCtx    context.Context
	stopCancel context.CancelFunc
	wg         sync.WaitGroup
}

// Open prepares a Reader for path without reading anything yet; call Start
// to begin replay.
func Open(path string, opts ...Option) (*Reader, error) {
	r := &Reader{
		path: path,
		log:  slog.Default(),
		pool: stream.NewPool(path, 16, 4096),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.stopCtx, r.stopCancel = context.WithCancel(context.Background())
	return r, nil
}

// IsActive reports whether the replay loop is still running (has not hit
// end-of-stream, a missing rotation file, or Close).
func (r *Reader) IsActive() bool { return atomic.LoadInt32(&r.active) != 0 }

// Start launches the replay loop.
func (r *Reader) Start() {
	atomic.StoreInt32(&r.active, 1)
	r.wg.Add(1)
	go r.run()
}

// Close stops replay and joins the loop.
func (r *Reader) Close() error {
	r.stopCancel()
	r.wg.Wait()
	return nil
}

func (r *Reader) run() {
	defer r.wg.Done()
	defer atomic.StoreInt32(&r.active, 0)

	path := r.path
	for {
		select {
		case <-r.stopCtx.Done():
			return
		default:
		}

		f, err := os.Open(path)
		if err != nil {
			r.log.Info("filereader: rotation ended", "path", path, "error", err)
			return
		}

		outcome := r.replayFile(f)
		f.Close()

		switch outcome {
		case replayEndMarker, replayIncomplete, replayCanceled:
			return
		case replayCleanEOF:
			next, ok := nextRotationPath(path)
			if !ok {
				return
			}
			path = next
		}
	}
}

type replayOutcome int

const (
	replayCleanEOF replayOutcome = iota
	replayEndMarker
	replayIncomplete
	replayCanceled
)

// replayFile reads consecutive records from f, sending one Frame per
// record, until a clean EOF (return replayCleanEOF, try rotation), an
// explicit zero-size end marker (replayEndMarker), or an incomplete
// trailing record (replayIncomplete, after emitting an error-flagged
// partial Frame).
func (r *Reader) replayFile(f *os.File) replayOutcome {
	hdr := make([]byte, headerSize)
	for {
		select {
		case <-r.stopCtx.Done():
			return replayCanceled
		default:
		}

		n, err := io.ReadFull(f, hdr)
		if err != nil {
			if n == 0 && err == io.EOF {
				return replayCleanEOF
			}
			r.log.Warn("filereader: incomplete header at EOF", "path", f.Name())
			return replayIncomplete
		}

		header := binary.BigEndian.Uint32(hdr)
		channel := uint8(header >> 28)
		sizeField := header & 0x0FFFFFFF

		var byteSize uint32
		if channel == 0 {
			byteSize = sizeField * 4
		} else {
			byteSize = sizeField
		}

		if byteSize == 0 {
			return replayEndMarker
		}
		if byteSize < headerSize {
			if _, err := io.CopyN(io.Discard, f, int64(byteSize)); err != nil {
				return replayIncomplete
			}
			continue
		}

		buf := r.pool.Alloc(int(byteSize))
		if err := buf.SetSize(int(byteSize)); err != nil {
			buf.Release()
			return replayIncomplete
		}
		read, err := io.ReadFull(f, buf.Data())
		if err != nil {
			_ = buf.SetSize(read)
			frame := stream.NewFrame(channel)
			frame.AppendBuffer(buf)
			frame.SetError(1)
			_ = r.SendFrame(frame)
			return replayIncomplete
		}

		frame := stream.NewFrame(channel)
		frame.AppendBuffer(buf)
		if err := r.SendFrame(frame); err != nil {
			r.log.Error("filereader: sendFrame failed", "error", err)
		}
	}
}

// nextRotationPath advances "name.N" to "name.(N+1)", reporting ok=false if
// path does not end in a numeric rotation suffix (i.e. the log was never a
// rotating series).
func nextRotationPath(path string) (string, bool) {
	m := rotationSuffix.FindStringSubmatchIndex(path)
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(path[m[2]:m[3]])
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s.%d", path[:m[0]], n+1), true
}
