package filereader

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/slaclab/rouge/stream"
)

type sinkSlave struct {
	*stream.DefaultSlave
	delivered chan *stream.Frame
}

func newSinkSlave(pool *stream.Pool) *sinkSlave {
	return &sinkSlave{DefaultSlave: stream.NewDefaultSlave(pool), delivered: make(chan *stream.Frame, 16)}
}

func (s *sinkSlave) AcceptFrame(f *stream.Frame) error {
	s.delivered <- f
	return nil
}

func record(channel uint8, payload []byte) []byte {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(channel)<<28|uint32(len(payload)))
	return append(header, payload...)
}

func writeFile(t *testing.T, path string, records ...[]byte) {
	t.Helper()
	var data []byte
	for _, r := range records {
		data = append(data, r...)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestReaderRotatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "log.1"),
		record(1, []byte{0x01, 0x02}),
		record(1, []byte{0x03, 0x04}),
	)
	writeFile(t, filepath.Join(dir, "log.2"),
		record(1, []byte{0x05, 0x06}),
	)

	r, err := Open(filepath.Join(dir, "log.1"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sink := newSinkSlave(nil)
	r.SetSlave(sink)
	r.Start()
	defer r.Close()

	var payloads [][]byte
	for i := 0; i < 3; i++ {
		select {
		case f := <-sink.delivered:
			rd := f.NewReader()
			buf := make([]byte, f.GetPayload())
			rd.Read(buf)
			payloads = append(payloads, buf)
			f.Release()
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}

	want := [][]byte{{0x01, 0x02}, {0x03, 0x04}, {0x05, 0x06}}
	for i, w := range want {
		if len(payloads[i]) != len(w) || payloads[i][0] != w[0] {
			t.Fatalf("frame %d = %v, want %v", i, payloads[i], w)
		}
	}

	deadline := time.After(time.Second)
	for r.IsActive() {
		select {
		case <-deadline:
			t.Fatal("reader never went inactive after exhausting rotation")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestReaderStopsAtEndMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.log")
	writeFile(t, path,
		record(2, []byte{0xAA}),
		record(2, nil), // size 0 end marker
		record(2, []byte{0xFF}), // must never be delivered
	)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sink := newSinkSlave(nil)
	r.SetSlave(sink)
	r.Start()
	defer r.Close()

	select {
	case f := <-sink.delivered:
		f.Release()
	case <-time.After(time.Second):
		t.Fatal("expected one frame before end marker")
	}

	select {
	case <-sink.delivered:
		t.Fatal("no frame should follow the end marker")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReaderSkipsUndersizedRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skip.log")
	// A record whose size field is below the header width (4) should be
	// skipped without producing a frame.
	undersized := make([]byte, 4)
	binary.BigEndian.PutUint32(undersized, uint32(3)<<28|2)
	undersized = append(undersized, 0x01, 0x02)

	writeFile(t, path, undersized, record(3, []byte{0x10, 0x20, 0x30}))

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sink := newSinkSlave(nil)
	r.SetSlave(sink)
	r.Start()
	defer r.Close()

	select {
	case f := <-sink.delivered:
		if f.GetPayload() != 3 {
			t.Fatalf("payload length = %d, want 3 (undersized record skipped)", f.GetPayload())
		}
		f.Release()
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}
