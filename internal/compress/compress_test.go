package compress

import (
	"bytes"
	"io"
	"testing"

	"github.com/ample-stream/ample/internal/protocol"
)

func TestWrapWriterReader_RoundTrip(t *testing.T) {
	modes := []protocol.StreamOp{protocol.OpUseNone, protocol.OpUseLz4, protocol.OpUseZstd}
	payload := bytes.Repeat([]byte("ample streaming transport payload "), 256)

	for _, mode := range modes {
		var buf bytes.Buffer
		wc, err := WrapWriter(&buf, mode)
		if err != nil {
			t.Fatalf("mode %v: WrapWriter: %v", mode, err)
		}
		if _, err := wc.Write(payload); err != nil {
			t.Fatalf("mode %v: Write: %v", mode, err)
		}
		if err := wc.Close(); err != nil {
			t.Fatalf("mode %v: Close: %v", mode, err)
		}

		r, err := WrapReader(&buf, mode)
		if err != nil {
			t.Fatalf("mode %v: WrapReader: %v", mode, err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("mode %v: ReadAll: %v", mode, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("mode %v: round trip mismatch", mode)
		}
	}
}

func TestWrapWriter_InvalidMode(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WrapWriter(&buf, protocol.StreamOp(0xff)); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}

func TestCountingReader(t *testing.T) {
	payload := []byte("twelve bytes")
	cr := NewCountingReader(bytes.NewReader(payload))

	buf := make([]byte, len(payload))
	n, err := cr.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("expected %d bytes, got %d", len(payload), n)
	}
	if cr.BytesRead() != uint64(len(payload)) {
		t.Fatalf("expected BytesRead() = %d, got %d", len(payload), cr.BytesRead())
	}
}
