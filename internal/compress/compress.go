// Package compress wraps a stream in one of the three compression modes
// the protocol negotiates: Lz4, Zstd, or None. Dispatch over the variants
// is a plain interface — the per-record hot path inside a single stream is
// monomorphic once the mode is chosen at stream setup (spec §9).
package compress

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ample-stream/ample/internal/protocol"
)

// Mode selects a compression variant for the lifetime of a stream.
type Mode = protocol.StreamOp

// WrapWriter wraps w so that everything written to the returned
// io.WriteCloser is compressed according to mode before reaching w.
// Closing the returned writer flushes any buffered compressor state but
// never closes w itself.
func WrapWriter(w io.Writer, mode Mode) (io.WriteCloser, error) {
	switch mode {
	case protocol.OpUseLz4:
		zw := lz4.NewWriter(w)
		return zw, nil
	case protocol.OpUseZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		}
		return zw, nil
	case protocol.OpUseNone:
		return nopWriteCloser{w}, nil
	default:
		return nil, &protocol.InvalidStreamOpError{Byte: byte(mode)}
	}
}

// WrapReader wraps r so that reads from the returned io.Reader are
// decompressed according to mode. An unrecognised mode is treated by the
// caller as OpUseNone per spec §4.5 — WrapReader itself still rejects it so
// callers that want strict validation can do so explicitly.
func WrapReader(r io.Reader, mode Mode) (io.Reader, error) {
	switch mode {
	case protocol.OpUseLz4:
		return lz4.NewReader(r), nil
	case protocol.OpUseZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case protocol.OpUseNone:
		return bufio.NewReader(r), nil
	default:
		return nil, &protocol.InvalidStreamOpError{Byte: byte(mode)}
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// CountingReader wraps an io.Reader and tallies bytes observed before
// decompression, so the client can record compressed_bytes_total
// accurately per stream (spec §4.5).
type CountingReader struct {
	r     io.Reader
	count uint64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.count += uint64(n)
	return n, err
}

// BytesRead returns the cumulative number of bytes read from the
// underlying (compressed) stream.
func (c *CountingReader) BytesRead() uint64 {
	return c.count
}
