package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameLen bounds a single record frame so a corrupt length prefix
// cannot force an unbounded read.
const MaxFrameLen = 64 * 1024 * 1024

// WriteFrame writes one length-prefixed record frame: [len uint32 LE][body].
// This is the one place in the codec where the spec mandates little-endian
// (the length prefix) rather than the big-endian used inside record bodies.
func WriteFrame(w io.Writer, body []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("writing frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed record frame and returns its body,
// bounding the read at MaxFrameLen. Equivalent to ReadFrameMax(r, MaxFrameLen).
func ReadFrame(r io.Reader) ([]byte, error) {
	return ReadFrameMax(r, MaxFrameLen)
}

// ReadFrameMax reads one length-prefixed record frame, rejecting a length
// prefix larger than maxLen so a corrupt or adversarial prefix cannot
// force an unbounded read. A deployment-configured ceiling (see
// config.ClientConfig.MaxFrameBytesRaw) is passed in here rather than
// hardcoded, and is always <= MaxFrameLen.
func ReadFrameMax(r io.Reader, maxLen uint32) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading frame length: %v", ErrTruncatedFrame, err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxLen {
		return nil, fmt.Errorf("%w: frame length %d exceeds %d", ErrSerialization, n, maxLen)
	}
	body := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("%w: reading frame body: %v", ErrTruncatedFrame, err)
		}
	}
	return body, nil
}

// WriteStreamPreamble writes the two-octet stream header that opens every
// server-initiated stream: <compression-mode:u8><kind:u8>.
func WriteStreamPreamble(w io.Writer, mode, kind StreamOp) error {
	_, err := w.Write([]byte{byte(mode), byte(kind)})
	return err
}

// ReadStreamPreamble reads the two-octet stream header. An unrecognised
// mode byte is tolerated by the caller (treated as OpUseNone per spec
// §4.5); an unrecognised kind byte is always fatal for the connection.
func ReadStreamPreamble(r io.Reader) (mode, kind StreamOp, err error) {
	var buf [2]byte
	if _, err = io.ReadFull(r, buf[:]); err != nil {
		return 0, 0, fmt.Errorf("reading stream preamble: %w", err)
	}
	return StreamOp(buf[0]), StreamOp(buf[1]), nil
}

// EncodeRecord serializes r using its kind's deterministic codec.
func EncodeRecord(w io.Writer, r Record) error {
	switch v := r.(type) {
	case *Account:
		return EncodeAccount(w, v)
	case *Transaction:
		return EncodeTransaction(w, v)
	case *Entry:
		return EncodeEntry(w, v)
	case *Block:
		return EncodeBlock(w, v)
	case *SlotStatus:
		return EncodeSlotStatus(w, v)
	default:
		return fmt.Errorf("%w: unknown record type %T", ErrSerialization, r)
	}
}

// DecodeRecord deserializes a record of the given kind.
func DecodeRecord(kind Kind, r io.Reader) (Record, error) {
	switch kind {
	case KindAccount:
		return DecodeAccount(r)
	case KindTransaction:
		return DecodeTransaction(r)
	case KindEntry:
		return DecodeEntry(r)
	case KindBlock:
		return DecodeBlock(r)
	case KindSlotStatus:
		return DecodeSlotStatus(r)
	default:
		return nil, fmt.Errorf("%w: unknown kind %v", ErrSerialization, kind)
	}
}

// WriteRecordFrame serializes r, then writes it as one length-prefixed
// frame. It returns the encoded body length (for bytes_total accounting).
func WriteRecordFrame(w io.Writer, r Record) (int, error) {
	var buf bytes.Buffer
	if err := EncodeRecord(&buf, r); err != nil {
		return 0, err
	}
	if err := WriteFrame(w, buf.Bytes()); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

// ReadRecordFrame reads one length-prefixed frame and decodes it as kind.
func ReadRecordFrame(r io.Reader, kind Kind) (Record, error) {
	body, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodeRecord(kind, bytes.NewReader(body))
}
