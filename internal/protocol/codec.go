package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Record is any of the five event kinds; Encode/Decode give each kind a
// deterministic binary serialization. The encoding carries no version
// tag: a body is the kind's fields in a fixed order and nothing else. The
// codec preserves round-trip identity: Decode(Encode(r)) == r for every
// valid r.
type Record interface {
	Kind() Kind
}

func (Account) Kind() Kind     { return KindAccount }
func (Transaction) Kind() Kind { return KindTransaction }
func (Entry) Kind() Kind       { return KindEntry }
func (Block) Kind() Kind       { return KindBlock }
func (SlotStatus) Kind() Kind  { return KindSlotStatus }

// writeBytes writes a length-prefixed byte string: [uint32 BE len][bytes].
func writeBytes(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader, maxLen uint32) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading length: %v", ErrTruncatedFrame, err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if maxLen > 0 && n > maxLen {
		return nil, fmt.Errorf("%w: field length %d exceeds %d", ErrSerialization, n, maxLen)
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrTruncatedFrame, err)
	}
	return buf, nil
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

func readString(r io.Reader, maxLen uint32) (string, error) {
	b, err := readBytes(r, maxLen)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncatedFrame, err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func writeBool(w io.Writer, v bool) error {
	b := byte(0)
	if v {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

func readBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, fmt.Errorf("%w: %v", ErrTruncatedFrame, err)
	}
	return b[0] != 0, nil
}

// maxFieldLen bounds every length-prefixed field so a corrupt or hostile
// frame cannot force an unbounded allocation.
const maxFieldLen = 64 * 1024 * 1024

// EncodeAccount writes the deterministic binary form of an Account record.
func EncodeAccount(w io.Writer, a *Account) error {
	if err := writeUint64(w, a.Slot); err != nil {
		return err
	}
	if _, err := w.Write(a.Pubkey[:]); err != nil {
		return err
	}
	if _, err := w.Write(a.Owner[:]); err != nil {
		return err
	}
	if err := writeUint64(w, a.Lamports); err != nil {
		return err
	}
	if err := writeBytes(w, a.Data); err != nil {
		return err
	}
	hasSig := a.TxSignature != nil
	if err := writeBool(w, hasSig); err != nil {
		return err
	}
	if hasSig {
		if _, err := w.Write(a.TxSignature[:]); err != nil {
			return err
		}
	}
	if err := writeBool(w, a.Executable); err != nil {
		return err
	}
	if err := writeUint64(w, a.RentEpoch); err != nil {
		return err
	}
	return writeUint64(w, a.WriteVersion)
}

// DecodeAccount reads an Account record written by EncodeAccount.
func DecodeAccount(r io.Reader) (*Account, error) {
	a := &Account{}
	var err error
	if a.Slot, err = readUint64(r); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, a.Pubkey[:]); err != nil {
		return nil, fmt.Errorf("%w: pubkey: %v", ErrTruncatedFrame, err)
	}
	if _, err = io.ReadFull(r, a.Owner[:]); err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrTruncatedFrame, err)
	}
	if a.Lamports, err = readUint64(r); err != nil {
		return nil, err
	}
	if a.Data, err = readBytes(r, maxFieldLen); err != nil {
		return nil, err
	}
	hasSig, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if hasSig {
		var sig [64]byte
		if _, err = io.ReadFull(r, sig[:]); err != nil {
			return nil, fmt.Errorf("%w: tx signature: %v", ErrTruncatedFrame, err)
		}
		a.TxSignature = &sig
	}
	if a.Executable, err = readBool(r); err != nil {
		return nil, err
	}
	if a.RentEpoch, err = readUint64(r); err != nil {
		return nil, err
	}
	if a.WriteVersion, err = readUint64(r); err != nil {
		return nil, err
	}
	return a, nil
}

// EncodeTransaction writes the deterministic binary form of a Transaction record.
func EncodeTransaction(w io.Writer, t *Transaction) error {
	if err := writeUint64(w, t.Slot); err != nil {
		return err
	}
	if _, err := w.Write(t.Signature[:]); err != nil {
		return err
	}
	if _, err := w.Write(t.MessageHash[:]); err != nil {
		return err
	}
	if err := writeBool(w, t.IsVote); err != nil {
		return err
	}
	if err := writeBytes(w, t.Body); err != nil {
		return err
	}
	if err := writeBytes(w, t.StatusMeta); err != nil {
		return err
	}
	return writeUint64(w, t.Index)
}

// DecodeTransaction reads a Transaction record written by EncodeTransaction.
func DecodeTransaction(r io.Reader) (*Transaction, error) {
	t := &Transaction{}
	var err error
	if t.Slot, err = readUint64(r); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, t.Signature[:]); err != nil {
		return nil, fmt.Errorf("%w: signature: %v", ErrTruncatedFrame, err)
	}
	if _, err = io.ReadFull(r, t.MessageHash[:]); err != nil {
		return nil, fmt.Errorf("%w: message hash: %v", ErrTruncatedFrame, err)
	}
	if t.IsVote, err = readBool(r); err != nil {
		return nil, err
	}
	if t.Body, err = readBytes(r, maxFieldLen); err != nil {
		return nil, err
	}
	if t.StatusMeta, err = readBytes(r, maxFieldLen); err != nil {
		return nil, err
	}
	if t.Index, err = readUint64(r); err != nil {
		return nil, err
	}
	return t, nil
}

// EncodeEntry writes the deterministic binary form of an Entry record.
func EncodeEntry(w io.Writer, e *Entry) error {
	if err := writeUint64(w, e.Slot); err != nil {
		return err
	}
	if err := writeUint64(w, e.Index); err != nil {
		return err
	}
	if err := writeUint64(w, e.HashCount); err != nil {
		return err
	}
	if _, err := w.Write(e.Hash[:]); err != nil {
		return err
	}
	if err := writeUint64(w, e.ExecutedTxnCount); err != nil {
		return err
	}
	return writeUint64(w, e.StartingTxnIndex)
}

// DecodeEntry reads an Entry record written by EncodeEntry.
func DecodeEntry(r io.Reader) (*Entry, error) {
	e := &Entry{}
	var err error
	if e.Slot, err = readUint64(r); err != nil {
		return nil, err
	}
	if e.Index, err = readUint64(r); err != nil {
		return nil, err
	}
	if e.HashCount, err = readUint64(r); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, e.Hash[:]); err != nil {
		return nil, fmt.Errorf("%w: hash: %v", ErrTruncatedFrame, err)
	}
	if e.ExecutedTxnCount, err = readUint64(r); err != nil {
		return nil, err
	}
	if e.StartingTxnIndex, err = readUint64(r); err != nil {
		return nil, err
	}
	return e, nil
}

// EncodeBlock writes the deterministic binary form of a Block record.
func EncodeBlock(w io.Writer, b *Block) error {
	if err := writeUint64(w, b.ParentSlot); err != nil {
		return err
	}
	if err := writeString(w, b.ParentBlockHash); err != nil {
		return err
	}
	if err := writeUint64(w, b.Slot); err != nil {
		return err
	}
	if err := writeString(w, b.BlockHash); err != nil {
		return err
	}
	if err := writeBytes(w, b.Rewards); err != nil {
		return err
	}
	hasTime := b.BlockTime != nil
	if err := writeBool(w, hasTime); err != nil {
		return err
	}
	if hasTime {
		if err := writeUint64(w, uint64(*b.BlockTime)); err != nil {
			return err
		}
	}
	hasHeight := b.BlockHeight != nil
	if err := writeBool(w, hasHeight); err != nil {
		return err
	}
	if hasHeight {
		if err := writeUint64(w, *b.BlockHeight); err != nil {
			return err
		}
	}
	if err := writeUint64(w, b.ExecutedTxnCount); err != nil {
		return err
	}
	return writeUint64(w, b.EntryCount)
}

// DecodeBlock reads a Block record written by EncodeBlock.
func DecodeBlock(r io.Reader) (*Block, error) {
	b := &Block{}
	var err error
	if b.ParentSlot, err = readUint64(r); err != nil {
		return nil, err
	}
	if b.ParentBlockHash, err = readString(r, maxFieldLen); err != nil {
		return nil, err
	}
	if b.Slot, err = readUint64(r); err != nil {
		return nil, err
	}
	if b.BlockHash, err = readString(r, maxFieldLen); err != nil {
		return nil, err
	}
	if b.Rewards, err = readBytes(r, maxFieldLen); err != nil {
		return nil, err
	}
	hasTime, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if hasTime {
		v, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		t := int64(v)
		b.BlockTime = &t
	}
	hasHeight, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if hasHeight {
		v, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		b.BlockHeight = &v
	}
	if b.ExecutedTxnCount, err = readUint64(r); err != nil {
		return nil, err
	}
	if b.EntryCount, err = readUint64(r); err != nil {
		return nil, err
	}
	return b, nil
}

// EncodeSlotStatus writes the deterministic binary form of a SlotStatus record.
func EncodeSlotStatus(w io.Writer, s *SlotStatus) error {
	if err := writeUint64(w, s.Slot); err != nil {
		return err
	}
	hasParent := s.ParentSlot != nil
	if err := writeBool(w, hasParent); err != nil {
		return err
	}
	if hasParent {
		if err := writeUint64(w, *s.ParentSlot); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{byte(s.Status)})
	return err
}

// DecodeSlotStatus reads a SlotStatus record written by EncodeSlotStatus.
func DecodeSlotStatus(r io.Reader) (*SlotStatus, error) {
	s := &SlotStatus{}
	var err error
	if s.Slot, err = readUint64(r); err != nil {
		return nil, err
	}
	hasParent, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if hasParent {
		v, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		s.ParentSlot = &v
	}
	var statusByte [1]byte
	if _, err = io.ReadFull(r, statusByte[:]); err != nil {
		return nil, fmt.Errorf("%w: status: %v", ErrTruncatedFrame, err)
	}
	s.Status = SlotStatusValue(statusByte[0])
	return s, nil
}
