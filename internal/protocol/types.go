package protocol

// SlotStatusValue is the closed set of slot-status tags.
type SlotStatusValue byte

const (
	SlotStatusProcessed SlotStatusValue = iota
	SlotStatusConfirmed
	SlotStatusRooted
	SlotStatusFirstShredReceived
	SlotStatusCompleted
	SlotStatusDead
)

// Account is an account-update record. Records are immutable once
// published; WriteVersion is monotonic non-decreasing per Pubkey within a
// Slot and is the sole ordering discipline the coalescer relies on.
type Account struct {
	Slot           uint64
	Pubkey         [32]byte
	Owner          [32]byte
	Lamports       uint64
	Data           []byte
	TxSignature    *[64]byte // optional linked-transaction signature
	Executable     bool
	RentEpoch      uint64
	WriteVersion   uint64
}

// Transaction is a transaction record.
type Transaction struct {
	Slot       uint64
	Signature  [64]byte
	MessageHash [32]byte
	IsVote     bool
	Body       []byte // opaque versioned transaction body
	StatusMeta []byte // opaque status metadata
	Index      uint64 // per-block index
}

// Entry is a block-entry record.
type Entry struct {
	Slot             uint64
	Index            uint64 // per-block index
	HashCount        uint64
	Hash             [32]byte
	ExecutedTxnCount uint64
	StartingTxnIndex uint64
}

// Block is a block metadata record.
type Block struct {
	ParentSlot       uint64
	ParentBlockHash  string
	Slot             uint64
	BlockHash        string
	Rewards          []byte // opaque rewards record
	BlockTime        *int64
	BlockHeight      *uint64
	ExecutedTxnCount uint64
	EntryCount       uint64
}

// SlotStatus is a slot-status notification record.
type SlotStatus struct {
	Slot       uint64
	ParentSlot *uint64
	Status     SlotStatusValue
}
