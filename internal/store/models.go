// Package store defines the relational persistence contracts the
// indexer writes to and the submitter's read-side handlers query: the
// proofs and validators projections, and the single-row indexer cursor.
package store

import "time"

// CommitmentLevel mirrors the ledger's confirmation grade, persisted
// alongside each proof row.
type CommitmentLevel int16

const (
	CommitmentProcessed CommitmentLevel = 0
	CommitmentConfirmed CommitmentLevel = 1
	CommitmentFinalized CommitmentLevel = 2
)

// Proof is one row of the proofs table: the anchored tuple plus the
// store's own view of its finality.
type Proof struct {
	ArtifactID       string
	StartSlot        uint64
	EndSlot          uint64
	ProofHash        [32]byte
	DSHash           [32]byte
	ArtifactLen      uint32
	StateRootBefore  [32]byte
	StateRootAfter   [32]byte
	SubmittedBy      string
	AggregatorPubkey string
	Timestamp        time.Time
	Seq              uint64
	CommitmentLevel  CommitmentLevel
	TxID             string
}

// ValidatorStatus mirrors the on-chain validator status enum, persisted
// as text per the external schema.
type ValidatorStatus string

const (
	ValidatorActive   ValidatorStatus = "Active"
	ValidatorUnlocked ValidatorStatus = "Unlocked"
)

// Validator is one row of the validators table.
type Validator struct {
	Pubkey     string
	Status     ValidatorStatus
	Escrow     string
	LockTS     time.Time
	UnlockTS   time.Time
	NumAccepts uint64
	LastSeen   time.Time
}

// Cursor is the single persisted indexer_state row.
type Cursor struct {
	LastScanTS       time.Time
	LastSeenSlot     uint64
	LastSignature    string
	LastReconciledTS time.Time
}
