package store

import "context"

// ProofRepository upserts and queries the proofs projection. Upserts
// are keyed by (proof_hash, seq): a re-insert of the same tuple updates
// only commitment_level and txid (§4.5 upsert semantics).
type ProofRepository interface {
	UpsertProof(ctx context.Context, p Proof) error
	GetProofByArtifactID(ctx context.Context, artifactID string) (*Proof, error)
	GetProofByHashSeq(ctx context.Context, proofHash [32]byte, seq uint64) (*Proof, error)
	ListBelowCommitment(ctx context.Context, level CommitmentLevel, limit int) ([]Proof, error)
	DeleteProof(ctx context.Context, proofHash [32]byte, seq uint64) error
	MaxEndSlot(ctx context.Context) (uint64, error)
}

// ValidatorRepository upserts and queries the validators projection,
// keyed by pubkey.
type ValidatorRepository interface {
	UpsertValidator(ctx context.Context, v Validator) error
	GetValidator(ctx context.Context, pubkey string) (*Validator, error)
}

// CursorRepository persists the single indexer_state row across
// restarts.
type CursorRepository interface {
	GetCursor(ctx context.Context) (Cursor, error)
	SaveCursor(ctx context.Context, c Cursor) error
}

// Store aggregates the three repositories behind one handle so callers
// need only thread a single dependency through the submitter and
// indexer binaries.
type Store interface {
	ProofRepository
	ValidatorRepository
	CursorRepository
	Close() error
}
