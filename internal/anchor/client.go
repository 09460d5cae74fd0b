package anchor

import (
	"context"
	"errors"

	"github.com/zksl-labs/anchor-core/internal/solana"
)

// ErrAccountNotFound is returned by Client.FetchAccount when the ledger
// genuinely has no account at the given address, as distinct from a
// transport, HTTP, or decode failure while asking. Callers that need to
// tell "never written" apart from "could not find out" should check
// errors.Is(err, ErrAccountNotFound) rather than treating every
// FetchAccount error the same way.
var ErrAccountNotFound = errors.New("anchor: account not found")

// SignatureStatus mirrors the ledger's confirmation levels.
type SignatureStatus int

const (
	StatusUnknown SignatureStatus = iota
	StatusProcessed
	StatusConfirmed
	StatusFinalized
)

// AccountChange is a single account-change event delivered by the
// streaming path.
type AccountChange struct {
	Address solana.Address
	Data    []byte
}

// Client is the port this system depends on for everything the ledger
// node provides: submit a transaction, fetch account data by address,
// stream account changes for a program, and query a signature's
// confirmation status. The submitter and indexer share one
// implementation of this port; tests and LOCAL_MODE substitute a fake.
type Client interface {
	FetchAccount(ctx context.Context, addr solana.Address) ([]byte, error)
	FetchProgramAccounts(ctx context.Context, programID solana.Address) (map[solana.Address][]byte, error)
	SubmitTransaction(ctx context.Context, instructions []solana.Instruction, signers []solana.Address) (string, error)
	SignatureStatus(ctx context.Context, signature string) (SignatureStatus, error)
	EarliestSignatureFor(ctx context.Context, addr solana.Address) (string, error)
	StreamAccountChanges(ctx context.Context, programID solana.Address, onChange func(AccountChange)) error
}

// LocalAccountWriter is implemented by Client backends that hold their
// account state entirely in-process (LOCAL_MODE's fake). The
// orchestrator type-asserts for it to advance bookkeeping accounts a
// real verifier program would otherwise maintain on-chain.
type LocalAccountWriter interface {
	PutAccount(addr solana.Address, data []byte)
}
