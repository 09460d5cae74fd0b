package anchor

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zksl-labs/anchor-core/internal/solana"
)

// LocalClient is the LOCAL_MODE fake: /anchor never contacts the
// ledger, sequence is a process-local counter, and submitted
// transactions are synthesized as "LOCAL-<hex>" ids.
type LocalClient struct {
	seq      atomic.Uint64
	mu       sync.Mutex
	accounts map[solana.Address][]byte
}

// NewLocalClient constructs the in-process fake used when LOCAL_MODE is
// set.
func NewLocalClient() *LocalClient {
	return &LocalClient{accounts: make(map[solana.Address][]byte)}
}

func (c *LocalClient) FetchAccount(ctx context.Context, addr solana.Address) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("anchor local: account %s: %w", solana.EncodeAddress(addr), ErrAccountNotFound)
	}
	return data, nil
}

func (c *LocalClient) FetchProgramAccounts(ctx context.Context, programID solana.Address) (map[solana.Address][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[solana.Address][]byte, len(c.accounts))
	for addr, data := range c.accounts {
		out[addr] = data
	}
	return out, nil
}

func (c *LocalClient) SubmitTransaction(ctx context.Context, instructions []solana.Instruction, signers []solana.Address) (string, error) {
	next := c.seq.Add(1)
	id := make([]byte, 8)
	for i := range id {
		id[i] = byte(next >> (8 * i))
	}
	return fmt.Sprintf("LOCAL-%s", hex.EncodeToString(id)), nil
}

func (c *LocalClient) SignatureStatus(ctx context.Context, signature string) (SignatureStatus, error) {
	return StatusFinalized, nil
}

func (c *LocalClient) EarliestSignatureFor(ctx context.Context, addr solana.Address) (string, error) {
	return "", fmt.Errorf("anchor local: signature lookup unavailable in local mode")
}

func (c *LocalClient) StreamAccountChanges(ctx context.Context, programID solana.Address, onChange func(AccountChange)) error {
	<-ctx.Done()
	return ctx.Err()
}

// PutAccount seeds the fake ledger's account map, used by tests and by
// the submitter's own bookkeeping of locally-derived PDAs.
func (c *LocalClient) PutAccount(addr solana.Address, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[addr] = data
}
