package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zksl-labs/anchor-core/internal/anchor"
	"github.com/zksl-labs/anchor-core/internal/solana"
	"github.com/zksl-labs/anchor-core/internal/store"
)

// fakeClient is a minimal anchor.Client double: every call is routed
// through a field the test sets up, so each test only has to wire the
// one method it cares about.
type fakeClient struct {
	signatureStatus func(ctx context.Context, signature string) (anchor.SignatureStatus, error)
}

func (f *fakeClient) FetchAccount(context.Context, solana.Address) ([]byte, error) {
	return nil, nil
}

func (f *fakeClient) FetchProgramAccounts(context.Context, solana.Address) (map[solana.Address][]byte, error) {
	return nil, nil
}

func (f *fakeClient) SubmitTransaction(context.Context, []solana.Instruction, []solana.Address) (string, error) {
	return "", nil
}

func (f *fakeClient) SignatureStatus(ctx context.Context, signature string) (anchor.SignatureStatus, error) {
	if f.signatureStatus != nil {
		return f.signatureStatus(ctx, signature)
	}
	return anchor.StatusUnknown, nil
}

func (f *fakeClient) EarliestSignatureFor(context.Context, solana.Address) (string, error) {
	return "", nil
}

func (f *fakeClient) StreamAccountChanges(context.Context, solana.Address, func(anchor.AccountChange)) error {
	return nil
}

// fakeStore is a minimal store.Store double backed by a plain slice of
// proofs, enough to exercise reconcile's read-modify-write cycle
// without a real database.
type fakeStore struct {
	proofs        []store.Proof
	cursor        store.Cursor
	upsertCalls   int
	deletedHashes [][32]byte
}

func (s *fakeStore) UpsertProof(_ context.Context, p store.Proof) error {
	s.upsertCalls++
	for i, existing := range s.proofs {
		if existing.ProofHash == p.ProofHash && existing.Seq == p.Seq {
			s.proofs[i] = p
			return nil
		}
	}
	s.proofs = append(s.proofs, p)
	return nil
}

func (s *fakeStore) GetProofByArtifactID(context.Context, string) (*store.Proof, error) {
	return nil, nil
}

func (s *fakeStore) GetProofByHashSeq(context.Context, [32]byte, uint64) (*store.Proof, error) {
	return nil, nil
}

func (s *fakeStore) ListBelowCommitment(_ context.Context, level store.CommitmentLevel, limit int) ([]store.Proof, error) {
	var out []store.Proof
	for _, p := range s.proofs {
		if p.CommitmentLevel < level {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteProof(_ context.Context, proofHash [32]byte, seq uint64) error {
	s.deletedHashes = append(s.deletedHashes, proofHash)
	for i, p := range s.proofs {
		if p.ProofHash == proofHash && p.Seq == seq {
			s.proofs = append(s.proofs[:i], s.proofs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStore) MaxEndSlot(context.Context) (uint64, error) { return 0, nil }

func (s *fakeStore) UpsertValidator(context.Context, store.Validator) error { return nil }

func (s *fakeStore) GetValidator(context.Context, string) (*store.Validator, error) { return nil, nil }

func (s *fakeStore) GetCursor(context.Context) (store.Cursor, error) { return s.cursor, nil }

func (s *fakeStore) SaveCursor(_ context.Context, c store.Cursor) error {
	s.cursor = c
	return nil
}

func (s *fakeStore) Close() error { return nil }

func TestCommitmentLevelForMapsEachStatus(t *testing.T) {
	require.Equal(t, store.CommitmentFinalized, commitmentLevelFor(anchor.StatusFinalized))
	require.Equal(t, store.CommitmentConfirmed, commitmentLevelFor(anchor.StatusConfirmed))
	require.Equal(t, store.CommitmentProcessed, commitmentLevelFor(anchor.StatusProcessed))
	require.Equal(t, store.CommitmentProcessed, commitmentLevelFor(anchor.StatusUnknown))
}

func TestReconcilePurgesProofWithNoSignatureAfterDroppedAfter(t *testing.T) {
	now := time.Now()
	st := &fakeStore{
		proofs: []store.Proof{
			{ProofHash: [32]byte{1}, Seq: 1, CommitmentLevel: store.CommitmentProcessed, TxID: "", Timestamp: now.Add(-2 * DroppedAfter)},
		},
	}
	e := &Engine{client: &fakeClient{}, store: st}

	e.reconcile(context.Background(), now)

	require.Len(t, st.proofs, 0)
	require.Len(t, st.deletedHashes, 1)
}

func TestReconcileKeepsRecentProofWithNoSignature(t *testing.T) {
	now := time.Now()
	st := &fakeStore{
		proofs: []store.Proof{
			{ProofHash: [32]byte{1}, Seq: 1, CommitmentLevel: store.CommitmentProcessed, TxID: "", Timestamp: now},
		},
	}
	e := &Engine{client: &fakeClient{}, store: st}

	e.reconcile(context.Background(), now)

	require.Len(t, st.proofs, 1)
	require.Len(t, st.deletedHashes, 0)
}

func TestReconcileBumpsCommitmentLevelOnProgress(t *testing.T) {
	now := time.Now()
	st := &fakeStore{
		proofs: []store.Proof{
			{ProofHash: [32]byte{2}, Seq: 5, CommitmentLevel: store.CommitmentProcessed, TxID: "sig-1", Timestamp: now},
		},
	}
	client := &fakeClient{
		signatureStatus: func(context.Context, string) (anchor.SignatureStatus, error) {
			return anchor.StatusFinalized, nil
		},
	}
	e := &Engine{client: client, store: st}

	e.reconcile(context.Background(), now)

	require.Equal(t, store.CommitmentFinalized, st.proofs[0].CommitmentLevel)
	require.Equal(t, 1, st.upsertCalls)
	require.WithinDuration(t, now, st.cursor.LastReconciledTS, time.Second)
}

func TestReconcilePurgesDroppedProofOnceLedgerForgetsIt(t *testing.T) {
	now := time.Now()
	st := &fakeStore{
		proofs: []store.Proof{
			{ProofHash: [32]byte{3}, Seq: 1, CommitmentLevel: store.CommitmentProcessed, TxID: "sig-missing", Timestamp: now.Add(-2 * DroppedAfter)},
		},
	}
	client := &fakeClient{
		signatureStatus: func(context.Context, string) (anchor.SignatureStatus, error) {
			return anchor.StatusUnknown, nil
		},
	}
	e := &Engine{client: client, store: st}

	e.reconcile(context.Background(), now)

	require.Len(t, st.proofs, 0)
	require.Len(t, st.deletedHashes, 1)
}

func TestReconcileSkipsProofAlreadyAtOrAboveLedgerLevel(t *testing.T) {
	now := time.Now()
	st := &fakeStore{
		proofs: []store.Proof{
			{ProofHash: [32]byte{4}, Seq: 1, CommitmentLevel: store.CommitmentConfirmed, TxID: "sig-1", Timestamp: now},
		},
	}
	client := &fakeClient{
		signatureStatus: func(context.Context, string) (anchor.SignatureStatus, error) {
			return anchor.StatusConfirmed, nil
		},
	}
	e := &Engine{client: client, store: st}

	e.reconcile(context.Background(), now)

	require.Equal(t, 0, st.upsertCalls)
}
