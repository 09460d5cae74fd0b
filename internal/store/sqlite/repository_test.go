package sqlitestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zksl-labs/anchor-core/internal/store"
	sqlitestore "github.com/zksl-labs/anchor-core/internal/store/sqlite"
)

func open(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlitestore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func sampleProof(proofHash byte, seq uint64) store.Proof {
	return store.Proof{
		ArtifactID:       "artifact-1",
		StartSlot:        100,
		EndSlot:          200,
		ProofHash:        [32]byte{proofHash},
		DSHash:           [32]byte{0xaa},
		ArtifactLen:      1024,
		StateRootBefore:  [32]byte{0x01},
		StateRootAfter:   [32]byte{0x02},
		SubmittedBy:      "submitter-pubkey",
		AggregatorPubkey: "aggregator-pubkey",
		Timestamp:        time.Unix(1700000000, 0),
		Seq:              seq,
		CommitmentLevel:  store.CommitmentProcessed,
		TxID:             "sig-1",
	}
}

func TestUpsertAndGetProofByArtifactID(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	p := sampleProof(1, 1)
	require.NoError(t, s.UpsertProof(ctx, p))

	got, err := s.GetProofByArtifactID(ctx, p.ArtifactID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, p.ProofHash, got.ProofHash)
	require.Equal(t, p.CommitmentLevel, got.CommitmentLevel)
	require.Equal(t, p.TxID, got.TxID)
}

func TestGetProofByArtifactIDMissReturnsNilNil(t *testing.T) {
	got, err := open(t).GetProofByArtifactID(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestUpsertProofUpdatesCommitmentLevelAndKeepsTxIDOnRetry(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	p := sampleProof(2, 1)
	require.NoError(t, s.UpsertProof(ctx, p))

	p.CommitmentLevel = store.CommitmentFinalized
	p.TxID = ""
	require.NoError(t, s.UpsertProof(ctx, p))

	got, err := s.GetProofByHashSeq(ctx, p.ProofHash, p.Seq)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, store.CommitmentFinalized, got.CommitmentLevel)
	require.Equal(t, "sig-1", got.TxID, "a later upsert with no txid must not clobber the one already stored")
}

func TestListBelowCommitmentOrdersOldestFirstAndRespectsLimit(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	older := sampleProof(3, 1)
	older.ArtifactID = "artifact-older"
	older.Timestamp = time.Unix(1000, 0)
	older.CommitmentLevel = store.CommitmentProcessed

	newer := sampleProof(4, 2)
	newer.ArtifactID = "artifact-newer"
	newer.Timestamp = time.Unix(2000, 0)
	newer.CommitmentLevel = store.CommitmentProcessed

	finalized := sampleProof(5, 3)
	finalized.ArtifactID = "artifact-finalized"
	finalized.CommitmentLevel = store.CommitmentFinalized

	require.NoError(t, s.UpsertProof(ctx, older))
	require.NoError(t, s.UpsertProof(ctx, newer))
	require.NoError(t, s.UpsertProof(ctx, finalized))

	pending, err := s.ListBelowCommitment(ctx, store.CommitmentFinalized, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, older.ProofHash, pending[0].ProofHash)
	require.Equal(t, newer.ProofHash, pending[1].ProofHash)

	limited, err := s.ListBelowCommitment(ctx, store.CommitmentFinalized, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestDeleteProofRemovesOnlyMatchingRow(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	a := sampleProof(6, 1)
	a.ArtifactID = "artifact-a"
	b := sampleProof(6, 2)
	b.ArtifactID = "artifact-b"
	require.NoError(t, s.UpsertProof(ctx, a))
	require.NoError(t, s.UpsertProof(ctx, b))

	require.NoError(t, s.DeleteProof(ctx, a.ProofHash, a.Seq))

	got, err := s.GetProofByHashSeq(ctx, a.ProofHash, a.Seq)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = s.GetProofByHashSeq(ctx, b.ProofHash, b.Seq)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestUpsertAndGetValidator(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	v := store.Validator{
		Pubkey:     "validator-pubkey",
		Status:     store.ValidatorActive,
		Escrow:     "escrow-account",
		LockTS:     time.Unix(1700000000, 0),
		NumAccepts: 3,
		LastSeen:   time.Unix(1700000500, 0),
	}
	require.NoError(t, s.UpsertValidator(ctx, v))

	got, err := s.GetValidator(ctx, v.Pubkey)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, v.Status, got.Status)
	require.Equal(t, v.NumAccepts, got.NumAccepts)

	v.Status = store.ValidatorUnlocked
	v.NumAccepts = 4
	require.NoError(t, s.UpsertValidator(ctx, v))

	got, err = s.GetValidator(ctx, v.Pubkey)
	require.NoError(t, err)
	require.Equal(t, store.ValidatorUnlocked, got.Status)
	require.Equal(t, uint64(4), got.NumAccepts)
}

func TestGetValidatorMissReturnsNilNil(t *testing.T) {
	got, err := open(t).GetValidator(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCursorRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	c, err := s.GetCursor(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), c.LastSeenSlot)

	c.LastSeenSlot = 42
	c.LastSignature = "sig-abc"
	c.LastScanTS = time.Unix(1700000000, 0)
	require.NoError(t, s.SaveCursor(ctx, c))

	got, err := s.GetCursor(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(42), got.LastSeenSlot)
	require.Equal(t, "sig-abc", got.LastSignature)
}
