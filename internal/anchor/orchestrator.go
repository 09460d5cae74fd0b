package anchor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zksl-labs/anchor-core/internal/commitment"
	"github.com/zksl-labs/anchor-core/internal/signer"
	"github.com/zksl-labs/anchor-core/internal/solana"
	zkslerrors "github.com/zksl-labs/anchor-core/pkg/errors"
)

// Orchestrator ties the canonical codec, commitment builder, and signer
// to a ledger Client: it derives the next sequence, validates chain id
// and key activation, assembles the anchor transaction, submits it, and
// maps any rejection onto this system's error taxonomy.
type Orchestrator struct {
	client    Client
	signer    *signer.Signer
	programID solana.Address
	chainID   uint64
	feePayer  solana.Address
}

// NewOrchestrator constructs the submission orchestrator. feePayer is
// the transaction's fee-payer/signer account; in LOCAL_MODE it may be
// the aggregator's own address.
func NewOrchestrator(client Client, s *signer.Signer, programID, feePayer solana.Address, chainID uint64) *Orchestrator {
	return &Orchestrator{
		client:    client,
		signer:    s,
		programID: programID,
		chainID:   chainID,
		feePayer:  feePayer,
	}
}

// AnchorRequest is the input to Anchor: an already-minted artifact plus
// its canonical JSON length, as written to the artifact directory.
type AnchorRequest struct {
	ArtifactID      [16]byte
	ProofHash       [32]byte
	StartSlot       uint64
	EndSlot         uint64
	StateRootBefore [32]byte
	StateRootAfter  [32]byte
	ArtifactLen     uint32
}

// AnchorResult is returned to the submitter's /anchor handler.
type AnchorResult struct {
	AggregatorSignature []byte
	DSHash              [32]byte
	TransactionID       string
	Seq                 uint64
}

// Anchor performs the full C4 flow: fetch on-chain configuration and
// last-used sequence, validate chain id, derive and sign the
// commitment, assemble the three-instruction transaction, and submit.
func (o *Orchestrator) Anchor(ctx context.Context, req AnchorRequest, now time.Time) (AnchorResult, error) {
	configAddr, _, err := solana.ConfigurationPDA(o.programID)
	if err != nil {
		return AnchorResult{}, fmt.Errorf("anchor: derive configuration pda: %w", err)
	}
	configData, err := o.client.FetchAccount(ctx, configAddr)
	if err != nil {
		return AnchorResult{}, zkslerrors.CONFIG_NOT_FOUND.Wrap(err)
	}
	cfg, err := DecodeConfig(configData)
	if err != nil {
		return AnchorResult{}, zkslerrors.CONFIG_NOT_FOUND.Wrap(err)
	}

	if cfg.Paused {
		return AnchorResult{}, zkslerrors.PAUSED.New("aggregator configuration is paused")
	}
	if cfg.ChainID != o.chainID {
		return AnchorResult{}, zkslerrors.CHAIN_ID_MISMATCH.New(
			"configured chain id %d does not match on-chain chain id %d", o.chainID, cfg.ChainID,
		).WithMetadata(zkslerrors.ChainIDMetadata{Configured: o.chainID, OnChain: cfg.ChainID})
	}

	seq, err := o.nextSeq(ctx)
	if err != nil {
		return AnchorResult{}, err
	}

	allowed := signer.AllowedPubkey(signer.ActivationInput{
		AggregatorPubkey:     cfg.AggregatorPubkey,
		NextAggregatorPubkey: cfg.NextAggregatorPubkey,
		ActivationSeq:        cfg.ActivationSeq,
	}, seq)

	preimage, dsHash := commitment.Build(commitment.Input{
		ChainID:   o.chainID,
		ProgramID: o.programID,
		ProofHash: req.ProofHash,
		StartSlot: req.StartSlot,
		EndSlot:   req.EndSlot,
		Seq:       seq,
	})

	sig, err := o.signer.Sign(preimage, signer.ActivationInput{
		AggregatorPubkey:     cfg.AggregatorPubkey,
		NextAggregatorPubkey: cfg.NextAggregatorPubkey,
		ActivationSeq:        cfg.ActivationSeq,
	}, seq)
	if err != nil {
		return AnchorResult{}, err
	}

	payload := Payload{
		ArtifactID:       req.ArtifactID,
		ProofHash:        req.ProofHash,
		Seq:              seq,
		StartSlot:        req.StartSlot,
		EndSlot:          req.EndSlot,
		ArtifactLen:      req.ArtifactLen,
		StateRootBefore:  req.StateRootBefore,
		StateRootAfter:   req.StateRootAfter,
		AggregatorPubkey: allowed,
		Timestamp:        now.Unix(),
		DSHash:           dsHash,
	}

	instructions, err := o.buildTransaction(payload, preimage, sig, allowed, req.ProofHash, seq)
	if err != nil {
		return AnchorResult{}, fmt.Errorf("anchor: build transaction: %w", err)
	}

	txID, err := o.client.SubmitTransaction(ctx, instructions, []solana.Address{o.feePayer})
	if err != nil {
		return AnchorResult{}, MapVerifierError(extractProgramErrorMessage(err), extractProgramErrorCode(err.Error()))
	}

	// A real verifier program advances the aggregator-state account
	// itself as part of processing the transaction. LOCAL_MODE has no
	// such program, so the orchestrator does it here for any client
	// that exposes local account mutation.
	if writer, ok := o.client.(LocalAccountWriter); ok {
		aggregatorAddr, _, pdaErr := solana.AggregatorStatePDA(o.programID)
		if pdaErr == nil {
			writer.PutAccount(aggregatorAddr, EncodeAggregatorState(allowed, seq))
		}
	}

	return AnchorResult{
		AggregatorSignature: sig,
		DSHash:              dsHash,
		TransactionID:       txID,
		Seq:                 seq,
	}, nil
}

// nextSeq reads last_seq from the aggregator-state account (0 if the
// account does not yet exist) and returns last_seq+1.
func (o *Orchestrator) nextSeq(ctx context.Context) (uint64, error) {
	addr, _, err := solana.AggregatorStatePDA(o.programID)
	if err != nil {
		return 0, fmt.Errorf("anchor: derive aggregator state pda: %w", err)
	}

	data, err := o.client.FetchAccount(ctx, addr)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Absent aggregator state means no proof has ever been anchored.
			return 1, nil
		}
		return 0, zkslerrors.FETCH_LAST_SEQ_FAILED.Wrap(err)
	}

	state, err := DecodeAggregatorState(data)
	if err != nil {
		return 0, zkslerrors.FETCH_LAST_SEQ_FAILED.Wrap(err)
	}
	return state.LastSeq + 1, nil
}

// buildTransaction assembles the three instructions in the fixed order
// §4.4 requires: compute-budget, Ed25519 pre-verification, anchor call.
func (o *Orchestrator) buildTransaction(
	payload Payload, preimage []byte, signature []byte, allowedPubkey [32]byte, proofHash [32]byte, seq uint64,
) ([]solana.Instruction, error) {
	var sigArr [64]byte
	copy(sigArr[:], signature)

	ed25519Ix, err := solana.Ed25519PrecompileInstruction(sigArr, allowedPubkey, preimage)
	if err != nil {
		return nil, err
	}

	configAddr, _, err := solana.ConfigurationPDA(o.programID)
	if err != nil {
		return nil, err
	}
	aggregatorAddr, _, err := solana.AggregatorStatePDA(o.programID)
	if err != nil {
		return nil, err
	}
	rangeAddr, _, err := solana.RangeStatePDA(o.programID)
	if err != nil {
		return nil, err
	}
	proofAddr, _, err := solana.ProofRecordPDA(o.programID, proofHash, seq)
	if err != nil {
		return nil, err
	}

	anchorIx := solana.Instruction{
		ProgramID: o.programID,
		Accounts: []solana.AccountMeta{
			{Pubkey: o.feePayer, IsSigner: true, IsWritable: true},
			{Pubkey: configAddr, IsWritable: true},
			{Pubkey: aggregatorAddr, IsWritable: true},
			{Pubkey: rangeAddr, IsWritable: true},
			{Pubkey: proofAddr, IsWritable: true},
			{Pubkey: solana.SysvarInstructions},
			{Pubkey: solana.SystemProgram},
		},
		Data: payload.Encode(),
	}

	return []solana.Instruction{
		solana.ComputeBudgetInstruction(),
		ed25519Ix,
		anchorIx,
	}, nil
}

// extractProgramErrorMessage is a thin adapter so a plain Go error from
// the Client port can be fed through the same raw-message classifier
// MapVerifierError uses for ledger-native rejection strings.
func extractProgramErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
