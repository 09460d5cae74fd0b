// Package indexer implements C5: it subscribes to account-change events
// for the verifier program, polls program-owned accounts on a fixed
// cadence, decodes the two record kinds the program emits, upserts them
// into the relational store, and reconciles pending proof commitments
// to finality by re-querying the ledger's signature status.
package indexer

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/zksl-labs/anchor-core/internal/anchor"
	"github.com/zksl-labs/anchor-core/internal/solana"
	"github.com/zksl-labs/anchor-core/internal/store"
)

// PollInterval is the fixed polling cadence (§4.5): every 20s, and
// immediately on startup.
const PollInterval = 20 * time.Second

// ReconcileBatchSize bounds how many pending rows a single
// reconciliation cycle re-queries.
const ReconcileBatchSize = 100

// DroppedAfter is how long a commitment_level<2 row may sit with no
// resolvable signature before it is presumed dropped and purged.
const DroppedAfter = 60 * time.Second

// Engine runs the streaming and polling disciplines described in §4.5.
// Both disciplines, and the reconciliation pass that follows every poll
// cycle, share one store connection. The streaming callback runs in its
// own goroutine and is not serialized with scan cycles: it can run while
// a scan cycle is in progress. It touches the store only for validator
// upserts, and concurrent store writes are ordered by their own
// primary-key ON CONFLICT clauses.
type Engine struct {
	client    anchor.Client
	store     store.Store
	programID solana.Address
	poll      *poller
}

// New constructs an indexer Engine. pollInterval of zero falls back to
// PollInterval, the §4.5 default cadence.
func New(client anchor.Client, s store.Store, programID solana.Address, pollInterval time.Duration) *Engine {
	if pollInterval <= 0 {
		pollInterval = PollInterval
	}
	return &Engine{
		client:    client,
		store:     s,
		programID: programID,
		poll:      newPoller(pollInterval),
	}
}

// Run blocks until ctx is cancelled, running the streaming subscription
// and the poll/reconcile cadence concurrently.
func (e *Engine) Run(ctx context.Context) {
	go e.runStreaming(ctx)
	e.poll.run(ctx, e.runCycle)
}

// Stop ends the polling loop; the streaming goroutine exits when ctx is
// cancelled.
func (e *Engine) Stop() {
	e.poll.stop()
}

// runStreaming subscribes to account-change events for the program.
// Validator records are upserted immediately; proof records are not,
// since a bare account-change event carries no verified transaction id
// (§4.5) — those are only ever upserted by the polling path below.
func (e *Engine) runStreaming(ctx context.Context) {
	err := e.client.StreamAccountChanges(ctx, e.programID, func(change anchor.AccountChange) {
		if len(change.Data) < 8 {
			return
		}
		var disc [8]byte
		copy(disc[:], change.Data[:8])

		if disc != anchor.ValidatorRecordDiscriminator {
			return
		}

		record, err := anchor.DecodeValidatorRecord(change.Data)
		if err != nil {
			log.WithError(err).Warn("indexer: decode streamed validator record")
			return
		}

		if err := e.upsertValidator(ctx, record); err != nil {
			log.WithError(err).Warn("indexer: upsert streamed validator record")
		}
	})
	if err != nil && ctx.Err() == nil {
		log.WithError(err).Warn("indexer: account change stream ended")
	}
}

// runCycle is one polling cycle: stamp last_scan_ts, fetch every
// program-owned account, decode and upsert what is found, advance
// last_seen_slot, then run reconciliation.
func (e *Engine) runCycle(ctx context.Context) {
	now := time.Now()

	cursor, err := e.store.GetCursor(ctx)
	if err != nil {
		log.WithError(err).Error("indexer: read cursor")
		return
	}
	cursor.LastScanTS = now
	if err := e.store.SaveCursor(ctx, cursor); err != nil {
		log.WithError(err).Error("indexer: stamp last_scan_ts")
	}

	accounts, err := e.client.FetchProgramAccounts(ctx, e.programID)
	if err != nil {
		log.WithError(err).Error("indexer: fetch program accounts")
		return
	}

	maxEndSlot := cursor.LastSeenSlot
	for addr, data := range accounts {
		if len(data) < 8 {
			continue
		}
		var disc [8]byte
		copy(disc[:], data[:8])

		switch disc {
		case anchor.ValidatorRecordDiscriminator:
			record, err := anchor.DecodeValidatorRecord(data)
			if err != nil {
				log.WithError(err).Warn("indexer: decode polled validator record")
				continue
			}
			if err := e.upsertValidator(ctx, record); err != nil {
				log.WithError(err).Warn("indexer: upsert polled validator record")
			}

		case anchor.ProofRecordDiscriminator:
			record, err := anchor.DecodeOnChainProofRecord(data)
			if err != nil {
				log.WithError(err).Warn("indexer: decode proof record")
				continue
			}
			if record.EndSlot <= cursor.LastSeenSlot {
				if record.EndSlot > maxEndSlot {
					maxEndSlot = record.EndSlot
				}
				continue
			}

			if err := e.resolveAndUpsertProof(ctx, addr, record); err != nil {
				log.WithError(err).Warn("indexer: resolve proof record")
				continue
			}
			if record.EndSlot > maxEndSlot {
				maxEndSlot = record.EndSlot
			}
		}
	}

	cursor, err = e.store.GetCursor(ctx)
	if err != nil {
		log.WithError(err).Error("indexer: re-read cursor before advancing")
		return
	}
	cursor.LastSeenSlot = maxEndSlot
	if err := e.store.SaveCursor(ctx, cursor); err != nil {
		log.WithError(err).Error("indexer: advance last_seen_slot")
	}

	e.reconcile(ctx, now)
}

// resolveAndUpsertProof finds the earliest transaction signature that
// wrote addr, asks for its confirmation status, and upserts the proof
// row with the resulting commitment level.
func (e *Engine) resolveAndUpsertProof(ctx context.Context, addr solana.Address, record anchor.OnChainProofRecord) error {
	sig, err := e.client.EarliestSignatureFor(ctx, addr)
	if err != nil {
		return err
	}

	status, err := e.client.SignatureStatus(ctx, sig)
	if err != nil {
		return err
	}

	level := commitmentLevelFor(status)

	if err := e.store.UpsertProof(ctx, store.Proof{
		ArtifactID:       uuid.UUID(record.ArtifactID).String(),
		StartSlot:        record.StartSlot,
		EndSlot:          record.EndSlot,
		ProofHash:        record.ProofHash,
		DSHash:           record.DSHash,
		ArtifactLen:      record.ArtifactLen,
		StateRootBefore:  record.StateRootBefore,
		StateRootAfter:   record.StateRootAfter,
		SubmittedBy:      solana.EncodeAddress(record.SubmittedBy),
		AggregatorPubkey: solana.EncodeAddress(record.AggregatorPubkey),
		Timestamp:        time.Unix(record.Timestamp, 0),
		Seq:              record.Seq,
		CommitmentLevel:  level,
		TxID:             sig,
	}); err != nil {
		return err
	}

	if level >= store.CommitmentConfirmed {
		cursor, err := e.store.GetCursor(ctx)
		if err != nil {
			return err
		}
		cursor.LastSignature = sig
		return e.store.SaveCursor(ctx, cursor)
	}
	return nil
}

// reconcile re-queries up to ReconcileBatchSize pending proof rows,
// oldest-first, bumping their commitment level when the ledger reports
// progress and purging rows the ledger no longer recognizes after
// DroppedAfter has elapsed.
func (e *Engine) reconcile(ctx context.Context, now time.Time) {
	pending, err := e.store.ListBelowCommitment(ctx, store.CommitmentFinalized, ReconcileBatchSize)
	if err != nil {
		log.WithError(err).Error("indexer: list pending proofs for reconciliation")
		return
	}

	for _, p := range pending {
		if p.TxID == "" {
			if now.Sub(p.Timestamp) > DroppedAfter {
				if err := e.store.DeleteProof(ctx, p.ProofHash, p.Seq); err != nil {
					log.WithError(err).Warn("indexer: purge proof with no signature")
				}
			}
			continue
		}

		status, err := e.client.SignatureStatus(ctx, p.TxID)
		if err != nil {
			log.WithError(err).Warn("indexer: re-query signature status")
			continue
		}

		if status == anchor.StatusUnknown {
			if now.Sub(p.Timestamp) > DroppedAfter {
				if err := e.store.DeleteProof(ctx, p.ProofHash, p.Seq); err != nil {
					log.WithError(err).Warn("indexer: purge dropped proof")
				}
			}
			continue
		}

		level := commitmentLevelFor(status)
		if level <= p.CommitmentLevel {
			continue
		}

		p.CommitmentLevel = level
		if err := e.store.UpsertProof(ctx, p); err != nil {
			log.WithError(err).Warn("indexer: bump commitment level")
			continue
		}

		if level >= store.CommitmentConfirmed {
			cursor, err := e.store.GetCursor(ctx)
			if err != nil {
				continue
			}
			cursor.LastReconciledTS = now
			if err := e.store.SaveCursor(ctx, cursor); err != nil {
				log.WithError(err).Warn("indexer: stamp last_reconciled_ts")
			}
		}
	}
}

func (e *Engine) upsertValidator(ctx context.Context, record anchor.ValidatorRecord) error {
	status := store.ValidatorActive
	if record.Status == anchor.ValidatorUnlocked {
		status = store.ValidatorUnlocked
	}

	return e.store.UpsertValidator(ctx, store.Validator{
		Pubkey:     solana.EncodeAddress(record.ValidatorPubkey),
		Status:     status,
		Escrow:     solana.EncodeAddress(record.LockTokenAccount),
		LockTS:     time.Unix(record.LockTimestamp, 0),
		NumAccepts: record.NumAccepts,
		LastSeen:   time.Now(),
	})
}

func commitmentLevelFor(status anchor.SignatureStatus) store.CommitmentLevel {
	switch status {
	case anchor.StatusFinalized:
		return store.CommitmentFinalized
	case anchor.StatusConfirmed:
		return store.CommitmentConfirmed
	default:
		return store.CommitmentProcessed
	}
}
