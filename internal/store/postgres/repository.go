package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zksl-labs/anchor-core/internal/store"
)

func (s *pgStore) UpsertProof(ctx context.Context, p store.Proof) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proofs (
			artifact_id, start_slot, end_slot, proof_hash, ds_hash, artifact_len,
			state_root_before, state_root_after, submitted_by, aggregator_pubkey,
			ts, seq, commitment_level, txid
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (proof_hash, seq) DO UPDATE SET
			commitment_level = EXCLUDED.commitment_level,
			txid = COALESCE(EXCLUDED.txid, proofs.txid)
	`,
		p.ArtifactID, int64(p.StartSlot), int64(p.EndSlot), p.ProofHash[:], p.DSHash[:], int32(p.ArtifactLen),
		p.StateRootBefore[:], p.StateRootAfter[:], p.SubmittedBy, p.AggregatorPubkey,
		p.Timestamp.UTC(), int64(p.Seq), int16(p.CommitmentLevel), nullIfEmpty(p.TxID),
	)
	if err != nil {
		return fmt.Errorf("pgstore: upsert proof: %w", err)
	}
	return nil
}

func (s *pgStore) GetProofByArtifactID(ctx context.Context, artifactID string) (*store.Proof, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT artifact_id, start_slot, end_slot, proof_hash, ds_hash, artifact_len,
			state_root_before, state_root_after, submitted_by, aggregator_pubkey,
			ts, seq, commitment_level, COALESCE(txid, '')
		FROM proofs WHERE artifact_id = $1
	`, artifactID)
	return scanProof(row)
}

func (s *pgStore) GetProofByHashSeq(ctx context.Context, proofHash [32]byte, seq uint64) (*store.Proof, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT artifact_id, start_slot, end_slot, proof_hash, ds_hash, artifact_len,
			state_root_before, state_root_after, submitted_by, aggregator_pubkey,
			ts, seq, commitment_level, COALESCE(txid, '')
		FROM proofs WHERE proof_hash = $1 AND seq = $2
	`, proofHash[:], int64(seq))
	return scanProof(row)
}

func (s *pgStore) ListBelowCommitment(ctx context.Context, level store.CommitmentLevel, limit int) ([]store.Proof, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT artifact_id, start_slot, end_slot, proof_hash, ds_hash, artifact_len,
			state_root_before, state_root_after, submitted_by, aggregator_pubkey,
			ts, seq, commitment_level, COALESCE(txid, '')
		FROM proofs WHERE commitment_level < $1 ORDER BY ts ASC LIMIT $2
	`, int16(level), limit)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list below commitment: %w", err)
	}
	defer rows.Close()

	var out []store.Proof
	for rows.Next() {
		p, err := scanProofRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *pgStore) DeleteProof(ctx context.Context, proofHash [32]byte, seq uint64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM proofs WHERE proof_hash = $1 AND seq = $2`, proofHash[:], int64(seq))
	if err != nil {
		return fmt.Errorf("pgstore: delete proof: %w", err)
	}
	return nil
}

func (s *pgStore) MaxEndSlot(ctx context.Context) (uint64, error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(end_slot) FROM proofs`).Scan(&max); err != nil {
		return 0, fmt.Errorf("pgstore: max end slot: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return uint64(max.Int64), nil
}

func (s *pgStore) UpsertValidator(ctx context.Context, v store.Validator) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO validators (pubkey, status, escrow, lock_ts, unlock_ts, num_accepts, last_seen)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (pubkey) DO UPDATE SET
			status = EXCLUDED.status,
			num_accepts = EXCLUDED.num_accepts,
			last_seen = EXCLUDED.last_seen
	`, v.Pubkey, string(v.Status), v.Escrow, nullIfZeroTime(v.LockTS), nullIfZeroTime(v.UnlockTS), int64(v.NumAccepts), v.LastSeen.UTC())
	if err != nil {
		return fmt.Errorf("pgstore: upsert validator: %w", err)
	}
	return nil
}

func (s *pgStore) GetValidator(ctx context.Context, pubkey string) (*store.Validator, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT pubkey, status, escrow, lock_ts, unlock_ts, num_accepts, last_seen
		FROM validators WHERE pubkey = $1
	`, pubkey)

	var v store.Validator
	var status string
	var lockTS, unlockTS, lastSeen sql.NullTime
	var numAccepts int64
	if err := row.Scan(&v.Pubkey, &status, &v.Escrow, &lockTS, &unlockTS, &numAccepts, &lastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("pgstore: get validator: %w", err)
	}
	v.Status = store.ValidatorStatus(status)
	v.NumAccepts = uint64(numAccepts)
	if lockTS.Valid {
		v.LockTS = lockTS.Time
	}
	if unlockTS.Valid {
		v.UnlockTS = unlockTS.Time
	}
	if lastSeen.Valid {
		v.LastSeen = lastSeen.Time
	}
	return &v, nil
}

func (s *pgStore) GetCursor(ctx context.Context) (store.Cursor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_scan_ts, last_seen_slot, last_signature, last_reconciled_ts FROM indexer_state WHERE id = 1
	`)

	var c store.Cursor
	var lastScan, lastReconciled sql.NullTime
	var lastSeenSlot int64
	if err := row.Scan(&lastScan, &lastSeenSlot, &c.LastSignature, &lastReconciled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Cursor{}, nil
		}
		return store.Cursor{}, fmt.Errorf("pgstore: get cursor: %w", err)
	}
	c.LastSeenSlot = uint64(lastSeenSlot)
	if lastScan.Valid {
		c.LastScanTS = lastScan.Time
	}
	if lastReconciled.Valid {
		c.LastReconciledTS = lastReconciled.Time
	}
	return c, nil
}

func (s *pgStore) SaveCursor(ctx context.Context, c store.Cursor) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE indexer_state SET
			last_scan_ts = $1, last_seen_slot = $2, last_signature = $3, last_reconciled_ts = $4
		WHERE id = 1
	`, nullIfZeroTime(c.LastScanTS), int64(c.LastSeenSlot), c.LastSignature, nullIfZeroTime(c.LastReconciledTS))
	if err != nil {
		return fmt.Errorf("pgstore: save cursor: %w", err)
	}
	return nil
}

func scanProof(row *sql.Row) (*store.Proof, error) {
	var p store.Proof
	var proofHash, dsHash, stateBefore, stateAfter []byte
	var startSlot, endSlot, seq int64
	var artifactLen int32
	var commitmentLevel int16
	var txid string

	err := row.Scan(
		&p.ArtifactID, &startSlot, &endSlot, &proofHash, &dsHash, &artifactLen,
		&stateBefore, &stateAfter, &p.SubmittedBy, &p.AggregatorPubkey,
		&p.Timestamp, &seq, &commitmentLevel, &txid,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan proof: %w", err)
	}

	fillProof(&p, startSlot, endSlot, proofHash, dsHash, artifactLen, stateBefore, stateAfter, seq, commitmentLevel, txid)
	return &p, nil
}

func scanProofRows(rows *sql.Rows) (*store.Proof, error) {
	var p store.Proof
	var proofHash, dsHash, stateBefore, stateAfter []byte
	var startSlot, endSlot, seq int64
	var artifactLen int32
	var commitmentLevel int16
	var txid string

	if err := rows.Scan(
		&p.ArtifactID, &startSlot, &endSlot, &proofHash, &dsHash, &artifactLen,
		&stateBefore, &stateAfter, &p.SubmittedBy, &p.AggregatorPubkey,
		&p.Timestamp, &seq, &commitmentLevel, &txid,
	); err != nil {
		return nil, fmt.Errorf("pgstore: scan proof row: %w", err)
	}

	fillProof(&p, startSlot, endSlot, proofHash, dsHash, artifactLen, stateBefore, stateAfter, seq, commitmentLevel, txid)
	return &p, nil
}

func fillProof(p *store.Proof, startSlot, endSlot int64, proofHash, dsHash []byte, artifactLen int32, stateBefore, stateAfter []byte, seq int64, commitmentLevel int16, txid string) {
	p.StartSlot = uint64(startSlot)
	p.EndSlot = uint64(endSlot)
	copy(p.ProofHash[:], proofHash)
	copy(p.DSHash[:], dsHash)
	p.ArtifactLen = uint32(artifactLen)
	copy(p.StateRootBefore[:], stateBefore)
	copy(p.StateRootAfter[:], stateAfter)
	p.Seq = uint64(seq)
	p.CommitmentLevel = store.CommitmentLevel(commitmentLevel)
	p.TxID = txid
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZeroTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
