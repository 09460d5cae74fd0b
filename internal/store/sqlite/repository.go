package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zksl-labs/anchor-core/internal/store"
)

func (s *sqliteStore) UpsertProof(ctx context.Context, p store.Proof) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proofs (
			artifact_id, start_slot, end_slot, proof_hash, ds_hash, artifact_len,
			state_root_before, state_root_after, submitted_by, aggregator_pubkey,
			ts, seq, commitment_level, txid
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (proof_hash, seq) DO UPDATE SET
			commitment_level = excluded.commitment_level,
			txid = COALESCE(excluded.txid, proofs.txid)
	`,
		p.ArtifactID, int64(p.StartSlot), int64(p.EndSlot), p.ProofHash[:], p.DSHash[:], int32(p.ArtifactLen),
		p.StateRootBefore[:], p.StateRootAfter[:], p.SubmittedBy, p.AggregatorPubkey,
		p.Timestamp.Unix(), int64(p.Seq), int16(p.CommitmentLevel), nullIfEmpty(p.TxID),
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: upsert proof: %w", err)
	}
	return nil
}

func (s *sqliteStore) GetProofByArtifactID(ctx context.Context, artifactID string) (*store.Proof, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT artifact_id, start_slot, end_slot, proof_hash, ds_hash, artifact_len,
			state_root_before, state_root_after, submitted_by, aggregator_pubkey,
			ts, seq, commitment_level, COALESCE(txid, '')
		FROM proofs WHERE artifact_id = ?
	`, artifactID)
	return scanProof(row)
}

func (s *sqliteStore) GetProofByHashSeq(ctx context.Context, proofHash [32]byte, seq uint64) (*store.Proof, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT artifact_id, start_slot, end_slot, proof_hash, ds_hash, artifact_len,
			state_root_before, state_root_after, submitted_by, aggregator_pubkey,
			ts, seq, commitment_level, COALESCE(txid, '')
		FROM proofs WHERE proof_hash = ? AND seq = ?
	`, proofHash[:], int64(seq))
	return scanProof(row)
}

func (s *sqliteStore) ListBelowCommitment(ctx context.Context, level store.CommitmentLevel, limit int) ([]store.Proof, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT artifact_id, start_slot, end_slot, proof_hash, ds_hash, artifact_len,
			state_root_before, state_root_after, submitted_by, aggregator_pubkey,
			ts, seq, commitment_level, COALESCE(txid, '')
		FROM proofs WHERE commitment_level < ? ORDER BY ts ASC LIMIT ?
	`, int16(level), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list below commitment: %w", err)
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

func (s *sqliteStore) DeleteProof(ctx context.Context, proofHash [32]byte, seq uint64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM proofs WHERE proof_hash = ? AND seq = ?`, proofHash[:], int64(seq))
	if err != nil {
		return fmt.Errorf("sqlitestore: delete proof: %w", err)
	}
	return nil
}

func (s *sqliteStore) MaxEndSlot(ctx context.Context) (uint64, error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(end_slot) FROM proofs`).Scan(&max); err != nil {
		return 0, fmt.Errorf("sqlitestore: max end slot: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return uint64(max.Int64), nil
}

func (s *sqliteStore) UpsertValidator(ctx context.Context, v store.Validator) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO validators (pubkey, status, escrow, lock_ts, unlock_ts, num_accepts, last_seen)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT (pubkey) DO UPDATE SET
			status = excluded.status,
			num_accepts = excluded.num_accepts,
			last_seen = excluded.last_seen
	`, v.Pubkey, string(v.Status), v.Escrow, nullIfZeroUnix(v.LockTS), nullIfZeroUnix(v.UnlockTS), int64(v.NumAccepts), v.LastSeen.Unix())
	if err != nil {
		return fmt.Errorf("sqlitestore: upsert validator: %w", err)
	}
	return nil
}

func (s *sqliteStore) GetValidator(ctx context.Context, pubkey string) (*store.Validator, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT pubkey, status, escrow, lock_ts, unlock_ts, num_accepts, last_seen
		FROM validators WHERE pubkey = ?
	`, pubkey)

	var v store.Validator
	var status string
	var lockTS, unlockTS, lastSeen sql.NullInt64
	var numAccepts int64
	if err := row.Scan(&v.Pubkey, &status, &v.Escrow, &lockTS, &unlockTS, &numAccepts, &lastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlitestore: get validator: %w", err)
	}
	v.Status = store.ValidatorStatus(status)
	v.NumAccepts = uint64(numAccepts)
	if lockTS.Valid {
		v.LockTS = time.Unix(lockTS.Int64, 0)
	}
	if unlockTS.Valid {
		v.UnlockTS = time.Unix(unlockTS.Int64, 0)
	}
	if lastSeen.Valid {
		v.LastSeen = time.Unix(lastSeen.Int64, 0)
	}
	return &v, nil
}

func (s *sqliteStore) GetCursor(ctx context.Context) (store.Cursor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_scan_ts, last_seen_slot, last_signature, last_reconciled_ts FROM indexer_state WHERE id = 1
	`)

	var c store.Cursor
	var lastScan, lastReconciled sql.NullInt64
	var lastSeenSlot int64
	if err := row.Scan(&lastScan, &lastSeenSlot, &c.LastSignature, &lastReconciled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Cursor{}, nil
		}
		return store.Cursor{}, fmt.Errorf("sqlitestore: get cursor: %w", err)
	}
	c.LastSeenSlot = uint64(lastSeenSlot)
	if lastScan.Valid {
		c.LastScanTS = time.Unix(lastScan.Int64, 0)
	}
	if lastReconciled.Valid {
		c.LastReconciledTS = time.Unix(lastReconciled.Int64, 0)
	}
	return c, nil
}

func (s *sqliteStore) SaveCursor(ctx context.Context, c store.Cursor) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE indexer_state SET
			last_scan_ts = ?, last_seen_slot = ?, last_signature = ?, last_reconciled_ts = ?
		WHERE id = 1
	`, nullIfZeroUnix(c.LastScanTS), int64(c.LastSeenSlot), c.LastSignature, nullIfZeroUnix(c.LastReconciledTS))
	if err != nil {
		return fmt.Errorf("sqlitestore: save cursor: %w", err)
	}
	return nil
}

func scanProof(row *sql.Row) (*store.Proof, error) {
	var p store.Proof
	var proofHash, dsHash, stateBefore, stateAfter []byte
	var startSlot, endSlot, seq, ts int64
	var artifactLen int32
	var commitmentLevel int16
	var txid string

	err := row.Scan(
		&p.ArtifactID, &startSlot, &endSlot, &proofHash, &dsHash, &artifactLen,
		&stateBefore, &stateAfter, &p.SubmittedBy, &p.AggregatorPubkey,
		&ts, &seq, &commitmentLevel, &txid,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: scan proof: %w", err)
	}

	fillProof(&p, startSlot, endSlot, proofHash, dsHash, artifactLen, stateBefore, stateAfter, ts, seq, commitmentLevel, txid)
	return &p, nil
}

func scanProofRows(rows *sql.Rows) (*store.Proof, error) {
	var p store.Proof
	var proofHash, dsHash, stateBefore, stateAfter []byte
	var startSlot, endSlot, seq, ts int64
	var artifactLen int32
	var commitmentLevel int16
	var txid string

	if err := rows.Scan(
		&p.ArtifactID, &startSlot, &endSlot, &proofHash, &dsHash, &artifactLen,
		&stateBefore, &stateAfter, &p.SubmittedBy, &p.AggregatorPubkey,
		&ts, &seq, &commitmentLevel, &txid,
	); err != nil {
		return nil, fmt.Errorf("sqlitestore: scan proof row: %w", err)
	}

	fillProof(&p, startSlot, endSlot, proofHash, dsHash, artifactLen, stateBefore, stateAfter, ts, seq, commitmentLevel, txid)
	return &p, nil
}

func fillProof(p *store.Proof, startSlot, endSlot int64, proofHash, dsHash []byte, artifactLen int32, stateBefore, stateAfter []byte, ts, seq int64, commitmentLevel int16, txid string) {
	p.StartSlot = uint64(startSlot)
	p.EndSlot = uint64(endSlot)
	copy(p.ProofHash[:], proofHash)
	copy(p.DSHash[:], dsHash)
	p.ArtifactLen = uint32(artifactLen)
	copy(p.StateRootBefore[:], stateBefore)
	copy(p.StateRootAfter[:], stateAfter)
	p.Timestamp = time.Unix(ts, 0)
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

func nullIfZeroUnix(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
