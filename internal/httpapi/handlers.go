package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zksl-labs/anchor-core/internal/anchor"
	"github.com/zksl-labs/anchor-core/internal/codec"
	zkslerrors "github.com/zksl-labs/anchor-core/pkg/errors"
)

type proveRequest struct {
	StartSlot       uint64 `json:"start_slot"`
	EndSlot         uint64 `json:"end_slot"`
	StateRootBefore string `json:"state_root_before"`
	StateRootAfter  string `json:"state_root_after"`
}

type proveResponse struct {
	ArtifactID string `json:"artifact_id"`
	ProofHash  string `json:"proof_hash"`
}

// handleProve serves POST /prove and POST /artifact: canonicalize the
// request into an Artifact, derive its identifier and proof-hash, and
// persist the canonical JSON exactly once per identifier.
func (s *Server) handleProve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, zkslerrors.BAD_REQUEST.New("method %s not allowed", r.Method).
			WithMetadata(zkslerrors.FieldMetadata{Field: "method", Value: r.Method}))
		return
	}

	var req proveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, zkslerrors.BAD_REQUEST.New("invalid request body: %s", err).
			WithMetadata(zkslerrors.FieldMetadata{Field: "body"}))
		return
	}

	artifact, err := codec.NewArtifact(req.StartSlot, req.EndSlot, req.StateRootBefore, req.StateRootAfter)
	if err != nil {
		writeError(w, zkslerrors.BAD_REQUEST.New("%s", err).
			WithMetadata(zkslerrors.FieldMetadata{Field: "artifact", Value: err.Error()}))
		return
	}

	canonicalJSON, err := artifact.CanonicalJSON()
	if err != nil {
		writeError(w, zkslerrors.BAD_REQUEST.New("canonicalize artifact: %s", err))
		return
	}

	proofHash, err := artifact.ProofHash()
	if err != nil {
		writeError(w, zkslerrors.BAD_REQUEST.New("hash artifact: %s", err))
		return
	}

	artifactID := codec.Identifier(proofHash)

	if _, err := s.artifacts.Write(artifactID.String(), canonicalJSON); err != nil {
		if typed, ok := err.(zkslerrors.Error); ok {
			writeError(w, typed)
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, proveResponse{
		ArtifactID: artifactID.String(),
		ProofHash:  codec.ProofHashHex(proofHash),
	})
}

type anchorRequest struct {
	ArtifactID string `json:"artifact_id"`
}

type anchorResponse struct {
	AggregatorSignature string `json:"aggregator_signature"`
	DSHash              string `json:"ds_hash"`
	TransactionID       string `json:"transaction_id"`
}

// handleAnchor serves POST /anchor: resolve the previously-minted
// artifact by id, re-derive its proof-hash from the stored canonical
// JSON, and submit it through the orchestrator.
func (s *Server) handleAnchor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, zkslerrors.BAD_REQUEST.New("method %s not allowed", r.Method))
		return
	}

	var req anchorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, zkslerrors.BAD_REQUEST.New("invalid request body: %s", err).
			WithMetadata(zkslerrors.FieldMetadata{Field: "body"}))
		return
	}

	id, err := uuid.Parse(req.ArtifactID)
	if err != nil {
		writeError(w, zkslerrors.BAD_REQUEST.New("invalid artifact_id: %s", err).
			WithMetadata(zkslerrors.FieldMetadata{Field: "artifact_id", Value: req.ArtifactID}))
		return
	}

	raw, err := s.artifacts.Read(id.String())
	if err != nil {
		writeError(w, zkslerrors.NOT_FOUND.New("artifact not found").
			WithMetadata(zkslerrors.FieldMetadata{Field: "artifact_id", Value: req.ArtifactID}))
		return
	}

	var stored struct {
		StartSlot       uint64 `json:"start_slot"`
		EndSlot         uint64 `json:"end_slot"`
		StateRootBefore string `json:"state_root_before"`
		StateRootAfter  string `json:"state_root_after"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		writeError(w, zkslerrors.BAD_REQUEST.New("stored artifact is corrupt: %s", err))
		return
	}

	artifact, err := codec.NewArtifact(stored.StartSlot, stored.EndSlot, stored.StateRootBefore, stored.StateRootAfter)
	if err != nil {
		writeError(w, zkslerrors.BAD_REQUEST.New("stored artifact invalid: %s", err))
		return
	}
	proofHash, err := artifact.ProofHash()
	if err != nil {
		writeError(w, zkslerrors.BAD_REQUEST.New("hash stored artifact: %s", err))
		return
	}

	var stateRootBefore, stateRootAfter [32]byte
	beforeBytes, _ := hex.DecodeString(artifact.StateRootBefore)
	afterBytes, _ := hex.DecodeString(artifact.StateRootAfter)
	copy(stateRootBefore[:], beforeBytes)
	copy(stateRootAfter[:], afterBytes)

	result, err := s.orchestrator.Anchor(r.Context(), anchor.AnchorRequest{
		ArtifactID:      [16]byte(id),
		ProofHash:       proofHash,
		StartSlot:       artifact.StartSlot,
		EndSlot:         artifact.EndSlot,
		StateRootBefore: stateRootBefore,
		StateRootAfter:  stateRootAfter,
		ArtifactLen:     uint32(len(raw)),
	}, time.Now())
	if err != nil {
		if typed, ok := err.(zkslerrors.Error); ok {
			writeError(w, typed)
			return
		}
		writeError(w, zkslerrors.ANCHOR_SUBMIT_FAILED.Wrap(err))
		return
	}

	writeJSON(w, http.StatusOK, anchorResponse{
		AggregatorSignature: hex.EncodeToString(result.AggregatorSignature),
		DSHash:              hex.EncodeToString(result.DSHash[:]),
		TransactionID:       result.TransactionID,
	})
}

type proofResponse struct {
	Artifact artifactView `json:"artifact"`
	Status   *statusView  `json:"status"`
}

type artifactView struct {
	StartSlot       uint64 `json:"start_slot"`
	EndSlot         uint64 `json:"end_slot"`
	StateRootBefore string `json:"state_root_before"`
	StateRootAfter  string `json:"state_root_after"`
}

type statusView struct {
	Seq              uint64 `json:"seq"`
	CommitmentLevel  int16  `json:"commitment_level"`
	TransactionID    string `json:"transaction_id"`
	SubmittedBy      string `json:"submitted_by"`
	AggregatorPubkey string `json:"aggregator_pubkey"`
}

// handleProofByID serves GET /proof/:id: the artifact read back from
// disk, plus its anchored status if the indexer has recorded one yet.
func (s *Server) handleProofByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, zkslerrors.BAD_REQUEST.New("method %s not allowed", r.Method))
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/proof/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, zkslerrors.BAD_REQUEST.New("invalid proof id: %s", err).
			WithMetadata(zkslerrors.FieldMetadata{Field: "id", Value: idStr}))
		return
	}

	raw, err := s.artifacts.Read(id.String())
	if err != nil {
		writeError(w, zkslerrors.NOT_FOUND.New("artifact not found").
			WithMetadata(zkslerrors.FieldMetadata{Field: "id", Value: idStr}))
		return
	}

	var view artifactView
	if err := json.Unmarshal(raw, &view); err != nil {
		writeError(w, zkslerrors.BAD_REQUEST.New("stored artifact is corrupt: %s", err))
		return
	}

	proof, err := s.store.GetProofByArtifactID(r.Context(), id.String())
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := proofResponse{Artifact: view}
	if proof != nil {
		resp.Status = &statusView{
			Seq:              proof.Seq,
			CommitmentLevel:  int16(proof.CommitmentLevel),
			TransactionID:    proof.TxID,
			SubmittedBy:      proof.SubmittedBy,
			AggregatorPubkey: proof.AggregatorPubkey,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type validatorResponse struct {
	Validator validatorView `json:"validator"`
}

type validatorView struct {
	Pubkey     string `json:"pubkey"`
	Status     string `json:"status"`
	Escrow     string `json:"escrow"`
	NumAccepts uint64 `json:"num_accepts"`
}

// handleValidatorByPubkey serves GET /validator/:pubkey.
func (s *Server) handleValidatorByPubkey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, zkslerrors.BAD_REQUEST.New("method %s not allowed", r.Method))
		return
	}

	pubkey := strings.TrimPrefix(r.URL.Path, "/validator/")
	if pubkey == "" {
		writeError(w, zkslerrors.BAD_REQUEST.New("missing pubkey").
			WithMetadata(zkslerrors.FieldMetadata{Field: "pubkey"}))
		return
	}

	v, err := s.store.GetValidator(r.Context(), pubkey)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if v == nil {
		writeError(w, zkslerrors.NOT_FOUND.New("validator not found").
			WithMetadata(zkslerrors.FieldMetadata{Field: "pubkey", Value: pubkey}))
		return
	}

	writeJSON(w, http.StatusOK, validatorResponse{Validator: validatorView{
		Pubkey:     v.Pubkey,
		Status:     string(v.Status),
		Escrow:     v.Escrow,
		NumAccepts: v.NumAccepts,
	}})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// handleHealth serves GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: Version})
}
