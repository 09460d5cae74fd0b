package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zksl-labs/anchor-core/internal/store"
)

// fakeStore is a no-op store.Store double: none of the scenarios tested
// here need the indexer's projections to be populated.
type fakeStore struct{}

func (fakeStore) UpsertProof(context.Context, store.Proof) error                    { return nil }
func (fakeStore) GetProofByArtifactID(context.Context, string) (*store.Proof, error) { return nil, nil }
func (fakeStore) GetProofByHashSeq(context.Context, [32]byte, uint64) (*store.Proof, error) {
	return nil, nil
}
func (fakeStore) ListBelowCommitment(context.Context, store.CommitmentLevel, int) ([]store.Proof, error) {
	return nil, nil
}
func (fakeStore) DeleteProof(context.Context, [32]byte, uint64) error { return nil }
func (fakeStore) MaxEndSlot(context.Context) (uint64, error)          { return 0, nil }
func (fakeStore) UpsertValidator(context.Context, store.Validator) error { return nil }
func (fakeStore) GetValidator(context.Context, string) (*store.Validator, error) {
	return nil, nil
}
func (fakeStore) GetCursor(context.Context) (store.Cursor, error)  { return store.Cursor{}, nil }
func (fakeStore) SaveCursor(context.Context, store.Cursor) error   { return nil }
func (fakeStore) Close() error                                    { return nil }

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.ArtifactDir == "" {
		cfg.ArtifactDir = t.TempDir()
	}
	if cfg.RatelimitMax == 0 {
		cfg.RatelimitMax = 100
	}
	if cfg.RatelimitWindow == 0 {
		cfg.RatelimitWindow = time.Minute
	}
	if cfg.IdempMaxEntries == 0 {
		cfg.IdempMaxEntries = 100
	}
	srv, err := NewServer(cfg, nil, fakeStore{})
	require.NoError(t, err)
	return srv
}

const sampleStateRoot = "1111111111111111111111111111111111111111111111111111111111111111"

func proveBody() []byte {
	body, _ := json.Marshal(proveRequest{
		StartSlot:       1,
		EndSlot:         2,
		StateRootBefore: sampleStateRoot,
		StateRootAfter:  sampleStateRoot,
	})
	return body
}

func TestHealthIsUnauthenticated(t *testing.T) {
	srv := newTestServer(t, Config{APIKeys: nil})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
}

func TestEmptyAPIKeySetRefusesEveryRequest(t *testing.T) {
	srv := newTestServer(t, Config{APIKeys: nil})

	req := httptest.NewRequest(http.MethodPost, "/prove", bytes.NewReader(proveBody()))
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMissingAPIKeyHeaderIsRefused(t *testing.T) {
	srv := newTestServer(t, Config{APIKeys: []string{"secret"}})

	req := httptest.NewRequest(http.MethodPost, "/prove", bytes.NewReader(proveBody()))
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownAPIKeyIsForbidden(t *testing.T) {
	srv := newTestServer(t, Config{APIKeys: []string{"secret"}})

	req := httptest.NewRequest(http.MethodPost, "/prove", bytes.NewReader(proveBody()))
	req.Header.Set(apiKeyHeader, "wrong-key")
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProveSucceedsWithValidAPIKey(t *testing.T) {
	srv := newTestServer(t, Config{APIKeys: []string{"secret"}})

	req := httptest.NewRequest(http.MethodPost, "/prove", bytes.NewReader(proveBody()))
	req.Header.Set(apiKeyHeader, "secret")
	req.Header.Set(idempotencyKeyHeader, "prove-key-1")
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp proveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ArtifactID)
	require.NotEmpty(t, resp.ProofHash)
}

func TestProveRejectsInvalidStateRoot(t *testing.T) {
	srv := newTestServer(t, Config{APIKeys: []string{"secret"}})

	body, _ := json.Marshal(proveRequest{StartSlot: 1, EndSlot: 2, StateRootBefore: "not-hex", StateRootAfter: sampleStateRoot})
	req := httptest.NewRequest(http.MethodPost, "/prove", bytes.NewReader(body))
	req.Header.Set(apiKeyHeader, "secret")
	req.Header.Set(idempotencyKeyHeader, "prove-key-2")
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArtifactRouteRequiresIdempotencyKey(t *testing.T) {
	srv := newTestServer(t, Config{APIKeys: []string{"secret"}})

	req := httptest.NewRequest(http.MethodPost, "/artifact", bytes.NewReader(proveBody()))
	req.Header.Set(apiKeyHeader, "secret")
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArtifactRouteReplaysResponseForSameIdempotencyKey(t *testing.T) {
	srv := newTestServer(t, Config{APIKeys: []string{"secret"}})

	req1 := httptest.NewRequest(http.MethodPost, "/artifact", bytes.NewReader(proveBody()))
	req1.Header.Set(apiKeyHeader, "secret")
	req1.Header.Set(idempotencyKeyHeader, "retry-key-1")
	rec1 := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusOK, rec1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/artifact", bytes.NewReader(proveBody()))
	req2.Header.Set(apiKeyHeader, "secret")
	req2.Header.Set(idempotencyKeyHeader, "retry-key-1")
	rec2 := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusOK, rec2.Code)

	require.Equal(t, rec1.Body.String(), rec2.Body.String())
}

func TestRateLimitReturnsTooManyRequestsOnceBudgetExhausted(t *testing.T) {
	srv := newTestServer(t, Config{APIKeys: []string{"secret"}, RatelimitMax: 1, RatelimitWindow: time.Minute})

	req1 := httptest.NewRequest(http.MethodPost, "/prove", bytes.NewReader(proveBody()))
	req1.Header.Set(apiKeyHeader, "secret")
	req1.Header.Set(idempotencyKeyHeader, "rate-limit-key-1")
	req1.RemoteAddr = "203.0.113.1:1234"
	rec1 := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusOK, rec1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/prove", bytes.NewReader(proveBody()))
	req2.Header.Set(apiKeyHeader, "secret")
	req2.Header.Set(idempotencyKeyHeader, "rate-limit-key-2")
	req2.RemoteAddr = "203.0.113.1:1234"
	rec2 := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusTooManyRequests, rec2.Code)
}

func TestValidatorRouteMissingPubkeyIsBadRequest(t *testing.T) {
	srv := newTestServer(t, Config{APIKeys: []string{"secret"}})

	req := httptest.NewRequest(http.MethodGet, "/validator/", nil)
	req.Header.Set(apiKeyHeader, "secret")
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidatorRouteUnknownPubkeyIsNotFound(t *testing.T) {
	srv := newTestServer(t, Config{APIKeys: []string{"secret"}})

	req := httptest.NewRequest(http.MethodGet, "/validator/some-pubkey", nil)
	req.Header.Set(apiKeyHeader, "secret")
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
