package errors_test

import (
	"net/http"
	"testing"

	zkslerrors "github.com/zksl-labs/anchor-core/pkg/errors"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
)

func generateErrorFixtures() []zkslerrors.Error {
	return []zkslerrors.Error{
		zkslerrors.BAD_REQUEST.New("invalid field").
			WithMetadata(zkslerrors.FieldMetadata{Field: "start_slot", Value: "-1"}),
		zkslerrors.MISSING_IDEMPOTENCY_KEY.New("missing Idempotency-Key header"),
		zkslerrors.NOT_FOUND.New("proof not found").
			WithMetadata(zkslerrors.FieldMetadata{Field: "id", Value: "deadbeef"}),
		zkslerrors.CHAIN_ID_MISMATCH.New("chain id mismatch").
			WithMetadata(zkslerrors.ChainIDMetadata{Configured: 1, OnChain: 2}),
		zkslerrors.AGGREGATOR_KEY_MISMATCH.New("aggregator key mismatch").
			WithMetadata(zkslerrors.SeqMetadata{Seq: 10, ActivationSeq: 12}),
		zkslerrors.CONFIG_NOT_FOUND.New("on-chain config account missing"),
		zkslerrors.FETCH_LAST_SEQ_FAILED.New("rpc timeout"),
		zkslerrors.RATE_LIMIT_EXCEEDED.New("too many requests").
			WithMetadata(zkslerrors.RateLimitMetadata{Client: "abc", Limit: 60}),
		zkslerrors.AUTH_REQUIRED.New("missing api key"),
		zkslerrors.FORBIDDEN.New("key not authorized"),
		zkslerrors.ANCHOR_SUBMIT_FAILED.New("verifier rejected transaction").
			WithMetadata(zkslerrors.VerifierMetadata{RawMessage: "custom program error: 0x1779", RawCode: 6009}),
		zkslerrors.PATH_NOT_ALLOWED.New("unknown route").
			WithMetadata(zkslerrors.PathMetadata{Path: "/nope"}),
		zkslerrors.INVALID_MINT.New("mint mismatch").
			WithMetadata(zkslerrors.VerifierMetadata{RawMessage: "InvalidMint", RawCode: 6000}),
		zkslerrors.NON_MONOTONIC_SEQ.New("seq went backwards").
			WithMetadata(zkslerrors.VerifierMetadata{RawMessage: "NonMonotonicSeq", RawCode: 6012}),
	}
}

func TestErrorTaxonomy(t *testing.T) {
	for _, err := range generateErrorFixtures() {
		err := err
		t.Run(err.CodeName(), func(t *testing.T) {
			require.NotEmpty(t, err.Error())
			require.Contains(t, err.Error(), err.CodeName())
			require.NotZero(t, err.Code())
			require.NotZero(t, err.HTTPStatus())
			require.NotNil(t, err.Log())
		})
	}
}

func TestErrorHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err    zkslerrors.Error
		status int
	}{
		{zkslerrors.BAD_REQUEST.New("x"), http.StatusBadRequest},
		{zkslerrors.NOT_FOUND.New("x"), http.StatusNotFound},
		{zkslerrors.AUTH_REQUIRED.New("x"), http.StatusUnauthorized},
		{zkslerrors.FORBIDDEN.New("x"), http.StatusForbidden},
		{zkslerrors.RATE_LIMIT_EXCEEDED.New("x"), http.StatusTooManyRequests},
		{zkslerrors.ANCHOR_SUBMIT_FAILED.New("x"), http.StatusInternalServerError},
		{zkslerrors.PAUSED.New("x"), http.StatusForbidden},
	}

	for _, c := range cases {
		require.Equal(t, c.status, c.err.HTTPStatus(), c.err.CodeName())
	}
}

func TestErrorGrpcCodeMapping(t *testing.T) {
	require.Equal(t, grpccodes.NotFound, zkslerrors.NOT_FOUND.New("x").GrpcCode())
	require.Equal(t, grpccodes.Unauthenticated, zkslerrors.AUTH_REQUIRED.New("x").GrpcCode())
	require.Equal(t, grpccodes.ResourceExhausted, zkslerrors.RATE_LIMIT_EXCEEDED.New("x").GrpcCode())
}

func TestErrorMetadataRoundTrip(t *testing.T) {
	err := zkslerrors.CHAIN_ID_MISMATCH.New("mismatch").
		WithMetadata(zkslerrors.ChainIDMetadata{Configured: 101, OnChain: 102})

	md := err.Metadata()
	require.Equal(t, "101", md["configured"])
	require.Equal(t, "102", md["on_chain"])
}

func TestErrorWrap(t *testing.T) {
	cause := zkslerrors.FETCH_LAST_SEQ_FAILED.New("rpc timeout")
	wrapped := zkslerrors.ANCHOR_SUBMIT_FAILED.Wrap(cause)

	require.Contains(t, wrapped.Error(), "ANCHOR_SUBMIT_FAILED")
	require.Contains(t, wrapped.Error(), "FETCH_LAST_SEQ_FAILED")
}
