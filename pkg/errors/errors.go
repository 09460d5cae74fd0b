// Package errors defines the taxonomy of errors produced by the anchor
// core and the submitter/indexer services built on top of it, per the
// error-handling design: every input produces exactly one of the kinds
// below, each carrying a fixed HTTP status and an optional gRPC code
// for protocol-agnostic callers.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	grpccodes "google.golang.org/grpc/codes"
)

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	HTTP     int
	GrpcCode grpccodes.Code
}

// New creates a new error with the given code and the message.
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error.
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	HTTPStatus() int
	GrpcCode() grpccodes.Code
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) HTTPStatus() int { return e.code.HTTP }

func (e *ErrorImpl[MT]) GrpcCode() grpccodes.Code { return e.code.GrpcCode }

func (e *ErrorImpl[MT]) Code() uint16 { return e.code.Code }

func (e *ErrorImpl[MT]) CodeName() string { return e.code.Name }

// Error implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

// Metadata payloads attached to specific error kinds.

type ArtifactMetadata struct {
	StartSlot uint64 `json:"start_slot"`
	EndSlot   uint64 `json:"end_slot"`
}

type FieldMetadata struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type SeqMetadata struct {
	Seq           uint64 `json:"seq"`
	ActivationSeq uint64 `json:"activation_seq"`
}

type ChainIDMetadata struct {
	Configured uint64 `json:"configured"`
	OnChain    uint64 `json:"on_chain"`
}

type VerifierMetadata struct {
	RawMessage string `json:"raw_message"`
	RawCode    int32  `json:"raw_code"`
}

type PathMetadata struct {
	Path string `json:"path"`
}

type RateLimitMetadata struct {
	Client string `json:"client"`
	Limit  int    `json:"limit"`
}

// Core taxonomy, per the error-handling design.
var (
	BAD_REQUEST = Code[FieldMetadata]{
		1, "BAD_REQUEST", http.StatusBadRequest, grpccodes.InvalidArgument,
	}
	MISSING_IDEMPOTENCY_KEY = Code[any]{
		2, "MISSING_IDEMPOTENCY_KEY", http.StatusBadRequest, grpccodes.InvalidArgument,
	}
	NOT_FOUND = Code[FieldMetadata]{
		3, "NOT_FOUND", http.StatusNotFound, grpccodes.NotFound,
	}
	CHAIN_ID_MISMATCH = Code[ChainIDMetadata]{
		4, "CHAIN_ID_MISMATCH", http.StatusBadRequest, grpccodes.FailedPrecondition,
	}
	AGGREGATOR_KEY_MISMATCH = Code[SeqMetadata]{
		5, "AGGREGATOR_KEY_MISMATCH", http.StatusBadRequest, grpccodes.FailedPrecondition,
	}
	CONFIG_NOT_FOUND = Code[any]{
		6, "CONFIG_NOT_FOUND", http.StatusBadRequest, grpccodes.FailedPrecondition,
	}
	FETCH_LAST_SEQ_FAILED = Code[any]{
		7, "FETCH_LAST_SEQ_FAILED", http.StatusInternalServerError, grpccodes.Unavailable,
	}
	RATE_LIMIT_EXCEEDED = Code[RateLimitMetadata]{
		8, "RATE_LIMIT_EXCEEDED", http.StatusTooManyRequests, grpccodes.ResourceExhausted,
	}
	AUTH_REQUIRED = Code[any]{
		9, "AUTH_REQUIRED", http.StatusUnauthorized, grpccodes.Unauthenticated,
	}
	FORBIDDEN = Code[any]{
		10, "FORBIDDEN", http.StatusForbidden, grpccodes.PermissionDenied,
	}
	ANCHOR_SUBMIT_FAILED = Code[VerifierMetadata]{
		11, "ANCHOR_SUBMIT_FAILED", http.StatusInternalServerError, grpccodes.Internal,
	}
	PATH_NOT_ALLOWED = Code[PathMetadata]{
		12, "PATH_NOT_ALLOWED", http.StatusInternalServerError, grpccodes.Internal,
	}

	// Verifier-mapped kinds (§4.4 error table), keyed by the verifier program's
	// on-chain error name/numeric code in internal/anchor.
	BAD_ED25519_ORDER = Code[VerifierMetadata]{
		20, "BAD_ED25519_ORDER", http.StatusBadRequest, grpccodes.InvalidArgument,
	}
	BAD_DOMAIN_SEPARATION = Code[VerifierMetadata]{
		21, "BAD_DOMAIN_SEPARATION", http.StatusBadRequest, grpccodes.InvalidArgument,
	}
	NON_MONOTONIC_SEQ = Code[VerifierMetadata]{
		22, "NON_MONOTONIC_SEQ", http.StatusBadRequest, grpccodes.FailedPrecondition,
	}
	RANGE_OVERLAP = Code[VerifierMetadata]{
		23, "RANGE_OVERLAP", http.StatusBadRequest, grpccodes.FailedPrecondition,
	}
	CLOCK_SKEW = Code[VerifierMetadata]{
		24, "CLOCK_SKEW", http.StatusBadRequest, grpccodes.FailedPrecondition,
	}
	AGGREGATOR_MISMATCH = Code[VerifierMetadata]{
		25, "AGGREGATOR_MISMATCH", http.StatusBadRequest, grpccodes.FailedPrecondition,
	}
	INVALID_MINT = Code[VerifierMetadata]{
		26, "INVALID_MINT", http.StatusBadRequest, grpccodes.InvalidArgument,
	}
	PAUSED = Code[VerifierMetadata]{
		27, "PAUSED", http.StatusForbidden, grpccodes.Unavailable,
	}
)
