package httpapi

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	zkslerrors "github.com/zksl-labs/anchor-core/pkg/errors"
)

const apiKeyHeader = "X-API-Key"
const idempotencyKeyHeader = "Idempotency-Key"

// withAuth enforces the API-key header. An empty configured key set
// refuses every request, matching the external interface's "empty
// configured key set means any request is refused" contract.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.apiKeys) == 0 {
			writeError(w, zkslerrors.AUTH_REQUIRED.New("no API keys configured"))
			return
		}

		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			writeError(w, zkslerrors.AUTH_REQUIRED.New("missing %s header", apiKeyHeader))
			return
		}
		if _, ok := s.apiKeys[key]; !ok {
			writeError(w, zkslerrors.FORBIDDEN.New("api key not authorized"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit enforces the per-client request budget, keyed by remote
// address.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)
		if !s.limiter.Allow(client, time.Now()) {
			writeError(w, zkslerrors.RATE_LIMIT_EXCEEDED.New("rate limit exceeded for %s", client).
				WithMetadata(zkslerrors.RateLimitMetadata{Client: client}))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withIdempotency requires an Idempotency-Key header and replays the
// first response produced for a given key within the cache's TTL
// instead of re-running the handler.
func (s *Server) withIdempotency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(idempotencyKeyHeader)
		if key == "" {
			writeError(w, zkslerrors.MISSING_IDEMPOTENCY_KEY.New("missing %s header", idempotencyKeyHeader))
			return
		}

		now := time.Now()
		if entry, ok := s.idemp.Get(key, now); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(entry.StatusCode)
			_, _ = w.Write(entry.Body)
			return
		}

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK, body: &bytes.Buffer{}}
		next.ServeHTTP(rec, r)

		s.idemp.Put(key, rec.status, rec.body.Bytes(), now)
	})
}

// responseRecorder captures a handler's status and body so the
// idempotency middleware can store it after the fact without buffering
// every non-idempotent request.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	body        *bytes.Buffer
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// clientAddr strips the port from the request's remote address,
// falling back to the raw value if it carries no port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeError renders a typed error as its mapped HTTP status and a
// {"error": {...}} body, logging server-side at the severity its kind
// implies.
func writeError(w http.ResponseWriter, err zkslerrors.Error) {
	entry := err.Log()
	if err.HTTPStatus() >= 500 {
		entry.Error(err.Error())
	} else {
		entry.Debug(err.Error())
	}

	writeJSON(w, err.HTTPStatus(), map[string]any{
		"error": map[string]any{
			"code":     err.Code(),
			"name":     err.CodeName(),
			"message":  err.Error(),
			"metadata": err.Metadata(),
		},
	})
}

// writeInternalError renders an error this process cannot classify
// into the taxonomy (e.g. an unexpected store failure on a read path)
// as a bare 500, without forcing it into an ill-fitting typed kind.
func writeInternalError(w http.ResponseWriter, err error) {
	log.WithError(err).Error("httpapi: internal error")
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error": map[string]any{"message": "internal error"},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("httpapi: encode response")
	}
}
