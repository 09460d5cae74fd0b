// Package httpapi implements A3: the submitter's net/http ingress —
// one ServeMux, a hand-written auth/rate-limit/idempotency middleware
// chain in the same layered-interceptor style the teacher applies to
// its gRPC unary chain, and the five routes the external interface
// specifies.
package httpapi

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zksl-labs/anchor-core/internal/anchor"
	"github.com/zksl-labs/anchor-core/internal/idempotency"
	"github.com/zksl-labs/anchor-core/internal/ratelimit"
	"github.com/zksl-labs/anchor-core/internal/store"
)

// Version is the reported build version; overridden at link time.
var Version = "dev"

// Server holds every dependency the submitter's handlers need.
type Server struct {
	orchestrator *anchor.Orchestrator
	store        store.Store
	artifacts    *artifactWriter
	idemp        *idempotency.Cache
	limiter      *ratelimit.Limiter
	apiKeys      map[string]struct{}

	httpServer *http.Server
}

// Config is the subset of process configuration the HTTP layer needs.
type Config struct {
	Addr            string
	ArtifactDir     string
	APIKeys         []string
	RatelimitMax    int
	RatelimitWindow time.Duration
	IdempMaxEntries int
}

// NewServer wires the middleware chain and route table.
func NewServer(cfg Config, orchestrator *anchor.Orchestrator, st store.Store) (*Server, error) {
	writer, err := newArtifactWriter(cfg.ArtifactDir)
	if err != nil {
		return nil, err
	}

	idemp, err := idempotency.New(cfg.IdempMaxEntries, idempotency.DefaultTTL)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]struct{}, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = struct{}{}
		}
	}

	s := &Server{
		orchestrator: orchestrator,
		store:        st,
		artifacts:    writer,
		idemp:        idemp,
		limiter:      ratelimit.New(cfg.RatelimitMax, cfg.RatelimitWindow),
		apiKeys:      keys,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// routes builds the ServeMux and applies the middleware chain: auth,
// then rate-limit, then (for the two proving endpoints) idempotency.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	proveChain := chain(http.HandlerFunc(s.handleProve), s.withAuth, s.withRateLimit, s.withIdempotency)
	mux.Handle("/prove", proveChain)
	mux.Handle("/artifact", proveChain)

	mux.Handle("/anchor", chain(http.HandlerFunc(s.handleAnchor), s.withAuth, s.withRateLimit))
	mux.Handle("/proof/", chain(http.HandlerFunc(s.handleProofByID), s.withAuth, s.withRateLimit))
	mux.Handle("/validator/", chain(http.HandlerFunc(s.handleValidatorByPubkey), s.withAuth, s.withRateLimit))
	mux.Handle("/health", http.HandlerFunc(s.handleHealth))

	return mux
}

type middleware func(http.Handler) http.Handler

// chain applies middlewares in the order given, outermost first, so
// the first entry runs first on the way in.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// ListenAndServe starts the HTTP server and blocks until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.httpServer.Addr).Info("httpapi: listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
