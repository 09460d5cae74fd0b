package httpapi

import (
	"fmt"
	"os"
	"path/filepath"

	zkslerrors "github.com/zksl-labs/anchor-core/pkg/errors"
)

// artifactWriter persists canonical artifact JSON under one
// allow-listed root directory, sharded two hex characters deep so a
// single directory never holds an unbounded number of files. Writes are
// append-only from the perspective of a given identifier: distinct
// identifiers write to distinct paths, and an existing file is never
// overwritten with different bytes (the identifier is content-derived,
// so a collision implies identical content).
type artifactWriter struct {
	root string
}

func newArtifactWriter(root string) (*artifactWriter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("httpapi: resolve artifact dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("httpapi: create artifact dir: %w", err)
	}
	return &artifactWriter{root: abs}, nil
}

// pathFor returns the on-disk path for an artifact id, rejecting any
// result that would escape the allow-listed root.
func (w *artifactWriter) pathFor(artifactID string) (string, error) {
	if len(artifactID) < 2 {
		return "", zkslerrors.PATH_NOT_ALLOWED.New("artifact id too short").
			WithMetadata(zkslerrors.PathMetadata{Path: artifactID})
	}

	shard := artifactID[:2]
	name := artifactID + ".json"
	path := filepath.Join(w.root, shard, name)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", zkslerrors.PATH_NOT_ALLOWED.Wrap(err)
	}
	if absPath != path || (absPath != w.root && !within(w.root, absPath)) {
		return "", zkslerrors.PATH_NOT_ALLOWED.New("path escapes artifact root").
			WithMetadata(zkslerrors.PathMetadata{Path: artifactID})
	}

	return absPath, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && len(rel) > 0 && rel[0] != '.' && !filepath.IsAbs(rel)
}

// Read loads the canonical JSON previously written for artifactID.
func (w *artifactWriter) Read(artifactID string) ([]byte, error) {
	path, err := w.pathFor(artifactID)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Write persists canonicalJSON for artifactID if it does not already
// exist, returning its length either way.
func (w *artifactWriter) Write(artifactID string, canonicalJSON []byte) (int, error) {
	path, err := w.pathFor(artifactID)
	if err != nil {
		return 0, err
	}

	if existing, err := os.ReadFile(path); err == nil {
		return len(existing), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("httpapi: create artifact shard dir: %w", err)
	}
	if err := os.WriteFile(path, canonicalJSON, 0o644); err != nil {
		return 0, fmt.Errorf("httpapi: write artifact: %w", err)
	}

	return len(canonicalJSON), nil
}
