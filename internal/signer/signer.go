// Package signer loads the aggregator's Ed25519 keypair and enforces
// the current-vs-next key activation schedule before producing detached
// signatures over commitment preimages.
package signer

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	zkslerrors "github.com/zksl-labs/anchor-core/pkg/errors"
)

// keyEnvelope is the labelled-envelope key-file format.
type keyEnvelope struct {
	SecretKey string `json:"secret_key"`
}

// Signer holds the aggregator's loaded Ed25519 keypair in memory; the
// secret bytes never leave the process and are never logged.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

// Load reads an Ed25519 keypair from keyPath. Four on-disk formats are
// accepted: a raw 64-byte binary secret (seed||pubkey), a hex-encoded
// string of the same 64 bytes, a JSON envelope {"secret_key": "<hex>"},
// or a solana-keygen-style JSON array of 64 byte values.
func Load(keyPath string) (*Signer, error) {
	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("signer: read keyfile: %w", err)
	}

	secret, err := decodeSecretKey(raw)
	if err != nil {
		return nil, fmt.Errorf("signer: decode keyfile %s: %w", keyPath, err)
	}

	priv := ed25519.PrivateKey(secret)
	return &Signer{
		privateKey: priv,
		publicKey:  priv.Public().(ed25519.PublicKey),
	}, nil
}

func decodeSecretKey(raw []byte) ([]byte, error) {
	if len(raw) == ed25519.PrivateKeySize {
		return raw, nil
	}

	trimmed := strings.TrimSpace(string(raw))

	if strings.HasPrefix(trimmed, "[") {
		var byteArray []int
		if err := json.Unmarshal(raw, &byteArray); err == nil {
			if len(byteArray) != ed25519.PrivateKeySize {
				return nil, fmt.Errorf("invalid key size: got %d, want %d", len(byteArray), ed25519.PrivateKeySize)
			}
			decoded := make([]byte, len(byteArray))
			for i, v := range byteArray {
				if v < 0 || v > 0xff {
					return nil, fmt.Errorf("invalid byte value %d at index %d in key array", v, i)
				}
				decoded[i] = byte(v)
			}
			return decoded, nil
		}
	}

	var envelope keyEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.SecretKey != "" {
		trimmed = envelope.SecretKey
	}

	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("unrecognized key format, expected %d raw bytes or hex", ed25519.PrivateKeySize)
	}
	if len(decoded) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(decoded), ed25519.PrivateKeySize)
	}

	return decoded, nil
}

// PublicKey returns the loaded public key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.publicKey
}

// ActivationInput is the aggregator-configuration state that determines
// which key is currently allowed to sign.
type ActivationInput struct {
	AggregatorPubkey     [32]byte
	NextAggregatorPubkey [32]byte
	ActivationSeq        uint64
}

// AllowedPubkey returns the pubkey permitted to sign at the given seq.
func AllowedPubkey(in ActivationInput, seq uint64) [32]byte {
	if seq >= in.ActivationSeq {
		return in.NextAggregatorPubkey
	}
	return in.AggregatorPubkey
}

// Sign produces a detached Ed25519 signature over preimage, after
// checking the locally-loaded public key matches the allowed pubkey for
// seq. Returns AggregatorKeyMismatch if it does not.
func (s *Signer) Sign(preimage []byte, in ActivationInput, seq uint64) ([]byte, error) {
	allowed := AllowedPubkey(in, seq)

	var loaded [32]byte
	copy(loaded[:], s.publicKey)

	if loaded != allowed {
		return nil, zkslerrors.AGGREGATOR_KEY_MISMATCH.New(
			"loaded aggregator key does not match the allowed pubkey for seq %d", seq,
		).WithMetadata(zkslerrors.SeqMetadata{Seq: seq, ActivationSeq: in.ActivationSeq})
	}

	return ed25519.Sign(s.privateKey, preimage), nil
}
