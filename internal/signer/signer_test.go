package signer_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zksl-labs/anchor-core/internal/signer"
)

func generateKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func TestLoadRawBinaryKeyfile(t *testing.T) {
	_, priv := generateKeypair(t)
	path := filepath.Join(t.TempDir(), "key.bin")
	require.NoError(t, os.WriteFile(path, priv, 0o600))

	s, err := signer.Load(path)
	require.NoError(t, err)
	require.Equal(t, priv.Public(), s.PublicKey())
}

func TestLoadHexKeyfile(t *testing.T) {
	_, priv := generateKeypair(t)
	path := filepath.Join(t.TempDir(), "key.hex")
	require.NoError(t, os.WriteFile(path, []byte(hex.EncodeToString(priv)), 0o600))

	s, err := signer.Load(path)
	require.NoError(t, err)
	require.Equal(t, priv.Public(), s.PublicKey())
}

func TestLoadEnvelopeKeyfile(t *testing.T) {
	_, priv := generateKeypair(t)
	envelope, err := json.Marshal(map[string]string{"secret_key": hex.EncodeToString(priv)})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, envelope, 0o600))

	s, err := signer.Load(path)
	require.NoError(t, err)
	require.Equal(t, priv.Public(), s.PublicKey())
}

func TestLoadSolanaKeygenArrayKeyfile(t *testing.T) {
	_, priv := generateKeypair(t)

	intArray := make([]int, len(priv))
	for i, b := range priv {
		intArray[i] = int(b)
	}
	encoded, err := json.Marshal(intArray)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, encoded, 0o600))

	s, err := signer.Load(path)
	require.NoError(t, err)
	require.Equal(t, priv.Public(), s.PublicKey())
}

func TestLoadRejectsBadSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.bad")
	require.NoError(t, os.WriteFile(path, []byte("too-short"), 0o600))

	_, err := signer.Load(path)
	require.Error(t, err)
}

func TestAllowedPubkeyBeforeAndAfterActivation(t *testing.T) {
	var cur, next [32]byte
	cur[0] = 1
	next[0] = 2

	in := signer.ActivationInput{AggregatorPubkey: cur, NextAggregatorPubkey: next, ActivationSeq: 10}

	require.Equal(t, cur, signer.AllowedPubkey(in, 9))
	require.Equal(t, next, signer.AllowedPubkey(in, 10))
	require.Equal(t, next, signer.AllowedPubkey(in, 11))
}

func TestSignSucceedsWithAllowedKey(t *testing.T) {
	pub, priv := generateKeypair(t)
	path := filepath.Join(t.TempDir(), "key.bin")
	require.NoError(t, os.WriteFile(path, priv, 0o600))

	s, err := signer.Load(path)
	require.NoError(t, err)

	var pubArr [32]byte
	copy(pubArr[:], pub)

	in := signer.ActivationInput{AggregatorPubkey: pubArr, NextAggregatorPubkey: pubArr, ActivationSeq: 0}
	preimage := []byte("hello world preimage bytes")

	sig, err := s.Sign(preimage, in, 5)
	require.NoError(t, err)
	require.True(t, ed25519.Verify(pub, preimage, sig))
}

func TestSignFailsWithMismatchedKey(t *testing.T) {
	_, priv := generateKeypair(t)
	path := filepath.Join(t.TempDir(), "key.bin")
	require.NoError(t, os.WriteFile(path, priv, 0o600))

	s, err := signer.Load(path)
	require.NoError(t, err)

	var other [32]byte
	other[0] = 0xff

	in := signer.ActivationInput{AggregatorPubkey: other, NextAggregatorPubkey: other, ActivationSeq: 0}

	_, err = s.Sign([]byte("msg"), in, 1)
	require.Error(t, err)
}
