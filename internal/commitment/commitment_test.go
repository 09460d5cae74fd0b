package commitment_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zksl-labs/anchor-core/internal/commitment"
)

func testInput() commitment.Input {
	var programID, proofHash [32]byte
	for i := range programID {
		programID[i] = byte(i)
	}
	for i := range proofHash {
		proofHash[i] = byte(255 - i)
	}

	return commitment.Input{
		ChainID:   1,
		ProgramID: programID,
		ProofHash: proofHash,
		StartSlot: 100,
		EndSlot:   200,
		Seq:       7,
	}
}

func TestPreimageLength(t *testing.T) {
	preimage := commitment.Preimage(testInput())
	require.Len(t, preimage, 110)
	require.Len(t, preimage, commitment.PreimageLen)
}

func TestPreimagePrefix(t *testing.T) {
	preimage := commitment.Preimage(testInput())
	require.Equal(t, "zKSL/anchor/v1", string(preimage[:14]))
}

func TestPreimageDeterministic(t *testing.T) {
	in := testInput()
	p1 := commitment.Preimage(in)
	p2 := commitment.Preimage(in)
	require.Equal(t, p1, p2)
}

func TestDigestChangesWithSeq(t *testing.T) {
	in := testInput()
	_, d1 := commitment.Build(in)

	in.Seq = 8
	_, d2 := commitment.Build(in)

	require.NotEqual(t, d1, d2)
}

func TestDigestChangesWithChainID(t *testing.T) {
	in := testInput()
	_, d1 := commitment.Build(in)

	in.ChainID = 2
	_, d2 := commitment.Build(in)

	require.NotEqual(t, d1, d2)
}
