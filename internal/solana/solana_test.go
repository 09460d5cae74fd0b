package solana_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zksl-labs/anchor-core/internal/solana"
)

func TestWellKnownAddressesRoundTrip(t *testing.T) {
	for _, addr := range []solana.Address{
		solana.SystemProgram,
		solana.Ed25519Program,
		solana.ComputeBudgetProgram,
		solana.SysvarInstructions,
	} {
		encoded := solana.EncodeAddress(addr)
		decoded, err := solana.DecodeAddress(encoded)
		require.NoError(t, err)
		require.Equal(t, addr, decoded)
	}
}

func TestDecodeAddressRejectsWrongLength(t *testing.T) {
	_, err := solana.DecodeAddress("1111111111111111111111111111111")
	require.Error(t, err)
}

func TestFindProgramAddressDeterministic(t *testing.T) {
	programID := solana.SystemProgram
	seeds := [][]byte{[]byte("zksl"), []byte("config")}

	addr1, bump1, err := solana.FindProgramAddress(seeds, programID)
	require.NoError(t, err)
	addr2, bump2, err := solana.FindProgramAddress(seeds, programID)
	require.NoError(t, err)

	require.Equal(t, addr1, addr2)
	require.Equal(t, bump1, bump2)
}

func TestPDAsDifferByPurpose(t *testing.T) {
	programID := solana.SystemProgram

	cfg, _, err := solana.ConfigurationPDA(programID)
	require.NoError(t, err)
	agg, _, err := solana.AggregatorStatePDA(programID)
	require.NoError(t, err)
	rng, _, err := solana.RangeStatePDA(programID)
	require.NoError(t, err)

	require.NotEqual(t, cfg, agg)
	require.NotEqual(t, cfg, rng)
	require.NotEqual(t, agg, rng)
}

func TestProofRecordPDAVariesByProofHashAndSeq(t *testing.T) {
	programID := solana.SystemProgram
	var h1, h2 [32]byte
	h2[0] = 1

	p1, _, err := solana.ProofRecordPDA(programID, h1, 1)
	require.NoError(t, err)
	p2, _, err := solana.ProofRecordPDA(programID, h1, 2)
	require.NoError(t, err)
	p3, _, err := solana.ProofRecordPDA(programID, h2, 1)
	require.NoError(t, err)

	require.NotEqual(t, p1, p2)
	require.NotEqual(t, p1, p3)
}

func TestComputeBudgetInstructionLayout(t *testing.T) {
	ix := solana.ComputeBudgetInstruction()
	require.Equal(t, solana.ComputeBudgetProgram, ix.ProgramID)
	require.Len(t, ix.Data, 5)
	require.Equal(t, byte(0x02), ix.Data[0])
}

func TestEd25519PrecompileInstructionLayout(t *testing.T) {
	var sig [64]byte
	var pub [32]byte
	message := make([]byte, 110)

	ix, err := solana.Ed25519PrecompileInstruction(sig, pub, message)
	require.NoError(t, err)
	require.Equal(t, solana.Ed25519Program, ix.ProgramID)
	require.Equal(t, byte(1), ix.Data[0])
	require.Len(t, ix.Data, 2+14+64+32+110)
}

func TestEd25519PrecompileInstructionRejectsEmptyMessage(t *testing.T) {
	var sig [64]byte
	var pub [32]byte
	_, err := solana.Ed25519PrecompileInstruction(sig, pub, nil)
	require.Error(t, err)
}
