package solana

import (
	"fmt"

	"github.com/zksl-labs/anchor-core/internal/codec"
)

// sentinelCurrentInstruction tells the Ed25519 precompile (and the
// verifier program reading it back) that an offset refers to data
// within this very instruction, per the native precompile's wire
// format.
const sentinelCurrentInstruction = 0xFFFF

// Instruction is a single transaction instruction: the program it
// targets, the accounts it touches, and its opaque data payload.
type Instruction struct {
	ProgramID Address
	Accounts  []AccountMeta
	Data      []byte
}

// AccountMeta describes one account reference within an instruction.
type AccountMeta struct {
	Pubkey     Address
	IsSigner   bool
	IsWritable bool
}

// ComputeUnitLimit is the fixed compute budget requested for every
// anchor_proof submission.
const ComputeUnitLimit = 200_000

const computeBudgetSetComputeUnitLimitDiscriminator = 0x02

// ComputeBudgetInstruction builds the native Compute Budget program's
// SetComputeUnitLimit instruction.
func ComputeBudgetInstruction() Instruction {
	data := make([]byte, 0, 5)
	data = append(data, computeBudgetSetComputeUnitLimitDiscriminator)
	data = append(data, codec.EncodeU32LE(ComputeUnitLimit)...)

	return Instruction{
		ProgramID: ComputeBudgetProgram,
		Accounts:  nil,
		Data:      data,
	}
}

// Ed25519PrecompileInstruction builds the native Ed25519 program's
// signature-verification instruction, embedding the signature, public
// key, and message directly in the instruction data (all three
// instruction-index fields are the sentinel "current instruction" per
// §4.4) so the verifier program can inspect it without re-deriving
// offsets across instructions.
func Ed25519PrecompileInstruction(signature [64]byte, publicKey [32]byte, message []byte) (Instruction, error) {
	if len(message) == 0 {
		return Instruction{}, fmt.Errorf("solana: ed25519 instruction requires a non-empty message")
	}

	const headerLen = 2 // num_signatures(1) + padding(1)
	const offsetsLen = 14
	sigOffset := uint16(headerLen + offsetsLen)
	pubkeyOffset := sigOffset + 64
	msgOffset := pubkeyOffset + 32

	data := make([]byte, 0, headerLen+offsetsLen+64+32+len(message))
	data = append(data, 1, 0) // num_signatures=1, padding=0

	data = append(data, u16le(sigOffset)...)
	data = append(data, u16le(sentinelCurrentInstruction)...)
	data = append(data, u16le(pubkeyOffset)...)
	data = append(data, u16le(sentinelCurrentInstruction)...)
	data = append(data, u16le(msgOffset)...)
	data = append(data, u16le(uint16(len(message)))...)
	data = append(data, u16le(sentinelCurrentInstruction)...)

	data = append(data, signature[:]...)
	data = append(data, publicKey[:]...)
	data = append(data, message...)

	return Instruction{
		ProgramID: Ed25519Program,
		Accounts:  nil,
		Data:      data,
	}, nil
}

func u16le(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}
