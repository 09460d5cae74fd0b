// Package commitment builds the fixed-layout, domain-separated
// commitment preimage the aggregator signs and the verifier program
// re-derives and checks server-side.
package commitment

import (
	"fmt"

	"lukechampine.com/blake3"

	"github.com/zksl-labs/anchor-core/internal/codec"
)

// DSPrefix is the ASCII domain-separation literal, 14 bytes.
const DSPrefix = "zKSL/anchor/v1"

// PreimageLen is the fixed total length of the commitment preimage:
// 14 (prefix) + 8 (chain_id) + 32 (program_id) + 32 (proof_hash) +
// 8 (start_slot) + 8 (end_slot) + 8 (seq) = 110 bytes.
const PreimageLen = len(DSPrefix) + 8 + 32 + 32 + 8 + 8 + 8

// Input carries everything needed to build a preimage.
type Input struct {
	ChainID   uint64
	ProgramID [32]byte
	ProofHash [32]byte
	StartSlot uint64
	EndSlot   uint64
	Seq       uint64
}

// Preimage builds the 110-byte domain-separated commitment preimage.
func Preimage(in Input) []byte {
	buf := make([]byte, 0, PreimageLen)
	buf = append(buf, DSPrefix...)
	buf = append(buf, codec.EncodeU64LE(in.ChainID)...)
	buf = append(buf, in.ProgramID[:]...)
	buf = append(buf, in.ProofHash[:]...)
	buf = append(buf, codec.EncodeU64LE(in.StartSlot)...)
	buf = append(buf, codec.EncodeU64LE(in.EndSlot)...)
	buf = append(buf, codec.EncodeU64LE(in.Seq)...)

	if len(buf) != PreimageLen {
		panic(fmt.Sprintf("commitment: built preimage of length %d, want %d", len(buf), PreimageLen))
	}

	return buf
}

// Digest returns the BLAKE3 digest of a preimage.
func Digest(preimage []byte) [32]byte {
	return blake3.Sum256(preimage)
}

// Build is a convenience wrapper returning both the preimage and its
// digest for a given input.
func Build(in Input) (preimage []byte, digest [32]byte) {
	preimage = Preimage(in)
	digest = Digest(preimage)
	return preimage, digest
}
