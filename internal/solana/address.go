// Package solana implements the minimal wire-format primitives this
// system needs against a Solana-family ledger: raw 32-byte addresses,
// program-derived address derivation, the native Ed25519 precompile
// instruction, and the Compute Budget program instruction. No Solana Go
// SDK exists anywhere in the reference corpus, so these are hand-written
// against the ledger's public wire format, grounded in the verifier
// program's own account-parsing logic.
package solana

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// Address is a raw 32-byte ledger address.
type Address [32]byte

// Well-known fixed addresses.
var (
	SystemProgram      = mustDecodeAddress("11111111111111111111111111111111")
	Ed25519Program      = mustDecodeAddress("Ed25519SigVerify111111111111111111111111111")
	ComputeBudgetProgram = mustDecodeAddress("ComputeBudget111111111111111111111111111111")
	SysvarInstructions   = mustDecodeAddress("Sysvar1nstructions1111111111111111111111111")
)

// EncodeAddress renders an address as base58, the ledger's canonical
// string form at the JSON/RPC boundary.
func EncodeAddress(a Address) string {
	return base58.Encode(a[:])
}

// DecodeAddress parses a base58 address string.
func DecodeAddress(s string) (Address, error) {
	decoded := base58.Decode(s)
	if len(decoded) != 32 {
		return Address{}, fmt.Errorf("solana: address %q decodes to %d bytes, want 32", s, len(decoded))
	}
	var addr Address
	copy(addr[:], decoded)
	return addr, nil
}

func mustDecodeAddress(s string) Address {
	addr, err := DecodeAddress(s)
	if err != nil {
		panic(fmt.Sprintf("solana: invalid well-known address %q: %s", s, err))
	}
	return addr
}

// maxSeedBumpAttempts mirrors the ledger's own bump-search ceiling.
const maxSeedBumpAttempts = 256

// FindProgramAddress derives a program-derived address deterministically
// off the edwards25519 curve, searching bump seeds from 255 down to 0
// and returning the first address with no corresponding private key.
func FindProgramAddress(seeds [][]byte, programID Address) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		candidateSeeds := make([][]byte, 0, len(seeds)+1)
		candidateSeeds = append(candidateSeeds, seeds...)
		candidateSeeds = append(candidateSeeds, []byte{byte(bump)})

		addr, err := createProgramAddress(candidateSeeds, programID)
		if err != nil {
			continue
		}
		return addr, uint8(bump), nil
	}
	return Address{}, 0, fmt.Errorf("solana: unable to find a valid program address after %d attempts", maxSeedBumpAttempts)
}

// createProgramAddress derives sha256(seeds... || program_id || "ProgramDerivedAddress")
// and rejects any result that lies on the edwards25519 curve.
func createProgramAddress(seeds [][]byte, programID Address) (Address, error) {
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > 32 {
			return Address{}, fmt.Errorf("solana: seed exceeds 32 bytes")
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte("ProgramDerivedAddress"))

	var out Address
	copy(out[:], h.Sum(nil))

	if isOnCurve(out) {
		return Address{}, fmt.Errorf("solana: derived address lies on curve")
	}
	return out, nil
}
