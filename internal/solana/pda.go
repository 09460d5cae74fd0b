package solana

import "github.com/zksl-labs/anchor-core/internal/codec"

// PDA seed prefixes, shared by the submitter and the indexer.
var (
	seedNamespace = []byte("zksl")
	seedConfig    = []byte("config")
	seedAggregator = []byte("aggregator")
	seedRange     = []byte("range")
	seedProof     = []byte("proof")
	seedValidator = []byte("validator")
)

// ConfigurationPDA derives the configuration account address.
func ConfigurationPDA(programID Address) (Address, uint8, error) {
	return FindProgramAddress([][]byte{seedNamespace, seedConfig}, programID)
}

// AggregatorStatePDA derives the aggregator-state account address.
func AggregatorStatePDA(programID Address) (Address, uint8, error) {
	return FindProgramAddress([][]byte{seedNamespace, seedAggregator}, programID)
}

// RangeStatePDA derives the range-state account address.
func RangeStatePDA(programID Address) (Address, uint8, error) {
	return FindProgramAddress([][]byte{seedNamespace, seedRange}, programID)
}

// ProofRecordPDA derives a proof-record account address for the given
// proof-hash and sequence number.
func ProofRecordPDA(programID Address, proofHash [32]byte, seq uint64) (Address, uint8, error) {
	return FindProgramAddress(
		[][]byte{seedNamespace, seedProof, proofHash[:], codec.EncodeU64LE(seq)},
		programID,
	)
}

// ValidatorRecordPDA derives a validator-record account address for a
// registered participant's pubkey.
func ValidatorRecordPDA(programID, validatorPubkey Address) (Address, uint8, error) {
	return FindProgramAddress(
		[][]byte{seedNamespace, seedValidator, validatorPubkey[:]},
		programID,
	)
}
