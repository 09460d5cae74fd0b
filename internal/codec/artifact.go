package codec

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"lukechampine.com/blake3"
)

// MaxSlotsPerArtifact bounds end_slot - start_slot + 1, matching the
// verifier program's MAX_SLOTS_PER_ARTIFACT.
const MaxSlotsPerArtifact = 2048

// Artifact is the minimal fingerprint of a state transition: once its
// identifier is minted the four fields are immutable.
type Artifact struct {
	StartSlot       uint64
	EndSlot         uint64
	StateRootBefore string // hex32, lowercase-normalized
	StateRootAfter  string // hex32, lowercase-normalized
}

// NewArtifact validates and normalizes the four artifact fields.
func NewArtifact(startSlot, endSlot uint64, stateRootBefore, stateRootAfter string) (Artifact, error) {
	if endSlot < startSlot {
		return Artifact{}, fmt.Errorf("artifact: end_slot %d less than start_slot %d", endSlot, startSlot)
	}
	if endSlot-startSlot+1 > MaxSlotsPerArtifact {
		return Artifact{}, fmt.Errorf(
			"artifact: range %d exceeds max slots per artifact %d", endSlot-startSlot+1, MaxSlotsPerArtifact,
		)
	}

	before, err := NormalizeHex32(stateRootBefore)
	if err != nil {
		return Artifact{}, fmt.Errorf("artifact: state_root_before: %w", err)
	}
	after, err := NormalizeHex32(stateRootAfter)
	if err != nil {
		return Artifact{}, fmt.Errorf("artifact: state_root_after: %w", err)
	}

	return Artifact{
		StartSlot:       startSlot,
		EndSlot:         endSlot,
		StateRootBefore: before,
		StateRootAfter:  after,
	}, nil
}

// canonicalMap renders exactly the four artifact fields, nothing else.
// start_slot/end_slot are carried as json.Number so CanonicalJSON never
// routes a uint64 through a float64 conversion, which would lose
// precision above 2^53.
func (a Artifact) canonicalMap() map[string]any {
	return map[string]any{
		"start_slot":        json.Number(strconv.FormatUint(a.StartSlot, 10)),
		"end_slot":          json.Number(strconv.FormatUint(a.EndSlot, 10)),
		"state_root_before": a.StateRootBefore,
		"state_root_after":  a.StateRootAfter,
	}
}

// CanonicalJSON returns the canonical encoding of this artifact's four
// fields, suitable for writing to disk and for hashing.
func (a Artifact) CanonicalJSON() ([]byte, error) {
	return CanonicalJSON(a.canonicalMap())
}

// ProofHash returns the BLAKE3 digest of the artifact's canonical
// encoding.
func (a Artifact) ProofHash() ([32]byte, error) {
	enc, err := a.CanonicalJSON()
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(enc), nil
}

// Identifier derives the content-addressed RFC 4122 v4 UUID from the
// first 16 bytes of the proof-hash, forcing the version and variant
// nibbles per §3.
func Identifier(proofHash [32]byte) uuid.UUID {
	var id [16]byte
	copy(id[:], proofHash[:16])

	id[6] = (id[6] & 0x0f) | 0x40 // version 4
	id[8] = (id[8] & 0x3f) | 0x80 // variant 10

	return uuid.UUID(id)
}

// ProofHashHex returns the lowercase hex encoding of a proof-hash.
func ProofHashHex(proofHash [32]byte) string {
	return hex.EncodeToString(proofHash[:])
}

// EncodeU64LE returns the 8-byte little-endian encoding of v.
func EncodeU64LE(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

// EncodeU32LE returns the 4-byte little-endian encoding of v.
func EncodeU32LE(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

// EncodeI64LE returns the 8-byte little-endian two's-complement
// encoding of v.
func EncodeI64LE(v int64) []byte {
	return EncodeU64LE(uint64(v))
}
