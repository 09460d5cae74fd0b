// Package anchor assembles the instruction payload the verifier program
// consumes, composes the three-instruction transaction that carries it,
// and maps verifier rejections back onto this system's error taxonomy.
package anchor

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/zksl-labs/anchor-core/internal/codec"
)

// discriminator returns the first 8 bytes of SHA-256(label), the
// ledger's convention for distinguishing instruction and account kinds.
func discriminator(label string) [8]byte {
	sum := sha256.Sum256([]byte(label))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

var anchorProofDiscriminator = discriminator("global:anchor_proof")

// PayloadLen is the fixed total length of the anchor instruction
// payload: 8-byte discriminator + 212-byte body.
const PayloadLen = 8 + 16 + 32 + 8 + 8 + 8 + 4 + 32 + 32 + 32 + 8 + 32

// Payload is the anchor_proof instruction's argument set.
type Payload struct {
	ArtifactID       [16]byte
	ProofHash        [32]byte
	Seq              uint64
	StartSlot        uint64
	EndSlot          uint64
	ArtifactLen      uint32
	StateRootBefore  [32]byte
	StateRootAfter   [32]byte
	AggregatorPubkey [32]byte
	Timestamp        int64
	DSHash           [32]byte
}

// Encode renders the 220-byte instruction payload: discriminator
// followed by the fields in §4.4 order.
func (p Payload) Encode() []byte {
	buf := make([]byte, 0, PayloadLen)
	buf = append(buf, anchorProofDiscriminator[:]...)
	buf = append(buf, p.ArtifactID[:]...)
	buf = append(buf, p.ProofHash[:]...)
	buf = append(buf, codec.EncodeU64LE(p.Seq)...)
	buf = append(buf, codec.EncodeU64LE(p.StartSlot)...)
	buf = append(buf, codec.EncodeU64LE(p.EndSlot)...)
	buf = append(buf, codec.EncodeU32LE(p.ArtifactLen)...)
	buf = append(buf, p.StateRootBefore[:]...)
	buf = append(buf, p.StateRootAfter[:]...)
	buf = append(buf, p.AggregatorPubkey[:]...)
	buf = append(buf, codec.EncodeI64LE(p.Timestamp)...)
	buf = append(buf, p.DSHash[:]...)
	return buf
}

// DecodePayload parses a 220-byte instruction payload, checking its
// discriminator.
func DecodePayload(data []byte) (Payload, error) {
	if len(data) != PayloadLen {
		return Payload{}, fmt.Errorf("anchor: payload length %d, want %d", len(data), PayloadLen)
	}
	if [8]byte(data[:8]) != anchorProofDiscriminator {
		return Payload{}, fmt.Errorf("anchor: unexpected instruction discriminator")
	}

	var p Payload
	off := 8
	copy(p.ArtifactID[:], data[off:off+16])
	off += 16
	copy(p.ProofHash[:], data[off:off+32])
	off += 32
	p.Seq = binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	p.StartSlot = binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	p.EndSlot = binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	p.ArtifactLen = binary.LittleEndian.Uint32(data[off : off+4])
	off += 4
	copy(p.StateRootBefore[:], data[off:off+32])
	off += 32
	copy(p.StateRootAfter[:], data[off:off+32])
	off += 32
	copy(p.AggregatorPubkey[:], data[off:off+32])
	off += 32
	p.Timestamp = int64(binary.LittleEndian.Uint64(data[off : off+8]))
	off += 8
	copy(p.DSHash[:], data[off:off+32])

	return p, nil
}
