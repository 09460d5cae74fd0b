package anchor

import (
	"encoding/binary"
	"fmt"
)

// Discriminators for account kinds, distinguished by their leading
// 8-byte discriminator per §4.5.
var (
	configDiscriminator         = discriminator("account:Config")
	aggregatorStateDiscriminator = discriminator("account:AggregatorState")
	rangeStateDiscriminator      = discriminator("account:RangeState")
	ProofRecordDiscriminator     = discriminator("account:ProofRecord")
	ValidatorRecordDiscriminator = discriminator("account:ValidatorRecord")
)

// Config is the process-wide on-ledger aggregator configuration record.
type Config struct {
	ZkslMint             [32]byte
	Admin                [32]byte
	AggregatorPubkey     [32]byte
	NextAggregatorPubkey [32]byte
	ActivationSeq        uint64
	ChainID              uint64
	Paused               bool
}

const configBodyLen = 32 + 32 + 32 + 32 + 8 + 8 + 1

// DecodeConfig decodes a Config account's raw data, including its
// leading 8-byte discriminator.
func DecodeConfig(data []byte) (Config, error) {
	if len(data) < 8+configBodyLen {
		return Config{}, fmt.Errorf("anchor: config account too short: %d bytes", len(data))
	}
	if [8]byte(data[:8]) != configDiscriminator {
		return Config{}, fmt.Errorf("anchor: unexpected config discriminator")
	}

	body := data[8:]
	var c Config
	off := 0
	copy(c.ZkslMint[:], body[off:off+32])
	off += 32
	copy(c.Admin[:], body[off:off+32])
	off += 32
	copy(c.AggregatorPubkey[:], body[off:off+32])
	off += 32
	copy(c.NextAggregatorPubkey[:], body[off:off+32])
	off += 32
	c.ActivationSeq = binary.LittleEndian.Uint64(body[off : off+8])
	off += 8
	c.ChainID = binary.LittleEndian.Uint64(body[off : off+8])
	off += 8
	c.Paused = body[off] != 0

	return c, nil
}

// EncodeConfig renders a Config account's raw bytes, including its
// leading discriminator. Used only by LOCAL_MODE bootstrapping, which
// has no real verifier program to write this account for it.
func EncodeConfig(c Config) []byte {
	buf := make([]byte, 0, 8+configBodyLen)
	buf = append(buf, configDiscriminator[:]...)
	buf = append(buf, c.ZkslMint[:]...)
	buf = append(buf, c.Admin[:]...)
	buf = append(buf, c.AggregatorPubkey[:]...)
	buf = append(buf, c.NextAggregatorPubkey[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, c.ActivationSeq)
	buf = binary.LittleEndian.AppendUint64(buf, c.ChainID)
	paused := byte(0)
	if c.Paused {
		paused = 1
	}
	return append(buf, paused)
}

// AggregatorState is the on-ledger record of the last anchored
// sequence.
type AggregatorState struct {
	LastSeq uint64
}

const aggregatorStateBodyLen = 32 + 8 + 86

// DecodeAggregatorState decodes an AggregatorState account.
func DecodeAggregatorState(data []byte) (AggregatorState, error) {
	if len(data) < 8+aggregatorStateBodyLen {
		return AggregatorState{}, fmt.Errorf("anchor: aggregator state account too short: %d bytes", len(data))
	}
	if [8]byte(data[:8]) != aggregatorStateDiscriminator {
		return AggregatorState{}, fmt.Errorf("anchor: unexpected aggregator state discriminator")
	}

	// aggregator_pubkey(32) precedes last_seq; this core only needs the
	// sequence counter.
	lastSeq := binary.LittleEndian.Uint64(data[8+32 : 8+32+8])
	return AggregatorState{LastSeq: lastSeq}, nil
}

// EncodeAggregatorState renders an AggregatorState account's raw bytes
// for LOCAL_MODE bootstrapping and updates (no real verifier program
// exists locally to maintain this account).
func EncodeAggregatorState(aggregatorPubkey [32]byte, lastSeq uint64) []byte {
	buf := make([]byte, 0, 8+aggregatorStateBodyLen)
	buf = append(buf, aggregatorStateDiscriminator[:]...)
	buf = append(buf, aggregatorPubkey[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, lastSeq)
	buf = append(buf, make([]byte, 86)...)
	return buf
}

// RangeState is the on-ledger record enforcing monotonic, non-overlapping
// slot ranges.
type RangeState struct {
	LastEndSlot uint64
}

const rangeStateBodyLen = 8 + 120

// DecodeRangeState decodes a RangeState account.
func DecodeRangeState(data []byte) (RangeState, error) {
	if len(data) < 8+rangeStateBodyLen {
		return RangeState{}, fmt.Errorf("anchor: range state account too short: %d bytes", len(data))
	}
	if [8]byte(data[:8]) != rangeStateDiscriminator {
		return RangeState{}, fmt.Errorf("anchor: unexpected range state discriminator")
	}

	return RangeState{LastEndSlot: binary.LittleEndian.Uint64(data[8 : 8+8])}, nil
}

// OnChainProofRecord is the richer on-chain proof record: the fields of
// the 212-byte wire payload body this component submits, plus submitted_by, an
// authoritative on-chain commitment_level, and reserved da_params — see
// the data-model note on why the wire payload and this decoded record
// intentionally differ in shape.
type OnChainProofRecord struct {
	ArtifactID       [16]byte
	StartSlot        uint64
	EndSlot          uint64
	ProofHash        [32]byte
	ArtifactLen      uint32
	StateRootBefore  [32]byte
	StateRootAfter   [32]byte
	SubmittedBy      [32]byte
	AggregatorPubkey [32]byte
	Timestamp        int64
	Seq              uint64
	DSHash           [32]byte
	CommitmentLevel  uint8
}

const onChainProofRecordBodyLen = 16 + 8 + 8 + 32 + 4 + 32 + 32 + 32 + 32 + 8 + 8 + 32 + 1 + 12 + 5

// DecodeOnChainProofRecord decodes a ProofRecord account in its full
// on-chain layout (262 bytes after the discriminator).
func DecodeOnChainProofRecord(data []byte) (OnChainProofRecord, error) {
	if len(data) < 8+onChainProofRecordBodyLen {
		return OnChainProofRecord{}, fmt.Errorf("anchor: proof record account too short: %d bytes", len(data))
	}
	if [8]byte(data[:8]) != ProofRecordDiscriminator {
		return OnChainProofRecord{}, fmt.Errorf("anchor: unexpected proof record discriminator")
	}

	body := data[8:]
	var r OnChainProofRecord
	off := 0
	copy(r.ArtifactID[:], body[off:off+16])
	off += 16
	r.StartSlot = binary.LittleEndian.Uint64(body[off : off+8])
	off += 8
	r.EndSlot = binary.LittleEndian.Uint64(body[off : off+8])
	off += 8
	copy(r.ProofHash[:], body[off:off+32])
	off += 32
	r.ArtifactLen = binary.LittleEndian.Uint32(body[off : off+4])
	off += 4
	copy(r.StateRootBefore[:], body[off:off+32])
	off += 32
	copy(r.StateRootAfter[:], body[off:off+32])
	off += 32
	copy(r.SubmittedBy[:], body[off:off+32])
	off += 32
	copy(r.AggregatorPubkey[:], body[off:off+32])
	off += 32
	r.Timestamp = int64(binary.LittleEndian.Uint64(body[off : off+8]))
	off += 8
	r.Seq = binary.LittleEndian.Uint64(body[off : off+8])
	off += 8
	copy(r.DSHash[:], body[off:off+32])
	off += 32
	r.CommitmentLevel = body[off]

	return r, nil
}

// ValidatorStatus mirrors the on-chain validator status enum.
type ValidatorStatus uint8

const (
	ValidatorActive   ValidatorStatus = 0
	ValidatorUnlocked ValidatorStatus = 1
)

// ValidatorRecord describes a registered participant.
type ValidatorRecord struct {
	ValidatorPubkey  [32]byte
	LockTokenAccount [32]byte
	LockTimestamp    int64
	Status           ValidatorStatus
	NumAccepts       uint64
}

// validatorRecordBodyLen follows the 47-byte reserved tail the wire
// contract (§4.5) specifies; the on-chain program reserves a few more
// bytes than this core ever reads, which is fine since the reserved
// tail is never decoded.
const validatorRecordBodyLen = 32 + 32 + 8 + 1 + 8 + 47

// DecodeValidatorRecord decodes a ValidatorRecord account.
func DecodeValidatorRecord(data []byte) (ValidatorRecord, error) {
	if len(data) < 8+validatorRecordBodyLen {
		return ValidatorRecord{}, fmt.Errorf("anchor: validator record account too short: %d bytes", len(data))
	}
	if [8]byte(data[:8]) != ValidatorRecordDiscriminator {
		return ValidatorRecord{}, fmt.Errorf("anchor: unexpected validator record discriminator")
	}

	body := data[8:]
	var v ValidatorRecord
	off := 0
	copy(v.ValidatorPubkey[:], body[off:off+32])
	off += 32
	copy(v.LockTokenAccount[:], body[off:off+32])
	off += 32
	v.LockTimestamp = int64(binary.LittleEndian.Uint64(body[off : off+8]))
	off += 8
	v.Status = ValidatorStatus(body[off])
	off++
	v.NumAccepts = binary.LittleEndian.Uint64(body[off : off+8])

	return v, nil
}
