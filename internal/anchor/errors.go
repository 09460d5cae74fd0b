package anchor

import (
	"strconv"
	"strings"

	zkslerrors "github.com/zksl-labs/anchor-core/pkg/errors"
)

// verifierErrorMatch is one entry of the canonical verifier-rejection
// mapping table (§4.4): a raw error name/code from the ledger maps to
// exactly one taxonomy code.
type verifierErrorMatch struct {
	name string
	code int32
	kind zkslerrors.Code[zkslerrors.VerifierMetadata]
}

var verifierErrorTable = []verifierErrorMatch{
	{"BadEd25519Order", 6015, zkslerrors.BAD_ED25519_ORDER},
	{"BadDomainSeparation", 6016, zkslerrors.BAD_DOMAIN_SEPARATION},
	{"NonMonotonicSeq", 6012, zkslerrors.NON_MONOTONIC_SEQ},
	{"RangeOverlap", 6013, zkslerrors.RANGE_OVERLAP},
	{"ClockSkew", 6014, zkslerrors.CLOCK_SKEW},
	{"AggregatorMismatch", 6006, zkslerrors.AGGREGATOR_MISMATCH},
	{"InvalidMint", 6000, zkslerrors.INVALID_MINT},
	{"Paused", 6010, zkslerrors.PAUSED},
}

// MapVerifierError classifies a raw rejection message (and/or numeric
// code, when the transport surfaces one) from the verifier program into
// this system's error taxonomy. Anything unrecognized maps to
// AnchorSubmitFailed.
func MapVerifierError(rawMessage string, rawCode int32) zkslerrors.Error {
	for _, entry := range verifierErrorTable {
		if rawCode == entry.code || (entry.name != "" && strings.Contains(rawMessage, entry.name)) {
			return entry.kind.New("verifier rejected submission: %s", rawMessage).
				WithMetadata(zkslerrors.VerifierMetadata{RawMessage: rawMessage, RawCode: rawCode})
		}
	}

	return zkslerrors.ANCHOR_SUBMIT_FAILED.New("verifier rejected submission: %s", rawMessage).
		WithMetadata(zkslerrors.VerifierMetadata{RawMessage: rawMessage, RawCode: rawCode})
}

// extractProgramErrorCode parses a "custom program error: 0x1779"-style
// substring the ledger embeds in transaction simulation logs, returning
// the decoded numeric code or 0 if none was found.
func extractProgramErrorCode(rawMessage string) int32 {
	const marker = "custom program error: 0x"
	idx := strings.Index(rawMessage, marker)
	if idx < 0 {
		return 0
	}

	start := idx + len(marker)
	end := start
	for end < len(rawMessage) && isHexDigit(rawMessage[end]) {
		end++
	}
	if end == start {
		return 0
	}

	code, err := strconv.ParseInt(rawMessage[start:end], 16, 32)
	if err != nil {
		return 0
	}
	return int32(code)
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
