// Package codec implements the deterministic JSON canonicalization,
// fixed-width integer encoding, and content-addressed identifier
// derivation that every other component builds on: two independent
// encodings of the same artifact must produce bit-identical bytes.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// droppedKeys are omitted from canonical output as a prototype-pollution
// defense, matching the JCS-like subset this codec implements.
var droppedKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

var hex32Pattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// CanonicalJSON renders v as canonical JSON: object keys in byte-wise
// ascending order, no whitespace, no trailing newline. v must be
// JSON-marshalable; it is passed through json.Marshal and re-decoded
// before the keys are sorted, so structs are accepted and their field
// declaration order does not affect the output.
//
// Numeric policy: integers that must survive canonicalization exactly
// (slot numbers, sequence numbers) are expected to be carried as
// json.Number rather than float64, and are re-decoded with
// json.Decoder.UseNumber so the literal digit sequence round-trips
// without ever passing through a 53-bit-mantissa float. A plain Go
// float64 field is still accepted and rendered through encoding/json's
// ordinary float formatting, since this codec has no uint64 field that
// is ever meant to hold a fractional value.
func CanonicalJSON(v any) ([]byte, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: marshal: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: unmarshal: %w", err)
	}

	var out bytes.Buffer
	if err := writeCanonical(&out, generic); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeCanonical(b *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case json.Number:
		b.WriteString(val.String())
		return nil
	case nil, bool, string, float64:
		enc, err := json.Marshal(val)
		if err != nil {
			return err
		}
		b.Write(enc)
		return nil
	case []any:
		b.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, elem); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			if _, dropped := droppedKeys[k]; dropped {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			b.Write(kb)
			b.WriteByte(':')
			if err := writeCanonical(b, val[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("canonicalize: unsupported type %T", v)
	}
}

// NormalizeHex32 validates a 64-character hex string and lowercases it.
func NormalizeHex32(s string) (string, error) {
	if !hex32Pattern.MatchString(s) {
		return "", fmt.Errorf("hex32: invalid value %q, expected 64 hex characters", s)
	}
	return strings.ToLower(s), nil
}
