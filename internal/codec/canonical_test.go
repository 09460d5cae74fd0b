package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zksl-labs/anchor-core/internal/codec"
)

func TestCanonicalJSONKeyOrdering(t *testing.T) {
	input := map[string]any{
		"b": 1,
		"a": 2,
		"c": map[string]any{"z": 1, "y": 2},
	}

	out, err := codec.CanonicalJSON(input)
	require.NoError(t, err)
	require.Equal(t, `{"a":2,"b":1,"c":{"y":2,"z":1}}`, string(out))
}

func TestCanonicalJSONDropsPollutionKeys(t *testing.T) {
	input := map[string]any{
		"ok":          1,
		"__proto__":   2,
		"constructor": 3,
		"prototype":   4,
	}

	out, err := codec.CanonicalJSON(input)
	require.NoError(t, err)
	require.Equal(t, `{"ok":1}`, string(out))
}

func TestCanonicalJSONNoWhitespace(t *testing.T) {
	out, err := codec.CanonicalJSON([]any{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, "[1,2,3]", string(out))
	require.NotContains(t, string(out), "\n")
	require.NotContains(t, string(out), " ")
}

func TestNormalizeHex32(t *testing.T) {
	valid := "0123456789abcdef0123456789ABCDEF0123456789abcdef0123456789abcdef"
	norm, err := codec.NormalizeHex32(valid)
	require.NoError(t, err)
	require.Equal(t, "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", norm)

	_, err = codec.NormalizeHex32("not-hex")
	require.Error(t, err)

	_, err = codec.NormalizeHex32("ab")
	require.Error(t, err)
}

func TestNormalizeHex32Idempotent(t *testing.T) {
	valid := "0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF"
	once, err := codec.NormalizeHex32(valid)
	require.NoError(t, err)

	twice, err := codec.NormalizeHex32(once)
	require.NoError(t, err)
	require.Equal(t, once, twice)
}
