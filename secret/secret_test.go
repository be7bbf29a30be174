package secret_test

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tapswap/htlcswap/secret"
)

func TestGenerateProducesMatchingCommitment(t *testing.T) {
	s, c, err := secret.Generate()
	require.NoError(t, err)
	require.True(t, secret.Verify(s, c))
}

func TestGenerateIsNotDeterministic(t *testing.T) {
	s1, _, err := secret.Generate()
	require.NoError(t, err)
	s2, _, err := secret.Generate()
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	s, _, err := secret.Generate()
	require.NoError(t, err)

	other, _, err := secret.Generate()
	require.NoError(t, err)

	require.False(t, secret.Verify(other, s.Commitment()))
}

func TestParseSecretNormalizesHex(t *testing.T) {
	s, _, err := secret.Generate()
	require.NoError(t, err)

	upper := "0X" + strings.ToUpper(s.Hex())
	parsed, err := secret.ParseSecret(upper)
	require.NoError(t, err)
	require.Equal(t, s, parsed)
}

func TestParseSecretRejectsWrongLength(t *testing.T) {
	_, err := secret.ParseSecret("aabb")
	require.ErrorIs(t, err, secret.ErrMalformedHex)
}

func TestParseSecretRejectsNonHex(t *testing.T) {
	_, err := secret.ParseSecret(strings.Repeat("zz", 32))
	require.ErrorIs(t, err, secret.ErrMalformedHex)
}

// TestVerifyMatchesRawSHA256 checks the determinism property from §8:
// verify(S, H) holds iff H = SHA-256(S), byte-exact, for arbitrary
// 32-byte inputs (not just ones produced by Generate).
func TestVerifyMatchesRawSHA256(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), secret.Size, secret.Size).Draw(t, "secret")

		var s secret.Secret
		copy(s[:], raw)

		want := sha256.Sum256(s[:])
		var wantC secret.Commitment
		copy(wantC[:], want[:])

		require.True(t, secret.Verify(s, wantC))

		// Flipping a single bit in the commitment must always break
		// verification.
		wantC[0] ^= 0x01
		require.False(t, secret.Verify(s, wantC))
	})
}
