package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMintToken(t *testing.T) {
	plain, id, hash, err := MintToken()
	require.NoError(t, err)

	parts := strings.SplitN(plain, "|", 2)
	require.Len(t, parts, 2)
	require.Equal(t, id, parts[0])
	require.Len(t, parts[1], 64, "secret is 32 random bytes, hex encoded")

	require.Equal(t, HashToken(plain), hash)
	require.Len(t, hash, 64)

	// Two mints never collide.
	plain2, id2, hash2, err := MintToken()
	require.NoError(t, err)
	require.NotEqual(t, plain, plain2)
	require.NotEqual(t, id, id2)
	require.NotEqual(t, hash, hash2)
}

func TestTokenID(t *testing.T) {
	require.Equal(t, "abc", TokenID("abc|secret"))
	require.Equal(t, "", TokenID("no-separator"))
	require.Equal(t, "", TokenID(""))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	require.NotEqual(t, "correct-horse", hash)

	require.NoError(t, VerifyPassword("correct-horse", hash))
	require.Error(t, VerifyPassword("wrong-horse", hash))
}

func TestResetTokenRoundTrip(t *testing.T) {
	InitializeResetSigner("test-reset-secret")

	token, err := GenerateResetToken("01HRESET", "jdoe@example.com")
	require.NoError(t, err)

	claims, err := ValidateResetToken(token)
	require.NoError(t, err)
	require.Equal(t, "01HRESET", claims.ResetID)
	require.Equal(t, "jdoe@example.com", claims.Email)
}

func TestResetTokenRejectsTampering(t *testing.T) {
	InitializeResetSigner("test-reset-secret")

	token, err := GenerateResetToken("01HRESET", "jdoe@example.com")
	require.NoError(t, err)

	_, err = ValidateResetToken(token + "x")
	require.Error(t, err)

	// A token signed under a different secret is rejected.
	InitializeResetSigner("another-secret")
	_, err = ValidateResetToken(token)
	require.Error(t, err)
}
