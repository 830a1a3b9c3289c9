package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/dayleaf-dev/dayleaf/internal/assert"
)

const tokenSecretBytes = 32

// MintToken creates a new opaque bearer token "<id>|<secret>" and returns
// the plain token together with its ULID id and the SHA-256 hash to persist.
// The plain value is never stored.
func MintToken() (plain, id, hash string, err error) {
	secretBytes := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)
	assert.Length(secret, tokenSecretBytes*2)

	id = ulid.Make().String()
	plain = id + "|" + secret
	return plain, id, HashToken(plain), nil
}

// HashToken returns the hex SHA-256 digest under which a token is stored.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// TokenID extracts the id half of a well-formed token, or "" for a token
// without a separator.
func TokenID(plain string) string {
	id, _, ok := strings.Cut(plain, "|")
	if !ok {
		return ""
	}
	return id
}
