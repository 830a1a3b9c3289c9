package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResetTokenTTL bounds how long an emailed password-reset link stays valid.
const ResetTokenTTL = 15 * time.Minute

var resetSecret []byte

// ResetClaims are the claims carried by a password-reset token
type ResetClaims struct {
	ResetID string `json:"reset_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// InitializeResetSigner sets the secret used to sign password-reset tokens
func InitializeResetSigner(secret string) {
	resetSecret = []byte(secret)
}

// GenerateResetToken creates a signed, short-lived password-reset token
// bound to one PasswordReset record.
func GenerateResetToken(resetID, email string) (string, error) {
	if len(resetSecret) == 0 {
		return "", fmt.Errorf("reset signer not initialized")
	}

	claims := ResetClaims{
		ResetID: resetID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ResetTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(resetSecret)
}

// ValidateResetToken validates a password-reset token and returns its claims
func ValidateResetToken(tokenString string) (*ResetClaims, error) {
	if len(resetSecret) == 0 {
		return nil, fmt.Errorf("reset signer not initialized")
	}

	token, err := jwt.ParseWithClaims(tokenString, &ResetClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return resetSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse reset token: %w", err)
	}

	if claims, ok := token.Claims.(*ResetClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid reset token")
}
