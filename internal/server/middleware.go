package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/dayleaf-dev/dayleaf/internal/auth"
	"github.com/dayleaf-dev/dayleaf/internal/models"
)

const (
	bearerPrefix = "Bearer "
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidToken      = errors.New("invalid token")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

// GetSessionData returns the authenticated session for the current request
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// TokenAuthMiddleware authenticates requests by their opaque bearer token
func TokenAuthMiddleware(db *gorm.DB, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			var message string
			switch err {
			case ErrMissingAuthHeader:
				message = "Missing authorization header"
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			abortWithError(c, log, http.StatusUnauthorized, err, message)
			return
		}

		var accessToken models.AccessToken
		if err := db.Preload("User").
			Where("token_hash = ?", auth.HashToken(token)).
			First(&accessToken).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abortWithError(c, log, http.StatusUnauthorized, ErrInvalidToken, "Invalid or revoked token")
				return
			}
			abortWithError(c, log, http.StatusInternalServerError, err, "Internal server error")
			return
		}

		now := time.Now()
		if err := db.Model(&accessToken).Update("last_used_at", now).Error; err != nil {
			log.Warn().Err(err).Str("token_id", accessToken.ID).Msg("Failed to record token use")
		}

		setSession(c, &auth.SessionData{
			UserID:   accessToken.UserID,
			Username: accessToken.User.Username,
			Email:    accessToken.User.Email,
			TokenID:  accessToken.ID,
		})

		c.Next()
	}
}
