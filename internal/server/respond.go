package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/dayleaf-dev/dayleaf/internal/models"
	"github.com/dayleaf-dev/dayleaf/internal/session"
)

// errorEnvelope is the one failure shape the API emits. The client re-parses
// it into its typed error.
type errorEnvelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Code    string              `json:"code,omitempty"`
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, errorEnvelope{Message: message})
}

func respondErrorCode(c *gin.Context, status int, message, code string) {
	c.JSON(status, errorEnvelope{Message: message, Code: code})
}

// respondValidationError emits a 422 with per-field message lists.
func respondValidationError(c *gin.Context, fieldErrors map[string][]string) {
	c.JSON(http.StatusUnprocessableEntity, errorEnvelope{
		Message: "The given data was invalid.",
		Errors:  fieldErrors,
		Code:    "validation_failed",
	})
}

func abortWithError(c *gin.Context, log zerolog.Logger, status int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(status, errorEnvelope{Message: message})
	c.Abort()
}

// bindJSON binds the request body and converts binding failures into the
// validation envelope. Returns false when the request was already answered.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondValidationError(c, translateValidationErrors(verrs))
			return false
		}
		respondError(c, http.StatusBadRequest, "Malformed request body")
		return false
	}
	return true
}

func translateValidationErrors(verrs validator.ValidationErrors) map[string][]string {
	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "This field is required."
		case "email":
			msg = "Must be a valid email address."
		case "min":
			msg = "Value is too short."
		case "max":
			msg = "Value is too long."
		case "username":
			msg = "May only contain lowercase letters, numbers, hyphens and underscores."
		case "eqfield":
			msg = "Confirmation does not match."
		default:
			msg = "Invalid value."
		}
		out[field] = append(out[field], msg)
	}
	return out
}

// userPayload maps a stored user onto the client-facing record shape.
func userPayload(u *models.User) *session.User {
	updated := u.UpdatedAt
	return &session.User{
		ID:              u.ID,
		Name:            u.Name,
		Username:        u.Username,
		Email:           u.Email,
		EmailVerifiedAt: u.EmailVerifiedAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       &updated,
	}
}
