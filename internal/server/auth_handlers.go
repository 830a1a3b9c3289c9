package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dayleaf-dev/dayleaf/internal/auth"
	"github.com/dayleaf-dev/dayleaf/internal/models"
	"github.com/dayleaf-dev/dayleaf/internal/session"
	"github.com/dayleaf-dev/dayleaf/internal/tasks"
)

// SignupRequest represents the account creation request
type SignupRequest struct {
	Name                 string `json:"name" binding:"required,max=100"`
	Username             string `json:"username" binding:"required,min=3,max=32,username"`
	Email                string `json:"email" binding:"required,email"`
	Password             string `json:"password" binding:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents a successful signup/login response
type AuthResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Token   string        `json:"token"`
	User    *session.User `json:"user"`
}

// ProfileRequest represents a profile update request
type ProfileRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Username string `json:"username" binding:"required,min=3,max=32,username"`
	Email    string `json:"email" binding:"required,email"`
}

// ChangePasswordRequest represents a password rotation request
type ChangePasswordRequest struct {
	CurrentPassword      string `json:"current_password" binding:"required"`
	Password             string `json:"password" binding:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes a password reset
type ResetPasswordRequest struct {
	Token                string `json:"token" binding:"required"`
	Password             string `json:"password" binding:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// issueToken mints an access token for user and persists its hash
func (s *Server) issueToken(user *models.User) (string, error) {
	plain, id, hash, err := auth.MintToken()
	if err != nil {
		return "", err
	}

	record := &models.AccessToken{
		BaseModel: models.BaseModel{ID: id},
		UserID:    user.ID,
		TokenHash: hash,
	}
	if err := s.db.Create(record).Error; err != nil {
		return "", err
	}
	return plain, nil
}

// @Summary Create account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup request"
// @Success 201 {object} AuthResponse
// @Failure 422 {object} errorEnvelope
// @Router /api/auth/signup [post]
func (s *Server) signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	fieldErrors := map[string][]string{}
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err == nil && count > 0 {
		fieldErrors["username"] = append(fieldErrors["username"], "This username is already taken.")
	}
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err == nil && count > 0 {
		fieldErrors["email"] = append(fieldErrors["email"], "This email is already registered.")
	}
	if len(fieldErrors) > 0 {
		respondValidationError(c, fieldErrors)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		respondError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	user := &models.User{
		Name:         req.Name,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
	}
	if err := s.db.Create(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		respondError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue token")
		respondError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	payload := userPayload(user)
	s.authBridge(c).SetAuthSnapshot(token, payload)

	s.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("Account created")

	c.JSON(http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created",
		Token:   token,
		User:    payload,
	})
}

// @Summary Login
// @Description Authenticate with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} errorEnvelope
// @Failure 429 {object} errorEnvelope
// @Router /api/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	if !s.loginThrottle.Allow(req.Username) {
		respondErrorCode(c, http.StatusTooManyRequests, "Too many login attempts. Try again later.", "rate_limited")
		return
	}

	var user models.User
	if err := s.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		respondError(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := s.issueToken(&user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue token")
		respondError(c, http.StatusInternalServerError, "Failed to log in")
		return
	}

	payload := userPayload(&user)
	s.authBridge(c).SetAuthSnapshot(token, payload)

	s.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User logged in")

	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Token:   token,
		User:    payload,
	})
}

// @Summary Logout
// @Description Revoke the current access token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	sessionData, ok := GetSessionData(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := s.db.Delete(&models.AccessToken{}, "id = ?", sessionData.TokenID).Error; err != nil {
		s.logger.Error().Err(err).Str("token_id", sessionData.TokenID).Msg("Failed to revoke token")
		respondError(c, http.StatusInternalServerError, "Failed to log out")
		return
	}

	s.authBridge(c).ClearAuthSnapshot()

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} errorEnvelope
// @Router /api/auth/user [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	sessionData, ok := GetSessionData(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var user models.User
	if err := s.db.First(&user, sessionData.UserID).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "User no longer exists")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": userPayload(&user)})
}

// @Summary Update profile
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} errorEnvelope
// @Router /api/auth/profile [put]
func (s *Server) updateProfile(c *gin.Context) {
	sessionData, ok := GetSessionData(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req ProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	var user models.User
	if err := s.db.First(&user, sessionData.UserID).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "User no longer exists")
		return
	}

	fieldErrors := map[string][]string{}
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ? AND id != ?", req.Username, user.ID).Count(&count).Error; err == nil && count > 0 {
		fieldErrors["username"] = append(fieldErrors["username"], "This username is already taken.")
	}
	if err := s.db.Model(&models.User{}).Where("email = ? AND id != ?", req.Email, user.ID).Count(&count).Error; err == nil && count > 0 {
		fieldErrors["email"] = append(fieldErrors["email"], "This email is already registered.")
	}
	if len(fieldErrors) > 0 {
		respondValidationError(c, fieldErrors)
		return
	}

	// Changing the email address voids verification
	if req.Email != user.Email {
		user.EmailVerifiedAt = nil
	}
	user.Name = req.Name
	user.Username = req.Username
	user.Email = req.Email

	if err := s.db.Save(&user).Error; err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to update profile")
		respondError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": userPayload(&user)})
}

// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} errorEnvelope
// @Router /api/auth/change-password [post]
func (s *Server) changePassword(c *gin.Context) {
	sessionData, ok := GetSessionData(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	var user models.User
	if err := s.db.First(&user, sessionData.UserID).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "User no longer exists")
		return
	}

	if err := auth.VerifyPassword(req.CurrentPassword, user.PasswordHash); err != nil {
		respondValidationError(c, map[string][]string{
			"current_password": {"The current password is incorrect."},
		})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		respondError(c, http.StatusInternalServerError, "Failed to change password")
		return
	}

	user.PasswordHash = passwordHash
	if err := s.db.Save(&user).Error; err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to change password")
		respondError(c, http.StatusInternalServerError, "Failed to change password")
		return
	}

	// Revoke every other token so stolen sessions die with the old password
	if err := s.db.Where("user_id = ? AND id != ?", user.ID, sessionData.TokenID).
		Delete(&models.AccessToken{}).Error; err != nil {
		s.logger.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to revoke other tokens")
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password changed"})
}

// @Summary Request password reset
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/forgot-password [post]
func (s *Server) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	// The response never reveals whether the address exists
	response := gin.H{"success": true, "message": "If that email is registered, a reset link is on its way."}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusOK, response)
		return
	}

	reset := &models.PasswordReset{Email: user.Email}
	if err := s.db.Create(reset).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create password reset record")
		c.JSON(http.StatusOK, response)
		return
	}

	resetToken, err := auth.GenerateResetToken(reset.ID, user.Email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate reset token")
		c.JSON(http.StatusOK, response)
		return
	}

	task, err := tasks.NewPasswordResetEmailTask(user.Email, resetToken)
	if err == nil {
		_, err = s.asynqClient.Enqueue(task)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to enqueue reset email")
	}

	c.JSON(http.StatusOK, response)
}

// @Summary Complete password reset
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} errorEnvelope
// @Router /api/auth/reset-password [post]
func (s *Server) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	claims, err := auth.ValidateResetToken(req.Token)
	if err != nil {
		respondValidationError(c, map[string][]string{
			"token": {"This reset link is invalid or has expired."},
		})
		return
	}

	var reset models.PasswordReset
	if err := models.FindByID(s.db, claims.ResetID, &reset); err != nil || reset.UsedAt != nil {
		respondValidationError(c, map[string][]string{
			"token": {"This reset link is invalid or has expired."},
		})
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", claims.Email).First(&user).Error; err != nil {
		respondValidationError(c, map[string][]string{
			"token": {"This reset link is invalid or has expired."},
		})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		respondError(c, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	user.PasswordHash = passwordHash
	if err := s.db.Save(&user).Error; err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to reset password")
		respondError(c, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	now := time.Now()
	reset.UsedAt = &now
	if err := s.db.Save(&reset).Error; err != nil {
		s.logger.Warn().Err(err).Str("reset_id", reset.ID).Msg("Failed to mark reset as used")
	}

	// All outstanding sessions are revoked on reset
	if err := s.db.Where("user_id = ?", user.ID).Delete(&models.AccessToken{}).Error; err != nil {
		s.logger.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to revoke tokens")
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("Password reset completed")

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password has been reset"})
}
