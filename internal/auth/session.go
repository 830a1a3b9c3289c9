package auth

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	// TokenID identifies the access token the request authenticated with
	TokenID string `json:"token_id"`
}
