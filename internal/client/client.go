// Package client is the HTTP client for the Dayleaf API. It attaches bearer
// tokens sourced from the auth bridge to protected endpoints and normalizes
// every failure into a single typed error envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dayleaf-dev/dayleaf/internal/session"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8080/api"

// Endpoints that require a bearer token.
var protectedEndpoints = map[string]bool{
	"/auth/user":            true,
	"/auth/logout":          true,
	"/auth/profile":         true,
	"/auth/change-password": true,
}

// Client calls the Dayleaf API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	bridge     *session.Bridge
	log        zerolog.Logger
}

// New creates an API client. An empty baseURL falls back to DefaultBaseURL
// with a logged warning.
func New(baseURL string, bridge *session.Bridge, log zerolog.Logger) *Client {
	if baseURL == "" {
		log.Warn().Str("fallback", DefaultBaseURL).Msg("No API base URL configured, using fallback")
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		bridge: bridge,
		log:    log,
	}
}

// SetHTTPClient sets a custom HTTP client.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

func isProtected(path string) bool {
	return protectedEndpoints[path] || strings.HasPrefix(path, "/entries")
}

// looksLikeToken is a superficial structural check on the bearer token:
// minimum length and the presence of the id/secret separator. It makes no
// trust decision.
func looksLikeToken(token string) bool {
	return len(token) >= 10 && strings.Contains(token, "|")
}

// request issues one API request and decodes the response body into out (out
// may be nil). Every failure is returned as an *APIError.
func (c *Client) request(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Message: fmt.Sprintf("failed to encode request: %v", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if isProtected(path) {
		if token := c.bridge.RequestToken(); looksLikeToken(token) {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Status 0 distinguishes network-level failures from
		// HTTP-level ones for downstream status switching.
		return &APIError{Message: err.Error(), Status: 0}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Message: err.Error(), Status: resp.StatusCode}
	}

	if resp.StatusCode >= 400 {
		return errorFromResponse(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &APIError{
				Message: fmt.Sprintf("failed to decode response: %v", err),
				Status:  resp.StatusCode,
			}
		}
	}
	return nil
}

// errorFromResponse parses a JSON error body into the envelope, synthesizing
// a "HTTP <status>: <text>" message when the body is missing or malformed.
func errorFromResponse(statusCode int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr = &APIError{
			Message: fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode)),
		}
	}
	apiErr.Success = false
	apiErr.Status = statusCode
	return apiErr
}

// SignupRequest is the account creation payload.
type SignupRequest struct {
	Name                 string `json:"name"`
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// LoginRequest is the credential payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Token   string        `json:"token"`
	User    *session.User `json:"user"`
}

// UserResponse wraps a single user record.
type UserResponse struct {
	Success bool          `json:"success"`
	User    *session.User `json:"user"`
}

// MessageResponse carries a bare confirmation message.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ProfileRequest updates account profile fields.
type ProfileRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ChangePasswordRequest rotates the account password.
type ChangePasswordRequest struct {
	CurrentPassword      string `json:"current_password"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token                string `json:"token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Signup creates an account and returns the fresh token and user.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.request(ctx, http.MethodPost, "/auth/signup", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates and returns the token and user.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.request(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the current token server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.request(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// CurrentUser fetches the authenticated account.
func (c *Client) CurrentUser(ctx context.Context) (*session.User, error) {
	var resp UserResponse
	if err := c.request(ctx, http.MethodGet, "/auth/user", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// UpdateProfile updates profile fields and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, req ProfileRequest) (*session.User, error) {
	var resp UserResponse
	if err := c.request(ctx, http.MethodPut, "/auth/profile", req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// ChangePassword rotates the password for the authenticated account.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return c.request(ctx, http.MethodPost, "/auth/change-password", req, nil)
}

// ForgotPassword requests a reset email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.request(ctx, http.MethodPost, "/auth/forgot-password", ForgotPasswordRequest{Email: email}, nil)
}

// ResetPassword completes a reset with an emailed token.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return c.request(ctx, http.MethodPost, "/auth/reset-password", req, nil)
}

// Entry is a journal entry as returned by the API.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryRequest creates or updates a journal entry.
type EntryRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Mood  string `json:"mood,omitempty"`
}

// ListEntries returns the authenticated user's journal entries, newest
// first.
func (c *Client) ListEntries(ctx context.Context) ([]Entry, error) {
	var resp struct {
		Success bool    `json:"success"`
		Entries []Entry `json:"entries"`
	}
	if err := c.request(ctx, http.MethodGet, "/entries", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// CreateEntry writes a new journal entry.
func (c *Client) CreateEntry(ctx context.Context, req EntryRequest) (*Entry, error) {
	var resp struct {
		Success bool   `json:"success"`
		Entry   *Entry `json:"entry"`
	}
	if err := c.request(ctx, http.MethodPost, "/entries", req, &resp); err != nil {
		return nil, err
	}
	return resp.Entry, nil
}

// GetEntry fetches one journal entry by id.
func (c *Client) GetEntry(ctx context.Context, id string) (*Entry, error) {
	var resp struct {
		Success bool   `json:"success"`
		Entry   *Entry `json:"entry"`
	}
	if err := c.request(ctx, http.MethodGet, "/entries/"+id, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entry, nil
}

// UpdateEntry rewrites an existing journal entry.
func (c *Client) UpdateEntry(ctx context.Context, id string, req EntryRequest) (*Entry, error) {
	var resp struct {
		Success bool   `json:"success"`
		Entry   *Entry `json:"entry"`
	}
	if err := c.request(ctx, http.MethodPut, "/entries/"+id, req, &resp); err != nil {
		return nil, err
	}
	return resp.Entry, nil
}

// DeleteEntry removes a journal entry.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodDelete, "/entries/"+id, nil, nil)
}
