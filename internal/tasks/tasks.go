package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// Outbound email tasks
	TypePasswordResetEmail = "email:password_reset"

	// Credential maintenance tasks
	TypeCredentialSweep = "auth:credential_sweep"
)

// PasswordResetEmailPayload carries one reset email
type PasswordResetEmailPayload struct {
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

// NewPasswordResetEmailTask creates a task to deliver a password reset email
func NewPasswordResetEmailTask(email, resetToken string) (*asynq.Task, error) {
	payload, err := json.Marshal(PasswordResetEmailPayload{
		Email:      email,
		ResetToken: resetToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypePasswordResetEmail, payload, asynq.Queue("critical")), nil
}

// NewCredentialSweepTask creates a task to purge stale tokens and reset records
func NewCredentialSweepTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeCredentialSweep, nil, asynq.Queue("low")), nil
}

// ParsePasswordResetEmailPayload parses the payload from an Asynq task
func ParsePasswordResetEmailPayload(task *asynq.Task) (PasswordResetEmailPayload, error) {
	var payload PasswordResetEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
