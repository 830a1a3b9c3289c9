package commands

import (
	"context"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dayleaf-dev/dayleaf/internal/client"
)

// NewPasswdCmd creates the passwd command
func NewPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the account password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPasswd()
		},
	}
}

func promptPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

func runPasswd() error {
	s, err := newStack()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	current, err := promptPassword("Current password")
	if err != nil {
		return err
	}
	next, err := promptPassword("New password")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm new password")
	if err != nil {
		return err
	}
	if next != confirm {
		return fmt.Errorf("passwords do not match")
	}

	err = s.api.ChangePassword(context.Background(), client.ChangePasswordRequest{
		CurrentPassword:      current,
		Password:             next,
		PasswordConfirmation: confirm,
	})
	if err != nil {
		return s.renderAPIError(err)
	}

	fmt.Println("Password changed. Other sessions have been logged out.")
	return nil
}
