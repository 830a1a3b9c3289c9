package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dayleaf-dev/dayleaf/internal/client"
)

// NewForgotPasswordCmd creates the forgot-password command
func NewForgotPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForgotPassword(args[0])
		},
	}
}

func runForgotPassword(email string) error {
	s, err := newStack()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.api.ForgotPassword(context.Background(), email); err != nil {
		return s.renderAPIError(err)
	}

	fmt.Println("If an account exists for that address, a reset link has been sent.")
	return nil
}

// NewResetPasswordCmd creates the reset-password command
func NewResetPasswordCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Complete a password reset with a token from email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResetPassword(token)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Reset token from the email link (required)")
	cmd.MarkFlagRequired("token")

	return cmd
}

func runResetPassword(token string) error {
	s, err := newStack()
	if err != nil {
		return err
	}
	defer s.close()

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

	err = s.api.ResetPassword(context.Background(), client.ResetPasswordRequest{
		Token:                token,
		Password:             next,
		PasswordConfirmation: confirm,
	})
	if err != nil {
		return s.renderAPIError(err)
	}

	fmt.Println("Password reset. Please log in with your new password.")
	return nil
}
