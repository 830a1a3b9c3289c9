package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dayleaf-dev/dayleaf/internal/client"
)

// NewSignupCmd creates the signup command
func NewSignupCmd() *cobra.Command {
	var name, username, email string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a new Dayleaf account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignup(name, username, email)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runSignup(name, username, email string) error {
	s, err := newStack()
	if err != nil {
		return err
	}
	defer s.close()

	password, err := promptPassword("Password")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	resp, err := s.api.Signup(context.Background(), client.SignupRequest{
		Name:                 name,
		Username:             username,
		Email:                email,
		Password:             password,
		PasswordConfirmation: confirm,
	})
	if err != nil {
		return s.renderAPIError(err)
	}

	s.bridge.SetAuthSnapshot(resp.Token, resp.User)

	fmt.Printf("Welcome to Dayleaf, %s! You are now logged in.\n", resp.User.Name)
	return nil
}
