package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dayleaf-dev/dayleaf/internal/client"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the Dayleaf server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set DAYLEAF_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set DAYLEAF_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(username, password string) error {
	// Check for environment variables (useful for scripting)
	if username == "" {
		username = os.Getenv("DAYLEAF_USERNAME")
	}
	if password == "" {
		password = os.Getenv("DAYLEAF_PASSWORD")
	}

	if username == "" {
		return fmt.Errorf("username is required (use --username flag or DAYLEAF_USERNAME env var)")
	}

	if password == "" {
		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	}

	s, err := newStack()
	if err != nil {
		return err
	}
	defer s.close()

	resp, err := s.api.Login(context.Background(), client.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return s.renderAPIError(err)
	}

	s.bridge.SetAuthSnapshot(resp.Token, resp.User)

	fmt.Printf("Logged in as %s (%s)\n", resp.User.Username, resp.User.Email)
	return nil
}
