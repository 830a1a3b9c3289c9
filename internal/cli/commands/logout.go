package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dayleaf-dev/dayleaf/internal/client"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout()
		},
	}
}

func runLogout() error {
	s, err := newStack()
	if err != nil {
		return err
	}
	defer s.close()

	if s.bridge.RequestToken() == "" {
		fmt.Println("Not logged in")
		return nil
	}

	// Revoke the token server-side first; local credentials are cleared
	// regardless of the outcome so a dead server cannot trap a session.
	if err := s.api.Logout(context.Background()); err != nil {
		if apiErr, ok := client.AsAPIError(err); ok && apiErr.IsNetworkError() {
			s.log.Warn().Msg("server unreachable, clearing local session only")
		}
	}

	s.bridge.ClearAuthSnapshot()
	fmt.Println("Logged out")
	return nil
}
