package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dayleaf-dev/dayleaf/internal/client"
)

// NewProfileCmd creates the profile command
func NewProfileCmd() *cobra.Command {
	var name, username, email string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update account profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(name, username, email)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&username, "username", "", "New username")
	cmd.Flags().StringVar(&email, "email", "", "New email address")

	return cmd
}

func runProfile(name, username, email string) error {
	s, err := newStack()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	current := s.store.Snapshot().User
	if current == nil {
		return fmt.Errorf("no user data in session. Please run 'dayleaf login' again")
	}

	// The server expects the full profile, so unchanged fields keep their
	// current values.
	req := client.ProfileRequest{
		Name:     current.Name,
		Username: current.Username,
		Email:    current.Email,
	}
	if name != "" {
		req.Name = name
	}
	if username != "" {
		req.Username = username
	}
	if email != "" {
		req.Email = email
	}

	if req == (client.ProfileRequest{Name: current.Name, Username: current.Username, Email: current.Email}) {
		return fmt.Errorf("nothing to update (use --name, --username or --email)")
	}

	user, err := s.api.UpdateProfile(context.Background(), req)
	if err != nil {
		return s.renderAPIError(err)
	}

	s.bridge.SetAuthSnapshot(s.bridge.RequestToken(), user)

	fmt.Printf("Profile updated: %s (%s)\n", user.Username, user.Email)
	return nil
}
