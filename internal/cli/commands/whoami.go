package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(remote)
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Fetch the user record from the server instead of the local session")

	return cmd
}

func runWhoami(remote bool) error {
	s, err := newStack()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	user := s.store.Snapshot().User
	if remote {
		user, err = s.api.CurrentUser(context.Background())
		if err != nil {
			return s.renderAPIError(err)
		}
		// Keep the local session in step with what the server returned.
		s.bridge.SetAuthSnapshot(s.bridge.RequestToken(), user)
	}

	if user == nil {
		return fmt.Errorf("no user data in session. Please run 'dayleaf login' again")
	}

	fmt.Printf("%s (%s)\n", user.Username, user.Email)
	fmt.Printf("  name:  %s\n", user.Name)
	fmt.Printf("  id:    %d\n", user.ID)
	if user.EmailVerifiedAt != nil {
		fmt.Printf("  email verified: %s\n", user.EmailVerifiedAt.Format("2006-01-02"))
	} else {
		fmt.Println("  email verified: no")
	}
	return nil
}
