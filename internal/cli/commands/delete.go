package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

// NewDeleteCmd creates the delete command
func NewDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete [entry-id]",
		Short: "Delete a journal entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) > 0 {
				id = args[0]
			}
			return runDelete(id, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")

	return cmd
}

func runDelete(id string, force bool) error {
	s, err := newStack()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	title := id
	if id == "" {
		entry, err := promptEntrySelection(s, "Select an entry to delete")
		if err != nil {
			return err
		}
		id = entry.ID
		title = entry.Title
	}

	if !force {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete %q? This cannot be undone", title),
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			if strings.Contains(err.Error(), "interrupt") {
				return fmt.Errorf("cancelled")
			}
			fmt.Println("Cancelled")
			return nil
		}
	}

	if err := s.api.DeleteEntry(context.Background(), id); err != nil {
		return s.renderAPIError(err)
	}

	fmt.Println("Entry deleted")
	return nil
}
