package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List journal entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList()
		},
	}
}

func runList() error {
	s, err := newStack()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	entries, err := s.api.ListEntries(context.Background())
	if err != nil {
		return s.renderAPIError(err)
	}

	if len(entries) == 0 {
		fmt.Println("No entries yet. Use 'dayleaf write' to create one.")
		return nil
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %s  %s", e.ID, e.CreatedAt.Format("2006-01-02"), e.Title)
		if e.Mood != "" {
			line += fmt.Sprintf("  [%s]", e.Mood)
		}
		fmt.Println(line)
	}
	return nil
}
