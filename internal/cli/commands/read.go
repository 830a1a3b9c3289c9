package commands

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/dayleaf-dev/dayleaf/internal/client"
)

// NewReadCmd creates the read command
func NewReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read [entry-id]",
		Short: "Read a journal entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) > 0 {
				id = args[0]
			}
			return runRead(id)
		},
	}
}

// promptEntrySelection shows an interactive picker over the user's entries.
func promptEntrySelection(s *stack, label string) (*client.Entry, error) {
	entries, err := s.api.ListEntries(context.Background())
	if err != nil {
		return nil, s.renderAPIError(err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries yet. Use 'dayleaf write' to create one")
	}

	type entryOption struct {
		Label string
		Entry *client.Entry
	}

	options := make([]entryOption, len(entries))
	for i := range entries {
		entry := &entries[i]
		options[i] = entryOption{
			Label: fmt.Sprintf("%s  %s", entry.CreatedAt.Format("2006-01-02"), entry.Title),
			Entry: entry,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     label,
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("entry selection cancelled: %w", err)
	}

	return options[index].Entry, nil
}

func runRead(id string) error {
	s, err := newStack()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	var entry *client.Entry
	if id == "" {
		entry, err = promptEntrySelection(s, "Select an entry to read")
		if err != nil {
			return err
		}
	} else {
		entry, err = s.api.GetEntry(context.Background(), id)
		if err != nil {
			return s.renderAPIError(err)
		}
	}

	fmt.Printf("%s\n", entry.Title)
	fmt.Printf("%s", entry.CreatedAt.Format("2006-01-02 15:04"))
	if entry.Mood != "" {
		fmt.Printf("  [%s]", entry.Mood)
	}
	fmt.Printf("\n\n%s\n", entry.Body)
	return nil
}
