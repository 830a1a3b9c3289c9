package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dayleaf-dev/dayleaf/internal/client"
)

// NewWriteCmd creates the write command
func NewWriteCmd() *cobra.Command {
	var title, body, mood string

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a new journal entry",
		Long:  "Write a new journal entry. When --body is omitted the entry text is read from stdin until EOF (Ctrl-D).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(title, body, mood)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Entry title (required)")
	cmd.Flags().StringVar(&body, "body", "", "Entry text (reads stdin when omitted)")
	cmd.Flags().StringVar(&mood, "mood", "", "Optional mood tag")
	cmd.MarkFlagRequired("title")

	return cmd
}

func runWrite(title, body, mood string) error {
	s, err := newStack()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	if body == "" {
		fmt.Fprintln(os.Stderr, "Entry text (end with Ctrl-D):")
		var sb strings.Builder
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			sb.WriteString(scanner.Text())
			sb.WriteByte('\n')
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read entry text: %w", err)
		}
		body = strings.TrimRight(sb.String(), "\n")
	}

	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("entry text is empty")
	}

	entry, err := s.api.CreateEntry(context.Background(), client.EntryRequest{
		Title: title,
		Body:  body,
		Mood:  mood,
	})
	if err != nil {
		return s.renderAPIError(err)
	}

	s.touch()
	fmt.Printf("Saved entry %s: %s\n", entry.ID, entry.Title)
	return nil
}
