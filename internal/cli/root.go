package cli

import (
	"fmt"
	"os"

	"github.com/dayleaf-dev/dayleaf/internal/cli/commands"
	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "dayleaf",
	Short: "Dayleaf - Personal journaling from the terminal",
	Long: `Dayleaf CLI - Keep a journal from your terminal.

Sessions are stored locally and expire after an hour of inactivity,
so you stay logged in across invocations without leaving stale
credentials behind.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dayleaf version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewSignupCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
	rootCmd.AddCommand(commands.NewProfileCmd())
	rootCmd.AddCommand(commands.NewPasswdCmd())
	rootCmd.AddCommand(commands.NewForgotPasswordCmd())
	rootCmd.AddCommand(commands.NewResetPasswordCmd())
	rootCmd.AddCommand(commands.NewWriteCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewReadCmd())
	rootCmd.AddCommand(commands.NewDeleteCmd())
	rootCmd.AddCommand(commands.NewConfigCmd())
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
