package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dayleaf-dev/dayleaf/internal/cli/userconfig"
)

// NewConfigCmd creates the config command
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change local CLI configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-server <url>",
		Short: "Set the Dayleaf API server URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := userconfig.SetServerURL(args[0]); err != nil {
				return err
			}
			fmt.Printf("Server URL set to %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-storage <file|keyring>",
		Short: "Select where session credentials are stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := args[0]
			if backend != userconfig.BackendFile && backend != userconfig.BackendKeyring {
				return fmt.Errorf("unknown storage backend %q (want 'file' or 'keyring')", backend)
			}
			cfg, err := userconfig.Load()
			if err != nil {
				return err
			}
			cfg.StorageBackend = backend
			if err := userconfig.Save(cfg); err != nil {
				return err
			}
			fmt.Printf("Storage backend set to %s\n", backend)
			return nil
		},
	})

	return cmd
}

func runConfigShow() error {
	cfg, err := userconfig.Load()
	if err != nil {
		return err
	}

	path, err := userconfig.GetConfigPath()
	if err != nil {
		return err
	}

	server := cfg.ServerURL
	if server == "" {
		server = "(default)"
	}

	fmt.Printf("config file:     %s\n", path)
	fmt.Printf("server url:      %s\n", server)
	fmt.Printf("storage backend: %s\n", cfg.StorageBackend)
	return nil
}
