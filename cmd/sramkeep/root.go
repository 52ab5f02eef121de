package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the sramkeep CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sramkeep",
		Short: "sramkeep - account and session management",
		Long: `sramkeep manages the credential side of a save-file sharing service:
referral-gated signup, login sessions, and the referral codes that admit
new members.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewInviteCmd())

	return cmd
}
