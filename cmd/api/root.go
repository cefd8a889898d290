package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command of the SpeakUp account service.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "speakup-api",
		Short:        "SpeakUp account service",
		Long:         `SpeakUp account service: registration, email confirmation, login with sliding token renewal, password reset and user administration.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewBootstrapAdminCmd())

	return cmd
}
