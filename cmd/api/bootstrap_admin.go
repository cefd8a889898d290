package main

import (
	"context"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/geocoder89/speakup/internal/config"
	"github.com/geocoder89/speakup/internal/observability"
)

// NewBootstrapAdminCmd creates the bootstrap-admin subcommand.
func NewBootstrapAdminCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the administrator account if it does not exist",
		Long: `Create an active administrator. Credentials default to ADMIN_DEFAULT_EMAIL
and ADMIN_DEFAULT_PASSWORD. An existing account with that email is left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg := config.Load()
			if email != "" {
				cfg.Admin.Email = email
			}
			if password != "" {
				cfg.Admin.Password = password
			}

			created, err := bootstrapAdmin(ctx, cfg)
			if err != nil {
				return err
			}

			if created {
				cmd.Printf("Created admin %s\n", cfg.Admin.Email)
			} else {
				cmd.Printf("Admin %s already exists\n", cfg.Admin.Email)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email (overrides ADMIN_DEFAULT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "admin password (overrides ADMIN_DEFAULT_PASSWORD)")

	return cmd
}

func bootstrapAdmin(ctx context.Context, cfg config.Config) (bool, error) {
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return false, oops.Code("CONFIG_INVALID").Errorf("admin email and password are required")
	}

	a, err := buildApp(ctx, cfg, observability.NewLoggerTo(os.Stderr, cfg.Env))
	if err != nil {
		return false, err
	}
	defer a.Close()

	created, err := a.accounts.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		return false, oops.Code("BOOTSTRAP_FAILED").With("operation", "ensure admin").Wrap(err)
	}
	return created, nil
}
