package db

import (
	"context"
	"log/slog"

	"github.com/geocoder89/speakup/internal/config"
)

type AdminBootstrapper interface {
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

// EnsureAdminUser seeds the configured administrator. Without configured
// credentials it does nothing.
func EnsureAdminUser(ctx context.Context, b AdminBootstrapper, cfg config.Admin, log *slog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		log.WarnContext(ctx, "admin bootstrap skipped: ADMIN_DEFAULT_EMAIL or ADMIN_DEFAULT_PASSWORD not set")
		return nil
	}

	created, err := b.EnsureAdmin(ctx, cfg.Email, cfg.Password)
	if err != nil {
		return err
	}

	if created {
		log.InfoContext(ctx, "admin bootstrap: created admin account", "email", cfg.Email)
	} else {
		log.InfoContext(ctx, "admin bootstrap: admin account already present", "email", cfg.Email)
	}
	return nil
}
