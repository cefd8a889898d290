package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/speakup/internal/config"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate", "bootstrap-admin"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestBuildApp_MemoryDriver(t *testing.T) {
	cfg := config.Defaults()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := buildApp(context.Background(), cfg, log)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.accounts)
	assert.NotNil(t, a.health)

	families, err := a.registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestBuildApp_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.JWT.Algorithm = "RS256"

	_, err := buildApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}

func TestBootstrapAdmin_MemoryDriver(t *testing.T) {
	cfg := config.Defaults()
	cfg.Admin = config.Admin{Email: "root@example.com", Password: "Adm1nPassw0rd"}

	created, err := bootstrapAdmin(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestBootstrapAdmin_RequiresCredentials(t *testing.T) {
	_, err := bootstrapAdmin(context.Background(), config.Defaults())
	require.Error(t, err)
}
