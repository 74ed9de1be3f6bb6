package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Participation.LockWait)
	assert.Equal(t, 720*time.Hour, cfg.Participation.ReferralLinkTTL)
	assert.Equal(t, "@every 10s", cfg.Draw.Schedule)
	assert.Equal(t, "host=localhost port=5432 user=postgres password= dbname=giveaway sslmode=disable", cfg.Postgres.GetDSN())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("JOIN_LOCK_WAIT", "250ms")
	t.Setenv("POSTGRES_AUTO_MIGRATE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Participation.LockWait)
	assert.True(t, cfg.Postgres.AutoMigrate)
}

func TestLoad_RequiresBotToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}
