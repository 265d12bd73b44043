package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectAuthSecret(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	require.Empty(t, cfg.AuthSecret)
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	t.Setenv("SUMMARY_CACHE_TTL_SECONDS", "-5")
	t.Setenv("LOCK_TTL_SECONDS", "abc")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("PORT", "9090")

	cfg := Load()
	require.Equal(t, 60, cfg.SummaryCacheTTLSeconds)
	require.Equal(t, 15, cfg.LockTTLSeconds)
	require.True(t, cfg.AutoMigrate)
	require.Equal(t, ":9090", cfg.Address())
}
