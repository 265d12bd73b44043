package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"upendo/backend/internal/config"
)

func TestValidateSecurityConfigRejectsShortSecret(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short"})
	require.Error(t, err)
}

func TestValidateSecurityConfigRequiresDatabaseInProduction(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		AuthSecret:  "0123456789abcdef0123456789abcdef",
		Environment: "production",
	})
	require.ErrorContains(t, err, "DATABASE_URL")
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		AuthSecret:  "0123456789abcdef0123456789abcdef",
		Environment: "development",
	})
	require.NoError(t, err)
}
