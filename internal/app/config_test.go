package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/llantera-erp/llantera-erp/internal/testing/guard"
)

func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "sesion-secreta")
	t.Setenv("CSRF_SECRET", "csrf-secreto")
	t.Setenv("TOKEN_SECRET", "token-secreto")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredSecrets(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "store", cfg.AuthzStrategy)
	assert.Equal(t, 5*time.Minute, cfg.AuthzTTL)
	assert.Equal(t, 1024, cfg.AuthzCacheSize)
	assert.Equal(t, []string{"Administrador"}, cfg.AuthzAdminRoles)
	assert.True(t, cfg.AuthzAuditDenials)
	assert.Equal(t, 90, cfg.AuditRetentionDays)
	assert.Equal(t, "Llantera El Camino", cfg.ShopName)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigMissingSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "x")
	t.Setenv("TOKEN_SECRET", "x")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsUnknownStrategy(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("AUTHZ_STRATEGY", "ldap")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "store or claims")
}

func TestLoadConfigClaimsStrategy(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("AUTHZ_STRATEGY", "claims")
	t.Setenv("AUTHZ_ADMIN_ROLES", "Administrador,Gerente General")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "claims", cfg.AuthzStrategy)
	assert.Equal(t, []string{"Administrador", "Gerente General"}, cfg.AuthzAdminRoles)
}

func TestIsProduction(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())

	var nilCfg *Config
	assert.False(t, nilCfg.IsProduction())
}
