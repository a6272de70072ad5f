package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("POSTGRES_URI", "postgres://localhost/md"))
	defer os.Unsetenv("POSTGRES_URI")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Host)
	require.Equal(t, 389, cfg.Port)
	require.False(t, cfg.UseCoreTLS)
	require.Equal(t, "MultiDirectory", cfg.VendorName)
	require.Equal(t, "0.0.0.0:389", cfg.Addr())
}

func TestLoadRequiresPostgresURI(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsIncompleteTLSKeypair(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("POSTGRES_URI", "postgres://localhost/md"))
	require.NoError(t, os.Setenv("USE_CORE_TLS", "true"))
	defer os.Unsetenv("POSTGRES_URI")
	defer os.Unsetenv("USE_CORE_TLS")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadAcceptsCompleteTLSKeypair(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("POSTGRES_URI", "postgres://localhost/md"))
	require.NoError(t, os.Setenv("USE_CORE_TLS", "true"))
	require.NoError(t, os.Setenv("SSL_CERT", "/tmp/cert.pem"))
	require.NoError(t, os.Setenv("SSL_KEY", "/tmp/key.pem"))
	defer os.Unsetenv("POSTGRES_URI")
	defer os.Unsetenv("USE_CORE_TLS")
	defer os.Unsetenv("SSL_CERT")
	defer os.Unsetenv("SSL_KEY")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.UseCoreTLS)
}
