// Package config binds the directory server's environment-variable
// configuration surface with github.com/spf13/viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully-resolved server configuration.
type Config struct {
	Host string
	Port int
	// HTTPPort serves the §6.4 MFA HTTP side-channel (/multifactor/create,
	// /multifactor/connect). Not part of spec.md's named environment
	// variables; added because the LDAP and HTTP listeners can't share
	// one port.
	HTTPPort int

	UseCoreTLS bool
	SSLCert    string
	SSLKey     string

	PostgresURI string

	SecretKey string

	MFAAPIURI         string
	MFATimeout        time.Duration
	AccessTokenExpiry time.Duration

	VendorName    string
	VendorVersion string
}

// defaults mirrors the original deployment's docker-compose environment,
// kept here rather than in a separate file since there's only one of them.
var defaults = map[string]interface{}{
	"HOST":                        "0.0.0.0",
	"PORT":                        389,
	"HTTP_PORT":                   8000,
	"USE_CORE_TLS":                false,
	"SSL_CERT":                    "",
	"SSL_KEY":                     "",
	"POSTGRES_URI":                "",
	"SECRET_KEY":                  "",
	"MFA_API_URI":                 "",
	"MFA_TIMEOUT_SECONDS":         5,
	"ACCESS_TOKEN_EXPIRE_MINUTES": 60,
	"VENDOR_NAME":                 "MultiDirectory",
	"VENDOR_VERSION":              "1.0",
}

// Load reads configuration from the process environment (no config file:
// the original deployment is env-only, per docker-compose/.env.example).
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	cfg := &Config{
		Host:              v.GetString("HOST"),
		Port:              v.GetInt("PORT"),
		HTTPPort:          v.GetInt("HTTP_PORT"),
		UseCoreTLS:        v.GetBool("USE_CORE_TLS"),
		SSLCert:           v.GetString("SSL_CERT"),
		SSLKey:            v.GetString("SSL_KEY"),
		PostgresURI:       v.GetString("POSTGRES_URI"),
		SecretKey:         v.GetString("SECRET_KEY"),
		MFAAPIURI:         v.GetString("MFA_API_URI"),
		MFATimeout:        time.Duration(v.GetInt("MFA_TIMEOUT_SECONDS")) * time.Second,
		AccessTokenExpiry: time.Duration(v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES")) * time.Minute,
		VendorName:        v.GetString("VENDOR_NAME"),
		VendorVersion:     v.GetString("VENDOR_VERSION"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants Load can't express through viper defaults
// alone: a TLS listener needs both halves of the keypair, and the store
// connection string is never optional.
func (c *Config) Validate() error {
	if c.PostgresURI == "" {
		return fmt.Errorf("config: POSTGRES_URI is required")
	}
	if c.UseCoreTLS && (c.SSLCert == "" || c.SSLKey == "") {
		return fmt.Errorf("config: USE_CORE_TLS requires both SSL_CERT and SSL_KEY")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT out of range: %d", c.Port)
	}
	return nil
}

// Addr returns the LDAP listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HTTPAddr returns the MFA side-channel's listen address.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}
