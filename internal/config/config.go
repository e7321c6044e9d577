package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Database drivers understood by db.Open.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// insecureJWTSecret is the placeholder shipped in example env files.
const insecureJWTSecret = "change-me"

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort     string        `env:"SERVER_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"`
	MySQLDSN   string `env:"MYSQL_DSN" envDefault:"user:password@tcp(localhost:3306)/contentflow?charset=utf8mb4&parseTime=True&loc=Local"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"contentflow.db"`
	ResetDB    bool   `env:"RESET_DB"`

	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisPass     string        `env:"REDIS_PASSWORD"`
	AdminCacheTTL time.Duration `env:"ADMIN_CACHE_TTL" envDefault:"1m"`

	// JWTSecret signs bundled-provider tokens. Required unless OIDC is used.
	JWTSecret     string `env:"JWT_SECRET"`
	OIDCIssuerURL string `env:"OIDC_ISSUER_URL"`
	OIDCAudience  string `env:"OIDC_AUDIENCE"`

	// BootstrapAdminEmail is the one address whose profile is created with
	// the admin flag set.
	BootstrapAdminEmail string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	// Timezone decides where a calendar day starts when classifying
	// archived content.
	Timezone string `env:"TIMEZONE" envDefault:"Local"`

	SwaggerHost string `env:"SWAGGER_HOST"`
}

// Load builds Config from environment with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if !c.UsesOIDC() {
		switch strings.TrimSpace(c.JWTSecret) {
		case "":
			return fmt.Errorf("either OIDC_ISSUER_URL or JWT_SECRET is required")
		case insecureJWTSecret:
			return fmt.Errorf("JWT_SECRET must not be %q", insecureJWTSecret)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone into a *time.Location.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// UsesOIDC reports whether tokens are issued by an external OIDC provider
// rather than the bundled identity provider.
func (c *Config) UsesOIDC() bool {
	return strings.TrimSpace(c.OIDCIssuerURL) != ""
}
