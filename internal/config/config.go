// Package config loads the service configuration from the environment.
//
// Variables use the INVOICES_ prefix and dotted key paths, for example
// INVOICES_DATABASE.HOST or INVOICES_INVOICES.DELETE_ENABLED. A local .env
// file is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// EnvPrefix is the prefix every configuration variable carries.
const EnvPrefix = "INVOICES_"

// ServiceName tags logs and traces.
const ServiceName = "invoices"

// Config is the root configuration. Pointer blocks are optional and get
// defaults when absent.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Integration   IntegrationConfig    `koanf:"integration"`
	Invoices      *InvoicesConfig      `koanf:"invoices"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig timeouts are in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

// DatabaseConfig holds the Postgres connection and pool settings. Lifetimes
// are in seconds.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// DSN returns the postgres:// connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		d.User,
		urlEscape(d.Password),
		joinHostPort(d.Host, d.Port),
		d.Name,
		d.SSLMode,
	)
}

type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// AuthConfig holds the Clerk secret key used to verify dashboard sessions.
type AuthConfig struct {
	SecretKey string `koanf:"secret_key" validate:"required"`
}

// IntegrationConfig holds third-party credentials. An empty ResendAPIKey
// disables invoice notification emails.
type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key"`
	EmailFrom    string `koanf:"email_from"`
}

// NotificationsEnabled reports whether invoice emails can be sent.
func (i IntegrationConfig) NotificationsEnabled() bool {
	return i.ResendAPIKey != ""
}

// InvoicesConfig tunes the invoice actions.
type InvoicesConfig struct {
	// ListPath is the invoice list view: the redirect target after a write
	// and the cache key that gets revalidated.
	ListPath string `koanf:"list_path" validate:"required,startswith=/"`

	// CacheTTL bounds how long a rendered list stays cached without writes.
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"min=1s"`

	// DeleteEnabled turns on invoice deletion. While false every delete
	// fails with "Failed to Delete Invoice" before touching the database.
	DeleteEnabled bool `koanf:"delete_enabled"`

	// RateLimit is the per-IP request rate allowed on mutating routes.
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`
}

// DefaultInvoicesConfig returns the settings used when the block is absent.
func DefaultInvoicesConfig() *InvoicesConfig {
	return &InvoicesConfig{
		ListPath:      "/dashboard/invoices",
		CacheTTL:      10 * time.Minute,
		DeleteEnabled: false,
		RateLimit:     20,
	}
}

// LoadConfig reads, validates and defaults the configuration. It exits the
// process on invalid input.
func LoadConfig() (*Config, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load config")
	}
	return cfg, nil
}

// Load builds a Config from the process environment. Only variables with
// EnvPrefix are read.
func Load() (*Config, error) {
	k := koanf.New(".")

	provider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		// Comma separated values become lists (e.g. CORS origins).
		if strings.Contains(value, ",") {
			return key, strings.Split(value, ",")
		}
		return key, value
	})

	if err := k.Load(provider, nil); err != nil {
		return nil, fmt.Errorf("loading env variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Invoices == nil {
		cfg.Invoices = DefaultInvoicesConfig()
	}
	cfg.Invoices.applyDefaults()

	if cfg.Observability == nil {
		cfg.Observability = DefaultObservabilityConfig()
	}
	cfg.Observability.ServiceName = ServiceName
	cfg.Observability.Environment = cfg.Primary.Env

	if cfg.Integration.EmailFrom == "" {
		cfg.Integration.EmailFrom = "Acme Invoices <invoices@resend.dev>"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return cfg, nil
}

func (c *InvoicesConfig) applyDefaults() {
	defaults := DefaultInvoicesConfig()
	if c.ListPath == "" {
		c.ListPath = defaults.ListPath
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = defaults.CacheTTL
	}
	if c.RateLimit == 0 {
		c.RateLimit = defaults.RateLimit
	}
}

// Validate checks c after filling unset fields with defaults.
func (c *InvoicesConfig) Validate() error {
	c.applyDefaults()
	return validator.New().Struct(c)
}
