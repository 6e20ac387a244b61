package config

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the console binaries.
type Config struct {
	AppEnv    string `envconfig:"APP_ENV" default:"development"`
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr  string `envconfig:"GRPC_ADDR" default:":9090"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	ReadTimeout    time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	RequestTimeout time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"30s"`

	PGDSN     string `envconfig:"PG_DSN"`
	RedisAddr string `envconfig:"REDIS_ADDR"`

	JWTSecret        string        `envconfig:"JWT_SECRET" required:"true"`
	JWTRefreshSecret string        `envconfig:"JWT_REFRESH_SECRET" required:"true"`
	SuperAdminEmail  string        `envconfig:"SUPER_ADMIN_EMAIL" required:"true"`
	AccessTTL        time.Duration `envconfig:"ACCESS_TTL" default:"15m"`
	RefreshTTL       time.Duration `envconfig:"REFRESH_TTL" default:"168h"`

	CookieDomain string `envconfig:"COOKIE_DOMAIN" default:".eeytech.com"`
	AdminAppSlug string `envconfig:"ADMIN_APP_SLUG" default:"eeytech-admin"`

	APIKeyCacheTTL time.Duration `envconfig:"API_KEY_CACHE_TTL" default:"1m"`
	RateBurst      int           `envconfig:"RATE_BURST" default:"10"`
	RatePerSec     float64       `envconfig:"RATE_PER_SEC" default:"5"`
	APIKeyRPM      int           `envconfig:"API_KEY_RPM" default:"120"`

	PruneSchedule string `envconfig:"PRUNE_SCHEDULE" default:"@hourly"`

	// BootstrapPassword, when set, makes cmd/api ensure the super admin
	// account exists on startup.
	BootstrapPassword string `envconfig:"BOOTSTRAP_PASSWORD"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	c.JWTRefreshSecret = strings.TrimSpace(c.JWTRefreshSecret)
	c.SuperAdminEmail = strings.ToLower(strings.TrimSpace(c.SuperAdminEmail))
	if c.JWTSecret == "" || c.JWTRefreshSecret == "" {
		return errors.New("jwt secrets must be provided")
	}
	if c.JWTSecret == c.JWTRefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.SuperAdminEmail == "" {
		return errors.New("super admin email must be provided")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token ttls must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
