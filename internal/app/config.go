package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr           string        `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	BackendURL     string        `usage:"Root URL of the e-commerce REST backend (STOREFRONT_BACKEND_URL or BACKEND_URL)" flag:"backend-url"`
	DatabaseURL    string        `usage:"PostgreSQL URL for sessions and carts; empty keeps them in memory" flag:"database-url"`
	RequestTimeout time.Duration `default:"20s" usage:"Timeout of one backend exchange, token refresh included" flag:"request-timeout"`
	SellerID       int64         `default:"0" usage:"Seller ID attached to created products; 0 omits it" flag:"seller-id"`
	MaxImageBytes  int64         `default:"5242880" usage:"Maximum product image upload size" flag:"max-image-bytes"`
	Session        SessionConfig
	RateLimit      RateLimitConfig
	CORS           CORSConfig
	Graceful       GracefulConfig
}

// SessionConfig controls the visitor session cookie and view state lifetime.
type SessionConfig struct {
	CookieName    string        `default:"storefront_sid" usage:"Session cookie name"`
	Secure        bool          `default:"false" usage:"Mark the session cookie Secure"`
	IdleTTL       time.Duration `default:"30m" usage:"Idle time after which a session's view state is dropped"`
	MaxWorkspaces int           `default:"10000" usage:"Maximum sessions with view state in memory; 0 disables the cap"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Rate  float64 `default:"20" usage:"Sustained requests per second per client; 0 disables"`
	Burst int     `default:"40" usage:"Burst size per client"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow the session cookie on cross-origin requests" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files
// and flags, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(nil, "config.yaml", "/etc/storefront/config.yaml")
}

// loadConfig parses args as flags; nil means os.Args.
func loadConfig(args []string, files ...string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     files,
		Args:      args,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.BackendURL == "":
		return errors.New("backend URL is required: set STOREFRONT_BACKEND_URL or BACKEND_URL")
	case c.RequestTimeout <= 0:
		return errors.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	case c.Session.IdleTTL < 0:
		return errors.Errorf("session idle TTL must not be negative, got %s", c.Session.IdleTTL)
	case c.Session.MaxWorkspaces < 0:
		return errors.Errorf("max workspaces must not be negative, got %d", c.Session.MaxWorkspaces)
	case c.RateLimit.Rate < 0:
		return errors.Errorf("rate limit must not be negative, got %v", c.RateLimit.Rate)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, the frontend's VITE_ build variables) to the STOREFRONT_ settings.
func (c *Config) applyPlatformDefaults() {
	if c.BackendURL == "" {
		for _, key := range []string{"BACKEND_URL", "VITE_BACKEND_URL"} {
			if v := os.Getenv(key); v != "" {
				c.BackendURL = v
				break
			}
		}
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
