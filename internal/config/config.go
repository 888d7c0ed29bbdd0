// Package config provides application configuration management.
// Configuration is loaded from environment variables, optionally seeded from
// a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Pinning backends.
const (
	PinningPinata = "pinata"
	PinningGCS    = "gcs"
)

// Config holds all application configuration.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	// Solana
	SolanaRPCURL  string `env:"SOLANA_RPC_URL" envDefault:"https://api.devnet.solana.com"`
	SolanaCluster string `env:"SOLANA_CLUSTER" envDefault:"devnet"`

	// Mint authority: keypair file, inline JSON array or base58 secret,
	// or a Secret Manager version resource.
	MintAuthorityKeypair string `env:"MINT_AUTHORITY_KEYPAIR"`
	MintAuthoritySecret  string `env:"MINT_AUTHORITY_SECRET"`

	// Mint submission retry policy
	MintAttempts       int           `env:"MINT_ATTEMPTS" envDefault:"5"`
	MintMinDelay       time.Duration `env:"MINT_MIN_DELAY" envDefault:"500ms"`
	MintConfirmTimeout time.Duration `env:"MINT_CONFIRM_TIMEOUT" envDefault:"60s"`

	// Address search. 0 attempts means unbounded (CLI only).
	SearchMaxAttempts    uint64 `env:"SEARCH_MAX_ATTEMPTS" envDefault:"0"`
	APISearchMaxAttempts uint64 `env:"API_SEARCH_MAX_ATTEMPTS" envDefault:"50000000"`
	SearchWorkers        int    `env:"SEARCH_WORKERS" envDefault:"0"`

	// Asset pinning
	PinningBackend     string `env:"PINNING_BACKEND" envDefault:"pinata"`
	PinataAPIKey       string `env:"PINATA_API_KEY"`
	PinataSecretAPIKey string `env:"PINATA_SECRET_API_KEY"`
	PinataGatewayURL   string `env:"PINATA_GATEWAY_URL" envDefault:"https://gateway.pinata.cloud"`
	GCSBucket          string `env:"GCS_BUCKET"`
	GCSPrefix          string `env:"GCS_PREFIX" envDefault:"tokens"`

	// Idempotency (Redis optional; in-memory when empty)
	RedisURL       string        `env:"REDIS_URL"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// HTTP server
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" envDefault:""`
	ReadTimeout        time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout       time.Duration `env:"WRITE_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"4m"`
	MaxUploadBytes     int64         `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`

	// Per-client limit on /api routes. 0 requests per second disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"5"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// HasAuthority reports whether a mint authority source is configured.
func (c *Config) HasAuthority() bool {
	return strings.TrimSpace(c.MintAuthorityKeypair) != "" || strings.TrimSpace(c.MintAuthoritySecret) != ""
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.MintAttempts < 1 {
		errs = append(errs, fmt.Errorf("MINT_ATTEMPTS must be at least 1, got %d", c.MintAttempts))
	}
	if c.MintMinDelay < 0 {
		errs = append(errs, fmt.Errorf("MINT_MIN_DELAY must not be negative"))
	}
	if c.SearchWorkers < 0 {
		errs = append(errs, fmt.Errorf("SEARCH_WORKERS must not be negative"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must not be negative"))
	}
	switch c.PinningBackend {
	case PinningPinata, PinningGCS:
	default:
		errs = append(errs, fmt.Errorf("PINNING_BACKEND must be %q or %q, got %q", PinningPinata, PinningGCS, c.PinningBackend))
	}
	return errors.Join(errs...)
}

// Load reads .env (if present), parses environment variables and validates
// the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom parses config from the given variables only.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
