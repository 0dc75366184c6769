package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// Environments accepted by Config.Env.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	defaultAddr = "0.0.0.0:5000"
	// devSecret signs session tokens of local development setups only.
	devSecret = "barista-pos-development-secret"
)

// Config holds the complete application configuration, loadable from
// environment variables (POS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:5000" usage:"API server listen address"`
	Env         string `default:"development" usage:"Runtime environment: development or production"`
	DatabaseURL string `usage:"PostgreSQL connection URL (POS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	AMQPURL     string `env:"AMQP_URL" flag:"amqp-url" usage:"RabbitMQ URL for order events; empty disables publishing"`
	FrontendURL string `default:"http://localhost:5173" usage:"Origin of the POS web client (FRONTEND_URL)" flag:"frontend-url"`
	Timezone    string `default:"UTC" usage:"IANA timezone of the shop, used for calendar days and shifts"`
	Currency    string `default:"TZS" usage:"Currency code printed on receipts"`
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Graceful    GracefulConfig

	loc *time.Location
}

// AuthConfig controls session tokens and password hashing.
type AuthConfig struct {
	Secret     string        `usage:"HMAC secret for session tokens (POS_AUTH_SECRET or JWT_SECRET)"`
	TTL        time.Duration `default:"168h" usage:"Session lifetime"`
	BcryptCost int           `default:"12" usage:"bcrypt cost for password hashes" flag:"bcrypt-cost"`
}

// RateLimitConfig controls the per-client fixed window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"15m" usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads a .env file when present, then configuration from
// environment variables, flags and YAML config files, and applies
// platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}
	return loadConfig(aconfig.Config{
		Files: []string{"config.yaml", "/etc/barista-pos/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	ac.EnvPrefix = "POS"
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the conventional variable names used by hosting
// platforms (DATABASE_URL, PORT, JWT_SECRET, FRONTEND_URL, ENV) onto the
// POS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	fallback := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	fallback(&c.DatabaseURL, "DATABASE_URL")
	fallback(&c.Auth.Secret, "JWT_SECRET")
	if v := os.Getenv("FRONTEND_URL"); v != "" && os.Getenv("POS_FRONTEND_URL") == "" {
		c.FrontendURL = v
	}
	if v := os.Getenv("ENV"); v != "" && os.Getenv("POS_ENV") == "" {
		c.Env = v
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return errors.Errorf("unknown environment %q: use %s or %s", c.Env, EnvDevelopment, EnvProduction)
	}
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set POS_DATABASE_URL or DATABASE_URL")
	}
	if c.Auth.Secret == "" {
		if c.Production() {
			return errors.New("session secret is required in production: set POS_AUTH_SECRET or JWT_SECRET")
		}
		c.Auth.Secret = devSecret
	}
	if c.Auth.TTL <= 0 {
		return errors.Errorf("session TTL must be positive, got %s", c.Auth.TTL)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return errors.Wrapf(err, "timezone %q", c.Timezone)
	}
	// The zone name is passed to Postgres AT TIME ZONE, which knows no "Local".
	if loc.String() == "Local" {
		return errors.Errorf("timezone %q: use an IANA name such as Africa/Dar_es_Salaam", c.Timezone)
	}
	c.loc = loc
	return nil
}

// Production reports whether the service runs in the production environment.
func (c *Config) Production() bool { return c.Env == EnvProduction }

// Location is the shop timezone.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// CrossSiteCookie reports whether the session cookie must be sent to a
// frontend on another HTTPS origin.
func (c *Config) CrossSiteCookie() bool {
	return c.Production() && strings.HasPrefix(c.FrontendURL, "https://")
}
