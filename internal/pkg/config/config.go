package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Login failure response modes.
const (
	FailureModeJSON     = "json"
	FailureModeRedirect = "redirect"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Session  SessionConfig
	Auth     AuthConfig
	Google   OAuthClientConfig `env:", prefix=GOOGLE_"`
	Facebook OAuthClientConfig `env:", prefix=FACEBOOK_"`

	LoginEventWorkers int  `env:"LOGIN_EVENT_WORKERS, default=4"`
	MetricsEnabled    bool `env:"METRICS_ENABLED,     default=true"`
	SwaggerEnabled    bool `env:"SWAGGER_ENABLED,     default=true"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=fitness"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type SessionConfig struct {
	CookieName string        `env:"SESSION_COOKIE_NAME, default=sid"`
	IdleTTL    time.Duration `env:"SESSION_IDLE_TTL,    default=24h"`
	MaxAge     time.Duration `env:"SESSION_MAX_AGE,     default=168h"`
	Secure     bool          `env:"COOKIE_SECURE,       default=false"`
}

// AuthConfig redirect targets may name a frontend page. The defaults point at
// GET /login, which this service answers itself.
type AuthConfig struct {
	StateSecret          string        `env:"OAUTH_STATE_SECRET"`
	BcryptCost           int           `env:"BCRYPT_COST,            default=10"`
	FailureMode          string        `env:"LOGIN_FAILURE_MODE,     default=json"`
	FailureRedirect      string        `env:"LOGIN_FAILURE_REDIRECT, default=/login"`
	LoginPagePath        string        `env:"LOGIN_PAGE_PATH,        default=/login"`
	SuccessRedirect      string        `env:"AUTH_SUCCESS_REDIRECT,  default=/dashboard"`
	OAuthFailureRedirect string        `env:"OAUTH_FAILURE_REDIRECT, default=/login"`
	MaxAttempts          int           `env:"LOGIN_MAX_ATTEMPTS,     default=5"`
	AttemptWindow        time.Duration `env:"LOGIN_ATTEMPT_WINDOW,   default=15m"`
}

// OAuthClientConfig is read twice, once per provider prefix
// (GOOGLE_CLIENT_ID, FACEBOOK_CLIENT_ID, ...).
type OAuthClientConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// Enabled reports whether the provider has enough settings to be registered.
func (o OAuthClientConfig) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.RedirectURL != ""
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// CookieSecure reports whether cookies must carry the Secure attribute.
func (c *Config) CookieSecure() bool {
	return c.IsProduction() || c.Session.Secure
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Auth.FailureMode {
	case FailureModeJSON, FailureModeRedirect:
	default:
		return fmt.Errorf("LOGIN_FAILURE_MODE must be %q or %q, got %q", FailureModeJSON, FailureModeRedirect, c.Auth.FailureMode)
	}
	if c.Session.IdleTTL <= 0 || c.Session.MaxAge <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL and SESSION_MAX_AGE must be positive")
	}
	if (c.Google.Enabled() || c.Facebook.Enabled()) && len(c.Auth.StateSecret) < 32 {
		return fmt.Errorf("OAUTH_STATE_SECRET must be at least 32 bytes when an OAuth provider is configured")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration from an arbitrary lookuper and validates it.
func LoadFrom(lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
