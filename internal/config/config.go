package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// DefaultEnvFile is read before the process environment. A missing file is not an error.
const DefaultEnvFile = "configs/.env"

const devSessionSecret = "dev_session_secret_change_me"

// Zero-stock policies for listings whose quantity is 0.
const (
	ZeroStockUnlimited = "unlimited"
	ZeroStockSoldOut   = "sold_out"
)

// Config holds every runtime setting of the API server.
type Config struct {
	App      AppConfig      `env:", prefix=APP_"`
	Database DatabaseConfig `env:", prefix=DB_"`
	Redis    RedisConfig    `env:", prefix=REDIS_"`
	Session  SessionConfig  `env:", prefix=SESSION_"`
	Security SecurityConfig `env:", prefix=SECURITY_"`
	Cart     CartConfig     `env:", prefix=CART_"`
}

type AppConfig struct {
	Env            string   `env:"ENV, default=local"` // local / prod
	HTTPAddr       string   `env:"HTTP_ADDR, default=:8080"`
	LogLevel       string   `env:"LOG_LEVEL, default=info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=http://localhost:5173"`
	SeedDemo       bool     `env:"SEED_DEMO, default=false"`
}

type DatabaseConfig struct {
	DSN      string `env:"DSN"`
	Host     string `env:"HOST, default=localhost"`
	Port     string `env:"PORT, default=5432"`
	User     string `env:"USER, default=postgres"`
	Password string `env:"PASSWORD, default=postgres"`
	Name     string `env:"NAME, default=marketplace"`
	SSLMode  string `env:"SSLMODE, default=disable"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR, default=localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB, default=0"`
	Prefix   string `env:"PREFIX, default=mkt:"`
}

// SessionConfig controls the session cookie and server-side session lifetime.
type SessionConfig struct {
	Secret           string        `env:"SECRET, default=dev_session_secret_change_me"`
	CookieName       string        `env:"COOKIE_NAME, default=mkt_session"`
	Lifetime         time.Duration `env:"LIFETIME, default=24h"`
	IdleTimeout      time.Duration `env:"IDLE_TIMEOUT, default=1h"`
	RegenInterval    time.Duration `env:"REGEN_INTERVAL, default=5m"`
	Secure           bool          `env:"SECURE, default=false"`
	RememberCookie   string        `env:"REMEMBER_COOKIE, default=mkt_remember"`
	RememberLifetime time.Duration `env:"REMEMBER_LIFETIME, default=720h"`
}

type SecurityConfig struct {
	CSRFLifetime     time.Duration `env:"CSRF_LIFETIME, default=1h"`
	MaxLoginAttempts int           `env:"MAX_LOGIN_ATTEMPTS, default=5"`
	LockoutTime      time.Duration `env:"LOCKOUT_TIME, default=15m"`
	BcryptCost       int           `env:"BCRYPT_COST, default=10"`
}

type CartConfig struct {
	// ZeroStockPolicy decides what a listing quantity of 0 means: "unlimited" or "sold_out".
	ZeroStockPolicy string `env:"ZERO_STOCK_POLICY, default=unlimited"`
}

// Load reads envFile (if present) into the environment and decodes the environment into a Config.
func Load(ctx context.Context, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("parse env vars: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.IsProduction() && c.Session.Secret == devSessionSecret {
		return errors.New("SESSION_SECRET must be set in production")
	}
	if len(c.Session.Secret) < 16 {
		return errors.New("SESSION_SECRET must be at least 16 characters")
	}
	switch c.Cart.ZeroStockPolicy {
	case ZeroStockUnlimited, ZeroStockSoldOut:
	default:
		return fmt.Errorf("invalid CART_ZERO_STOCK_POLICY %q", c.Cart.ZeroStockPolicy)
	}
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("SECURITY_MAX_LOGIN_ATTEMPTS must be positive")
	}
	if c.Session.IdleTimeout <= 0 || c.Session.Lifetime <= 0 {
		return errors.New("session lifetimes must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "prod" || c.App.Env == "production"
}

// URL returns DB_DSN when set, otherwise a postgres URL assembled from the DB_* parts.
func (d DatabaseConfig) URL() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}
