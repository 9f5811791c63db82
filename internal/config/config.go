package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Postgres  PostgresConfig  `envPrefix:"POSTGRES_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Logger    LoggerConfig    `envPrefix:"LOG_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	OTP       OTPConfig       `envPrefix:"OTP_"`
	Mail      MailConfig      `envPrefix:"MAIL_"`
	Authz     AuthzConfig     `envPrefix:"AUTHZ_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name           string        `env:"NAME" envDefault:"merchant-feedback-service"`
	Env            string        `env:"ENV" envDefault:"development"`
	Host           string        `env:"HOST" envDefault:"0.0.0.0"`
	Port           string        `env:"PORT" envDefault:"8080"`
	Version        string        `env:"VERSION" envDefault:"dev"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	CORSOrigins    string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory employee directory.
type PostgresConfig struct {
	DSN             string        `env:"DSN"`
	MaxConns        int32         `env:"MAX_CONNS" envDefault:"10"`
	MinConns        int32         `env:"MIN_CONNS" envDefault:"2"`
	RunMigrations   bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdle     time.Duration `env:"CONN_MAX_IDLE" envDefault:"30s"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// AuthConfig defines token and password parameters. The JWT secret is read
// once at startup and never rotated while the process runs.
type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"dev-secret"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"60m"`
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"12"`
}

// OTPConfig configures the password-reset passcode store.
type OTPConfig struct {
	Store         string        `env:"STORE" envDefault:"memory"`
	Length        int           `env:"LENGTH" envDefault:"6"`
	TTL           time.Duration `env:"TTL" envDefault:"10m"`
	MaxAttempts   int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

// MailConfig selects and configures the email sender.
type MailConfig struct {
	Driver             string `env:"DRIVER" envDefault:"log"`
	From               string `env:"FROM" envDefault:"noreply@example.com"`
	SESRegion          string `env:"SES_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

// AuthzConfig points at the authorization rule table.
type AuthzConfig struct {
	RulesFile string `env:"RULES_FILE"`
	Default   string `env:"DEFAULT"`
}

// RateLimitConfig throttles the unauthenticated recovery endpoints per client.
type RateLimitConfig struct {
	RecoveryPerSecond float64 `env:"RECOVERY_PER_SECOND" envDefault:"0.2"`
	RecoveryBurst     int     `env:"RECOVERY_BURST" envDefault:"5"`
	// SweepInterval controls how often idle per-client buckets are dropped.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

const (
	OTPStoreMemory = "memory"
	OTPStoreRedis  = "redis"

	MailDriverLog = "log"
	MailDriverSES = "ses"
)

// Load reads configuration from the environment (and an optional .env file).
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must not be empty"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL must be positive"))
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		errs = append(errs, fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.OTP.Length))
	}
	if c.OTP.TTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	switch c.OTP.Store {
	case OTPStoreMemory, OTPStoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown OTP_STORE %q", c.OTP.Store))
	}
	switch c.Mail.Driver {
	case MailDriverLog, MailDriverSES:
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_DRIVER %q", c.Mail.Driver))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}
