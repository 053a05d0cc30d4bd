package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config enumerates every tunable of the auth service. Durations are
// expressed in minutes in the environment, matching the ops conventions
// of the rest of the platform.
type Config struct {
	Env  string `env:"ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	DBURL         string `env:"DB_URL,required,notEmpty"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	AccessTokenSecret  string `env:"ACCESS_TOKEN_SECRET,required,notEmpty"`
	RefreshTokenSecret string `env:"REFRESH_TOKEN_SECRET,required,notEmpty"`

	// Token lifetimes. Access tokens are short-lived; refresh tokens
	// last a week (10080 minutes).
	AccessExpiryMin  int `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15"`
	RefreshExpiryMin int `env:"REFRESH_TOKEN_EXPIRY" envDefault:"10080"`

	// Failed-login guard: LoginMaxAttempts failures per email or IP
	// within LoginAttemptWindowMin minutes block further attempts for
	// LoginBlockDurationMin minutes.
	LoginMaxAttempts      int `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginAttemptWindowMin int `env:"LOGIN_ATTEMPT_WINDOW" envDefault:"15"`
	LoginBlockDurationMin int `env:"LOGIN_BLOCK_DURATION" envDefault:"60"`

	// Cap on concurrent active refresh tokens per user; the oldest is
	// revoked once the cap is exceeded.
	MaxActiveRefreshTokens int `env:"MAX_ACTIVE_REFRESH_TOKENS" envDefault:"15"`

	CleanupIntervalMin int `env:"CLEANUP_INTERVAL" envDefault:"60"`
	LogLevel           int `env:"LOG_LEVEL" envDefault:"0"`
}

// Load reads config/.env.<env> when present, then parses the process
// environment. Real environment variables win over file values.
func Load() (*Config, error) {
	// Missing file is fine: containerized deploys set real env vars.
	_ = godotenv.Load(fmt.Sprintf("config/.env.%s", envFileSuffix()))

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

func envFileSuffix() string {
	switch os.Getenv("ENV") {
	case "production":
		return "prod"
	case "", "development":
		return "dev"
	default:
		return os.Getenv("ENV")
	}
}

func (c *Config) AccessTokenExpiry() time.Duration {
	return time.Duration(c.AccessExpiryMin) * time.Minute
}

func (c *Config) RefreshTokenExpiry() time.Duration {
	return time.Duration(c.RefreshExpiryMin) * time.Minute
}

func (c *Config) LoginAttemptWindow() time.Duration {
	return time.Duration(c.LoginAttemptWindowMin) * time.Minute
}

func (c *Config) LoginBlockDuration() time.Duration {
	return time.Duration(c.LoginBlockDurationMin) * time.Minute
}

func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMin) * time.Minute
}
