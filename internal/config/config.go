package config

import (
	"fmt"
	"strings"
	"time"

	"telegram_miniapp/internal/logger"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AuthPolicy controls how endpoints treat requests without a verified Telegram identity.
type AuthPolicy string

const (
	// AuthAdvisory logs a missing/invalid identity and lets the request through.
	AuthAdvisory AuthPolicy = "advisory"
	// AuthRequired rejects the request with 401.
	AuthRequired AuthPolicy = "required"
)

type Config struct {
	AppPort  string `env:"APP_PORT" envDefault:"8080"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`

	BotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	BotUsername string `env:"TELEGRAM_BOT_USERNAME"`
	WebAppURL   string `env:"WEB_APP_URL"`
	// ResolveBot asks the Bot API for the username when BotUsername is empty.
	ResolveBot bool `env:"TELEGRAM_RESOLVE_BOT" envDefault:"false"`
	// RunBot starts the /start launcher bot alongside the HTTP server.
	RunBot bool `env:"TELEGRAM_RUN_BOT" envDefault:"false"`

	InitDataExpiresIn time.Duration `env:"INIT_DATA_EXPIRES_IN" envDefault:"24h"`
	InitDataMaxLength int           `env:"INIT_DATA_MAX_LENGTH" envDefault:"4096"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"168h"`

	ChatAuthPolicy      AuthPolicy    `env:"CHAT_AUTH_POLICY" envDefault:"advisory"`
	ChatUpstreamURL     string        `env:"CHAT_UPSTREAM_URL"`
	ChatUpstreamTimeout time.Duration `env:"CHAT_UPSTREAM_TIMEOUT" envDefault:"30s"`

	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	APIRateLimit   int           `env:"API_RATE_LIMIT" envDefault:"60"`
	APIRateWindow  time.Duration `env:"API_RATE_WINDOW" envDefault:"1m"`
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`

	FrameAncestors []string `env:"FRAME_ANCESTORS" envSeparator:"," envDefault:"https://web.telegram.org,https://telegram.org"`
	AllowedOrigin  string   `env:"ALLOWED_ORIGIN"`
	WebDir         string   `env:"WEB_DIR" envDefault:"./web"`

	// DevHost mounts the simulated Telegram host under /devhost outside production.
	DevHost bool `env:"DEV_HOST" envDefault:"false"`
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Parse reads configuration from the environment without touching .env files.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.ChatAuthPolicy {
	case AuthAdvisory, AuthRequired:
	default:
		return nil, fmt.Errorf("CHAT_AUTH_POLICY must be %q or %q, got %q", AuthAdvisory, AuthRequired, cfg.ChatAuthPolicy)
	}
	if cfg.InitDataMaxLength <= 0 {
		cfg.InitDataMaxLength = 4096
	}
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = 7 * 24 * time.Hour
	}
	return &cfg, nil
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	// The bot token is checked per request so a missing value surfaces as a
	// 500 on the auth endpoint instead of a crash loop.
	if cfg.BotToken == "" {
		logger.Error("TELEGRAM_BOT_TOKEN is not set; init data validation will fail")
	}
	return cfg
}
