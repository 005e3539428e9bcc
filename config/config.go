package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	AppName    string `env:"APP_NAME" envDefault:"SaaS Starter"`
	AppURL     string `env:"APP_URL" envDefault:"http://localhost:3000"`
	CORSOrigin string `env:"CORS_ORIGIN"`

	DatabaseURL string `env:"DB_URL,required,notEmpty"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	JWTSecret  string        `env:"JWT_SECRET,required,notEmpty"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	Google GoogleConfig
	Stripe StripeConfig
	Email  EmailConfig
}

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

type StripeConfig struct {
	SecretKey         string `env:"STRIPE_SECRET_KEY,required,notEmpty"`
	WebhookSecret     string `env:"STRIPE_WEBHOOK_SECRET,required,notEmpty"`
	ProPriceID        string `env:"STRIPE_PRO_PRICE_ID"`
	EnterprisePriceID string `env:"STRIPE_ENTERPRISE_PRICE_ID"`
}

type EmailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	From                 string `env:"EMAIL_FROM" envDefault:"SaaS Starter <noreply@example.com>"`
	Support              string `env:"EMAIL_SUPPORT"`
	MaxRetries           uint64 `env:"EMAIL_MAX_RETRIES" envDefault:"3"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads .env (when present) and parses the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found. Using system environment variables.")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.AppURL = strings.TrimRight(c.AppURL, "/")
	if !strings.HasPrefix(c.AppURL, "http://") && !strings.HasPrefix(c.AppURL, "https://") {
		return fmt.Errorf("%w: APP_URL must be an absolute http(s) url", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("%w: LOG_FORMAT must be json or text", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
