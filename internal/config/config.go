package config

import (
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseProvider string `env:"DATABASE_PROVIDER" envDefault:"postgres" validate:"oneof=postgres memory"`
	DatabaseURL      string `env:"DATABASE_URL" validate:"required_if=DatabaseProvider postgres"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required" validate:"required"`

	AuthJWTSecret string `env:"AUTH_JWT_SECRET,required" validate:"required,min=32"`
	AuthJWTIssuer string `env:"AUTH_JWT_ISSUER"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	TaxRateBPS                 int64  `env:"TAX_RATE_BPS" envDefault:"1800" validate:"gte=0,lte=10000"`
	FreeShippingThresholdCents int64  `env:"FREE_SHIPPING_THRESHOLD_CENTS" envDefault:"50000" validate:"gte=0"`
	FlatShippingCents          int64  `env:"FLAT_SHIPPING_CENTS" envDefault:"5000" validate:"gte=0"`
	Currency                   string `env:"CURRENCY" envDefault:"inr" validate:"len=3,lowercase"`
	PricingPolicyFile          string `env:"PRICING_POLICY_FILE" validate:"omitempty,file"`
	CODSettlement              string `env:"COD_SETTLEMENT" envDefault:"order" validate:"oneof=order delivery"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"storefront.orders" validate:"required"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"Exovita <orders@exovita.example>"`
	StoreName    string `env:"STORE_NAME" envDefault:"Exovita"`

	SentryDSN         string  `env:"SENTRY_DSN"`
	SentryEnvironment string  `env:"SENTRY_ENVIRONMENT" envDefault:"development"`
	SentrySampleRate  float64 `env:"SENTRY_TRACES_SAMPLE_RATE" envDefault:"0.2" validate:"gte=0,lte=1"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	for _, broker := range c.KafkaBrokers {
		if strings.TrimSpace(broker) == "" {
			return fmt.Errorf("KAFKA_BROKERS must not contain empty entries")
		}
	}

	if strings.TrimSpace(c.ResendAPIKey) != "" {
		if _, err := mail.ParseAddress(c.EmailFrom); err != nil {
			return fmt.Errorf("EMAIL_FROM must be a valid address when RESEND_API_KEY is set: %w", err)
		}
	}

	if c.DatabaseProvider == "postgres" && !strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must be a postgres:// connection string")
	}

	return nil
}

// PaymentsEnabled reports whether gateway payment intents can be created.
func (c *Config) PaymentsEnabled() bool {
	return strings.TrimSpace(c.StripeSecretKey) != ""
}
