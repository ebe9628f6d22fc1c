// Package config loads service configuration from the environment once at
// startup. Components receive the struct at construction instead of reading
// env vars in handler bodies.
package config

import (
	"errors"
	"os"
	"strings"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port       string
	StorageDir string

	Stripe StripeConfig
	BDD    ServiceConfig
	Mailer ServiceConfig
	Auth   AuthConfig

	AllowedOrigins []string

	// QueueURL, when set, enables the SQS dead-letter queue for failed
	// webhook reconciliations.
	QueueURL string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

type ServiceConfig struct {
	BaseURL string
}

// AuthConfig guards the log-exposure endpoints. Auth stays off unless both
// Issuer and Audience are set.
type AuthConfig struct {
	Issuer   string
	Audience string
	Disabled bool
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:       getenvDefault("PORT", "3000"),
		StorageDir: getenvDefault("STORAGE_DIR", "./storage"),
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			SuccessURL:    getenvDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3009/payement/success"),
			CancelURL:     getenvDefault("CHECKOUT_CANCEL_URL", "http://localhost:3009/payement/error"),
		},
		BDD: ServiceConfig{
			BaseURL: strings.TrimRight(os.Getenv("SERVICE_BDD_URL"), "/"),
		},
		Mailer: ServiceConfig{
			BaseURL: strings.TrimRight(os.Getenv("SERVICE_MAILER_URL"), "/"),
		},
		Auth: AuthConfig{
			Issuer:   os.Getenv("AUTH0_ISSUER"),
			Audience: os.Getenv("AUTH0_AUDIENCE"),
			Disabled: strings.EqualFold(os.Getenv("AUTH_DISABLED"), "true"),
		},
		AllowedOrigins: splitOrigins(getenvDefault("ALLOWED_ORIGINS", "*")),
		QueueURL:       os.Getenv("QUEUE_URL"),
	}

	if cfg.Stripe.SecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY must be set")
	}
	if cfg.BDD.BaseURL == "" {
		return nil, errors.New("SERVICE_BDD_URL must be set")
	}
	if cfg.Mailer.BaseURL == "" {
		return nil, errors.New("SERVICE_MAILER_URL must be set")
	}

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
