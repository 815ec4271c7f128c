// Package config содержит логику чтения конфигурации сервиса collectiva.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса collectiva.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	PublicURL   string `env:"PUBLIC_URL"`

	StripeAPIURL    string `env:"STRIPE_API_URL"`
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	StripeCurrency  string `env:"STRIPE_CURRENCY" envDefault:"aud"`

	PayPalServerURL string `env:"PAYPAL_SERVER_URL"`
	PayPalEmail     string `env:"PAYPAL_EMAIL"`

	SMTPAddress string `env:"SMTP_ADDRESS"`
	EmailFrom   string `env:"EMAIL_FROM" envDefault:"membership@collectiva.local"`

	AdminSecret   string `env:"ADMIN_SECRET" envDefault:"collectiva-secret"`
	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envPublicURL := cfg.PublicURL

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.PublicURL, "u", "http://localhost:8080", "public base URL used in email links")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envPublicURL != "" {
		cfg.PublicURL = envPublicURL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
