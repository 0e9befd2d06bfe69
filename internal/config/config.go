// Package config loads CLI and sandbox settings from the environment.
// Gateway credentials are deliberately not validated here; adapters check
// them lazily on the first call, per the gateway contract.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Logger    LoggerConfig    `koanf:"logger"`
	Transport TransportConfig `koanf:"transport"`
	Stanza    StanzaConfig    `koanf:"stanza"`
	Meridian  MeridianConfig  `koanf:"meridian"`
	Paybridge PaybridgeConfig `koanf:"paybridge"`
	Sandbox   SandboxConfig   `koanf:"sandbox"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type TransportConfig struct {
	Timeout    time.Duration `koanf:"timeout" validate:"required"`
	MaxRetries int           `koanf:"max_retries"`
	BaseDelay  time.Duration `koanf:"base_delay"`
}

type StanzaConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

type MeridianConfig struct {
	Login    string `koanf:"login"`
	Password string `koanf:"password"`
	Endpoint string `koanf:"endpoint"`
}

type PaybridgeConfig struct {
	MerchantID string `koanf:"merchant_id"`
	SecretKey  string `koanf:"secret_key"`
	Endpoint   string `koanf:"endpoint"`
}

type SandboxConfig struct {
	Port        string `koanf:"port"`
	APIKey      string `koanf:"api_key"`
	PostgresDSN string `koanf:"postgres_dsn"`
}

// NewLogger builds the process logger from the configured level and format.
func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// LoadConfig reads PAYGATE_* environment variables, with "__" separating
// nesting levels (PAYGATE_STANZA__API_KEY -> stanza.api_key).
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider("PAYGATE_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "PAYGATE_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Transport: TransportConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			BaseDelay:  time.Second,
		},
		Sandbox: SandboxConfig{
			Port:   "8383",
			APIKey: "sk_sandbox",
		},
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
