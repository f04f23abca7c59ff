// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the roomchat service.
package server

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the server configuration settings including security controls.
// Every field can be set through the environment variable named in its tag.
type Config struct {
	Port           string   `envconfig:"SERVER_PORT" default:":8080" validate:"required"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	MaxMessageSize int64    `envconfig:"MAX_MESSAGE_SIZE" default:"4096" validate:"gt=0"`

	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"5" validate:"gt=0"`
	RateLimitRefill time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s" validate:"gt=0s"`

	SendQueueSize int           `envconfig:"SEND_QUEUE_SIZE" default:"256" validate:"gt=0"`
	WriteTimeout  time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s" validate:"gt=0s"`
	PongTimeout   time.Duration `envconfig:"PONG_TIMEOUT" default:"60s" validate:"gt=0s"`
	StoreTimeout  time.Duration `envconfig:"STORE_TIMEOUT" default:"5s" validate:"gt=0s"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite" validate:"oneof=sqlite badger"`
	StoreDSN    string `envconfig:"STORE_DSN" default:"roomchat.db" validate:"required"`

	JWTSecret   string `envconfig:"JWT_SECRET" required:"true" validate:"min=16"`
	TokenIssuer string `envconfig:"TOKEN_ISSUER" default:"roomchat" validate:"required"`
	TimeZone    string `envconfig:"TIME_ZONE" default:"UTC"`

	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0s"`
}

var validate = validator.New()

// NewConfig creates a Config populated with the default value of every
// setting. JWTSecret is left empty; the identity provider is configured
// outside the server.
func NewConfig() Config {
	return Config{
		Port:            ":8080",
		AllowedOrigins:  []string{"http://localhost:8080"},
		MaxMessageSize:  4096,
		RateLimitBurst:  5,
		RateLimitRefill: time.Second,
		SendQueueSize:   256,
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		StoreTimeout:    5 * time.Second,
		StoreDriver:     "sqlite",
		StoreDSN:        "roomchat.db",
		TokenIssuer:     "roomchat",
		TimeZone:        "UTC",
		LogLevel:        "info",
		LogFormat:       "text",
		ShutdownTimeout: 10 * time.Second,
	}
}

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and that TimeZone names a known zone.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("config: TIME_ZONE: %w", err)
	}
	return nil
}

// pingPeriod keeps pings comfortably inside the pong deadline.
func (c Config) pingPeriod() time.Duration {
	return c.PongTimeout * 9 / 10
}

// NewLogger builds the process logger for the configured level and format.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
