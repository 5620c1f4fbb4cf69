package util

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort            = "3001"
	DefaultAllowedOrigin   = "http://localhost:5173"
	DefaultMaxMessageSize  = 1 << 20
	DefaultEventsPerSecond = 30
	DefaultEventBurst      = 60
	DefaultEgressBuffer    = 64
)

type Config struct {
	Port            string   `validate:"required,number"`
	AllowedOrigins  []string `validate:"dive,url"`
	StaticDir       string
	MaxMessageSize  int64   `validate:"gt=0"`
	EventsPerSecond float64 `validate:"gt=0"`
	EventBurst      int     `validate:"gt=0"`
	EgressBuffer    int     `validate:"gt=0"`
	ReapEmptyRooms  bool
}

// DefaultConfig returns the configuration used when no environment is set.
func DefaultConfig() *Config {
	return &Config{
		Port:            DefaultPort,
		AllowedOrigins:  []string{DefaultAllowedOrigin},
		MaxMessageSize:  DefaultMaxMessageSize,
		EventsPerSecond: DefaultEventsPerSecond,
		EventBurst:      DefaultEventBurst,
		EgressBuffer:    DefaultEgressBuffer,
	}
}

// LoadConfig reads a .env file if one exists, overlays the process
// environment on the defaults and validates the result. Values that fail to
// parse are reported rather than replaced by defaults.
func LoadConfig() (*Config, error) {
	godotenv.Load()

	config := DefaultConfig()
	var errs []error

	config.Port = envStr("PORT", config.Port)
	config.StaticDir = envStr("STATIC_DIR", config.StaticDir)

	maxMessageSize, err := envInt("MAX_MESSAGE_SIZE", int(config.MaxMessageSize))
	errs = append(errs, err)
	config.MaxMessageSize = int64(maxMessageSize)

	config.EventsPerSecond, err = envFloat("EVENTS_PER_SECOND", config.EventsPerSecond)
	errs = append(errs, err)
	config.EventBurst, err = envInt("EVENT_BURST", config.EventBurst)
	errs = append(errs, err)
	config.EgressBuffer, err = envInt("EGRESS_BUFFER", config.EgressBuffer)
	errs = append(errs, err)
	config.ReapEmptyRooms, err = envBool("REAP_EMPTY_ROOMS", config.ReapEmptyRooms)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = parseOrigins(origins)
	}

	if err := Validate.Struct(config); err != nil {
		return nil, err
	}

	return config, nil
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%v: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("%v: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%v: %w", key, err)
	}
	return b, nil
}
