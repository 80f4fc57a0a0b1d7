package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppPort     string
	DatabaseURL string
	LogLevel    string

	// Working window for availability planning, minutes from midnight.
	WorkdayStartMinutes int
	WorkdayEndMinutes   int
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		AppPort:     getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	var err error
	if cfg.WorkdayStartMinutes, err = parseClock(getEnv("WORKDAY_START", "09:00")); err != nil {
		return Config{}, fmt.Errorf("WORKDAY_START: %w", err)
	}
	if cfg.WorkdayEndMinutes, err = parseClock(getEnv("WORKDAY_END", "18:00")); err != nil {
		return Config{}, fmt.Errorf("WORKDAY_END: %w", err)
	}
	if cfg.WorkdayStartMinutes >= cfg.WorkdayEndMinutes {
		return Config{}, fmt.Errorf("working window start %s must precede end %s",
			getEnv("WORKDAY_START", "09:00"), getEnv("WORKDAY_END", "18:00"))
	}

	return cfg, nil
}

// parseClock converts an HH:MM wall-clock value to minutes from midnight.
func parseClock(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hours*60 + minutes, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
