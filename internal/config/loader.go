package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the calendar
// service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string
	JWTSecret string
	TokenTTL  time.Duration
	LogLevel  string
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to sensible defaults; required values that are
// missing or unparseable are accumulated and reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:  8080,
		SQLiteDSN: "calendar.db",
		TokenTTL:  24 * time.Hour,
		LogLevel:  "info",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CALENDAR_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CALENDAR_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("CALENDAR_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("CALENDAR_JWT_SECRET")); secret == "" {
		missing = append(missing, "CALENDAR_JWT_SECRET")
	} else {
		cfg.JWTSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("CALENDAR_TOKEN_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "CALENDAR_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	if level := strings.ToLower(strings.TrimSpace(os.Getenv("CALENDAR_LOG_LEVEL"))); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "CALENDAR_LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
