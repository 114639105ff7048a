package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config carries all service settings. Values come from VIDMARK_* environment
// variables; everything except the two token secrets has a sane default.
type Config struct {
	Addr          string
	PGDSN         string
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	UploadDir     string
	FrontOrigin   string
	Env           string
}

// Production reports whether the service runs with production hardening
// (secure cookies).
func (c *Config) Production() bool {
	return c.Env == "production"
}

// FromEnv builds the configuration from the environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:          envOr("VIDMARK_ADDR", ":8080"),
		PGDSN:         os.Getenv("VIDMARK_PG_DSN"),
		AccessSecret:  strings.TrimSpace(os.Getenv("VIDMARK_ACCESS_SECRET")),
		RefreshSecret: strings.TrimSpace(os.Getenv("VIDMARK_REFRESH_SECRET")),
		Issuer:        envOr("VIDMARK_ISSUER", "vidmark"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		UploadDir:     envOr("VIDMARK_UPLOAD_DIR", "uploads"),
		FrontOrigin:   strings.TrimSpace(os.Getenv("VIDMARK_FRONT_URL")),
		Env:           envOr("VIDMARK_ENV", "development"),
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("config: VIDMARK_ACCESS_SECRET and VIDMARK_REFRESH_SECRET are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("config: access and refresh secrets must differ")
	}

	var err error
	if cfg.AccessTTL, err = durationOr("VIDMARK_ACCESS_TTL", cfg.AccessTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTTL, err = durationOr("VIDMARK_REFRESH_TTL", cfg.RefreshTTL); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", key)
	}
	return d, nil
}
