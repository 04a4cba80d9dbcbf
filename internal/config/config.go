package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIAddr   string
	AdminAddr string

	// SeedFile replaces the built-in demo data when set.
	SeedFile string
	Seed     bool

	AutoReplyProbability float64
	AutoReplyMinDelay    time.Duration
	AutoReplyMaxDelay    time.Duration

	TypingExpiry        time.Duration
	TypingSweepInterval time.Duration

	RateLimit float64
	RateBurst int

	LogLevel  slog.Level
	LogFormat string
}

// Load reads the configuration from the environment. Variables from a .env
// file in the working directory are applied first, without overriding the
// ones already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var p parser
	cfg := &Config{
		APIAddr:              getEnv("API_ADDR", ":8080"),
		AdminAddr:            getEnv("ADMIN_ADDR", "localhost:8081"),
		SeedFile:             os.Getenv("SEED_FILE"),
		Seed:                 p.bool("SEED", "true"),
		AutoReplyProbability: p.float("AUTO_REPLY_PROBABILITY", "0.3"),
		AutoReplyMinDelay:    p.duration("AUTO_REPLY_MIN_DELAY", "1s"),
		AutoReplyMaxDelay:    p.duration("AUTO_REPLY_MAX_DELAY", "4s"),
		TypingExpiry:         p.duration("TYPING_EXPIRY", "3s"),
		TypingSweepInterval:  p.duration("TYPING_SWEEP_INTERVAL", "1s"),
		RateLimit:            p.float("RATE_LIMIT", "20"),
		RateBurst:            p.int("RATE_BURST", "40"),
		LogFormat:            strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		p.errs = append(p.errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AutoReplyProbability < 0 || c.AutoReplyProbability > 1 {
		return fmt.Errorf("AUTO_REPLY_PROBABILITY must be between 0 and 1")
	}

	if c.AutoReplyMinDelay < 0 || c.AutoReplyMaxDelay < c.AutoReplyMinDelay {
		return fmt.Errorf("AUTO_REPLY_MAX_DELAY must not be less than AUTO_REPLY_MIN_DELAY")
	}

	if c.TypingExpiry <= 0 {
		return fmt.Errorf("TYPING_EXPIRY must be greater than 0")
	}

	if c.TypingSweepInterval <= 0 {
		return fmt.Errorf("TYPING_SWEEP_INTERVAL must be greater than 0")
	}

	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT and RATE_BURST must be greater than 0")
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// parser collects conversion errors so every bad variable is reported at once.
type parser struct {
	errs []error
}

func (p *parser) duration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
	}
	return d
}

func (p *parser) float(key, fallback string) float64 {
	f, err := strconv.ParseFloat(getEnv(key, fallback), 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
	}
	return f
}

func (p *parser) int(key, fallback string) int {
	n, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
	}
	return n
}

func (p *parser) bool(key, fallback string) bool {
	b, err := strconv.ParseBool(getEnv(key, fallback))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
	}
	return b
}
