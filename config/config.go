// Package config provides crawler configuration and target-list loading.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds crawler configuration.
type Config struct {
	TargetsFile    string
	CategoriesFile string
	OutputDir      string
	OutputFormat   string // csv, json, or dual
	Delay          time.Duration
	RandomDelay    time.Duration
	Timeout        time.Duration
	UserAgents     []string
	AcceptLanguage string
	Referer        string
	AllowedDomains []string
	CacheSize      int
	MetricsAddr    string
	Verbose        bool
}

// DefaultConfig returns conservative defaults for the bookstore target.
func DefaultConfig() *Config {
	return &Config{
		TargetsFile:  "targets.yaml",
		OutputDir:    "data/output",
		OutputFormat: "json",
		Delay:        1 * time.Second,
		RandomDelay:  2 * time.Second,
		Timeout:      10 * time.Second,
		UserAgents: []string{
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Safari/605.1.15",
		},
		AcceptLanguage: "zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7",
		Referer:        "https://www.books.com.tw",
		CacheSize:      128,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return &ConfigError{Field: "output_dir", Reason: "cannot be empty"}
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return &ConfigError{Field: "output_format", Reason: "must be csv, json, or dual"}
	}
	if c.Delay < 0 {
		return &ConfigError{Field: "delay", Reason: "cannot be negative"}
	}
	if c.RandomDelay < 0 {
		return &ConfigError{Field: "random_delay", Reason: "cannot be negative"}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Field: "timeout", Reason: "must be positive"}
	}
	if len(c.UserAgents) == 0 {
		return &ConfigError{Field: "user_agents", Reason: "need at least one user agent"}
	}
	if c.CacheSize < 0 {
		return &ConfigError{Field: "cache_size", Reason: "cannot be negative"}
	}
	return nil
}

// ConfigError is a fatal configuration problem. It always surfaces before
// any fetch occurs; there is no partial run after one.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// EnvString returns the value of an environment variable when set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt returns the integer value of an environment variable when set.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, true, nil
}
