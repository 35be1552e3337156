package core

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the scan-wide configuration. Values loaded from a file override
// DefaultConfig; command line flags override both.
type Config struct {
	Always404      []string `json:"always_404" yaml:"always_404"`
	Never404       []string `json:"never_404" yaml:"never_404"`
	NotFoundString string   `json:"string_match_404" yaml:"string_match_404"`

	Threads              int     `json:"threads" yaml:"threads"`
	Timeout              string  `json:"timeout" yaml:"timeout"`
	RequestsPerSecond    float64 `json:"requests_per_second" yaml:"requests_per_second"`
	MaxConsecutiveErrors int     `json:"max_consecutive_errors" yaml:"max_consecutive_errors"`
	UserAgent            string  `json:"user_agent" yaml:"user_agent"`
	Proxy                string  `json:"proxy" yaml:"proxy"`
	Insecure             bool    `json:"insecure" yaml:"insecure"`
	MaxBodySize          int64   `json:"max_body_size" yaml:"max_body_size"`

	ReferenceCacheSize    int      `json:"reference_cache_size" yaml:"reference_cache_size"`
	MemoCacheSize         int      `json:"memo_cache_size" yaml:"memo_cache_size"`
	ResponseCacheSize     int      `json:"response_cache_size" yaml:"response_cache_size"`
	ProbeAttempts         int      `json:"probe_attempts" yaml:"probe_attempts"`
	RetryBackoff          string   `json:"retry_backoff" yaml:"retry_backoff"`
	DirectoryErrorCodes   []int    `json:"directory_error_codes" yaml:"directory_error_codes"`
	PerDirectoryKnowledge bool     `json:"per_directory_knowledge" yaml:"per_directory_knowledge"`
	ProbeExtensions       []string `json:"probe_extensions" yaml:"probe_extensions"`

	Wordlist   string   `json:"wordlist" yaml:"wordlist"`
	Extensions []string `json:"extensions" yaml:"extensions"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Threads:              10,
		Timeout:              "10s",
		MaxConsecutiveErrors: 15,
		UserAgent:            "Mozilla/5.0 (compatible; soft404/0.1)",
		MaxBodySize:          2 << 20,
		ReferenceCacheSize:   250,
		MemoCacheSize:        500,
		ResponseCacheSize:    200,
		ProbeAttempts:        2,
		RetryBackoff:         "200ms",
		DirectoryErrorCodes:  []int{404},
	}
}

// LoadConfig reads a YAML (.yaml/.yml) or JSON file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg := DefaultConfig()
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		err = yaml.NewDecoder(f).Decode(cfg)
	} else {
		err = json.NewDecoder(f).Decode(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks sizes and durations.
func (c *Config) Validate() error {
	if c.Threads <= 0 {
		return fmt.Errorf("%w: threads must be positive, got %d", ErrInvalidConfig, c.Threads)
	}
	if c.ReferenceCacheSize <= 0 || c.MemoCacheSize <= 0 {
		return fmt.Errorf("%w: cache sizes must be positive", ErrInvalidConfig)
	}
	if c.ProbeAttempts <= 0 {
		return fmt.Errorf("%w: probe_attempts must be positive", ErrInvalidConfig)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second cannot be negative", ErrInvalidConfig)
	}
	if _, err := parseDuration(c.Timeout); err != nil {
		return fmt.Errorf("%w: timeout: %v", ErrInvalidConfig, err)
	}
	if _, err := parseDuration(c.RetryBackoff); err != nil {
		return fmt.Errorf("%w: retry_backoff: %v", ErrInvalidConfig, err)
	}
	return nil
}

// RequestTimeout is the parsed per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	d, _ := parseDuration(c.Timeout)
	return d
}

// ProbeBackoff is the parsed base delay between probe retries.
func (c *Config) ProbeBackoff() time.Duration {
	d, _ := parseDuration(c.RetryBackoff)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
