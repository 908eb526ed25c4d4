// Package config loads the ambient server configuration: bind address,
// per-query timeout, queue capacity, and backend concurrency limit. This is
// distinct from the federation catalog, which is always loaded from JSON per
// the CONFIG_FILE environment variable -- this package governs the process
// itself, not the data it serves.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete ambient server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Query       QueryConfig       `yaml:"query"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the address ListenAndServe binds, e.g. ":8080".
	Addr string `yaml:"addr"`
}

// QueryConfig bounds one query's execution.
type QueryConfig struct {
	// Timeout is the maximum wall-clock time a single /sparql query may run
	// before the engine cancels it and reports "interrupted".
	Timeout time.Duration `yaml:"timeout"`
	// QueueCapacity is the bounded channel depth exec.NewQueue uses for every
	// operator's output queue.
	QueueCapacity int `yaml:"queueCapacity"`
}

// ConcurrencyConfig bounds how many backend-facing goroutines one query may
// run at once; each query gets its own budget.
type ConcurrencyConfig struct {
	// Limit is the goroutine-token budget exec.WithConcurrencyLimiter enforces.
	Limit int `yaml:"limit"`
}

// DefaultConfig returns a Config with sensible defaults, used as the base
// that file and environment overrides are layered onto.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Query: QueryConfig{
			Timeout:       30 * time.Second,
			QueueCapacity: 64,
		},
		Concurrency: ConcurrencyConfig{
			Limit: 16,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Query.Timeout <= 0 {
		return fmt.Errorf("query.timeout must be positive")
	}
	if c.Query.QueueCapacity <= 0 {
		return fmt.Errorf("query.queueCapacity must be positive")
	}
	if c.Concurrency.Limit <= 0 {
		return fmt.Errorf("concurrency.limit must be positive")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, starting from
// DefaultConfig so a partial file only overrides the fields it sets.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Load builds a Config from defaults, optionally a YAML file at path (skipped
// when path is empty), then environment variables, in that order of
// increasing precedence.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		fromFile, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fromFile
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides cfg's fields from FQP_ADDR, FQP_QUERY_TIMEOUT,
// FQP_QUEUE_CAPACITY, and FQP_CONCURRENCY_LIMIT when set, matching the
// ambient-stack note that env vars take precedence over the YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("FQP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FQP_QUERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Query.Timeout = d
		}
	}
	if v := os.Getenv("FQP_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.QueueCapacity = n
		}
	}
	if v := os.Getenv("FQP_CONCURRENCY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency.Limit = n
		}
	}
}
