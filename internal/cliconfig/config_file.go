package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
// Filter and UpdateExpressions accept a table or a JSON object string.
type FileConfig struct {
	URI               string   `toml:"uri"`
	Database          string   `toml:"database"`
	Collection        string   `toml:"collection"`
	ISODate           *bool    `toml:"isodate"`
	GenerateID        *bool    `toml:"generate_id"`
	RetryDelay        string   `toml:"retry_delay"`
	RetryMaxDelay     string   `toml:"retry_max_delay"`
	RetryMaxAttempts  *int     `toml:"retry_max_attempts"`
	RetryMultiplier   *float64 `toml:"retry_multiplier"`
	RetryJitter       *float64 `toml:"retry_jitter"`
	BreakerFailures   *int     `toml:"breaker_failures"`
	BreakerTimeout    string   `toml:"breaker_timeout"`
	Bulk              *bool    `toml:"bulk"`
	BulkInterval      string   `toml:"bulk_interval"`
	BulkSize          int      `toml:"bulk_size"`
	Action            string   `toml:"action"`
	Filter            any      `toml:"filter"`
	UpdateExpressions any      `toml:"update_expressions"`
	Upsert            *bool    `toml:"upsert"`
	QueryKey          string   `toml:"query_key"`
	QueryValue        string   `toml:"query_value"`
	WriteTimeout      string   `toml:"write_timeout"`
	Input             string   `toml:"input"`
	Follow            *bool    `toml:"follow"`
	DryRun            *bool    `toml:"dry_run"`
	MetricsAddr       string   `toml:"metrics_addr"`
	LogLevel          string   `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.mongoship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".mongoship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("uri", fc.URI, &cfg.URI)
	s.setString("database", fc.Database, &cfg.Database)
	s.setString("collection", fc.Collection, &cfg.Collection)
	s.setString("action", fc.Action, &cfg.Action)
	s.setString("query-key", fc.QueryKey, &cfg.QueryKey)
	s.setString("query-value", fc.QueryValue, &cfg.QueryValue)
	s.setString("input", fc.Input, &cfg.Input)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"retry-delay", fc.RetryDelay, &cfg.RetryDelay},
		{"retry-max-delay", fc.RetryMaxDelay, &cfg.RetryMaxDelay},
		{"breaker-timeout", fc.BreakerTimeout, &cfg.BreakerTimeout},
		{"bulk-interval", fc.BulkInterval, &cfg.BulkInterval},
		{"write-timeout", fc.WriteTimeout, &cfg.WriteTimeout},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("bulk-size", fc.BulkSize, &cfg.BulkSize)
	s.setCount("retry-max-attempts", fc.RetryMaxAttempts, &cfg.RetryMaxAttempts)
	s.setCount("breaker-failures", fc.BreakerFailures, &cfg.BreakerFailures)
	s.setFloat("retry-multiplier", fc.RetryMultiplier, &cfg.RetryMultiplier)
	s.setFloat("retry-jitter", fc.RetryJitter, &cfg.RetryJitter)

	filter, err := tableToDoc(fc.Filter)
	if err != nil {
		return fmt.Errorf("parse filter: %w", err)
	}
	s.setDoc("filter", filter, &cfg.Filter)

	exprs, err := tableToDoc(fc.UpdateExpressions)
	if err != nil {
		return fmt.Errorf("parse update_expressions: %w", err)
	}
	s.setDoc("update-expressions", exprs, &cfg.UpdateExpressions)

	s.setBool("isodate", fc.ISODate, &cfg.ISODate)
	s.setBool("generate-id", fc.GenerateID, &cfg.GenerateID)
	s.setBool("bulk", fc.Bulk, &cfg.Bulk)
	s.setBool("upsert", fc.Upsert, &cfg.Upsert)
	s.setBool("follow", fc.Follow, &cfg.Follow)
	s.setBool("dry-run", fc.DryRun, &cfg.DryRun)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
