package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bft-labs/mongoship/internal/app"
)

// StdinInput selects standard input as the event source.
const StdinInput = "-"

// Config holds CLI configuration for mongoship.
type Config struct {
	URI        string
	Database   string
	Collection string

	ISODate    bool
	GenerateID bool

	RetryDelay       time.Duration
	RetryMaxDelay    time.Duration
	RetryMaxAttempts int
	RetryMultiplier  float64
	RetryJitter      float64
	BreakerFailures  int
	BreakerTimeout   time.Duration

	Bulk         bool
	BulkInterval time.Duration
	BulkSize     int

	Action            string
	Filter            bson.D
	UpdateExpressions bson.D
	Upsert            bool
	QueryKey          string
	QueryValue        string

	WriteTimeout time.Duration

	Input       string
	Follow      bool
	DryRun      bool
	MetricsAddr string
	LogLevel    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		URI:              "mongodb://localhost:27017",
		RetryDelay:       app.DefaultRetryDelay,
		RetryMaxDelay:    app.DefaultRetryMaxDelay,
		RetryMaxAttempts: app.DefaultRetryPolicy().MaxAttempts,
		RetryMultiplier:  app.DefaultRetryMultiplier,
		RetryJitter:      app.DefaultRetryJitter,
		BreakerFailures:  5,
		BreakerTimeout:   app.DefaultBreakerTimeout,
		BulkInterval:     2 * time.Second,
		BulkSize:         900,
		Action:           "insert",
		QueryKey:         app.DefaultQueryKey,
		WriteTimeout:     30 * time.Second,
		Input:            StdinInput,
		LogLevel:         "info",
	}
}

// Validate checks the configuration for errors, including the write rules
// enforced by the sink.
func (c *Config) Validate() error {
	if !c.DryRun {
		if c.URI == "" {
			return fmt.Errorf("uri is required")
		}
		if c.Database == "" {
			return fmt.Errorf("database is required")
		}
	}
	if c.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive")
	}
	if c.RetryMaxAttempts < 0 {
		return fmt.Errorf("retry max attempts must not be negative")
	}
	if c.RetryMultiplier < 1 {
		return fmt.Errorf("retry multiplier must be at least 1")
	}
	if c.RetryJitter < 0 {
		return fmt.Errorf("retry jitter must not be negative")
	}
	if c.BreakerFailures < 0 {
		return fmt.Errorf("breaker failures must not be negative")
	}
	if c.Follow && c.Input == StdinInput {
		return fmt.Errorf("follow requires an input file")
	}
	return app.ValidateSettings(c.Settings())
}

// Settings converts the configuration into sink settings.
func (c *Config) Settings() app.Settings {
	return app.Settings{
		Collection:        c.Collection,
		ISODate:           c.ISODate,
		GenerateID:        c.GenerateID,
		Bulk:              c.Bulk,
		BulkInterval:      c.BulkInterval,
		BulkSize:          c.BulkSize,
		Action:            c.Action,
		Filter:            c.Filter,
		UpdateExpressions: c.UpdateExpressions,
		Upsert:            c.Upsert,
		QueryKey:          c.QueryKey,
		QueryValue:        c.QueryValue,
		Retry: app.RetryPolicy{
			Delay:       c.RetryDelay,
			MaxDelay:    c.RetryMaxDelay,
			Multiplier:  c.RetryMultiplier,
			Jitter:      c.RetryJitter,
			MaxAttempts: c.RetryMaxAttempts,
		},
		Breaker: app.BreakerSettings{
			Failures: uint32(c.BreakerFailures),
			Timeout:  c.BreakerTimeout,
		},
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setCount sets an int from a pointer, zero included.
func (s *configSetter) setCount(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloat sets a float from a pointer, zero included.
func (s *configSetter) setFloat(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDoc sets a document if not empty and flag not changed.
func (s *configSetter) setDoc(flag string, value bson.D, dst *bson.D) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setCountFromString is setIntFromString accepting zero.
func (s *configSetter) setCountFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return fmt.Errorf("parse %s: must not be negative", flag)
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}

// setDocFromString parses a JSON object and sets the destination.
func (s *configSetter) setDocFromString(flag, value string, dst *bson.D) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	doc, err := ParseDoc(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = doc
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
