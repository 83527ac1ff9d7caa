package cliconfig

import "os"

// EnvPrefix starts every environment variable read by ApplyEnvConfig.
const EnvPrefix = "MONGOSHIP_"

// ApplyEnvConfig applies MONGOSHIP_* environment variables to cfg.
// Values override the file config but not explicitly set flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("uri", env("URI"), &cfg.URI)
	s.setString("database", env("DATABASE"), &cfg.Database)
	s.setString("collection", env("COLLECTION"), &cfg.Collection)
	s.setString("action", env("ACTION"), &cfg.Action)
	s.setString("query-key", env("QUERY_KEY"), &cfg.QueryKey)
	s.setString("query-value", env("QUERY_VALUE"), &cfg.QueryValue)
	s.setString("input", env("INPUT"), &cfg.Input)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("retry-delay", env("RETRY_DELAY"), &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-max-delay", env("RETRY_MAX_DELAY"), &cfg.RetryMaxDelay); err != nil {
		return err
	}
	if err := s.setDuration("breaker-timeout", env("BREAKER_TIMEOUT"), &cfg.BreakerTimeout); err != nil {
		return err
	}
	if err := s.setDuration("bulk-interval", env("BULK_INTERVAL"), &cfg.BulkInterval); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", env("WRITE_TIMEOUT"), &cfg.WriteTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("bulk-size", env("BULK_SIZE"), &cfg.BulkSize); err != nil {
		return err
	}
	if err := s.setCountFromString("retry-max-attempts", env("RETRY_MAX_ATTEMPTS"), &cfg.RetryMaxAttempts); err != nil {
		return err
	}
	if err := s.setCountFromString("breaker-failures", env("BREAKER_FAILURES"), &cfg.BreakerFailures); err != nil {
		return err
	}

	if err := s.setFloatFromString("retry-multiplier", env("RETRY_MULTIPLIER"), &cfg.RetryMultiplier); err != nil {
		return err
	}
	if err := s.setFloatFromString("retry-jitter", env("RETRY_JITTER"), &cfg.RetryJitter); err != nil {
		return err
	}

	if err := s.setDocFromString("filter", env("FILTER"), &cfg.Filter); err != nil {
		return err
	}
	if err := s.setDocFromString("update-expressions", env("UPDATE_EXPRESSIONS"), &cfg.UpdateExpressions); err != nil {
		return err
	}

	s.setBoolFromString("isodate", env("ISODATE"), &cfg.ISODate)
	s.setBoolFromString("generate-id", env("GENERATE_ID"), &cfg.GenerateID)
	s.setBoolFromString("bulk", env("BULK"), &cfg.Bulk)
	s.setBoolFromString("upsert", env("UPSERT"), &cfg.Upsert)
	s.setBoolFromString("follow", env("FOLLOW"), &cfg.Follow)
	s.setBoolFromString("dry-run", env("DRY_RUN"), &cfg.DryRun)

	return nil
}
