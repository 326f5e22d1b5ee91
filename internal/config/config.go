package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Streak   StreakConfig   `mapstructure:"streak" validate:"required"`
	Checks   ChecksConfig   `mapstructure:"checks" validate:"required"`
	Weekly   WeeklyConfig   `mapstructure:"weekly" validate:"required"`
	Retry    RetryConfig    `mapstructure:"retry" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
	// MaxOpenConns caps the connection pool.
	MaxOpenConns int `mapstructure:"max_open_conns" validate:"gte=1"`
}

// StreakConfig controls daily counting and streak accrual.
type StreakConfig struct {
	// DailyRequirement is the number of distinct items to master per local day.
	DailyRequirement int `mapstructure:"daily_requirement" validate:"gte=1"`
	// GraceHours extends each day's deadline past local midnight.
	GraceHours int `mapstructure:"grace_hours" validate:"gte=0,lte=23"`
}

// Grace returns the streak grace period.
func (c StreakConfig) Grace() time.Duration {
	return time.Duration(c.GraceHours) * time.Hour
}

// ChecksConfig controls the comprehension-check deadline policy.
type ChecksConfig struct {
	TestWindowHours int `mapstructure:"test_window_hours" validate:"gte=1"`
	GraceHours      int `mapstructure:"grace_hours" validate:"gte=0"`
	MaxOutstanding  int `mapstructure:"max_outstanding" validate:"gte=1"`
}

// TestWindow returns the time allowed to pass a check.
func (c ChecksConfig) TestWindow() time.Duration {
	return time.Duration(c.TestWindowHours) * time.Hour
}

// Grace returns how long after a check deadline a lapse is forgiven.
func (c ChecksConfig) Grace() time.Duration {
	return time.Duration(c.GraceHours) * time.Hour
}

// WeeklyConfig controls the weekly aggregate.
type WeeklyConfig struct {
	Cap int `mapstructure:"cap" validate:"gte=1"`
}

// RetryConfig bounds optimistic-concurrency retries.
type RetryConfig struct {
	MaxRetries  int `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BaseDelayMS int `mapstructure:"base_delay_ms" validate:"gte=1"`
}

// BaseDelay returns the first backoff delay.
func (c RetryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMS) * time.Millisecond
}
