// Package config loads and validates the application configuration from
// environment variables and optional config files.
package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Client   ClientConfig   `mapstructure:"client"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// AllowedOrigins is the CORS allow-list applied to both the REST surface
	// and the websocket handshake. An empty list allows no cross-origin access.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
}

// ClientConfig contains defaults advertised to reconciliation clients.
// These are server-side defaults only; clients may override them locally.
type ClientConfig struct {
	// PollIntervalSeconds is the fallback polling cadence for notification
	// state when the push channel is down or events were missed.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"omitempty,gt=0"`

	// ReconnectMaxAttempts bounds websocket reconnection attempts.
	ReconnectMaxAttempts int `mapstructure:"reconnect_max_attempts" validate:"omitempty,gt=0"`

	// ReconnectDelaySeconds is the fixed backoff between reconnection attempts.
	ReconnectDelaySeconds int `mapstructure:"reconnect_delay_seconds" validate:"omitempty,gt=0"`
}
