package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Payment  PaymentConfig  `mapstructure:"payment"  validate:"required"`
	Task     TaskConfig     `mapstructure:"task"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// CORSAllowedOrigins lists the browser origins allowed to call the API.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
}

// PaymentConfig contains the PIX payment provider settings.
type PaymentConfig struct {
	// AccessToken authenticates against the Mercado Pago API.
	AccessToken string `mapstructure:"access_token" validate:"required"`

	// WebhookSecret is the HMAC key used to verify webhook signatures.
	WebhookSecret string `mapstructure:"webhook_secret" validate:"required,min=16"`

	// BaseURL overrides the provider API endpoint; tests point it at a
	// local server. Empty means the production endpoint.
	BaseURL string `mapstructure:"base_url"`

	// NotificationURL is the publicly reachable webhook endpoint passed
	// to the provider when creating a charge.
	NotificationURL string `mapstructure:"notification_url"`

	// ExpirySweepInterval is how often pending transactions whose PIX
	// charge lapsed are moved to expired.
	ExpirySweepInterval time.Duration `mapstructure:"expiry_sweep_interval"`
}

// TaskConfig contains task processor tuning knobs. The zero value is
// usable; defaults are applied by the loader.
type TaskConfig struct {
	// WorkerCount determines how many tasks may be processed concurrently.
	// Slots within one task always run sequentially.
	WorkerCount int `mapstructure:"worker_count"`

	// PollInterval is how often the runner looks for pending tasks when
	// no wake signal has arrived.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// MaxRetries caps provisioning attempts per account slot.
	MaxRetries int `mapstructure:"max_retries"`

	// EngineURL is the base URL of the browser-automation engine that
	// performs the actual account signups.
	EngineURL string `mapstructure:"engine_url"`
}
