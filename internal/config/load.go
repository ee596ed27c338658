package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over file values. Returns a populated Config or an error if
// loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)
	v.SetDefault("payment.expiry_sweep_interval", time.Minute)
	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.poll_interval", 5*time.Second)
	v.SetDefault("task.max_retries", 3)
	v.SetDefault("task.engine_url", "http://localhost:9090")

	// Optional config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables with PROVIX_ prefix
	v.SetEnvPrefix("PROVIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind critical environment variables; AutomaticEnv alone
	// does not surface keys that never appear in defaults or the file.
	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"database.url", "PROVIX_DATABASE_URL"},
		{"auth.jwt_secret", "PROVIX_AUTH_JWT_SECRET"},
		{"payment.access_token", "PROVIX_PAYMENT_ACCESS_TOKEN"},
		{"payment.webhook_secret", "PROVIX_PAYMENT_WEBHOOK_SECRET"},
		{"payment.base_url", "PROVIX_PAYMENT_BASE_URL"},
		{"payment.notification_url", "PROVIX_PAYMENT_NOTIFICATION_URL"},
		{"task.engine_url", "PROVIX_TASK_ENGINE_URL"},
		{"server.port", "PROVIX_SERVER_PORT"},
		{"server.log_level", "PROVIX_SERVER_LOG_LEVEL"},
	}

	for _, env := range bindEnvs {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env.envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
