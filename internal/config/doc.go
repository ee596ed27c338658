// Package config defines the application configuration structure and its
// loading logic. Settings come from environment variables with the PROVIX_
// prefix, falling back to an optional config.yaml, and are validated
// before use.
package config
