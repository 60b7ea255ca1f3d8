// Package config loads and validates the service configuration from YAML
// and keeps SMTP credentials fresh by watching the env file they come from.
// Alert rules are read once at startup; changing them requires a restart.
package config
