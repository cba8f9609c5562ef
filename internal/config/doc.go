// Package config loads and validates the stationd configuration.
//
// Configuration is TOML on flash, merged over built-in defaults and
// finally overridden by STATIOND_* environment variables. The merged
// result is validated before any subsystem sees it.
package config
