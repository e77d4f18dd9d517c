// Package config loads runtime configuration from multiple sources (dotenv and
// YAML files, environment variables, CLI flags) with precedence: CLI flags >
// YAML config > Environment variables > Defaults. It exposes strongly typed
// settings, including the seed inventory, to the rest of the application.
package config
