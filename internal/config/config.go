package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/gem-allocator/internal/allocator"
	"github.com/eugenenazirov/gem-allocator/internal/catalog"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultSeedUserID     = "demo"
	defaultEnvFile        = ".env"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	LogLevel             string
	RateLimitRPS         float64
	RateLimitBurst       int
	DefaultStrategy      allocator.Strategy
	SeedUserID           string
	SeedInventory        []allocator.InventoryLine
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	LogLevel             string        `yaml:"log_level"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	DefaultStrategy      string        `yaml:"default_strategy"`
	Seed                 yamlSeed      `yaml:"seed"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// yamlSeed represents the inventory loaded for one user at startup.
type yamlSeed struct {
	UserID    string         `yaml:"user_id"`
	Inventory map[string]int `yaml:"inventory"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile       string
	EnvFile          string
	LogLevel         *string
	Port             *string
	DefaultStrategy  *string
	SeedInventoryStr *string
	RateLimitRPS     *float64
	RateLimitBurst   *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Populate the process environment from a dotenv file; existing variables win.
	if err := loadEnvFile(overrides); err != nil {
		return Config{}, err
	}

	// Apply environment variables
	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	// Load from YAML file if specified (overrides environment)
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		LogLevel:             "info",
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		DefaultStrategy:      allocator.Smart,
		SeedUserID:           defaultSeedUserID,
	}
}

func loadEnvFile(overrides *CLIOverrides) error {
	if overrides != nil && overrides.EnvFile != "" {
		if err := godotenv.Load(overrides.EnvFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", d.raw, err)
		}
		*d.dst = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.DefaultStrategy != "" {
		strategy, err := allocator.ParseStrategy(yamlCfg.DefaultStrategy)
		if err != nil {
			return err
		}
		cfg.DefaultStrategy = strategy
	}

	if yamlCfg.Seed.UserID != "" {
		cfg.SeedUserID = yamlCfg.Seed.UserID
	}

	if len(yamlCfg.Seed.Inventory) > 0 {
		inventory, err := inventoryFromMap(yamlCfg.Seed.Inventory)
		if err != nil {
			return err
		}
		cfg.SeedInventory = inventory
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if raw := strings.TrimSpace(os.Getenv("DEFAULT_STRATEGY")); raw != "" {
		strategy, err := allocator.ParseStrategy(raw)
		if err != nil {
			return fmt.Errorf("DEFAULT_STRATEGY: %w", err)
		}
		cfg.DefaultStrategy = strategy
	}

	if user := strings.TrimSpace(os.Getenv("SEED_USER_ID")); user != "" {
		cfg.SeedUserID = user
	}

	if raw := strings.TrimSpace(os.Getenv("SEED_INVENTORY")); raw != "" {
		inventory, err := ParseInventory(raw)
		if err != nil {
			return fmt.Errorf("SEED_INVENTORY: %w", err)
		}
		cfg.SeedInventory = inventory
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.DefaultStrategy != nil && *overrides.DefaultStrategy != "" {
		strategy, err := allocator.ParseStrategy(*overrides.DefaultStrategy)
		if err != nil {
			return fmt.Errorf("parse strategy: %w", err)
		}
		cfg.DefaultStrategy = strategy
	}

	if overrides.SeedInventoryStr != nil && *overrides.SeedInventoryStr != "" {
		inventory, err := ParseInventory(*overrides.SeedInventoryStr)
		if err != nil {
			return fmt.Errorf("parse seed inventory: %w", err)
		}
		cfg.SeedInventory = inventory
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if _, err := allocator.ParseStrategy(string(cfg.DefaultStrategy)); err != nil {
		return err
	}
	if len(cfg.SeedInventory) > 0 && strings.TrimSpace(cfg.SeedUserID) == "" {
		return fmt.Errorf("seed user id cannot be empty when a seed inventory is configured")
	}
	return nil
}

// ParseInventory parses "Ruby=100,Amber=50" into inventory lines ordered by
// unit price. Kind names are matched case-insensitively.
func ParseInventory(raw string) ([]allocator.InventoryLine, error) {
	counts := make(map[string]int)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, qty, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid entry %q, expected Kind=Quantity", part)
		}
		value, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", qty)
		}
		counts[strings.TrimSpace(kind)] += value
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("no inventory entries provided")
	}
	return inventoryFromMap(counts)
}

func inventoryFromMap(counts map[string]int) ([]allocator.InventoryLine, error) {
	cat := catalog.Default()
	owned := make(map[catalog.Kind]int, len(counts))
	for name, qty := range counts {
		kind, ok := cat.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown gem %q", name)
		}
		if qty < 0 {
			return nil, fmt.Errorf("quantity for %s must be >= 0, got %d", kind, qty)
		}
		owned[kind] += qty
	}

	lines := make([]allocator.InventoryLine, 0, len(owned))
	for _, d := range cat.Denominations() {
		if qty, ok := owned[d.Kind]; ok {
			lines = append(lines, allocator.InventoryLine{Kind: d.Kind, Owned: qty})
		}
	}
	return lines, nil
}
