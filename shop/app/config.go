// Package app assembles the storefront bot: configuration, storage,
// services and the Telegram runtime wiring.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
)

// RedisConfig enables the Redis-backed cart store. When disabled, carts
// live in process memory and are lost on restart.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"REDIS_ENABLED"`
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	// CartTTLHours expires abandoned carts; 0 keeps them forever.
	CartTTLHours int `yaml:"cart_ttl_hours" envconfig:"REDIS_CART_TTL_HOURS"`
}

// CartTTL returns the cart expiry as a duration.
func (c RedisConfig) CartTTL() time.Duration {
	return time.Duration(c.CartTTLHours) * time.Hour
}

// ShopConfig holds storefront-specific settings.
type ShopConfig struct {
	// HistoryLimit caps /history output; 0 falls back to the default of 5.
	HistoryLimit int    `yaml:"history_limit" envconfig:"SHOP_HISTORY_LIMIT"`
	Currency     string `yaml:"currency" envconfig:"SHOP_CURRENCY"`
	// SeedDemo populates an empty catalog with demo products on startup.
	SeedDemo bool `yaml:"seed_demo" envconfig:"SHOP_SEED_DEMO"`
}

// Config aggregates core and storefront configuration.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Redis    RedisConfig         `yaml:"redis"`
	Shop     ShopConfig          `yaml:"shop"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// LoadConfig reads configuration from a YAML file, then applies
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if cfg.Shop.Currency == "" {
		cfg.Shop.Currency = "RUB"
	}
	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis.addr is required when redis.enabled is true")
	}
	return &cfg, nil
}
