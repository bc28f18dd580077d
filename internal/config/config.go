package config

import (
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	PostgresURL string `mapstructure:"POSTGRES_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	ServerPort  string `mapstructure:"SERVER_PORT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	Sources             []string `mapstructure:"SOURCES"`
	FeedDir             string   `mapstructure:"FEED_DIR"`
	CategoryMappingPath string   `mapstructure:"CATEGORY_MAPPING_PATH"`
	BrandListPath       string   `mapstructure:"BRAND_LIST_PATH"`
	SpillDir            string   `mapstructure:"SPILL_DIR"`

	DailyUnitLimit     int `mapstructure:"DAILY_UNIT_LIMIT"`
	BatchThreshold     int `mapstructure:"BATCH_THRESHOLD"`
	FlushRetries       int `mapstructure:"FLUSH_RETRIES"`
	FlushBackoffMS     int `mapstructure:"FLUSH_BACKOFF_MS"`
	FingerprintTTLDays int `mapstructure:"FINGERPRINT_TTL_DAYS"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SOURCES", []string{"continente", "pingo_doce", "auchan"})
	viper.SetDefault("FEED_DIR", "./snapshots")
	viper.SetDefault("CATEGORY_MAPPING_PATH", "./config/categories.json")
	viper.SetDefault("BRAND_LIST_PATH", "./config/brands.txt")
	viper.SetDefault("SPILL_DIR", "./spill")
	viper.SetDefault("DAILY_UNIT_LIMIT", 10)
	viper.SetDefault("BATCH_THRESHOLD", 1000)
	viper.SetDefault("FLUSH_RETRIES", 3)
	viper.SetDefault("FLUSH_BACKOFF_MS", 500)
	viper.SetDefault("FINGERPRINT_TTL_DAYS", 2)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
