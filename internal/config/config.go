// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/cryptofolio/internal/modules/settings"
)

// Config holds application configuration
type Config struct {
	DataDir  string // base directory for the SQLite stores, always absolute
	Port     int
	LogLevel string
	DevMode  bool

	// Market data provider.
	CoinGeckoBaseURL string
	CoinGeckoAPIKey  string
	TopMarketsLimit  int           // how many assets a refresh pulls
	SnapshotTTL      time.Duration // snapshot cache validity
	RefreshCron      string        // cron spec for the background refresh
	MaintenanceCron  string        // cron spec for database maintenance

	// Simulated account defaults.
	DefaultCapital float64

	Backup *BackupConfig
}

// BackupConfig holds the S3 backup settings. Disabled unless a bucket
// is configured.
type BackupConfig struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string
	Cron    string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("CRYPTOFOLIO_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("PORT", 8080),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:  getEnv("COINGECKO_API_KEY", ""),
		TopMarketsLimit:  getEnvAsInt("TOP_MARKETS_LIMIT", 100),
		SnapshotTTL:      getEnvAsDuration("SNAPSHOT_TTL", 5*time.Minute),
		RefreshCron:      getEnv("REFRESH_CRON", "*/15 * * * *"),
		MaintenanceCron:  getEnv("MAINTENANCE_CRON", "0 4 * * *"),
		DefaultCapital:   getEnvAsFloat("DEFAULT_CAPITAL", 10000),
		Backup:           loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UpdateFromSettings overrides config values from the settings store.
// Called after the databases are up; non-empty settings win over env.
func (c *Config) UpdateFromSettings(settingsRepo *settings.Repository) error {
	apiKey, err := settingsRepo.Get("coingecko_api_key")
	if err != nil {
		return fmt.Errorf("failed to get coingecko_api_key from settings: %w", err)
	}
	if apiKey != nil && *apiKey != "" {
		c.CoinGeckoAPIKey = *apiKey
	}

	capital, err := settingsRepo.Get("default_capital")
	if err != nil {
		return fmt.Errorf("failed to get default_capital from settings: %w", err)
	}
	if capital != nil && *capital != "" {
		if v, err := strconv.ParseFloat(*capital, 64); err == nil && v > 0 {
			c.DefaultCapital = v
		}
	}

	return nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TopMarketsLimit <= 0 {
		return fmt.Errorf("top markets limit must be positive, got %d", c.TopMarketsLimit)
	}
	if c.DefaultCapital <= 0 {
		return fmt.Errorf("default capital must be positive, got %f", c.DefaultCapital)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// loadBackupConfig reads the S3 backup settings. An empty bucket means
// backups stay off.
func loadBackupConfig() *BackupConfig {
	bucket := getEnv("BACKUP_S3_BUCKET", "")
	return &BackupConfig{
		Enabled: bucket != "",
		Bucket:  bucket,
		Region:  getEnv("BACKUP_S3_REGION", "us-east-1"),
		Prefix:  getEnv("BACKUP_S3_PREFIX", "cryptofolio"),
		Cron:    getEnv("BACKUP_CRON", "0 3 * * *"),
	}
}
