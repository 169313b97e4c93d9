// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DELIVERY_WEBHOOK_URL
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 1. Load base config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// 2. Merge environment overlay
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	// 3. Expand ${VAR} placeholders
	expandEnvVars(viper.GetViper())

	// 4. Unmarshal final config
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	// 5. Direct override if still empty
	overrideEmptyConfig(&cfg)

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the first location where one exists. Tests run
// from nested package directories, hence the upward probes.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig applies well-known environment variables for values the
// YAML left empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Delivery.WebhookURL == "" {
		if val := os.Getenv("N8N_WEBHOOK_URL"); val != "" {
			cfg.Delivery.WebhookURL = val
		}
	}
	if cfg.Server.DashboardToken == "" {
		if val := os.Getenv("DASHBOARD_TOKEN"); val != "" {
			cfg.Server.DashboardToken = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("POSTGRES_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "lead-funnel"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 5000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	if cfg.ABTest.TestName == "" {
		cfg.ABTest.TestName = "headline_variants"
	}
	if cfg.ABTest.StorageKey == "" {
		cfg.ABTest.StorageKey = "headline_variant"
	}

	if cfg.Funnel.StepDelay == 0 {
		cfg.Funnel.StepDelay = 500
	}
	if cfg.Funnel.SessionTTL == 0 {
		cfg.Funnel.SessionTTL = 30
	}

	if cfg.Delivery.Timeout == 0 {
		cfg.Delivery.Timeout = 10000
	}
	if cfg.Delivery.Source == "" {
		cfg.Delivery.Source = "website"
	}

	if cfg.Analytics.MemoryLimit == 0 {
		cfg.Analytics.MemoryLimit = 10000
	}
	if cfg.Analytics.RedisKey == "" {
		cfg.Analytics.RedisKey = "analytics:events"
	}
	if cfg.Analytics.ESIndex == "" {
		cfg.Analytics.ESIndex = "funnel-events"
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/registry.json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Funnel.StepDelay < 0 {
		return fmt.Errorf("funnel.step_delay must not be negative")
	}
	if cfg.Delivery.WebhookURL == "" {
		// Delivery is fire-and-forget; a missing URL downgrades it to a
		// logged no-op rather than a startup failure.
		return nil
	}
	if !strings.HasPrefix(cfg.Delivery.WebhookURL, "http://") && !strings.HasPrefix(cfg.Delivery.WebhookURL, "https://") {
		return fmt.Errorf("delivery.webhook_url must be an http(s) URL")
	}
	return nil
}
