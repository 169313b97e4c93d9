// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	ABTest    ABTestConfig    `mapstructure:"abtest"`
	Funnel    FunnelConfig    `mapstructure:"funnel"`
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	DashboardToken  string `mapstructure:"dashboard_token"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Domain Configuration Sections ---

// ABTestConfig holds settings for the headline variant service.
type ABTestConfig struct {
	TestName   string `mapstructure:"test_name"`
	StorageKey string `mapstructure:"storage_key"`
	// AssignmentTTL is the lifetime of a sticky assignment in hours.
	// Zero keeps the assignment for the lifetime of the stored key.
	AssignmentTTL int `mapstructure:"assignment_ttl"`
}

// FunnelConfig holds settings for the lead capture state machine.
type FunnelConfig struct {
	// StepDelay simulates upstream latency between a step submit and the
	// advance, in milliseconds. The landing page used 400-600ms.
	StepDelay int `mapstructure:"step_delay"`
	// SessionTTL is how long an idle capture session is kept, in minutes.
	SessionTTL int `mapstructure:"session_ttl"`
}

// DeliveryConfig holds settings for the outbound lead webhook.
type DeliveryConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	Source     string `mapstructure:"source"`
	// JournalEnabled turns on the best-effort Postgres delivery journal.
	JournalEnabled bool `mapstructure:"journal_enabled"`
}

// AnalyticsConfig selects the event sinks. All sinks are best-effort.
type AnalyticsConfig struct {
	MemoryEnabled bool   `mapstructure:"memory_enabled"`
	MemoryLimit   int    `mapstructure:"memory_limit"`
	RedisEnabled  bool   `mapstructure:"redis_enabled"`
	RedisKey      string `mapstructure:"redis_key"`
	ESEnabled     bool   `mapstructure:"es_enabled"`
	ESIndex       string `mapstructure:"es_index"`
}

// RegistryConfig points at the payload schema registry.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
