package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// Manager loads and holds the engine configuration via Viper.
type Manager struct {
	config *domain.Config
}

// NewManager creates a configuration manager, reading from config.yaml,
// the environment (SHA_FRAUD_* variables), and built-in defaults.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/sha-fraud-engine/")

	viper.SetEnvPrefix("SHA_FRAUD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars cover everything
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	if len(config.Detection.ModuleWeights) == 0 {
		config.Detection = domain.DefaultDetectionConfig()
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "sha_fraud")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_conns", 25)
	viper.SetDefault("database.min_conns", 5)
	viper.SetDefault("database.max_conn_lifetime", "5m")
	viper.SetDefault("database.max_conn_idle_time", "30m")
	viper.SetDefault("database.migrations_path", "migrations")

	// SHA member-registry client defaults
	viper.SetDefault("registry.base_url", "")
	viper.SetDefault("registry.api_key", "")
	viper.SetDefault("registry.timeout", "10s")
	viper.SetDefault("registry.rate_limit", 10)
	viper.SetDefault("registry.cache_ttl", "1h")
	viper.SetDefault("registry.cache_size", 4096)

	// Redis cache defaults
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.default_ttl", "24h")
	viper.SetDefault("cache.pool_size", 10)

	// Detection score policy defaults
	viper.SetDefault("detection.max_score_floor", 0.8)
	viper.SetDefault("detection.critical_at", 80)
	viper.SetDefault("detection.review_at", 60)
	viper.SetDefault("detection.auto_approve_below", 40)
	viper.SetDefault("detection.alert_at", 60)

	// Audit log defaults
	viper.SetDefault("audit.backend", "postgres")
	viper.SetDefault("audit.sqlite_path", "audit.db")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetRegistryConfig returns member-registry client configuration
func (m *Manager) GetRegistryConfig() *domain.RegistryConfig {
	return &m.config.Registry
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}

	if config.Audit.Backend != "postgres" && config.Audit.Backend != "sqlite" {
		return fmt.Errorf("invalid audit backend: %s", config.Audit.Backend)
	}
	if config.Audit.Backend == "sqlite" && config.Audit.SQLitePath == "" {
		return fmt.Errorf("sqlite audit backend requires a path")
	}

	if config.Detection.MaxScoreFloor < 0 || config.Detection.MaxScoreFloor > 1 {
		return fmt.Errorf("detection max_score_floor must be in [0,1], got %v", config.Detection.MaxScoreFloor)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the database URL used by the migration runner
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.Username, db.Password, db.Host, db.Port, db.Database, db.SSLMode)
}
