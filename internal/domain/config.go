package domain

import "time"

// Config is the complete service configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Detection DetectionConfig `mapstructure:"detection"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// RegistryConfig holds SHA member-registry client configuration
type RegistryConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size"`
}

// CacheConfig holds Redis configuration for the shared member cache
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	RedisURL   string        `mapstructure:"redis_url"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	PoolSize   int           `mapstructure:"pool_size"`
}

// AuditConfig selects and configures the analysis audit-log backend
type AuditConfig struct {
	Backend    string `mapstructure:"backend"` // "postgres" or "sqlite"
	SQLitePath string `mapstructure:"sqlite_path"`
}

// LoggingConfig holds logrus configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// DetectionConfig carries the orchestrator's module weights, status
// thresholds, and alerting thresholds. It is passed in explicitly so tests
// can substitute weights without touching globals.
type DetectionConfig struct {
	ModuleWeights    map[string]float64 `mapstructure:"module_weights"`
	MaxScoreFloor    float64            `mapstructure:"max_score_floor"`
	CriticalAt       float64            `mapstructure:"critical_at"`
	ReviewAt         float64            `mapstructure:"review_at"`
	AutoApproveBelow float64            `mapstructure:"auto_approve_below"`
	AlertAt          float64            `mapstructure:"alert_at"`
}

// DefaultDetectionConfig returns the production score-combination policy:
// duplicate, phantom, and upcoding carry full weight, provider risk is a
// supporting signal, and the ML score is useful but not deterministic.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		ModuleWeights: map[string]float64{
			ModuleDuplicate:    1.0,
			ModulePhantom:      1.0,
			ModuleUpcoding:     1.0,
			ModuleProviderRisk: 0.5,
			ModuleML:           0.7,
		},
		MaxScoreFloor:    0.8,
		CriticalAt:       80,
		ReviewAt:         60,
		AutoApproveBelow: 40,
		AlertAt:          60,
	}
}
