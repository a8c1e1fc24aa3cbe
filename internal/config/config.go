// Package config loads the process configuration for the transition
// engine and sync item updater from file, environment, and defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Primary    DatabaseConfig   `mapstructure:"primary"`
	Secondary  DatabaseConfig   `mapstructure:"secondary"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Transition TransitionConfig `mapstructure:"transition"`
	Lock       LockConfig       `mapstructure:"lock"`
}

// ServerConfig holds HTTP server configuration for the item-sync endpoint.
type ServerConfig struct {
	Port                    int           `mapstructure:"port"`
	Host                    string        `mapstructure:"host"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

// DatabaseConfig describes one revision store (primary or secondary).
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	URL             string        `mapstructure:"url"`
}

// URLOrDefault constructs a pgx-compatible DSN from the fields unless URL
// is already set explicitly.
func (d DatabaseConfig) URLOrDefault() string {
	if d.URL != "" {
		return d.URL
	}
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("%s://%s:%s@%s:%d/%s?sslmode=%s",
		d.Driver, d.Username, d.Password, d.Host, d.Port, d.Database, sslMode)
}

// RedisConfig holds connection settings for the event bus + distributed lock.
type RedisConfig struct {
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	StreamMaxLength int64         `mapstructure:"stream_max_length"`
}

// LogConfig holds logging configuration. Both commands pass Level, Format
// and Output to pkg/logger; Filename and the rotation fields are not
// passed on, so output "file" writes to stdout.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

// SchedulerConfig holds the scheduler user page size (§4.1). It is
// validated on load but not passed to transition.Scheduler, which pages
// users in fixed pages of 100.
type SchedulerConfig struct {
	UserPageSize int `mapstructure:"user_page_size"`
}

// TransitionConfig holds per-user migration and verification settings
// (§4.2, §4.3). No command builds a transition.Config from it, and
// ConflictDeleteSleep has no counterpart there.
type TransitionConfig struct {
	RevisionPageSize     int           `mapstructure:"revision_page_size"`
	ReplicationLagSleep  time.Duration `mapstructure:"replication_lag_sleep"`
	ConflictDeleteSleep  time.Duration `mapstructure:"conflict_delete_sleep"`
	KeepAliveStepPercent int           `mapstructure:"keep_alive_step_percent"`
}

// LockConfig holds settings for the Redis-backed distributed lock guarding
// per-user transition requests (§5 "Concurrency for one user"). It is not
// passed to the scheduler, whose lock uses lock package defaults.
type LockConfig struct {
	TTL            time.Duration `mapstructure:"ttl"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	ValuePrefix    string        `mapstructure:"value_prefix"`
}

// Load reads configuration from an optional YAML file, environment
// variables (dot-to-underscore translated), and built-in defaults.
func Load(configPath string) (*Config, error) {
	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.graceful_shutdown_timeout", "30s")

	for _, prefix := range []string{"primary", "secondary"} {
		viper.SetDefault(prefix+".driver", "postgres")
		viper.SetDefault(prefix+".host", "localhost")
		viper.SetDefault(prefix+".port", 5432)
		viper.SetDefault(prefix+".ssl_mode", "disable")
		viper.SetDefault(prefix+".max_connections", 20)
		viper.SetDefault(prefix+".min_connections", 2)
		viper.SetDefault(prefix+".max_conn_lifetime", "1h")
		viper.SetDefault(prefix+".connect_timeout", "10s")
		viper.SetDefault(prefix+".query_timeout", "30s")
	}
	viper.SetDefault("primary.database", "notesync_primary")
	viper.SetDefault("secondary.database", "notesync_secondary")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.dial_timeout", "5s")
	viper.SetDefault("redis.read_timeout", "3s")
	viper.SetDefault("redis.write_timeout", "3s")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.stream_max_length", 100000)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("metrics.port", 9090)

	viper.SetDefault("scheduler.user_page_size", 100)

	viper.SetDefault("transition.revision_page_size", 100)
	viper.SetDefault("transition.replication_lag_sleep", "2s")
	viper.SetDefault("transition.conflict_delete_sleep", "2s")
	viper.SetDefault("transition.keep_alive_step_percent", 10)

	viper.SetDefault("lock.ttl", "30s")
	viper.SetDefault("lock.max_retries", 3)
	viper.SetDefault("lock.retry_interval", "100ms")
	viper.SetDefault("lock.acquire_timeout", "5s")
	viper.SetDefault("lock.value_prefix", "transition-lock")
}

// Validate checks the configuration for obviously invalid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Primary.Database == "" {
		return fmt.Errorf("primary.database cannot be empty")
	}
	if c.Secondary.Database == "" {
		return fmt.Errorf("secondary.database cannot be empty")
	}
	if c.Scheduler.UserPageSize <= 0 {
		return fmt.Errorf("scheduler.user_page_size must be positive")
	}
	if c.Transition.RevisionPageSize <= 0 {
		return fmt.Errorf("transition.revision_page_size must be positive")
	}
	if c.Log.Level == "" {
		return fmt.Errorf("log.level cannot be empty")
	}
	return nil
}
