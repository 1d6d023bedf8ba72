package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Display DisplayConfig `mapstructure:"display"`
}

// ServerConfig defines server ports and addresses
type ServerConfig struct {
	BindAddress    string   `mapstructure:"bind_address"`
	HTTPPort       int      `mapstructure:"http_port"`
	MetricsPort    int      `mapstructure:"metrics_port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig defines how owner identities are issued and verified
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	TokenTTL  string `mapstructure:"token_ttl"`
	CacheSize int    `mapstructure:"cache_size"`
}

// DisplayConfig defines how wall-clock times are interpreted and shown
type DisplayConfig struct {
	Timezone string `mapstructure:"timezone"` // IANA name or "Local"
}

// Location resolves the configured display timezone.
func (d DisplayConfig) Location() (*time.Location, error) {
	if d.Timezone == "" || strings.EqualFold(d.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(d.Timezone)
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("DAYGAUGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isMissingFile(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.allowed_origins", []string{})

	// Storage defaults
	v.SetDefault("storage.type", "redis")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "720h")
	v.SetDefault("auth.cache_size", 1024)

	// Display defaults
	v.SetDefault("display.timezone", "Local")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "redis"
	}
	if cfg.Storage.Type != "redis" {
		return fmt.Errorf("unsupported storage type: %s (only 'redis' is supported)", cfg.Storage.Type)
	}
	if cfg.Storage.Redis.Host == "" {
		return fmt.Errorf("storage.redis.host is required")
	}

	if _, err := time.ParseDuration(cfg.Auth.TokenTTL); err != nil {
		return fmt.Errorf("invalid auth.token_ttl %q: %w", cfg.Auth.TokenTTL, err)
	}
	if cfg.Auth.CacheSize <= 0 {
		return fmt.Errorf("auth.cache_size must be positive: %d", cfg.Auth.CacheSize)
	}

	if _, err := cfg.Display.Location(); err != nil {
		return fmt.Errorf("invalid display.timezone %q: %w", cfg.Display.Timezone, err)
	}

	return nil
}

// isMissingFile reports whether err is viper failing to open an explicitly
// configured file that does not exist.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
