package main

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/daygauge/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the daygauge configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with --dump)
	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(out, "✅ Configuration is valid: %s\n", configPath)

	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		_, _ = fmt.Fprintln(out)
		_, _ = red.Fprintf(out, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			_, _ = red.Fprintf(out, "   - %s\n", key)
		}
		_, _ = fmt.Fprintln(out, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if validateDump {
		_, _ = fmt.Fprintln(out, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(out, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(out, strings.Repeat("=", 80))

		dumpConfig(out, cfg, getDefaultConfig())
	}

	return nil
}

// getDefaultConfig creates a configuration with default values
func getDefaultConfig() *config.Config {
	v := viper.New()
	config.SetDefaults(v)

	var cfg config.Config
	_ = v.Unmarshal(&cfg)

	return &cfg
}

// findUnknownKeys loads the config file and checks for unknown keys
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	validKeys := getValidKeys()

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !validKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

// getValidKeys returns the set of keys that have a default
func getValidKeys() map[string]bool {
	v := viper.New()
	config.SetDefaults(v)

	keys := make(map[string]bool)
	for _, key := range v.AllKeys() {
		keys[key] = true
	}
	return keys
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(w io.Writer, cfg, defaultCfg *config.Config) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	field := func(name string, value, defaultValue interface{}) {
		dumpField(w, name, value, defaultValue, yellow, green)
	}

	// Server
	_, _ = cyan.Fprintln(w, "\n[server]")
	field("  bind_address", cfg.Server.BindAddress, defaultCfg.Server.BindAddress)
	field("  http_port", cfg.Server.HTTPPort, defaultCfg.Server.HTTPPort)
	field("  metrics_port", cfg.Server.MetricsPort, defaultCfg.Server.MetricsPort)
	field("  allowed_origins", cfg.Server.AllowedOrigins, defaultCfg.Server.AllowedOrigins)

	// Storage
	_, _ = cyan.Fprintln(w, "\n[storage]")
	field("  type", cfg.Storage.Type, defaultCfg.Storage.Type)
	_, _ = cyan.Fprintln(w, "  [storage.redis]")
	field("    host", cfg.Storage.Redis.Host, defaultCfg.Storage.Redis.Host)
	field("    port", cfg.Storage.Redis.Port, defaultCfg.Storage.Redis.Port)
	field("    password", redactSecret(cfg.Storage.Redis.Password), redactSecret(defaultCfg.Storage.Redis.Password))
	field("    db", cfg.Storage.Redis.DB, defaultCfg.Storage.Redis.DB)
	field("    pool_size", cfg.Storage.Redis.PoolSize, defaultCfg.Storage.Redis.PoolSize)
	field("    min_idle_conns", cfg.Storage.Redis.MinIdleConns, defaultCfg.Storage.Redis.MinIdleConns)
	field("    dial_timeout", cfg.Storage.Redis.DialTimeout, defaultCfg.Storage.Redis.DialTimeout)
	field("    read_timeout", cfg.Storage.Redis.ReadTimeout, defaultCfg.Storage.Redis.ReadTimeout)
	field("    write_timeout", cfg.Storage.Redis.WriteTimeout, defaultCfg.Storage.Redis.WriteTimeout)

	// Logging
	_, _ = cyan.Fprintln(w, "\n[logging]")
	field("  level", cfg.Logging.Level, defaultCfg.Logging.Level)
	field("  format", cfg.Logging.Format, defaultCfg.Logging.Format)

	// Auth
	_, _ = cyan.Fprintln(w, "\n[auth]")
	field("  jwt_secret", redactSecret(cfg.Auth.JWTSecret), redactSecret(defaultCfg.Auth.JWTSecret))
	field("  token_ttl", cfg.Auth.TokenTTL, defaultCfg.Auth.TokenTTL)
	field("  cache_size", cfg.Auth.CacheSize, defaultCfg.Auth.CacheSize)

	// Display
	_, _ = cyan.Fprintln(w, "\n[display]")
	field("  timezone", cfg.Display.Timezone, defaultCfg.Display.Timezone)

	_, _ = fmt.Fprintln(w)
}

func dumpField(w io.Writer, name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	isDefault := reflect.DeepEqual(value, defaultValue)

	valueStr := fmt.Sprintf("%v", value)

	if isDefault {
		_, _ = defaultColor.Fprintf(w, "%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Fprintf(w, "%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

func redactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "***REDACTED***"
}
