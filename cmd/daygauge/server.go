package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/daygauge/internal/config"
	"github.com/goodtune/daygauge/internal/identity"
	"github.com/goodtune/daygauge/internal/metrics"
	"github.com/goodtune/daygauge/internal/storage"
	"github.com/goodtune/daygauge/internal/storage/redis"
	"github.com/goodtune/daygauge/internal/submit"
	"github.com/goodtune/daygauge/internal/systemd"
	"github.com/goodtune/daygauge/internal/web"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the daygauge server",
	Long:  `Start the daygauge server with the web gauge, the start-time API and the metrics endpoint.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging, os.Stdout)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting daygauge")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to get systemd listeners")
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	loc, err := cfg.Display.Location()
	if err != nil {
		return fmt.Errorf("failed to load display timezone: %w", err)
	}

	auth, err := newAuthority(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize identity: %w", err)
	}

	// Initialize storage
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("redis_host", cfg.Storage.Redis.Host).
		Int("redis_port", cfg.Storage.Redis.Port).
		Msg("Storage initialized")

	clock := clockwork.NewRealClock()
	submitter := submit.New(store.Starts(), clock, loc, logger)

	// Initialize Web Server
	webConfig := web.Config{
		ListenAddr:     fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.HTTPPort),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	webServer := web.NewServer(webConfig, store.Starts(), submitter, auth, clock, loc, logger)

	// Use systemd socket-activated listener if available
	if sdListeners.Activated && sdListeners.Web != nil {
		webServer.SetListener(sdListeners.Web)
	}

	if err := webServer.Start(); err != nil {
		return fmt.Errorf("failed to start Web Server: %w", err)
	}

	// Initialize Metrics Server
	metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
	metricsServer := metrics.NewServer(metricsAddr, logger)

	if sdListeners.Activated && sdListeners.Metrics != nil {
		metricsServer.SetListener(sdListeners.Metrics)
	}

	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start Metrics Server: %w", err)
	}

	logger.Info().Msg("daygauge startup complete")
	logger.Info().Msgf("Web: http://%s", webConfig.ListenAddr)
	logger.Info().Msgf("Metrics: http://%s/metrics", metricsAddr)

	// Notify systemd that we're ready to serve requests
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received, gracefully stopping...")

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := webServer.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("Error stopping Web Server")
	}

	if err := metricsServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping Metrics Server")
	}

	logger.Info().Msg("daygauge stopped")

	return nil
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = "redis"
	}

	switch storageType {
	case "redis":
		return redis.Open(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (only 'redis' is supported)", storageType)
	}
}

func newAuthority(cfg config.AuthConfig) (*identity.Authority, error) {
	ttl := parseDuration(cfg.TokenTTL, 720*time.Hour)
	return identity.NewAuthority(cfg.JWTSecret, ttl, cfg.CacheSize, clockwork.NewRealClock())
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(out).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
