package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/goodtune/daygauge/internal/config"
	"github.com/goodtune/daygauge/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Store implements the storage.Store interface using Redis
type Store struct {
	client     *redis.Client
	startStore *startStore
}

// pingTimeout bounds the connection check in Open.
const pingTimeout = 5 * time.Second

// Open connects to Redis and verifies the connection with a PING.
func Open(cfg config.RedisConfig) (*Store, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return New(client), nil
}

// clientOptions translates the storage config into go-redis options. A zero
// port leaves Host as the full address.
func clientOptions(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{
		Addr:         cfg.Host,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if cfg.Port > 0 {
		opts.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}

	timeouts := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"dial_timeout", cfg.DialTimeout, &opts.DialTimeout},
		{"read_timeout", cfg.ReadTimeout, &opts.ReadTimeout},
		{"write_timeout", cfg.WriteTimeout, &opts.WriteTimeout},
	}
	for _, t := range timeouts {
		d, err := time.ParseDuration(t.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", t.name, t.value, err)
		}
		*t.dst = d
	}

	return opts, nil
}

// New wraps an existing client.
func New(client *redis.Client) *Store {
	return &Store{
		client:     client,
		startStore: &startStore{client: client, appendScript: redis.NewScript(appendStartScript)},
	}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Starts returns the StartStore implementation
func (s *Store) Starts() storage.StartStore {
	return s.startStore
}
