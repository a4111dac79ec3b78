package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// stateKeyPrefix namespaces runtime state snapshots.
	stateKeyPrefix = "swingbot:state"

	// DefaultStateTTL keeps snapshots around long enough to survive
	// restarts without serving stale state forever.
	DefaultStateTTL = 7 * 24 * time.Hour
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Enabled  bool   `json:"enabled"`
}

// StateStore saves and loads JSON state snapshots with a TTL. It backs the
// adaptive memory and dedup state across restarts.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewStateStore connects to Redis and verifies the connection.
func NewStateStore(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*StateStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	l := logger.With().Str("component", "state-store").Logger()
	l.Info().Str("addr", cfg.Addr).Msg("connected to redis")
	return &StateStore{client: client, ttl: DefaultStateTTL, logger: l}, nil
}

// Close releases the Redis connection.
func (s *StateStore) Close() error {
	return s.client.Close()
}

func stateKey(name string) string {
	return fmt.Sprintf("%s:%s", stateKeyPrefix, name)
}

// Save marshals v as JSON under the named key with the store TTL.
func (s *StateStore) Save(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal state %q: %w", name, err)
	}
	if err := s.client.Set(ctx, stateKey(name), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save state %q: %w", name, err)
	}
	return nil
}

// Load unmarshals the named snapshot into v. A missing key returns false
// with no error. A corrupt snapshot is logged and dropped so the caller
// starts from empty state instead of crashing.
func (s *StateStore) Load(ctx context.Context, name string, v any) (bool, error) {
	data, err := s.client.Get(ctx, stateKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load state %q: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn().Err(err).Str("state", name).Msg("corrupt snapshot discarded")
		s.client.Del(ctx, stateKey(name))
		return false, nil
	}
	return true, nil
}
