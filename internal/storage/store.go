package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/SSTConexionSalud/sistema-turnos/internal/config"
	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing was saved yet
var ErrNoSnapshot = errors.New("no snapshot stored")

// Store defines the storage interface
type Store interface {
	LoadSnapshot(ctx context.Context) (types.Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot types.Snapshot) error
	Close() error
}

// NoopStore is a no-op implementation when persistence is disabled
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) LoadSnapshot(_ context.Context) (types.Snapshot, error) {
	return types.Snapshot{}, ErrNoSnapshot
}
func (s *NoopStore) SaveSnapshot(_ context.Context, _ types.Snapshot) error { return nil }
func (s *NoopStore) Close() error                                           { return nil }

// NewStore creates the appropriate store based on configuration
func NewStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Store, error) {
	switch cfg.StoreBackend {
	case config.StoreFile:
		logger.Info().Str("path", cfg.StoreFile).Msg("file store initialized")
		return NewFileStore(cfg.StoreFile), nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.RedisAddr).Str("key", cfg.RedisKey).Msg("redis store initialized")
		return NewRedisStore(client, cfg.RedisKey), nil

	case config.StoreDynamoDB:
		dcfg := LoadDynamoConfig()
		if dcfg.Mode == DynamoModeNone {
			return nil, fmt.Errorf("STORE_BACKEND=dynamodb requires DYNAMO_MODE local or aws")
		}
		return NewDynamoDBStore(ctx, dcfg, logger)

	default:
		logger.Info().Msg("persistence disabled (STORE_BACKEND=none)")
		return NewNoopStore(), nil
	}
}
