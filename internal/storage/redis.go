package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the snapshot as JSON under a single key
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore creates a store writing to key
func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) LoadSnapshot(ctx context.Context) (types.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("failed to get %s: %w", s.key, err)
	}

	var snapshot types.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return types.Snapshot{}, fmt.Errorf("failed to decode %s: %w", s.key, err)
	}
	return snapshot, nil
}

func (s *RedisStore) SaveSnapshot(ctx context.Context, snapshot types.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
