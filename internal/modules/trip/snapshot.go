// README: Session snapshot persistence in Redis, with an in-memory variant.
package trip

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ride/internal/types"
)

type SnapshotStore interface {
	Save(ctx context.Context, v SessionView) error
	Load(ctx context.Context, id types.ID) (SessionView, error)
}

const snapshotKeyPrefix = "ride:session:"

type RedisSnapshotStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{redis: client, ttl: ttl}
}

func (s *RedisSnapshotStore) Save(ctx context.Context, v SessionView) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, snapshotKeyPrefix+string(v.ID), b, s.ttl).Err()
}

func (s *RedisSnapshotStore) Load(ctx context.Context, id types.ID) (SessionView, error) {
	b, err := s.redis.Get(ctx, snapshotKeyPrefix+string(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return SessionView{}, ErrNotFound
	}
	if err != nil {
		return SessionView{}, err
	}
	var v SessionView
	if err := json.Unmarshal(b, &v); err != nil {
		return SessionView{}, err
	}
	return v, nil
}

// MemorySnapshotStore stores JSON copies so loads never alias live session state.
type MemorySnapshotStore struct {
	mu    sync.Mutex
	items map[types.ID][]byte
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{items: make(map[types.ID][]byte)}
}

func (m *MemorySnapshotStore) Save(_ context.Context, v SessionView) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[v.ID] = b
	return nil
}

func (m *MemorySnapshotStore) Load(_ context.Context, id types.ID) (SessionView, error) {
	m.mu.Lock()
	b, ok := m.items[id]
	m.mu.Unlock()
	if !ok {
		return SessionView{}, ErrNotFound
	}
	var v SessionView
	err := json.Unmarshal(b, &v)
	return v, err
}
