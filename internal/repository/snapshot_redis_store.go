package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
	apperrors "github.com/CreaMakers/CSUSTPlanet-sub001/pkg/errors"
)

// ByteCache 快照缓存所需的最小键值接口，由 pkg/redis.Client 实现
type ByteCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type redisSnapshotStore struct {
	cache  ByteCache
	codec  *SnapshotCodec
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSnapshotStore 创建 Redis 快照缓存
func NewRedisSnapshotStore(cache ByteCache, codec *SnapshotCodec, key string, ttl time.Duration, logger *zap.Logger) SnapshotStore {
	return &redisSnapshotStore{cache: cache, codec: codec, key: key, ttl: ttl, logger: logger}
}

func (s *redisSnapshotStore) Load(ctx context.Context) (*engine.CachedSnapshot, error) {
	data, err := s.cache.GetBytes(ctx, s.key)
	if errors.Is(err, apperrors.ErrCacheMiss) {
		return nil, apperrors.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}

	snap, err := s.codec.Decode(data)
	if err != nil {
		s.logger.Warn("Redis 中的课表快照无法解析", zap.String("key", s.key), zap.Error(err))
		return nil, err
	}
	return snap, nil
}

func (s *redisSnapshotStore) Save(ctx context.Context, snapshot engine.CachedSnapshot) error {
	data, err := s.codec.Encode(snapshot)
	if err != nil {
		return err
	}
	return s.cache.SetBytes(ctx, s.key, data, s.ttl)
}
