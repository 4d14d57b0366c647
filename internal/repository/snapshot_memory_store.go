package repository

import (
	"context"
	"sync"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
	apperrors "github.com/CreaMakers/CSUSTPlanet-sub001/pkg/errors"
)

type memorySnapshotStore struct {
	mu       sync.RWMutex
	snapshot *engine.CachedSnapshot
}

// NewMemorySnapshotStore 创建进程内快照缓存
func NewMemorySnapshotStore() SnapshotStore {
	return &memorySnapshotStore{}
}

func (s *memorySnapshotStore) Load(_ context.Context) (*engine.CachedSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, apperrors.ErrSnapshotNotFound
	}
	cp := *s.snapshot
	return &cp, nil
}

func (s *memorySnapshotStore) Save(_ context.Context, snapshot engine.CachedSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &snapshot
	return nil
}
