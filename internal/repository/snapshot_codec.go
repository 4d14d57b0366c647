package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
)

const snapshotFormatVersion = 1

// ErrSnapshotCorrupt 缓存中的快照无法解析
var ErrSnapshotCorrupt = errors.New("课表快照数据损坏")

type snapshotEnvelope struct {
	Version  int                     `json:"version"`
	CachedAt time.Time               `json:"cached_at"`
	Snapshot engine.ScheduleSnapshot `json:"snapshot"`
}

// SnapshotCodec 快照序列化；解码时把学期开始日重新锚定到本地时区零点
type SnapshotCodec struct {
	loc *time.Location
}

// NewSnapshotCodec 创建编解码器，loc 为 nil 时使用 time.Local
func NewSnapshotCodec(loc *time.Location) *SnapshotCodec {
	if loc == nil {
		loc = time.Local
	}
	return &SnapshotCodec{loc: loc}
}

// Encode 编码为 JSON
func (c *SnapshotCodec) Encode(snapshot engine.CachedSnapshot) ([]byte, error) {
	return json.Marshal(snapshotEnvelope{
		Version:  snapshotFormatVersion,
		CachedAt: snapshot.CachedAt,
		Snapshot: snapshot.Value,
	})
}

// Decode 解码 JSON
func (c *SnapshotCodec) Decode(data []byte) (*engine.CachedSnapshot, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	if env.Version != snapshotFormatVersion {
		return nil, fmt.Errorf("%w: 不支持的版本 %d", ErrSnapshotCorrupt, env.Version)
	}

	// 按写入时的日历日取零点，避免时区偏移把学期开始日挪到前一天
	y, m, d := env.Snapshot.SemesterStart.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, c.loc)

	return &engine.CachedSnapshot{
		Value:    *engine.NewScheduleSnapshot(start, env.Snapshot.Courses),
		CachedAt: env.CachedAt.In(c.loc),
	}, nil
}
