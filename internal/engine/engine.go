// Package engine 课表解析引擎
//
// 将按周重复的课程排布转为具体日期上的上课实例，判断任意时刻处于学期第几周，
// 并按给定时钟把当天课程划分为已结束 / 进行中 / 未开始。
// 引擎中所有操作均为纯函数：不读系统时钟、不做 I/O、不修改输入快照，
// 可被交互界面与小组件刷新进程并发调用。
package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTotalWeeks           = 20
	defaultOutOfSemesterRefresh = 12 * time.Hour
)

// ErrInvalidConfig 引擎配置错误
var ErrInvalidConfig = errors.New("课表引擎配置无效")

// Config 引擎配置
type Config struct {
	TotalWeeks           int
	Slots                SlotTable
	Grid                 GridMetrics
	OutOfSemesterRefresh time.Duration
}

// DefaultConfig 默认配置：20 周、长沙理工作息表、默认网格尺寸
func DefaultConfig() Config {
	return Config{
		TotalWeeks:           defaultTotalWeeks,
		Slots:                DefaultSlotTable(),
		Grid:                 DefaultGridMetrics,
		OutOfSemesterRefresh: defaultOutOfSemesterRefresh,
	}
}

// Engine 课表解析引擎；构造后只读
type Engine struct {
	totalWeeks           int
	slots                SlotTable
	grid                 GridMetrics
	outOfSemesterRefresh time.Duration
	logger               *zap.Logger
}

// New 校验配置并创建引擎
func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	if cfg.TotalWeeks <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, ErrInvalidTotalWeeks)
	}
	if cfg.Slots.Len() == 0 {
		return nil, fmt.Errorf("%w: 节次时间表为空", ErrInvalidConfig)
	}
	if cfg.Grid.SectionHeight <= 0 {
		return nil, fmt.Errorf("%w: section_height 必须大于 0", ErrInvalidConfig)
	}
	if cfg.OutOfSemesterRefresh <= 0 {
		cfg.OutOfSemesterRefresh = defaultOutOfSemesterRefresh
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		totalWeeks:           cfg.TotalWeeks,
		slots:                cfg.Slots,
		grid:                 cfg.Grid,
		outOfSemesterRefresh: cfg.OutOfSemesterRefresh,
		logger:               logger,
	}, nil
}

// TotalWeeks 学期总周数
func (e *Engine) TotalWeeks() int { return e.totalWeeks }

// Slots 节次时间表
func (e *Engine) Slots() SlotTable { return e.slots }

// Grid 网格尺寸常量
func (e *Engine) Grid() GridMetrics { return e.grid }

// ResolveWeek 解析周次（三态）
func (e *Engine) ResolveWeek(semesterStart, target time.Time) WeekPosition {
	// totalWeeks 已在 New 中校验，这里不会出错
	pos, _ := ResolveWeek(semesterStart, target, e.totalWeeks)
	return pos
}

// ResolveWeekClamped 总能返回可展示的周次：学期前为 1，学期后为最后一周
// 供课表网格使用。
func (e *Engine) ResolveWeekClamped(semesterStart, target time.Time) int {
	return clampWeek(e.ResolveWeek(semesterStart, target), e.totalWeeks)
}

// ResolveWeekOrNil 学期外返回 ok=false
// 供角标、状态展示等学期外需隐藏的场景使用。
func (e *Engine) ResolveWeekOrNil(semesterStart, target time.Time) (int, bool) {
	pos := e.ResolveWeek(semesterStart, target)
	if pos.Status != InSemester {
		return 0, false
	}
	return pos.Number, true
}
