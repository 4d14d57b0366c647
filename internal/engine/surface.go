package engine

import (
	"sync"
	"time"
)

// SurfaceState 展示端状态
//
//	Stale → Recomputing → Fresh(validUntil) → Stale（now 越过 validUntil 时）
type SurfaceState int

const (
	SurfaceStale SurfaceState = iota
	SurfaceRecomputing
	SurfaceFresh
)

// String 状态名
func (s SurfaceState) String() string {
	switch s {
	case SurfaceStale:
		return "stale"
	case SurfaceRecomputing:
		return "recomputing"
	case SurfaceFresh:
		return "fresh"
	}
	return "unknown"
}

// Surface 单个被动展示端（如某个小组件）的刷新状态
// 由调用方持有；引擎本身不保存任何状态。每次重算都从快照与当前时刻开始。
type Surface struct {
	mu         sync.Mutex
	state      SurfaceState
	validUntil time.Time
	agenda     DailyAgenda
	points     []time.Time
}

// NewSurface 新建展示端，初始为 Stale
func NewSurface() *Surface {
	return &Surface{state: SurfaceStale}
}

// State 返回 now 时刻的状态；Fresh 且 now >= validUntil 时转为 Stale
func (s *Surface) State(now time.Time) SurfaceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(now)
	return s.state
}

// BeginRecompute Stale → Recomputing；其他状态下返回 false
func (s *Surface) BeginRecompute(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(now)
	if s.state != SurfaceStale {
		return false
	}
	s.state = SurfaceRecomputing
	return true
}

// Complete Recomputing → Fresh，validUntil 取最早的刷新时刻
// 没有刷新时刻时退回 Stale。
func (s *Surface) Complete(agenda DailyAgenda, points []time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SurfaceRecomputing {
		return
	}
	if len(points) == 0 {
		s.state = SurfaceStale
		return
	}
	s.agenda = agenda
	s.points = append([]time.Time(nil), points...)
	s.validUntil = points[0]
	s.state = SurfaceFresh
}

// Invalidate 强制转为 Stale（快照被替换时调用）
func (s *Surface) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SurfaceStale
	s.validUntil = time.Time{}
}

// Current 最近一次计算的结果
func (s *Surface) Current() (DailyAgenda, []time.Time, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agenda, append([]time.Time(nil), s.points...), s.validUntil
}

func (s *Surface) expireLocked(now time.Time) {
	if s.state == SurfaceFresh && !now.Before(s.validUntil) {
		s.state = SurfaceStale
	}
}

// RefreshSurface 驱动一次展示端刷新：Fresh 时直接复用结果，否则按 now 当天重算
// 其他调用方正在重算时，本次结果直接返回，不写回展示端。
func (e *Engine) RefreshSurface(surface *Surface, snapshot *ScheduleSnapshot, now time.Time, maxPoints int) (DailyAgenda, []time.Time) {
	if surface.State(now) == SurfaceFresh {
		agenda, points, _ := surface.Current()
		return agenda, points
	}

	owner := surface.BeginRecompute(now)
	agenda := e.Agenda(snapshot, now, now)
	points := e.NextRefreshPoints(snapshot, now, now, maxPoints)
	if owner {
		surface.Complete(agenda, points)
	}
	return agenda, points
}
