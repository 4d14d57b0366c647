package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/dto"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
)

// ── 测试辅助 ──

func setupTestScheduleService(t *testing.T, snapshots SnapshotService, clock NowFunc) ScheduleService {
	t.Helper()
	return NewScheduleService(ScheduleServiceOptions{
		Snapshots:          snapshots,
		Engine:             setupTestEngine(t),
		Surface:            engine.NewSurface(),
		Location:           testLoc,
		Palette:            engine.DefaultPalette,
		DefaultColumnWidth: 50,
		MaxRefreshPoints:   8,
		Now:                clock,
	}, zap.NewNop())
}

// ── GetWeek 测试 ──

func TestScheduleService_GetWeek(t *testing.T) {
	svc := setupTestScheduleService(t, cachedSnapshotService(testSnapshot()), fixedClock(at(2025, 2, 24, 7, 0)))

	resp, err := svc.GetWeek(context.Background(), &dto.WeekQuery{Date: "2025-03-03"})
	if err != nil {
		t.Fatalf("GetWeek 失败: %v", err)
	}
	if resp.Week == nil || *resp.Week != 2 || resp.Status != "in_semester" {
		t.Errorf("2025-03-03 期望第 2 周，实际 %+v", resp)
	}

	resp, err = svc.GetWeek(context.Background(), &dto.WeekQuery{Date: "2025-02-20"})
	if err != nil {
		t.Fatalf("GetWeek 失败: %v", err)
	}
	if resp.Week != nil || resp.Status != "before_semester" || resp.ClampedWeek != 1 {
		t.Errorf("开学前期望 week=nil clamped=1，实际 %+v", resp)
	}
}

func TestScheduleService_GetWeek_DefaultsToClock(t *testing.T) {
	svc := setupTestScheduleService(t, cachedSnapshotService(testSnapshot()), fixedClock(at(2025, 3, 12, 12, 0)))

	resp, err := svc.GetWeek(context.Background(), &dto.WeekQuery{})
	if err != nil {
		t.Fatalf("GetWeek 失败: %v", err)
	}
	if resp.Date != "2025-03-12" || resp.Week == nil || *resp.Week != 3 {
		t.Errorf("期望按时钟取 2025-03-12 第 3 周，实际 %+v", resp)
	}
}

func TestScheduleService_GetWeek_InvalidDate(t *testing.T) {
	svc := setupTestScheduleService(t, cachedSnapshotService(testSnapshot()), fixedClock(at(2025, 2, 24, 7, 0)))

	if _, err := svc.GetWeek(context.Background(), &dto.WeekQuery{Date: "03/03"}); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("期望 ErrInvalidDate，实际: %v", err)
	}
}

func TestScheduleService_NoSnapshot(t *testing.T) {
	svc := setupTestScheduleService(t, &mockSnapshotService{currentErr: ErrNoSnapshotAvailable}, fixedClock(at(2025, 2, 24, 7, 0)))

	if _, err := svc.GetAgenda(context.Background(), &dto.AgendaQuery{}); !errors.Is(err, ErrNoSnapshotAvailable) {
		t.Errorf("期望 ErrNoSnapshotAvailable，实际: %v", err)
	}
}

// ── GetAgenda 测试 ──

func TestScheduleService_GetAgenda(t *testing.T) {
	svc := setupTestScheduleService(t, cachedSnapshotService(testSnapshot()), fixedClock(at(2025, 2, 24, 7, 0)))

	resp, err := svc.GetAgenda(context.Background(), &dto.AgendaQuery{
		Date: "2025-02-24",
		Now:  "2025-02-24T09:45:00+08:00",
	})
	if err != nil {
		t.Fatalf("GetAgenda 失败: %v", err)
	}
	if len(resp.Finished) != 1 || resp.Finished[0].CourseName != "高等数学" {
		t.Errorf("09:45 高等数学应已结束，实际 %+v", resp.Finished)
	}
	if resp.Current != nil {
		t.Errorf("09:45 不应有进行中课程，实际 %+v", resp.Current)
	}
	if len(resp.Upcoming) != 1 || resp.Upcoming[0].CourseName != "大学英语" {
		t.Errorf("大学英语应未开始，实际 %+v", resp.Upcoming)
	}
	if resp.Week == nil || *resp.Week != 1 {
		t.Errorf("期望第 1 周，实际 %v", resp.Week)
	}
	if resp.Finished[0].EndAt != "2025-02-24T09:40:00+08:00" {
		t.Errorf("结束时刻期望 09:40，实际 %s", resp.Finished[0].EndAt)
	}
}

func TestScheduleService_GetAgenda_InvalidNow(t *testing.T) {
	svc := setupTestScheduleService(t, cachedSnapshotService(testSnapshot()), fixedClock(at(2025, 2, 24, 7, 0)))

	if _, err := svc.GetAgenda(context.Background(), &dto.AgendaQuery{Now: "九点"}); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("期望 ErrInvalidTime，实际: %v", err)
	}
}

// ── GetToday 测试 ──

func TestScheduleService_GetToday_ValidUntil(t *testing.T) {
	clock := &movableClock{now: at(2025, 2, 24, 8, 30)}
	svc := setupTestScheduleService(t, cachedSnapshotService(testSnapshot()), clock.Now)

	resp, err := svc.GetToday(context.Background(), &dto.TodayQuery{})
	if err != nil {
		t.Fatalf("GetToday 失败: %v", err)
	}
	if resp.Current == nil || resp.Current.CourseName != "高等数学" {
		t.Fatalf("08:30 期望高等数学进行中，实际 %+v", resp.Current)
	}
	if resp.ValidUntil != "2025-02-24T09:40:00+08:00" {
		t.Errorf("valid_until 期望 09:40，实际 %s", resp.ValidUntil)
	}

	// 越过有效期后重新计算
	clock.Set(at(2025, 2, 24, 9, 41))
	resp, err = svc.GetToday(context.Background(), &dto.TodayQuery{})
	if err != nil {
		t.Fatalf("GetToday 失败: %v", err)
	}
	if resp.Current != nil || len(resp.Finished) != 1 {
		t.Errorf("09:41 高等数学应已结束，实际 current=%+v finished=%d", resp.Current, len(resp.Finished))
	}
	if resp.ValidUntil != "2025-02-24T15:40:00+08:00" {
		t.Errorf("valid_until 期望 15:40，实际 %s", resp.ValidUntil)
	}
}

func TestScheduleService_GetToday_ExplicitNow(t *testing.T) {
	svc := setupTestScheduleService(t, cachedSnapshotService(testSnapshot()), fixedClock(at(2025, 2, 24, 7, 0)))

	resp, err := svc.GetToday(context.Background(), &dto.TodayQuery{Now: "2025-02-25T10:00:00+08:00"})
	if err != nil {
		t.Fatalf("GetToday 失败: %v", err)
	}
	// 周二无课：只剩零点刷新
	if resp.ValidUntil != "2025-02-26T00:00:00+08:00" {
		t.Errorf("无课日 valid_until 期望次日零点，实际 %s", resp.ValidUntil)
	}
}

// ── GetGrid 测试 ──

func TestScheduleService_GetGrid(t *testing.T) {
	svc := setupTestScheduleService(t, cachedSnapshotService(testSnapshot()), fixedClock(at(2025, 2, 24, 7, 0)))

	resp, err := svc.GetGrid(context.Background(), &dto.GridQuery{Week: 1})
	if err != nil {
		t.Fatalf("GetGrid 失败: %v", err)
	}
	if len(resp.Days) != 7 || len(resp.TimeSlots) != 10 {
		t.Fatalf("期望 7 列 10 节，实际 %d 列 %d 节", len(resp.Days), len(resp.TimeSlots))
	}

	mon := resp.Days[0]
	if mon.DayOfWeek != 1 || mon.Date != "2025-02-24" {
		t.Errorf("第一列期望周一 2025-02-24，实际 %+v", mon)
	}
	if len(mon.Items) != 2 {
		t.Fatalf("周一期望 2 门课，实际 %d", len(mon.Items))
	}
	eng := mon.Items[1]
	if eng.CourseName != "大学英语" {
		t.Fatalf("周一第二门期望大学英语，实际 %s", eng.CourseName)
	}
	// Y = 4 * (70 + 4)，Height = 2*70 + 4
	if eng.Frame.Y != 296 || eng.Frame.Height != 144 {
		t.Errorf("大学英语布局不符: %+v", eng.Frame)
	}
	if eng.Color == "" || eng.Color == mon.Items[0].Color {
		t.Errorf("不同课程应分配不同颜色: %s / %s", mon.Items[0].Color, eng.Color)
	}
	if len(resp.Days[2].Items) != 1 {
		t.Errorf("周三期望 1 门课，实际 %d", len(resp.Days[2].Items))
	}
	if resp.Days[6].DayOfWeek != 7 || resp.Days[6].Date != "2025-02-23" {
		t.Errorf("学期首日为周日，最后一列期望 2025-02-23，实际 %+v", resp.Days[6])
	}
}

func TestScheduleService_GetGrid_ClampedWeek(t *testing.T) {
	svc := setupTestScheduleService(t, cachedSnapshotService(testSnapshot()), fixedClock(at(2025, 9, 1, 7, 0)))

	resp, err := svc.GetGrid(context.Background(), &dto.GridQuery{})
	if err != nil {
		t.Fatalf("GetGrid 失败: %v", err)
	}
	if resp.Week != 20 || resp.Status != "after_semester" {
		t.Errorf("学期结束后期望显示第 20 周，实际 week=%d status=%s", resp.Week, resp.Status)
	}
}

func TestScheduleService_GetGrid_InvalidWeek(t *testing.T) {
	svc := setupTestScheduleService(t, cachedSnapshotService(testSnapshot()), fixedClock(at(2025, 2, 24, 7, 0)))

	if _, err := svc.GetGrid(context.Background(), &dto.GridQuery{Week: 21}); !errors.Is(err, ErrInvalidWeek) {
		t.Errorf("期望 ErrInvalidWeek，实际: %v", err)
	}
}

// ── GetTimeline 测试 ──

func TestScheduleService_GetTimeline(t *testing.T) {
	svc := setupTestScheduleService(t, cachedSnapshotService(testSnapshot()), fixedClock(at(2025, 2, 24, 7, 0)))

	resp, err := svc.GetTimeline(context.Background(), &dto.TimelineQuery{Date: "2025-02-24"})
	if err != nil {
		t.Fatalf("GetTimeline 失败: %v", err)
	}
	want := []string{
		"2025-02-24T09:40:00+08:00",
		"2025-02-24T15:40:00+08:00",
		"2025-02-25T00:00:00+08:00",
	}
	if len(resp.Points) != len(want) {
		t.Fatalf("期望 %d 个刷新点，实际 %v", len(want), resp.Points)
	}
	for i := range want {
		if resp.Points[i] != want[i] {
			t.Errorf("第%d个刷新点期望 %s，实际 %s", i, want[i], resp.Points[i])
		}
	}

	zero := 0
	resp, _ = svc.GetTimeline(context.Background(), &dto.TimelineQuery{Date: "2025-02-24", MaxPoints: &zero})
	if len(resp.Points) != 1 {
		t.Errorf("max_points=0 时只应有零点，实际 %v", resp.Points)
	}
}
