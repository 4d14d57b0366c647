package service

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/dto"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/repository"
	apperrors "github.com/CreaMakers/CSUSTPlanet-sub001/pkg/errors"
)

// ── 测试数据 ──

var testLoc = time.FixedZone("CST", 8*3600)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, testLoc)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, testLoc)
}

func strPtr(s string) *string { return &s }

func fixedClock(t time.Time) NowFunc {
	return func() time.Time { return t }
}

// movableClock 可在测试中推进的时钟
type movableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// testSnapshot 2025-02-23（周日）开学：
// 高等数学 周一 1-2 节 1-3 周、周三 3-4 节 1-5 周；大学英语 周一 5-6 节 1,3,5 周
func testSnapshot() *engine.ScheduleSnapshot {
	return engine.NewScheduleSnapshot(day(2025, 2, 23), []engine.Course{
		{
			Name:    "高等数学",
			Teacher: strPtr("张老师"),
			Sessions: []engine.Session{
				engine.NewSession(engine.Monday, 1, 2, []int{1, 2, 3}, strPtr("金12-101")),
				engine.NewSession(engine.Wednesday, 3, 4, []int{1, 2, 3, 4, 5}, nil),
			},
		},
		{
			Name: "大学英语",
			Sessions: []engine.Session{
				engine.NewSession(engine.Monday, 5, 6, []int{1, 3, 5}, strPtr("文科楼A201")),
			},
		},
	})
}

func setupTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.DefaultConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("创建引擎失败: %v", err)
	}
	return e
}

func testParseOptions() ICSParseOptions {
	return ICSParseOptions{
		SemesterStart: day(2025, 2, 23),
		TotalWeeks:    20,
		Slots:         engine.DefaultSlotTable(),
		Location:      testLoc,
	}
}

// ── Mock SnapshotStore ──

type mockSnapshotStore struct {
	mu       sync.Mutex
	snapshot *engine.CachedSnapshot
	loadErr  error
	saveErr  error
	saves    int
}

func newMockSnapshotStore() *mockSnapshotStore {
	return &mockSnapshotStore{}
}

func (m *mockSnapshotStore) Load(_ context.Context) (*engine.CachedSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snapshot == nil {
		return nil, apperrors.ErrSnapshotNotFound
	}
	cp := *m.snapshot
	return &cp, nil
}

func (m *mockSnapshotStore) Save(_ context.Context, s engine.CachedSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snapshot = &s
	m.saves++
	return nil
}

// ── Mock SnapshotFetcher ──

type mockFetcher struct {
	snapshot *engine.ScheduleSnapshot
	report   ICSParseReport
	err      error
	calls    int32
}

func (m *mockFetcher) Fetch(_ context.Context) (*engine.ScheduleSnapshot, ICSParseReport, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.err != nil {
		return nil, m.report, m.err
	}
	return m.snapshot, m.report, nil
}

// ── Mock SnapshotService ──

type mockSnapshotService struct {
	current      *engine.CachedSnapshot
	currentErr   error
	refreshErr   error
	refreshCalls int32
}

func (m *mockSnapshotService) Current(_ context.Context) (*engine.CachedSnapshot, error) {
	if m.currentErr != nil {
		return nil, m.currentErr
	}
	return m.current, nil
}

func (m *mockSnapshotService) Refresh(_ context.Context) (*dto.SnapshotStatusResponse, error) {
	atomic.AddInt32(&m.refreshCalls, 1)
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return &dto.SnapshotStatusResponse{Available: true}, nil
}

func (m *mockSnapshotService) Import(_ context.Context, _ io.Reader, _ string) (*dto.SnapshotStatusResponse, error) {
	return &dto.SnapshotStatusResponse{Available: true}, nil
}

func (m *mockSnapshotService) ImportURL(_ context.Context, _ *dto.ImportSnapshotRequest) (*dto.SnapshotStatusResponse, error) {
	return &dto.SnapshotStatusResponse{Available: true}, nil
}

func (m *mockSnapshotService) Status(_ context.Context) (*dto.SnapshotStatusResponse, error) {
	return &dto.SnapshotStatusResponse{Available: m.current != nil}, nil
}

func cachedSnapshotService(snap *engine.ScheduleSnapshot) *mockSnapshotService {
	return &mockSnapshotService{current: &engine.CachedSnapshot{Value: *snap, CachedAt: at(2025, 2, 24, 7, 0)}}
}

// setupTestSnapshotService 组装 SnapshotService；store 为 nil 时使用内存缓存
func setupTestSnapshotService(t *testing.T, fetcher SnapshotFetcher, store repository.SnapshotStore, now time.Time) (SnapshotService, *engine.Surface) {
	t.Helper()
	if store == nil {
		store = repository.NewMemorySnapshotStore()
	}
	surface := engine.NewSurface()
	svc := NewSnapshotService(SnapshotServiceOptions{
		Repo:      repository.NewRepository(store),
		Fetcher:   fetcher,
		Engine:    setupTestEngine(t),
		Surface:   surface,
		ParseOpts: testParseOptions(),
		Now:       fixedClock(now),
	}, zap.NewNop())
	return svc, surface
}

// setupImportURLService 构造只放行指定主机的 SnapshotService
func setupImportURLService(t *testing.T, allowed ...string) SnapshotService {
	t.Helper()
	return NewSnapshotService(SnapshotServiceOptions{
		Repo:         setupTestRepo(),
		Engine:       setupTestEngine(t),
		Surface:      engine.NewSurface(),
		ParseOpts:    testParseOptions(),
		Now:          fixedClock(at(2025, 2, 24, 7, 0)),
		AllowedHosts: allowed,
	}, zap.NewNop())
}

func setupTestRepo() *repository.Repository {
	return repository.NewRepository(repository.NewMemorySnapshotStore())
}

func nopLogger() *zap.Logger { return zap.NewNop() }
