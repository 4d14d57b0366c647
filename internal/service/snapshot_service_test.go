package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/dto"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
)

// ── Current 测试 ──

func TestSnapshotService_Current_NoSourceNoCache(t *testing.T) {
	svc, _ := setupTestSnapshotService(t, nil, nil, at(2025, 2, 24, 7, 0))

	_, err := svc.Current(context.Background())
	if !errors.Is(err, ErrNoSnapshotAvailable) {
		t.Errorf("期望 ErrNoSnapshotAvailable，实际: %v", err)
	}
}

func TestSnapshotService_Current_FetchOnMiss(t *testing.T) {
	fetcher := &mockFetcher{snapshot: testSnapshot()}
	store := newMockSnapshotStore()
	now := at(2025, 2, 24, 7, 0)
	svc, _ := setupTestSnapshotService(t, fetcher, store, now)

	got, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("Current 失败: %v", err)
	}
	if !got.CachedAt.Equal(now) {
		t.Errorf("cached_at 期望为注入时钟 %s，实际 %s", now, got.CachedAt)
	}
	if store.saves != 1 {
		t.Errorf("未命中后应写入缓存，实际写入 %d 次", store.saves)
	}

	if _, err := svc.Current(context.Background()); err != nil {
		t.Fatalf("第二次 Current 失败: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("命中缓存时不应再次拉取，实际拉取 %d 次", fetcher.calls)
	}
}

func TestSnapshotService_Current_FetchFails(t *testing.T) {
	fetcher := &mockFetcher{err: ErrICSFetchFailed}
	svc, _ := setupTestSnapshotService(t, fetcher, nil, at(2025, 2, 24, 7, 0))

	_, err := svc.Current(context.Background())
	if !errors.Is(err, ErrNoSnapshotAvailable) {
		t.Errorf("期望 ErrNoSnapshotAvailable，实际: %v", err)
	}
}

func TestSnapshotService_Current_StoreErrorFallsBackToFetch(t *testing.T) {
	fetcher := &mockFetcher{snapshot: testSnapshot()}
	store := newMockSnapshotStore()
	store.loadErr = errors.New("redis: connection refused")
	svc, _ := setupTestSnapshotService(t, fetcher, store, at(2025, 2, 24, 7, 0))

	if _, err := svc.Current(context.Background()); err != nil {
		t.Errorf("缓存故障时应回退到数据源，实际: %v", err)
	}
}

// ── Refresh 测试 ──

func TestSnapshotService_Refresh_NotConfigured(t *testing.T) {
	svc, _ := setupTestSnapshotService(t, nil, nil, at(2025, 2, 24, 7, 0))

	if _, err := svc.Refresh(context.Background()); !errors.Is(err, ErrSourceNotConfigured) {
		t.Errorf("期望 ErrSourceNotConfigured，实际: %v", err)
	}
}

func TestSnapshotService_Refresh_FailureKeepsCache(t *testing.T) {
	store := newMockSnapshotStore()
	old := engine.CachedSnapshot{Value: *testSnapshot(), CachedAt: at(2025, 2, 20, 7, 0)}
	_ = store.Save(context.Background(), old)

	fetcher := &mockFetcher{err: ErrICSFetchFailed}
	svc, _ := setupTestSnapshotService(t, fetcher, store, at(2025, 2, 24, 7, 0))

	if _, err := svc.Refresh(context.Background()); !errors.Is(err, ErrICSFetchFailed) {
		t.Errorf("期望 ErrICSFetchFailed，实际: %v", err)
	}
	got, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("Current 失败: %v", err)
	}
	if !got.CachedAt.Equal(old.CachedAt) {
		t.Errorf("刷新失败后应保留原快照，实际 cached_at=%s", got.CachedAt)
	}
}

func TestSnapshotService_Refresh_InvalidatesSurface(t *testing.T) {
	fetcher := &mockFetcher{snapshot: testSnapshot(), report: ICSParseReport{Events: 3}}
	now := at(2025, 2, 24, 7, 0)
	svc, surface := setupTestSnapshotService(t, fetcher, nil, now)

	surface.BeginRecompute(now)
	surface.Complete(engine.DailyAgenda{}, []time.Time{at(2025, 2, 24, 9, 40)})
	if surface.State(now) != engine.SurfaceFresh {
		t.Fatal("前置条件：展示面应为 Fresh")
	}

	status, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh 失败: %v", err)
	}
	if surface.State(now) != engine.SurfaceStale {
		t.Error("快照替换后展示面应被作废")
	}
	if status.Report == nil || status.Report.Events != 3 {
		t.Errorf("刷新结果应包含解析统计，实际 %+v", status.Report)
	}
}

func TestSnapshotService_Refresh_SaveError(t *testing.T) {
	store := newMockSnapshotStore()
	store.saveErr = errors.New("disk full")
	fetcher := &mockFetcher{snapshot: testSnapshot()}
	svc, _ := setupTestSnapshotService(t, fetcher, store, at(2025, 2, 24, 7, 0))

	if _, err := svc.Refresh(context.Background()); err == nil {
		t.Error("保存失败应返回错误")
	}
}

// ── Import 测试 ──

func TestSnapshotService_Import(t *testing.T) {
	svc, _ := setupTestSnapshotService(t, nil, nil, at(2025, 2, 24, 7, 0))

	status, err := svc.Import(context.Background(), strings.NewReader(testICSContent), "2025-02-23")
	if err != nil {
		t.Fatalf("Import 失败: %v", err)
	}
	if !status.Available || status.CourseCount != 2 || status.SessionCount != 3 {
		t.Errorf("导入结果不符: %+v", status)
	}
	if status.CurrentWeek == nil || *status.CurrentWeek != 1 {
		t.Errorf("2025-02-24 期望第 1 周，实际 %v", status.CurrentWeek)
	}
	if status.SourceConfigured {
		t.Error("未配置数据源时 source_configured 应为 false")
	}
}

func TestSnapshotService_Import_InvalidDate(t *testing.T) {
	svc, _ := setupTestSnapshotService(t, nil, nil, at(2025, 2, 24, 7, 0))

	_, err := svc.Import(context.Background(), strings.NewReader(testICSContent), "2025/02/23")
	if !errors.Is(err, ErrInvalidDate) {
		t.Errorf("期望 ErrInvalidDate，实际: %v", err)
	}
}

func TestSnapshotService_Import_MissingSemesterStart(t *testing.T) {
	svc := NewSnapshotService(SnapshotServiceOptions{
		Repo:      setupTestRepo(),
		Engine:    setupTestEngine(t),
		ParseOpts: ICSParseOptions{TotalWeeks: 20, Slots: engine.DefaultSlotTable(), Location: testLoc},
		Now:       fixedClock(at(2025, 2, 24, 7, 0)),
	}, nopLogger())

	_, err := svc.Import(context.Background(), strings.NewReader(testICSContent), "")
	if !errors.Is(err, ErrSemesterStartMissing) {
		t.Errorf("期望 ErrSemesterStartMissing，实际: %v", err)
	}
}

func TestSnapshotService_ImportURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(testICSContent))
	}))
	defer srv.Close()

	svc := setupImportURLService(t, srv.Listener.Addr().String())
	status, err := svc.ImportURL(context.Background(), &dto.ImportSnapshotRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("ImportURL 失败: %v", err)
	}
	if status.CourseCount != 2 {
		t.Errorf("期望 2 门课程，实际 %d", status.CourseCount)
	}
}

func TestSnapshotService_ImportURL_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	svc := setupImportURLService(t, srv.Listener.Addr().String())
	_, err := svc.ImportURL(context.Background(), &dto.ImportSnapshotRequest{URL: srv.URL})
	if !errors.Is(err, ErrICSFetchFailed) {
		t.Errorf("期望 ErrICSFetchFailed，实际: %v", err)
	}
}

func TestSnapshotService_ImportURL_RejectsDisallowed(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(testICSContent))
	}))
	defer srv.Close()

	svc := setupImportURLService(t, "ics.example.edu")
	cases := []string{
		srv.URL,                          // 主机不在白名单
		"file:///etc/passwd",             // 非 http 协议
		"gopher://ics.example.edu/a.ics", // 主机合法但协议不支持
		"http:///a.ics",                  // 缺少主机
	}
	for _, raw := range cases {
		_, err := svc.ImportURL(context.Background(), &dto.ImportSnapshotRequest{URL: raw})
		if !errors.Is(err, ErrImportURLNotAllowed) {
			t.Errorf("%s 期望 ErrImportURLNotAllowed，实际: %v", raw, err)
		}
	}
	if hits.Load() != 0 {
		t.Errorf("被拒绝的地址不应发起请求，实际请求 %d 次", hits.Load())
	}

	// 未配置任何主机时禁用按 URL 导入
	svc = setupImportURLService(t)
	if _, err := svc.ImportURL(context.Background(), &dto.ImportSnapshotRequest{URL: srv.URL}); !errors.Is(err, ErrImportURLNotAllowed) {
		t.Errorf("空白名单期望 ErrImportURLNotAllowed，实际: %v", err)
	}
}

func TestSnapshotService_ImportURL_RedirectToDisallowedHost(t *testing.T) {
	inner := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testICSContent))
	}))
	defer inner.Close()
	outer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, inner.URL, http.StatusFound)
	}))
	defer outer.Close()

	svc := setupImportURLService(t, outer.Listener.Addr().String())
	_, err := svc.ImportURL(context.Background(), &dto.ImportSnapshotRequest{URL: outer.URL})
	if !errors.Is(err, ErrImportURLNotAllowed) {
		t.Errorf("重定向到白名单外主机期望 ErrImportURLNotAllowed，实际: %v", err)
	}
}

// ── Status 测试 ──

func TestSnapshotService_Status(t *testing.T) {
	fetcher := &mockFetcher{snapshot: testSnapshot()}
	svc, _ := setupTestSnapshotService(t, fetcher, nil, at(2025, 2, 20, 7, 0))

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status 失败: %v", err)
	}
	if status.Available || !status.SourceConfigured {
		t.Errorf("空缓存期望 available=false source_configured=true，实际 %+v", status)
	}

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh 失败: %v", err)
	}
	status, _ = svc.Status(context.Background())
	if !status.Available {
		t.Fatal("刷新后应可用")
	}
	if status.WeekStatus != "before_semester" || status.CurrentWeek != nil {
		t.Errorf("开学前期望 before_semester 且无周次，实际 %s %v", status.WeekStatus, status.CurrentWeek)
	}
	if *status.SemesterStart != "2025-02-23" {
		t.Errorf("学期开始日期望 2025-02-23，实际 %s", *status.SemesterStart)
	}
}
