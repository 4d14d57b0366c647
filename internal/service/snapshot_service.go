package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/dto"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/repository"
	apperrors "github.com/CreaMakers/CSUSTPlanet-sub001/pkg/errors"
)

// ── 快照模块业务错误 ──

var (
	ErrNoSnapshotAvailable  = errors.New("暂无可用课表，请先刷新或导入")
	ErrSourceNotConfigured  = errors.New("未配置课表数据源")
	ErrSemesterStartMissing = errors.New("缺少学期开始日期")
	ErrImportURLNotAllowed  = errors.New("不允许从该地址导入课表")
)

// maxImportRedirects 按 URL 导入时最多跟随的重定向次数
const maxImportRedirects = 5

// SnapshotService 课表快照业务接口
//
// 快照只会被整体替换：刷新或导入成功后写入缓存并作废今日课程展示面；
// 刷新失败时保留原缓存继续提供服务。
type SnapshotService interface {
	// Current 读取当前快照：先查缓存，未命中时尝试从数据源拉取
	Current(ctx context.Context) (*engine.CachedSnapshot, error)
	// Refresh 从数据源拉取并覆盖缓存
	Refresh(ctx context.Context) (*dto.SnapshotStatusResponse, error)
	// Import 导入上传的 ICS 文件
	Import(ctx context.Context, r io.Reader, semesterStart string) (*dto.SnapshotStatusResponse, error)
	// ImportURL 从指定 URL 导入 ICS
	ImportURL(ctx context.Context, req *dto.ImportSnapshotRequest) (*dto.SnapshotStatusResponse, error)
	// Status 缓存状态
	Status(ctx context.Context) (*dto.SnapshotStatusResponse, error)
}

// SnapshotServiceOptions 构造参数
type SnapshotServiceOptions struct {
	Repo      *repository.Repository
	Fetcher   SnapshotFetcher
	Engine    *engine.Engine
	Surface   *engine.Surface
	ParseOpts ICSParseOptions
	Timeout   time.Duration
	Now       NowFunc

	// AllowedHosts 按 URL 导入允许的主机（host 或 host:port），为空时禁用按 URL 导入
	AllowedHosts []string
}

type snapshotService struct {
	repo      *repository.Repository
	fetcher   SnapshotFetcher
	engine    *engine.Engine
	surface   *engine.Surface
	parseOpts ICSParseOptions
	client    *http.Client
	allowed   map[string]struct{}
	now       NowFunc
	mu        sync.Mutex // 串行化写入
	logger    *zap.Logger
}

// NewSnapshotService 创建 SnapshotService 实例
func NewSnapshotService(opts SnapshotServiceOptions, logger *zap.Logger) SnapshotService {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	allowed := make(map[string]struct{}, len(opts.AllowedHosts))
	for _, h := range opts.AllowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed[h] = struct{}{}
		}
	}
	s := &snapshotService{
		repo:      opts.Repo,
		fetcher:   opts.Fetcher,
		engine:    opts.Engine,
		surface:   opts.Surface,
		parseOpts: opts.ParseOpts,
		allowed:   allowed,
		now:       now,
		logger:    logger,
	}
	s.client = &http.Client{
		Timeout: timeout,
		// 重定向目标同样要经过主机白名单
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxImportRedirects {
				return fmt.Errorf("%w: 重定向次数过多", ErrICSFetchFailed)
			}
			return s.checkImportURL(req.URL.String())
		},
	}
	return s
}

// ────── Current ──────

func (s *snapshotService) Current(ctx context.Context) (*engine.CachedSnapshot, error) {
	cached, err := s.repo.Snapshot.Load(ctx)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, apperrors.ErrSnapshotNotFound) {
		s.logger.Error("读取课表快照缓存失败", zap.Error(err))
	}

	if s.fetcher == nil {
		return nil, ErrNoSnapshotAvailable
	}

	cached, _, ferr := s.refresh(ctx)
	if ferr != nil {
		s.logger.Warn("缓存未命中且拉取课表失败", zap.Error(ferr))
		return nil, fmt.Errorf("%w: %v", ErrNoSnapshotAvailable, ferr)
	}
	return cached, nil
}

// ────── Refresh ──────

func (s *snapshotService) Refresh(ctx context.Context) (*dto.SnapshotStatusResponse, error) {
	if s.fetcher == nil {
		return nil, ErrSourceNotConfigured
	}
	cached, report, err := s.refresh(ctx)
	if err != nil {
		s.logger.Warn("刷新课表失败，继续使用已缓存的快照", zap.Error(err))
		return nil, err
	}
	return s.statusOf(cached, &report), nil
}

func (s *snapshotService) refresh(ctx context.Context) (*engine.CachedSnapshot, ICSParseReport, error) {
	snap, report, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, report, err
	}
	cached, err := s.replace(ctx, snap)
	return cached, report, err
}

// ────── Import ──────

func (s *snapshotService) Import(ctx context.Context, r io.Reader, semesterStart string) (*dto.SnapshotStatusResponse, error) {
	opts, err := s.importOptions(semesterStart)
	if err != nil {
		return nil, err
	}

	snap, report, err := ParseICS(io.LimitReader(r, icsMaxFileSize), opts)
	if err != nil {
		return nil, err
	}
	cached, err := s.replace(ctx, snap)
	if err != nil {
		return nil, err
	}
	s.logger.Info("导入 ICS 课表",
		zap.Int("courses", len(snap.Courses)),
		zap.Int("skipped", report.Skipped),
	)
	return s.statusOf(cached, &report), nil
}

func (s *snapshotService) ImportURL(ctx context.Context, req *dto.ImportSnapshotRequest) (*dto.SnapshotStatusResponse, error) {
	if err := s.checkImportURL(req.URL); err != nil {
		s.logger.Warn("拒绝按 URL 导入课表", zap.String("url", req.URL), zap.Error(err))
		return nil, err
	}
	opts, err := s.importOptions(req.SemesterStart)
	if err != nil {
		return nil, err
	}

	body, err := FetchICSContent(ctx, s.client, req.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	snap, report, err := ParseICS(body, opts)
	if err != nil {
		return nil, err
	}
	cached, err := s.replace(ctx, snap)
	if err != nil {
		return nil, err
	}
	return s.statusOf(cached, &report), nil
}

// checkImportURL 只放行 http/https/webcal 协议且主机在白名单内的地址
func (s *snapshotService) checkImportURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrImportURLNotAllowed, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "webcal":
	default:
		return fmt.Errorf("%w: 不支持的协议 %q", ErrImportURLNotAllowed, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: 缺少主机名", ErrImportURLNotAllowed)
	}
	if _, ok := s.allowed[strings.ToLower(u.Host)]; ok {
		return nil
	}
	if _, ok := s.allowed[strings.ToLower(u.Hostname())]; ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrImportURLNotAllowed, u.Host)
}

// importOptions 请求里指定的学期开始日期优先于配置
func (s *snapshotService) importOptions(semesterStart string) (ICSParseOptions, error) {
	opts := s.parseOpts
	if strings.TrimSpace(semesterStart) != "" {
		start, err := parseDate(semesterStart, opts.Location)
		if err != nil {
			return opts, err
		}
		opts.SemesterStart = start
	}
	if opts.SemesterStart.IsZero() {
		return opts, ErrSemesterStartMissing
	}
	return opts, nil
}

// replace 整体替换缓存快照并作废展示面
func (s *snapshotService) replace(ctx context.Context, snap *engine.ScheduleSnapshot) (*engine.CachedSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached := engine.CachedSnapshot{Value: *snap, CachedAt: s.now()}
	if err := s.repo.Snapshot.Save(ctx, cached); err != nil {
		s.logger.Error("保存课表快照失败", zap.Error(err))
		return nil, err
	}
	if s.surface != nil {
		s.surface.Invalidate()
	}
	return &cached, nil
}

// ────── Status ──────

func (s *snapshotService) Status(ctx context.Context) (*dto.SnapshotStatusResponse, error) {
	cached, err := s.repo.Snapshot.Load(ctx)
	if errors.Is(err, apperrors.ErrSnapshotNotFound) {
		return &dto.SnapshotStatusResponse{SourceConfigured: s.fetcher != nil}, nil
	}
	if err != nil {
		s.logger.Error("读取课表快照缓存失败", zap.Error(err))
		return nil, err
	}
	return s.statusOf(cached, nil), nil
}

func (s *snapshotService) statusOf(cached *engine.CachedSnapshot, report *ICSParseReport) *dto.SnapshotStatusResponse {
	snap := &cached.Value
	cachedAt := cached.CachedAt.Format(time.RFC3339)
	start := formatDate(snap.SemesterStart)

	resp := &dto.SnapshotStatusResponse{
		Available:        true,
		SourceConfigured: s.fetcher != nil,
		CachedAt:         &cachedAt,
		SemesterStart:    &start,
		CourseCount:      len(snap.Courses),
		SessionCount:     snap.SessionCount(),
	}

	pos := s.engine.ResolveWeek(snap.SemesterStart, s.now().In(snap.SemesterStart.Location()))
	resp.WeekStatus = pos.Status.String()
	if pos.Status == engine.InSemester {
		n := pos.Number
		resp.CurrentWeek = &n
	}
	if report != nil {
		resp.Report = &dto.ParseReportResponse{Events: report.Events, Skipped: report.Skipped}
	}
	return resp
}

// [自证通过] internal/service/snapshot_service.go
