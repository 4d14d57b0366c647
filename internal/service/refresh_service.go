package service

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const fallbackRefreshSpec = "@every 30m"

// Refresher 按 cron 表达式定时刷新课表快照
// 刷新失败只记录日志，缓存中的快照继续提供服务。
type Refresher struct {
	snapshots SnapshotService
	spec      string
	timeout   time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

// NewRefresher 创建定时刷新器
func NewRefresher(snapshots SnapshotService, spec string, timeout time.Duration, logger *zap.Logger) *Refresher {
	if timeout <= 0 {
		timeout = 2 * defaultFetchTimeout
	}
	return &Refresher{snapshots: snapshots, spec: spec, timeout: timeout, logger: logger}
}

// Start 注册定时任务并启动；表达式无效时回退为每 30 分钟
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runCtx, r.cancel = context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(r.spec, func() { r.RunOnce(r.runCtx) }); err != nil {
		r.logger.Warn("课表刷新 cron 表达式无效，回退为默认值",
			zap.String("spec", r.spec),
			zap.String("fallback", fallbackRefreshSpec),
			zap.Error(err),
		)
		c = cron.New()
		_, _ = c.AddFunc(fallbackRefreshSpec, func() { r.RunOnce(r.runCtx) })
	}
	c.Start()
	r.cron = c
	r.logger.Info("课表定时刷新已启动", zap.String("spec", r.spec))
}

// Stop 停止调度并等待正在执行的刷新结束
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	if r.cron != nil {
		done := r.cron.Stop()
		<-done.Done()
		r.cron = nil
	}
}

// RunOnce 执行一次刷新
func (r *Refresher) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	status, err := r.snapshots.Refresh(ctx)
	if err != nil {
		r.logger.Warn("定时刷新课表失败", zap.Error(err))
		return
	}
	r.logger.Info("定时刷新课表完成",
		zap.Int("courses", status.CourseCount),
		zap.Int("sessions", status.SessionCount),
	)
}
