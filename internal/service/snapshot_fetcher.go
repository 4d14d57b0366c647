package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
)

const defaultFetchTimeout = 30 * time.Second

// SnapshotFetcher 课表数据源
type SnapshotFetcher interface {
	Fetch(ctx context.Context) (*engine.ScheduleSnapshot, ICSParseReport, error)
}

type icsFetcher struct {
	url    string
	opts   ICSParseOptions
	client *http.Client
	logger *zap.Logger
}

// NewICSFetcher 创建 ICS 订阅数据源
func NewICSFetcher(url string, opts ICSParseOptions, timeout time.Duration, logger *zap.Logger) SnapshotFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &icsFetcher{
		url:    url,
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (f *icsFetcher) Fetch(ctx context.Context) (*engine.ScheduleSnapshot, ICSParseReport, error) {
	body, err := FetchICSContent(ctx, f.client, f.url)
	if err != nil {
		return nil, ICSParseReport{}, err
	}
	defer body.Close()

	snap, report, err := ParseICS(body, f.opts)
	if err != nil {
		return nil, report, err
	}
	f.logger.Info("ICS 课表拉取完成",
		zap.Int("events", report.Events),
		zap.Int("skipped", report.Skipped),
		zap.Int("courses", len(snap.Courses)),
	)
	return snap, report, nil
}
