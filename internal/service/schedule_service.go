package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/dto"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
)

const defaultColumnWidth = 48

// ScheduleService 课表查询业务接口
//
// 所有查询都基于当前缓存快照，由引擎纯计算得出；
// 未显式传入 now 时使用注入的时钟。
type ScheduleService interface {
	// GetWeek 解析日期所在周次
	GetWeek(ctx context.Context, q *dto.WeekQuery) (*dto.WeekResponse, error)
	// GetAgenda 某日课程相对某时刻的划分
	GetAgenda(ctx context.Context, q *dto.AgendaQuery) (*dto.AgendaResponse, error)
	// GetToday 今日课程（小组件展示面），结果在 valid_until 前保持不变
	GetToday(ctx context.Context, q *dto.TodayQuery) (*dto.TodayResponse, error)
	// GetGrid 周课表网格布局
	GetGrid(ctx context.Context, q *dto.GridQuery) (*dto.GridResponse, error)
	// GetTimeline 下一批刷新时刻
	GetTimeline(ctx context.Context, q *dto.TimelineQuery) (*dto.TimelineResponse, error)
}

// ScheduleServiceOptions 构造参数
type ScheduleServiceOptions struct {
	Snapshots          SnapshotService
	Engine             *engine.Engine
	Surface            *engine.Surface
	Location           *time.Location
	Palette            []string
	DefaultColumnWidth float64
	MaxRefreshPoints   int
	Now                NowFunc
}

type scheduleService struct {
	snapshots   SnapshotService
	engine      *engine.Engine
	surface     *engine.Surface
	loc         *time.Location
	palette     []string
	columnWidth float64
	maxPoints   int
	now         NowFunc
	logger      *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(opts ScheduleServiceOptions, logger *zap.Logger) ScheduleService {
	s := &scheduleService{
		snapshots:   opts.Snapshots,
		engine:      opts.Engine,
		surface:     opts.Surface,
		loc:         opts.Location,
		palette:     opts.Palette,
		columnWidth: opts.DefaultColumnWidth,
		maxPoints:   opts.MaxRefreshPoints,
		now:         opts.Now,
		logger:      logger,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.columnWidth <= 0 {
		s.columnWidth = defaultColumnWidth
	}
	if s.maxPoints <= 0 {
		s.maxPoints = 8
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.surface == nil {
		s.surface = engine.NewSurface()
	}
	return s
}

// ────── GetWeek ──────

func (s *scheduleService) GetWeek(ctx context.Context, q *dto.WeekQuery) (*dto.WeekResponse, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	date, err := resolveDate(q.Date, s.now(), s.loc)
	if err != nil {
		return nil, err
	}

	pos := s.engine.ResolveWeek(snap.SemesterStart, date)
	resp := &dto.WeekResponse{
		Date:          formatDate(date),
		SemesterStart: formatDate(snap.SemesterStart),
		Status:        pos.Status.String(),
		ClampedWeek:   s.engine.ResolveWeekClamped(snap.SemesterStart, date),
		TotalWeeks:    s.engine.TotalWeeks(),
	}
	if n, ok := s.engine.ResolveWeekOrNil(snap.SemesterStart, date); ok {
		resp.Week = &n
	}
	return resp, nil
}

// ────── GetAgenda ──────

func (s *scheduleService) GetAgenda(ctx context.Context, q *dto.AgendaQuery) (*dto.AgendaResponse, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now, err := resolveNow(q.Now, s.loc, s.now)
	if err != nil {
		return nil, err
	}
	date, err := resolveDate(q.Date, now, s.loc)
	if err != nil {
		return nil, err
	}

	agenda := s.engine.Agenda(snap, date, now)
	resp := s.toAgendaResponse(snap, agenda)
	return &resp, nil
}

// ────── GetToday ──────

func (s *scheduleService) GetToday(ctx context.Context, q *dto.TodayQuery) (*dto.TodayResponse, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var (
		agenda engine.DailyAgenda
		points []time.Time
	)
	if q.Now == "" {
		// 走共享展示面：有效期内直接复用结果
		agenda, points = s.engine.RefreshSurface(s.surface, snap, s.now().In(s.loc), s.maxPoints)
	} else {
		now, err := resolveNow(q.Now, s.loc, s.now)
		if err != nil {
			return nil, err
		}
		agenda = s.engine.Agenda(snap, now, now)
		points = s.engine.NextRefreshPoints(snap, now, now, s.maxPoints)
	}

	resp := &dto.TodayResponse{AgendaResponse: s.toAgendaResponse(snap, agenda)}
	if len(points) > 0 {
		resp.ValidUntil = points[0].Format(time.RFC3339)
	}
	return resp, nil
}

// ────── GetGrid ──────

func (s *scheduleService) GetGrid(ctx context.Context, q *dto.GridQuery) (*dto.GridResponse, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	week, status, err := s.pickWeek(snap, q.Week, q.Date)
	if err != nil {
		return nil, err
	}
	columnWidth := q.ColumnWidth
	if columnWidth <= 0 {
		columnWidth = s.columnWidth
	}

	grid := s.engine.Grid()
	slots := s.engine.Slots()
	resp := &dto.GridResponse{
		Week:          week,
		Status:        status,
		ColumnWidth:   columnWidth,
		ContentWidth:  grid.ContentWidth(columnWidth),
		ContentHeight: grid.ContentHeight(slots.Len()),
		TimeSlots:     toTimeSlotResponses(slots),
		Days:          make([]dto.GridDayResponse, 0, len(engine.DisplayOrder)),
	}

	colors := engine.NewColorMap(snap, s.palette)
	byDay := s.engine.WeekOccurrences(snap, week)
	for i, day := range engine.DisplayOrder {
		col := dto.GridDayResponse{
			DayOfWeek: int(day),
			DayName:   day.String(),
			Date:      formatDate(engine.DateOf(snap.SemesterStart, week, day)),
			Items:     []dto.GridItemResponse{},
		}
		for _, o := range byDay[i] {
			frame, ok := s.engine.Layout(*o.Session, columnWidth)
			if !ok {
				s.logger.Debug("课程节次越界，网格中跳过",
					zap.String("course", o.Course.Name),
					zap.Int("start_section", o.Session.StartSection),
					zap.Int("end_section", o.Session.EndSection),
				)
				continue
			}
			color, _ := colors.ColorFor(o.Course.Name)
			col.Items = append(col.Items, dto.GridItemResponse{
				OccurrenceResponse: s.toOccurrenceResponse(o),
				Frame: dto.GridFrameResponse{
					X: frame.X, Y: frame.Y, Width: frame.Width, Height: frame.Height,
				},
				Color: color,
			})
		}
		resp.Days = append(resp.Days, col)
	}
	return resp, nil
}

// pickWeek 显式周次优先；否则取日期（缺省今天）的截断周次
func (s *scheduleService) pickWeek(snap *engine.ScheduleSnapshot, week int, date string) (int, string, error) {
	if week > 0 {
		if week > s.engine.TotalWeeks() {
			return 0, "", fmt.Errorf("%w: %d", ErrInvalidWeek, week)
		}
		return week, engine.InSemester.String(), nil
	}
	d, err := resolveDate(date, s.now(), s.loc)
	if err != nil {
		return 0, "", err
	}
	pos := s.engine.ResolveWeek(snap.SemesterStart, d)
	return s.engine.ResolveWeekClamped(snap.SemesterStart, d), pos.Status.String(), nil
}

// ────── GetTimeline ──────

func (s *scheduleService) GetTimeline(ctx context.Context, q *dto.TimelineQuery) (*dto.TimelineResponse, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now, err := resolveNow(q.Now, s.loc, s.now)
	if err != nil {
		return nil, err
	}
	date, err := resolveDate(q.Date, now, s.loc)
	if err != nil {
		return nil, err
	}
	maxPoints := s.maxPoints
	if q.MaxPoints != nil {
		maxPoints = *q.MaxPoints
	}

	points := s.engine.NextRefreshPoints(snap, date, now, maxPoints)
	resp := &dto.TimelineResponse{
		Date:   formatDate(date),
		Now:    now.Format(time.RFC3339),
		Points: make([]string, 0, len(points)),
	}
	for _, p := range points {
		resp.Points = append(resp.Points, p.Format(time.RFC3339))
	}
	return resp, nil
}

// ── 辅助函数 ──

func (s *scheduleService) snapshot(ctx context.Context) (*engine.ScheduleSnapshot, error) {
	cached, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	return &cached.Value, nil
}

func (s *scheduleService) toAgendaResponse(snap *engine.ScheduleSnapshot, a engine.DailyAgenda) dto.AgendaResponse {
	resp := dto.AgendaResponse{
		Date:       formatDate(a.Date),
		Finished:   s.toOccurrenceResponses(a.Finished),
		Concurrent: s.toOccurrenceResponses(a.Concurrent),
		Upcoming:   s.toOccurrenceResponses(a.Upcoming),
		Skipped:    a.Skipped,
	}
	if a.Current != nil {
		cur := s.toOccurrenceResponse(*a.Current)
		resp.Current = &cur
	}
	if n, ok := s.engine.ResolveWeekOrNil(snap.SemesterStart, a.Date); ok {
		resp.Week = &n
	}
	return resp
}

func (s *scheduleService) toOccurrenceResponses(list []engine.Occurrence) []dto.OccurrenceResponse {
	out := make([]dto.OccurrenceResponse, 0, len(list))
	for _, o := range list {
		out = append(out, s.toOccurrenceResponse(o))
	}
	return out
}

func (s *scheduleService) toOccurrenceResponse(o engine.Occurrence) dto.OccurrenceResponse {
	return occurrenceResponse(s.engine, o)
}

func occurrenceResponse(e *engine.Engine, o engine.Occurrence) dto.OccurrenceResponse {
	resp := dto.OccurrenceResponse{}
	if o.Course != nil {
		resp.CourseName = o.Course.Name
		resp.Teacher = o.Course.Teacher
		resp.GroupName = o.Course.GroupName
	}
	if o.Session != nil {
		resp.Room = o.Session.Room
		resp.DayOfWeek = int(o.Session.Day)
		resp.DayName = o.Session.Day.String()
		resp.StartSection = o.Session.StartSection
		resp.EndSection = o.Session.EndSection
		resp.Weeks = o.Session.Weeks
	}
	if start, ok := e.Start(o); ok {
		resp.StartAt = start.Format(time.RFC3339)
	}
	if end, ok := e.End(o); ok {
		resp.EndAt = end.Format(time.RFC3339)
	}
	return resp
}

func toTimeSlotResponses(t engine.SlotTable) []dto.TimeSlotResponse {
	slots := t.Slots()
	out := make([]dto.TimeSlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, dto.TimeSlotResponse{
			Index: s.Index,
			Start: s.Start.String(),
			End:   s.End.String(),
		})
	}
	return out
}

// [自证通过] internal/service/schedule_service.go
