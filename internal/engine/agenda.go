package engine

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// DailyAgenda 某一天课程相对某时刻的划分结果
//
// Current 为按节次顺序遇到的第一门进行中课程；数据重叠导致同时有多门课进行中时，
// 其余进入 Concurrent，保证没有课程被丢弃。Skipped 为因节次越界被跳过的数量。
type DailyAgenda struct {
	Date       time.Time
	Finished   []Occurrence
	Current    *Occurrence
	Concurrent []Occurrence
	Upcoming   []Occurrence
	Skipped    int
}

// classifyMode 同日精细划分 / 他日整体划分
type classifyMode int

const (
	modeSameDay classifyMode = iota
	modeFutureDay
	modePastDay
)

func modeFor(date, now time.Time) classifyMode {
	diff := daysBetween(now.In(date.Location()), date)
	switch {
	case diff > 0:
		return modeFutureDay
	case diff < 0:
		return modePastDay
	}
	return modeSameDay
}

// Start 上课实例的绝对开始时刻
func (e *Engine) Start(o Occurrence) (time.Time, bool) {
	if o.Session == nil {
		return time.Time{}, false
	}
	start, _, ok := e.slots.Span(o.Date, o.Session.StartSection, o.Session.EndSection)
	return start, ok
}

// End 上课实例的绝对结束时刻
func (e *Engine) End(o Occurrence) (time.Time, bool) {
	if o.Session == nil {
		return time.Time{}, false
	}
	_, end, ok := e.slots.Span(o.Date, o.Session.StartSection, o.Session.EndSection)
	return end, ok
}

// Classify 将 date 当天的上课实例按 now 划分
//
//   - date 与 now 同一天：now >= end 已结束；start <= now < end 进行中；now < start 未开始
//   - date 晚于 now 所在日：全部未开始（未来的日子没有"进行中"）
//   - date 早于 now 所在日：全部已结束
//
// 节次越界的实例被跳过，不影响其余课程。
func (e *Engine) Classify(occurrences []Occurrence, date, now time.Time) DailyAgenda {
	agenda := DailyAgenda{
		Date:       startOfDay(date),
		Finished:   make([]Occurrence, 0),
		Concurrent: make([]Occurrence, 0),
		Upcoming:   make([]Occurrence, 0),
	}

	valid := make([]Occurrence, 0, len(occurrences))
	for _, o := range occurrences {
		if o.Session == nil || !e.slots.Contains(o.Session.StartSection, o.Session.EndSection) {
			agenda.Skipped++
			e.logSkipped(o)
			continue
		}
		// 实例须锚定在被划分的日期上，否则起止时刻会错位
		o.Date = agenda.Date
		valid = append(valid, o)
	}
	ordered := make([]Occurrence, len(valid))
	copy(ordered, valid)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Session.StartSection < ordered[j].Session.StartSection
	})

	switch modeFor(date, now) {
	case modeFutureDay:
		agenda.Upcoming = append(agenda.Upcoming, ordered...)
		return agenda
	case modePastDay:
		agenda.Finished = append(agenda.Finished, valid...)
		return agenda
	}

	// finished 保持输入顺序
	for _, o := range valid {
		if _, end, _ := e.slots.Span(o.Date, o.Session.StartSection, o.Session.EndSection); !now.Before(end) {
			agenda.Finished = append(agenda.Finished, o)
		}
	}

	for _, o := range ordered {
		start, end, _ := e.slots.Span(o.Date, o.Session.StartSection, o.Session.EndSection)
		switch {
		case !now.Before(end):
			// 已在上面按输入顺序收集
		case !now.Before(start):
			if agenda.Current == nil {
				cur := o
				agenda.Current = &cur
				continue
			}
			agenda.Concurrent = append(agenda.Concurrent, o)
		default:
			agenda.Upcoming = append(agenda.Upcoming, o)
		}
	}

	if len(agenda.Concurrent) > 0 {
		e.logger.Warn("同一时刻存在多门进行中的课程，仅取节次靠前者为当前课程",
			zap.String("date", agenda.Date.Format("2006-01-02")),
			zap.String("current", courseName(*agenda.Current)),
			zap.Int("concurrent", len(agenda.Concurrent)),
		)
	}

	return agenda
}

// Agenda 计算 date 当天相对 now 的课程划分
func (e *Engine) Agenda(snapshot *ScheduleSnapshot, date, now time.Time) DailyAgenda {
	return e.Classify(e.OccurrencesOn(snapshot, date), date, now)
}

func courseName(o Occurrence) string {
	if o.Course == nil {
		return ""
	}
	return o.Course.Name
}

func (e *Engine) logSkipped(o Occurrence) {
	fields := []zap.Field{
		zap.String("course", courseName(o)),
		zap.Int("slot_count", e.slots.Len()),
	}
	if o.Session != nil {
		fields = append(fields,
			zap.Int("start_section", o.Session.StartSection),
			zap.Int("end_section", o.Session.EndSection),
		)
	}
	e.logger.Debug("跳过节次越界的课程安排", fields...)
}
