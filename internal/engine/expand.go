package engine

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// OccurrencesOn 列出 date 当天实际上课的全部 Session
//
// 规则：
//   - 学期外的日期没有任何上课实例
//   - 星期匹配且当周在 Session.Weeks 内才计入
//   - 按 StartSection 升序；同节次的多门课保留课程列表中的原始顺序
//
// 数据源不保证节次互斥，重叠不会报错。
func (e *Engine) OccurrencesOn(snapshot *ScheduleSnapshot, date time.Time) []Occurrence {
	result := make([]Occurrence, 0)
	if snapshot == nil {
		return result
	}

	week, ok := e.ResolveWeekOrNil(snapshot.SemesterStart, date)
	if !ok {
		return result
	}

	day := WeekdayOf(date)
	dayStart := startOfDay(date)

	for ci := range snapshot.Courses {
		course := &snapshot.Courses[ci]
		for si := range course.Sessions {
			session := &course.Sessions[si]
			if !session.Day.Valid() {
				e.logger.Debug("跳过星期无效的课程安排",
					zap.String("course", course.Name),
					zap.Int("day_of_week", int(session.Day)),
				)
				continue
			}
			if session.Day != day || !session.ActiveIn(week) {
				continue
			}
			result = append(result, Occurrence{
				Date:    dayStart,
				Course:  course,
				Session: session,
			})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Session.StartSection < result[j].Session.StartSection
	})
	return result
}

// WeekOccurrences 第 week 周按 DisplayOrder 排列的每日上课实例
func (e *Engine) WeekOccurrences(snapshot *ScheduleSnapshot, week int) [len(DisplayOrder)][]Occurrence {
	var out [len(DisplayOrder)][]Occurrence
	for i, day := range DisplayOrder {
		if snapshot == nil {
			out[i] = []Occurrence{}
			continue
		}
		out[i] = e.OccurrencesOn(snapshot, DateOf(snapshot.SemesterStart, week, day))
	}
	return out
}
