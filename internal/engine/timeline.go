package engine

import (
	"sort"
	"time"
)

// NextRefreshPoints 计算被动展示端（小组件、实时活动）需要重新计算的未来时刻
//
// 课程状态恰在每节课结束时翻转，因此取 date 当天各课程的结束时刻：
// 过滤出晚于 now 的，升序去重后截断到 maxPoints 个（maxPoints <= 0 时不取课程时刻）。
// 无论如何都会并入 now 之后的下一个零点，以便跨日后重新展开课程。
// date 不在学期内时只返回一个 now + OutOfSemesterRefresh 的远期时刻。
func (e *Engine) NextRefreshPoints(snapshot *ScheduleSnapshot, date, now time.Time, maxPoints int) []time.Time {
	if snapshot == nil {
		return []time.Time{now.Add(e.outOfSemesterRefresh)}
	}
	if pos := e.ResolveWeek(snapshot.SemesterStart, date); pos.Status != InSemester {
		return []time.Time{now.Add(e.outOfSemesterRefresh)}
	}

	if maxPoints < 0 {
		maxPoints = 0
	}
	points := make([]time.Time, 0, maxPoints+1)
	if maxPoints > 0 {
		for _, o := range e.OccurrencesOn(snapshot, date) {
			end, ok := e.End(o)
			if !ok || !end.After(now) {
				continue
			}
			points = append(points, end)
		}
		points = sortUnique(points)
		if len(points) > maxPoints {
			points = points[:maxPoints]
		}
	}

	midnight := startOfDay(now.In(date.Location())).AddDate(0, 0, 1)
	points = append(points, midnight)
	return sortUnique(points)
}

func sortUnique(points []time.Time) []time.Time {
	sort.Slice(points, func(i, j int) bool { return points[i].Before(points[j]) })
	out := points[:0]
	for i, p := range points {
		if i > 0 && p.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, p)
	}
	return out
}
