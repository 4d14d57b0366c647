package engine

import (
	"errors"
	"time"
)

// ErrInvalidTotalWeeks 学期总周数必须为正（调用方配置错误）
var ErrInvalidTotalWeeks = errors.New("学期总周数必须大于 0")

// WeekStatus 目标日期相对学期的位置
type WeekStatus int

const (
	InSemester WeekStatus = iota
	BeforeSemester
	AfterSemester
)

// String 状态名，用于 API 输出
func (s WeekStatus) String() string {
	switch s {
	case InSemester:
		return "in_semester"
	case BeforeSemester:
		return "before_semester"
	case AfterSemester:
		return "after_semester"
	}
	return "unknown"
}

// WeekPosition 周次解析结果；仅在 InSemester 时 Number 有意义
// 每次查询现算，不缓存（跨零点或跨周即过期）。
type WeekPosition struct {
	Status WeekStatus
	Number int
}

// ResolveWeek 计算 target 所在的学期周次
//
// 两个日期都按各自时区的日历日比较，时刻不影响结果。
func ResolveWeek(semesterStart, target time.Time, totalWeeks int) (WeekPosition, error) {
	if totalWeeks <= 0 {
		return WeekPosition{}, ErrInvalidTotalWeeks
	}
	dayDiff := daysBetween(semesterStart, target)
	if dayDiff < 0 {
		return WeekPosition{Status: BeforeSemester}, nil
	}
	week := dayDiff/7 + 1
	if week > totalWeeks {
		return WeekPosition{Status: AfterSemester}, nil
	}
	return WeekPosition{Status: InSemester, Number: week}, nil
}

// clampWeek 学期外的周次夹到 [1, totalWeeks]
func clampWeek(pos WeekPosition, totalWeeks int) int {
	switch pos.Status {
	case BeforeSemester:
		return 1
	case AfterSemester:
		return totalWeeks
	}
	return pos.Number
}

// DateOf 第 week 周的 day 对应的日历日
// 学期首日不一定是周一，因此按与首日的星期差偏移。
func DateOf(semesterStart time.Time, week int, day Weekday) time.Time {
	start := startOfDay(semesterStart)
	offset := int(day) - int(WeekdayOf(start))
	if offset < 0 {
		offset += 7
	}
	return start.AddDate(0, 0, (week-1)*7+offset)
}

// startOfDay 当日零点（保留时区）
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween 两个日历日的天数差（b - a），与夏令时无关
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
