package engine

import "time"

// Weekday 星期（ISO 8601：1=周一 … 7=周日）
//
// 与 time.Weekday（0=周日）的映射固定，不依赖地区或日历设置。
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DisplayOrder 课表网格中各列的固定顺序（下标即列号）
var DisplayOrder = [7]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var displayIndex = func() map[Weekday]int {
	m := make(map[Weekday]int, len(DisplayOrder))
	for i, d := range DisplayOrder {
		m[d] = i
	}
	return m
}()

var weekdayNames = map[Weekday]string{
	Monday:    "周一",
	Tuesday:   "周二",
	Wednesday: "周三",
	Thursday:  "周四",
	Friday:    "周五",
	Saturday:  "周六",
	Sunday:    "周日",
}

// WeekdayFromISO 由 ISO 数字（1-7）构造
func WeekdayFromISO(n int) (Weekday, bool) {
	d := Weekday(n)
	return d, d.Valid()
}

// WeekdayFromTime 将 Go 的 time.Weekday 转为 ISO 星期
func WeekdayFromTime(wd time.Weekday) Weekday {
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// WeekdayOf 日期所在的星期（按 t 自身时区下的日历日）
func WeekdayOf(t time.Time) Weekday {
	return WeekdayFromTime(t.Weekday())
}

// Valid 是否为 1-7
func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

// DisplayIndex 在 DisplayOrder 中的列号
func (d Weekday) DisplayIndex() (int, bool) {
	i, ok := displayIndex[d]
	return i, ok
}

// String 中文名称
func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return "未知"
}
