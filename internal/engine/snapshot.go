package engine

import (
	"sort"
	"time"
)

// Session 课程的一次周期性排课：星期 + 节次区间 + 上课周次 + 教室
// Session 只属于其所在的 Course，不单独存在。
type Session struct {
	Weeks        []int   `json:"weeks"`
	Day          Weekday `json:"day_of_week"`
	StartSection int     `json:"start_section"`
	EndSection   int     `json:"end_section"`
	Room         *string `json:"room,omitempty"`
}

// NewSession 构造 Session，周次去重并升序
func NewSession(day Weekday, startSection, endSection int, weeks []int, room *string) Session {
	return Session{
		Weeks:        normalizeWeeks(weeks),
		Day:          day,
		StartSection: startSection,
		EndSection:   endSection,
		Room:         room,
	}
}

// ActiveIn 该 Session 是否在第 week 周上课
func (s *Session) ActiveIn(week int) bool {
	for _, w := range s.Weeks {
		if w == week {
			return true
		}
	}
	return false
}

// SectionCount 占用节数；区间非法时为 0
func (s *Session) SectionCount() int {
	if s.EndSection < s.StartSection {
		return 0
	}
	return s.EndSection - s.StartSection + 1
}

// Course 课程
type Course struct {
	Name      string    `json:"name"`
	Teacher   *string   `json:"teacher,omitempty"`
	GroupName *string   `json:"group_name,omitempty"`
	Sessions  []Session `json:"sessions"`
}

// ScheduleSnapshot 一个学期的课表快照（一次查询结果，构造后不可变）
//
// SemesterStart 为第 1 周第 1 天的本地零点。
type ScheduleSnapshot struct {
	SemesterStart time.Time `json:"semester_start"`
	Courses       []Course  `json:"courses"`
}

// NewScheduleSnapshot 构造快照，SemesterStart 归一到当日零点
func NewScheduleSnapshot(semesterStart time.Time, courses []Course) *ScheduleSnapshot {
	return &ScheduleSnapshot{
		SemesterStart: startOfDay(semesterStart),
		Courses:       courses,
	}
}

// SessionCount 快照内全部 Session 数
func (s *ScheduleSnapshot) SessionCount() int {
	n := 0
	for i := range s.Courses {
		n += len(s.Courses[i].Sessions)
	}
	return n
}

// CachedSnapshot 带缓存时间戳的快照；只会被整体替换，不会原地修改
type CachedSnapshot struct {
	Value    ScheduleSnapshot `json:"value"`
	CachedAt time.Time        `json:"cached_at"`
}

// Occurrence 某个 Session 在具体日期上的一次实际上课
type Occurrence struct {
	Date    time.Time
	Course  *Course
	Session *Session
}

func normalizeWeeks(weeks []int) []int {
	if len(weeks) == 0 {
		return []int{}
	}
	seen := make(map[int]bool, len(weeks))
	out := make([]int, 0, len(weeks))
	for _, w := range weeks {
		if w < 1 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	sort.Ints(out)
	return out
}
