package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/engine"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 将教务系统导出的 iCalendar (RFC 5545) 课表转换为 ScheduleSnapshot。
//
//   - SUMMARY 为课程名，DESCRIPTION 为任课教师，LOCATION 为教室
//   - DTSTART/DTEND 经节次时间表映射为节次区间
//   - RRULE + EXDATE 由 rrule-go 展开，换算为上课周次
//   - 同名同教师的事件合并为一门课程；同星期同节次同教室的事件合并周次
// ─────────────────────────────────────────────────────────────

const icsMaxFileSize = 5 * 1024 * 1024 // 5MB

var (
	ErrICSParseFailed = errors.New("ICS 格式解析失败")
	ErrICSEmpty       = errors.New("ICS 中没有可识别的课程")
	ErrICSFetchFailed = errors.New("获取 ICS 失败")
)

// ICSParseOptions 解析参数
type ICSParseOptions struct {
	SemesterStart time.Time // 第 1 周第 1 天
	TotalWeeks    int
	Slots         engine.SlotTable
	Location      *time.Location
}

// ICSParseReport 解析统计
type ICSParseReport struct {
	Events  int // VEVENT 总数
	Skipped int // 无法映射到节次或周次而丢弃的事件
}

// parsedCourseEvent ICS 解析中间结构
type parsedCourseEvent struct {
	Name         string
	Teacher      string
	Room         string
	Day          engine.Weekday
	StartSection int
	EndSection   int
	Weeks        []int
}

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSFetchFailed, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrICSFetchFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d", ErrICSFetchFailed, resp.StatusCode)
	}
	// 限制响应体大小，防止返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseICS 解析 ICS 内容并转为课表快照
func ParseICS(reader io.Reader, opts ICSParseOptions) (*engine.ScheduleSnapshot, ICSParseReport, error) {
	var report ICSParseReport

	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, report, fmt.Errorf("%w: %v", ErrICSParseFailed, err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	y, m, d := opts.SemesterStart.Date()
	semesterStart := time.Date(y, m, d, 0, 0, 0, 0, loc)

	// 阶段 1: 解析所有 VEVENT
	var events []parsedCourseEvent
	for _, comp := range cal.Events() {
		report.Events++
		evt, ok := parseVEvent(comp, semesterStart, opts, loc)
		if !ok {
			report.Skipped++
			continue
		}
		events = append(events, evt)
	}

	// 阶段 2: 按课程合并
	courses := mergeEvents(events)
	if len(courses) == 0 {
		return nil, report, ErrICSEmpty
	}

	return engine.NewScheduleSnapshot(semesterStart, courses), report, nil
}

// parseVEvent 解析单个 VEVENT 组件
func parseVEvent(evt *ics.VEvent, semesterStart time.Time, opts ICSParseOptions, loc *time.Location) (parsedCourseEvent, bool) {
	name := propertyText(evt, ics.ComponentPropertySummary)
	if name == "" {
		return parsedCourseEvent{}, false
	}

	dtStart, err := parseICSDateTime(evt.GetProperty(ics.ComponentPropertyDtStart), loc)
	if err != nil {
		return parsedCourseEvent{}, false
	}
	dtEnd, err := parseICSDateTime(evt.GetProperty(ics.ComponentPropertyDtEnd), loc)
	if err != nil || !dtEnd.After(dtStart) {
		return parsedCourseEvent{}, false
	}

	startClock := engine.Clock{Hour: dtStart.Hour(), Minute: dtStart.Minute()}
	endClock := engine.Clock{Hour: dtEnd.Hour(), Minute: dtEnd.Minute()}
	startSection, endSection, ok := opts.Slots.SectionsCovering(startClock, endClock)
	if !ok {
		return parsedCourseEvent{}, false
	}

	weeks := computeWeeks(evt, dtStart, semesterStart, opts.TotalWeeks, loc)
	if len(weeks) == 0 {
		return parsedCourseEvent{}, false
	}

	return parsedCourseEvent{
		Name:         name,
		Teacher:      parseTeacher(propertyText(evt, ics.ComponentPropertyDescription)),
		Room:         propertyText(evt, ics.ComponentPropertyLocation),
		Day:          engine.WeekdayOf(dtStart),
		StartSection: startSection,
		EndSection:   endSection,
		Weeks:        weeks,
	}, true
}

// computeWeeks 根据 RRULE / EXDATE / 单次事件计算周次列表
func computeWeeks(evt *ics.VEvent, dtStart, semesterStart time.Time, totalWeeks int, loc *time.Location) []int {
	rangeEnd := semesterStart.AddDate(0, 0, totalWeeks*7)

	var starts []time.Time
	if rruleProp := evt.GetProperty(ics.ComponentPropertyRrule); rruleProp != nil {
		r, err := rrule.StrToRRule(rruleProp.Value)
		if err != nil {
			return nil
		}
		r.DTStart(dtStart)

		var set rrule.Set
		set.RRule(r)
		for _, ex := range parseExDates(evt, loc) {
			set.ExDate(ex.In(dtStart.Location()))
		}
		starts = set.Between(semesterStart, rangeEnd, true)
	} else {
		starts = []time.Time{dtStart}
	}

	weeks := make([]int, 0, len(starts))
	for _, t := range starts {
		pos, err := engine.ResolveWeek(semesterStart, t, totalWeeks)
		if err != nil || pos.Status != engine.InSemester {
			continue
		}
		weeks = append(weeks, pos.Number)
	}
	return weeks
}

// parseExDates 解析事件中所有 EXDATE（可逗号分隔）
func parseExDates(evt *ics.VEvent, loc *time.Location) []time.Time {
	var out []time.Time
	for i := range evt.Properties {
		prop := &evt.Properties[i]
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			single := *prop
			single.Value = strings.TrimSpace(v)
			if t, err := parseICSDateTime(&single, loc); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// mergeEvents 按 (课程名, 教师) 合并课程，按 (星期, 节次, 教室) 合并周次
func mergeEvents(events []parsedCourseEvent) []engine.Course {
	type courseKey struct {
		Name    string
		Teacher string
	}
	type sessionKey struct {
		Day          engine.Weekday
		StartSection int
		EndSection   int
		Room         string
	}
	type courseAcc struct {
		course   engine.Course
		sessions map[sessionKey]int // → course.Sessions 下标
		weeks    map[sessionKey][]int
		order    []sessionKey
	}

	accs := make(map[courseKey]*courseAcc)
	var order []courseKey

	for _, e := range events {
		ck := courseKey{Name: e.Name, Teacher: e.Teacher}
		acc, ok := accs[ck]
		if !ok {
			acc = &courseAcc{
				course:   engine.Course{Name: e.Name, Teacher: optional(e.Teacher)},
				sessions: make(map[sessionKey]int),
				weeks:    make(map[sessionKey][]int),
			}
			accs[ck] = acc
			order = append(order, ck)
		}
		sk := sessionKey{Day: e.Day, StartSection: e.StartSection, EndSection: e.EndSection, Room: e.Room}
		if _, seen := acc.weeks[sk]; !seen {
			acc.order = append(acc.order, sk)
		}
		acc.weeks[sk] = append(acc.weeks[sk], e.Weeks...)
	}

	courses := make([]engine.Course, 0, len(order))
	for _, ck := range order {
		acc := accs[ck]
		for _, sk := range acc.order {
			acc.course.Sessions = append(acc.course.Sessions,
				engine.NewSession(sk.Day, sk.StartSection, sk.EndSection, acc.weeks[sk], optional(sk.Room)))
		}
		courses = append(courses, acc.course)
	}
	return courses
}

// ── 辅助函数 ──

func propertyText(evt *ics.VEvent, name ics.ComponentProperty) string {
	p := evt.GetProperty(name)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(icsTextUnescaper.Replace(p.Value))
}

var icsTextUnescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)

// parseTeacher 从 DESCRIPTION 提取教师，兼容 "教师：张三" 与 "张三"
func parseTeacher(desc string) string {
	line := strings.TrimSpace(strings.SplitN(desc, "\n", 2)[0])
	for _, prefix := range []string{"教师：", "教师:", "任课教师：", "任课教师:"} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return line
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseICSDateTime 解析日期时间属性，支持 UTC、TZID 与浮动时间
func parseICSDateTime(prop *ics.IANAProperty, loc *time.Location) (time.Time, error) {
	if prop == nil {
		return time.Time{}, errors.New("缺少日期属性")
	}
	val := strings.TrimSpace(prop.Value)

	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
		"20060102",
	}

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.EqualFold(k, "TZID") && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range formats {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
