package engine

import (
	"errors"
	"fmt"
	"time"
)

// ── 节次时间表 ──────────────────────────────────────────────
//
// 一天内按编号排列的固定节次（section），每节有起止墙钟时间。
// 表在进程内共享且不可变，通过配置注入，调用方不得自行硬编码。
// ─────────────────────────────────────────────────────────────

var (
	ErrInvalidClock     = errors.New("时间格式无效，应为 HH:MM")
	ErrInvalidSlotTable = errors.New("节次时间表无效")
)

// Clock 墙钟时间（不含日期与时区）
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock 解析 HH:MM 格式的时间
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MustClock 解析失败直接 panic，仅用于字面量
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes 自 00:00 起的分钟数
func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

// String 以 HH:MM 输出
func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// On 将墙钟时间合成到 date 所在的日历日上（使用 date 的时区）
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, date.Location())
}

// TimeSlot 单个节次
type TimeSlot struct {
	Index int // 1-based
	Start Clock
	End   Clock
}

// SlotTable 有序节次表
type SlotTable struct {
	slots []TimeSlot
}

// SlotSpec 节次配置项（HH:MM 字符串形式）
type SlotSpec struct {
	Start string
	End   string
}

// NewSlotTable 由配置构建节次表
// 要求：至少一节；每节 start < end；相邻节次不得交叠。
func NewSlotTable(specs []SlotSpec) (SlotTable, error) {
	if len(specs) == 0 {
		return SlotTable{}, fmt.Errorf("%w: 至少需要一个节次", ErrInvalidSlotTable)
	}
	slots := make([]TimeSlot, 0, len(specs))
	for i, sp := range specs {
		start, err := ParseClock(sp.Start)
		if err != nil {
			return SlotTable{}, fmt.Errorf("第%d节开始时间: %w", i+1, err)
		}
		end, err := ParseClock(sp.End)
		if err != nil {
			return SlotTable{}, fmt.Errorf("第%d节结束时间: %w", i+1, err)
		}
		if end.Minutes() <= start.Minutes() {
			return SlotTable{}, fmt.Errorf("%w: 第%d节结束时间必须晚于开始时间", ErrInvalidSlotTable, i+1)
		}
		if i > 0 && start.Minutes() < slots[i-1].End.Minutes() {
			return SlotTable{}, fmt.Errorf("%w: 第%d节与上一节重叠", ErrInvalidSlotTable, i+1)
		}
		slots = append(slots, TimeSlot{Index: i + 1, Start: start, End: end})
	}
	return SlotTable{slots: slots}, nil
}

// DefaultSlotSpecs 长沙理工大学作息时间（10 节）
var DefaultSlotSpecs = []SlotSpec{
	{Start: "08:00", End: "08:45"},
	{Start: "08:55", End: "09:40"},
	{Start: "10:10", End: "10:55"},
	{Start: "11:05", End: "11:50"},
	{Start: "14:00", End: "14:45"},
	{Start: "14:55", End: "15:40"},
	{Start: "16:10", End: "16:55"},
	{Start: "17:05", End: "17:50"},
	{Start: "19:30", End: "20:15"},
	{Start: "20:25", End: "21:10"},
}

// DefaultSlotTable 返回默认节次表
func DefaultSlotTable() SlotTable {
	table, err := NewSlotTable(DefaultSlotSpecs)
	if err != nil {
		panic(err)
	}
	return table
}

// Len 节次数量
func (t SlotTable) Len() int { return len(t.slots) }

// Slots 返回节次副本
func (t SlotTable) Slots() []TimeSlot {
	out := make([]TimeSlot, len(t.slots))
	copy(out, t.slots)
	return out
}

// Slot 按 1-based 节次号取节次
func (t SlotTable) Slot(section int) (TimeSlot, bool) {
	if section < 1 || section > len(t.slots) {
		return TimeSlot{}, false
	}
	return t.slots[section-1], true
}

// Contains 节次区间 [start, end] 是否完整落在表内
func (t SlotTable) Contains(startSection, endSection int) bool {
	return startSection >= 1 && endSection <= len(t.slots) && startSection <= endSection
}

// Span 计算节次区间在 date 当天的绝对起止时刻
func (t SlotTable) Span(date time.Time, startSection, endSection int) (time.Time, time.Time, bool) {
	if !t.Contains(startSection, endSection) {
		return time.Time{}, time.Time{}, false
	}
	return t.slots[startSection-1].Start.On(date), t.slots[endSection-1].End.On(date), true
}

// SectionsCovering 找出与 [start, end) 墙钟区间相交的节次范围
// 用于将 ICS 事件的起止时间映射回节次号。
func (t SlotTable) SectionsCovering(start, end Clock) (int, int, bool) {
	first, last := 0, 0
	for _, s := range t.slots {
		if s.End.Minutes() > start.Minutes() && s.Start.Minutes() < end.Minutes() {
			if first == 0 {
				first = s.Index
			}
			last = s.Index
		}
	}
	if first == 0 {
		return 0, 0, false
	}
	return first, last, true
}
