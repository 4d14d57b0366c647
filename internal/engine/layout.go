package engine

import "sort"

// GridMetrics 课表网格尺寸常量（单位与渲染端一致，通常为 pt）
type GridMetrics struct {
	SectionHeight   float64
	RowSpacing      float64
	ColSpacing      float64
	TimeColumnWidth float64
	HeaderHeight    float64
}

// DefaultGridMetrics 默认网格尺寸
var DefaultGridMetrics = GridMetrics{
	SectionHeight:   70,
	RowSpacing:      4,
	ColSpacing:      4,
	TimeColumnWidth: 40,
	HeaderHeight:    50,
}

// GridFrame 单个课程块在网格内容区中的位置与尺寸
// Y 从第 1 节顶部起算，不含表头高度。
type GridFrame struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Frame 纯几何计算：节次区间 + 星期 → 课程块位置
// sections 为节次总数；区间越界或星期无效时 ok=false。
func (m GridMetrics) Frame(s Session, columnWidth float64, sections int) (GridFrame, bool) {
	if s.StartSection < 1 || s.EndSection > sections || s.EndSection < s.StartSection {
		return GridFrame{}, false
	}
	dayIndex, ok := s.Day.DisplayIndex()
	if !ok {
		return GridFrame{}, false
	}
	spanned := float64(s.SectionCount())
	return GridFrame{
		X:      m.TimeColumnWidth + m.ColSpacing + float64(dayIndex)*(columnWidth+m.ColSpacing),
		Y:      float64(s.StartSection-1) * (m.SectionHeight + m.RowSpacing),
		Width:  columnWidth,
		Height: spanned*m.SectionHeight + (spanned-1)*m.RowSpacing,
	}, true
}

// ContentHeight 含表头的网格总高度
func (m GridMetrics) ContentHeight(sections int) float64 {
	if sections <= 0 {
		return m.HeaderHeight
	}
	n := float64(sections)
	return m.HeaderHeight + n*m.SectionHeight + (n-1)*m.RowSpacing
}

// ContentWidth 含时间列的网格总宽度
func (m GridMetrics) ContentWidth(columnWidth float64) float64 {
	n := float64(len(DisplayOrder))
	return m.TimeColumnWidth + m.ColSpacing + n*columnWidth + (n-1)*m.ColSpacing
}

// Layout 按引擎节次表计算课程块位置
func (e *Engine) Layout(s Session, columnWidth float64) (GridFrame, bool) {
	return e.grid.Frame(s, columnWidth, e.slots.Len())
}

// ── 课程配色 ──

// DefaultPalette 默认课程配色
var DefaultPalette = []string{
	"#5B8FF9", "#5AD8A6", "#F6BD16", "#E8684A", "#6DC8EC",
	"#9270CA", "#FF9D4D", "#269A99", "#FF99C3", "#7262FD",
}

// ColorMap 课程名 → 颜色；每个快照构建一次后复用
type ColorMap struct {
	colors map[string]string
}

// NewColorMap 课程名按字母序排序后从调色板轮流取色（首次出现时分配）
func NewColorMap(snapshot *ScheduleSnapshot, palette []string) *ColorMap {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	cm := &ColorMap{colors: make(map[string]string)}
	if snapshot == nil {
		return cm
	}

	names := make([]string, 0, len(snapshot.Courses))
	for i := range snapshot.Courses {
		names = append(names, snapshot.Courses[i].Name)
	}
	sort.Strings(names)

	next := 0
	for _, name := range names {
		if _, ok := cm.colors[name]; ok {
			continue
		}
		cm.colors[name] = palette[next%len(palette)]
		next++
	}
	return cm
}

// ColorFor 课程颜色
func (c *ColorMap) ColorFor(name string) (string, bool) {
	color, ok := c.colors[name]
	return color, ok
}

// Len 已分配颜色的课程数
func (c *ColorMap) Len() int { return len(c.colors) }
