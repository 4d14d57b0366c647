package dto

// ── 课表查询请求 ──
// date 为 YYYY-MM-DD，now 为 RFC3339；缺省时取服务端当前时间（引擎时区）

// WeekQuery 周次查询
type WeekQuery struct {
	Date string `form:"date"`
}

// AgendaQuery 某日课程状态查询
type AgendaQuery struct {
	Date string `form:"date"`
	Now  string `form:"now"`
}

// TodayQuery 今日课程（小组件）查询
type TodayQuery struct {
	Now string `form:"now"`
}

// GridQuery 周课表网格查询
type GridQuery struct {
	Week        int     `form:"week"         binding:"omitempty,min=1"`
	Date        string  `form:"date"`
	ColumnWidth float64 `form:"column_width" binding:"omitempty,gt=0"`
}

// TimelineQuery 刷新时间线查询
type TimelineQuery struct {
	Date      string `form:"date"`
	Now       string `form:"now"`
	MaxPoints *int   `form:"max_points" binding:"omitempty,min=0,max=64"`
}

// ExportWeekQuery 导出周课表
type ExportWeekQuery struct {
	Week int    `form:"week" binding:"omitempty,min=1"`
	Date string `form:"date"`
}

// ── 响应 ──

// WeekResponse 周次解析结果
type WeekResponse struct {
	Date          string `json:"date"`
	SemesterStart string `json:"semester_start"`
	Status        string `json:"status"`         // in_semester | before_semester | after_semester
	Week          *int   `json:"week"`           // 学期外为 null
	ClampedWeek   int    `json:"clamped_week"`   // 网格展示用
	TotalWeeks    int    `json:"total_weeks"`
}

// OccurrenceResponse 某日的一次上课
type OccurrenceResponse struct {
	CourseName   string  `json:"course_name"`
	Teacher      *string `json:"teacher,omitempty"`
	GroupName    *string `json:"group_name,omitempty"`
	Room         *string `json:"room,omitempty"`
	DayOfWeek    int     `json:"day_of_week"`
	DayName      string  `json:"day_name"`
	StartSection int     `json:"start_section"`
	EndSection   int     `json:"end_section"`
	StartAt      string  `json:"start_at,omitempty"`
	EndAt        string  `json:"end_at,omitempty"`
	Weeks        []int   `json:"weeks"`
}

// AgendaResponse 某日课程状态划分
type AgendaResponse struct {
	Date       string               `json:"date"`
	Week       *int                 `json:"week"`
	Finished   []OccurrenceResponse `json:"finished"`
	Current    *OccurrenceResponse  `json:"current"`
	Concurrent []OccurrenceResponse `json:"concurrent"`
	Upcoming   []OccurrenceResponse `json:"upcoming"`
	Skipped    int                  `json:"skipped"`
}

// TodayResponse 今日课程（被动展示面），ValidUntil 前无需再次请求
type TodayResponse struct {
	AgendaResponse
	ValidUntil string `json:"valid_until"`
}

// GridFrameResponse 课程块位置
type GridFrameResponse struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GridItemResponse 网格中的课程块
type GridItemResponse struct {
	OccurrenceResponse
	Frame GridFrameResponse `json:"frame"`
	Color string            `json:"color"`
}

// GridDayResponse 网格中的一列
type GridDayResponse struct {
	DayOfWeek int                `json:"day_of_week"`
	DayName   string             `json:"day_name"`
	Date      string             `json:"date"`
	Items     []GridItemResponse `json:"items"`
}

// TimeSlotResponse 节次时间
type TimeSlotResponse struct {
	Index int    `json:"index"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// GridResponse 周课表网格
type GridResponse struct {
	Week          int                `json:"week"`
	Status        string             `json:"status"`
	ColumnWidth   float64            `json:"column_width"`
	ContentWidth  float64            `json:"content_width"`
	ContentHeight float64            `json:"content_height"`
	TimeSlots     []TimeSlotResponse `json:"time_slots"`
	Days          []GridDayResponse  `json:"days"`
}

// TimelineResponse 刷新时间线
type TimelineResponse struct {
	Date   string   `json:"date"`
	Now    string   `json:"now"`
	Points []string `json:"points"`
}

// [自证通过] internal/dto/schedule.go
