package dto

// ImportSnapshotRequest 通过 URL 导入 ICS
type ImportSnapshotRequest struct {
	URL           string `json:"url"            binding:"required"`
	SemesterStart string `json:"semester_start"`
}

// ParseReportResponse ICS 解析统计
type ParseReportResponse struct {
	Events  int `json:"events"`
	Skipped int `json:"skipped"`
}

// SnapshotStatusResponse 缓存快照状态
type SnapshotStatusResponse struct {
	Available        bool                 `json:"available"`
	SourceConfigured bool                 `json:"source_configured"`
	CachedAt         *string              `json:"cached_at"`
	SemesterStart    *string              `json:"semester_start"`
	CourseCount      int                  `json:"course_count"`
	SessionCount     int                  `json:"session_count"`
	WeekStatus       string               `json:"week_status,omitempty"`
	CurrentWeek      *int                 `json:"current_week"`
	Report           *ParseReportResponse `json:"report,omitempty"`
}
