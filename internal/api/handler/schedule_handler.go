package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/dto"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/service"
	"github.com/CreaMakers/CSUSTPlanet-sub001/pkg/response"
)

// ScheduleHandler 课表查询 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// GetWeek 解析日期所在周次
// GET /api/v1/schedule/week?date=2025-03-03
func (h *ScheduleHandler) GetWeek(c *gin.Context) {
	var q dto.WeekQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	resp, err := h.scheduleSvc.GetWeek(c.Request.Context(), &q)
	if err != nil {
		handleQueryError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetAgenda 某日课程状态划分
// GET /api/v1/schedule/agenda?date=&now=
func (h *ScheduleHandler) GetAgenda(c *gin.Context) {
	var q dto.AgendaQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	resp, err := h.scheduleSvc.GetAgenda(c.Request.Context(), &q)
	if err != nil {
		handleQueryError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetToday 今日课程（小组件展示面）
// GET /api/v1/schedule/today
func (h *ScheduleHandler) GetToday(c *gin.Context) {
	var q dto.TodayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	resp, err := h.scheduleSvc.GetToday(c.Request.Context(), &q)
	if err != nil {
		handleQueryError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetGrid 周课表网格布局
// GET /api/v1/schedule/grid?week=&date=&column_width=
func (h *ScheduleHandler) GetGrid(c *gin.Context) {
	var q dto.GridQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	resp, err := h.scheduleSvc.GetGrid(c.Request.Context(), &q)
	if err != nil {
		handleQueryError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetTimeline 下一批刷新时刻
// GET /api/v1/schedule/timeline?date=&now=&max_points=
func (h *ScheduleHandler) GetTimeline(c *gin.Context) {
	var q dto.TimelineQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	resp, err := h.scheduleSvc.GetTimeline(c.Request.Context(), &q)
	if err != nil {
		handleQueryError(c, err)
		return
	}
	response.OK(c, resp)
}

// handleQueryError 查询类接口（含导出）的错误映射
func handleQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 20002, err.Error())
	case errors.Is(err, service.ErrInvalidTime):
		response.BadRequest(c, 20003, err.Error())
	case errors.Is(err, service.ErrInvalidWeek):
		response.BadRequest(c, 20004, err.Error())
	case errors.Is(err, service.ErrNoSnapshotAvailable):
		response.ServiceUnavailable(c, 21001, "暂无可用课表，请先刷新或导入")
	default:
		response.InternalError(c)
	}
}
