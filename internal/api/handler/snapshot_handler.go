package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/dto"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/service"
	"github.com/CreaMakers/CSUSTPlanet-sub001/pkg/response"
)

// SnapshotHandler 课表快照 HTTP 处理器
type SnapshotHandler struct {
	snapshotSvc service.SnapshotService
}

// NewSnapshotHandler 创建 SnapshotHandler
func NewSnapshotHandler(snapshotSvc service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshotSvc: snapshotSvc}
}

// GetStatus 缓存快照状态
// GET /api/v1/snapshot
func (h *SnapshotHandler) GetStatus(c *gin.Context) {
	resp, err := h.snapshotSvc.Status(c.Request.Context())
	if err != nil {
		handleSnapshotError(c, err)
		return
	}
	response.OK(c, resp)
}

// Refresh 从配置的数据源重新拉取
// POST /api/v1/snapshot/refresh
func (h *SnapshotHandler) Refresh(c *gin.Context) {
	resp, err := h.snapshotSvc.Refresh(c.Request.Context())
	if err != nil {
		handleSnapshotError(c, err)
		return
	}
	response.OK(c, resp)
}

// Import 导入 ICS 课表并替换当前快照
// POST /api/v1/snapshot/import
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"，可选 semester_start
//   - URL 导入: application/json, body={"url": "...", "semester_start": "..."}
func (h *SnapshotHandler) Import(c *gin.Context) {
	// 尝试文件上传方式
	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		resp, err := h.snapshotSvc.Import(c.Request.Context(), file, c.PostForm("semester_start"))
		if err != nil {
			handleSnapshotError(c, err)
			return
		}
		response.Created(c, resp)
		return
	}
	if isBodyTooLarge(err) {
		response.PayloadTooLarge(c, 21107, "上传文件过大")
		return
	}

	// 尝试 URL 方式
	var req dto.ImportSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isBodyTooLarge(err) {
			response.PayloadTooLarge(c, 21107, "请求体过大")
			return
		}
		// 也可能是纯 form 提交
		req.URL = c.PostForm("url")
		req.SemesterStart = c.PostForm("semester_start")
	}
	if strings.TrimSpace(req.URL) == "" {
		response.BadRequest(c, 21106, "请上传 ICS 文件或提供 ICS URL")
		return
	}

	resp, err := h.snapshotSvc.ImportURL(c.Request.Context(), &req)
	if err != nil {
		handleSnapshotError(c, err)
		return
	}
	response.Created(c, resp)
}

func handleSnapshotError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSourceNotConfigured):
		response.BadRequest(c, 21101, "未配置课表数据源")
	case errors.Is(err, service.ErrSemesterStartMissing):
		response.BadRequest(c, 21102, "缺少学期开始日期")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 20002, err.Error())
	case errors.Is(err, service.ErrICSEmpty):
		response.BadRequest(c, 21104, "ICS 中没有可识别的课程")
	case errors.Is(err, service.ErrImportURLNotAllowed):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21108, "不允许从该地址导入课表", err.Error())
	case errors.Is(err, service.ErrICSParseFailed):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21103, "ICS 解析失败", err.Error())
	case errors.Is(err, service.ErrICSFetchFailed):
		response.BadGateway(c, 21105, "课表数据源获取失败", err.Error())
	case errors.Is(err, service.ErrNoSnapshotAvailable):
		response.ServiceUnavailable(c, 21001, "暂无可用课表，请先刷新或导入")
	default:
		response.InternalError(c)
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "request body too large")
}
