package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/dto"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/service"
	"github.com/CreaMakers/CSUSTPlanet-sub001/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportWeek 导出周课表
// GET /api/v1/export/week?week=3 或 ?date=2025-03-10
func (h *ExportHandler) ExportWeek(c *gin.Context) {
	var q dto.ExportWeekQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportWeek(c.Request.Context(), &q)
	if err != nil {
		if errors.Is(err, service.ErrExportGenerateFail) {
			response.Error(c, http.StatusInternalServerError, 22001, "生成 Excel 文件失败")
			return
		}
		handleQueryError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
