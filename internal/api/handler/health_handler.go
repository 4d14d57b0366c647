package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/service"
)

// HealthHandler 健康检查
type HealthHandler struct {
	snapshotSvc service.SnapshotService
}

// NewHealthHandler 创建 HealthHandler
func NewHealthHandler(snapshotSvc service.SnapshotService) *HealthHandler {
	return &HealthHandler{snapshotSvc: snapshotSvc}
}

// Check 存活检查；附带快照是否可用，缓存读取失败不影响存活
// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	available := false
	if st, err := h.snapshotSvc.Status(c.Request.Context()); err == nil {
		available = st.Available
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "snapshot_available": available})
}
