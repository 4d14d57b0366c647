package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CreaMakers/CSUSTPlanet-sub001/config"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/api/handler"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时刷新、导入接口不限流
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", h.Health.Check)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 课表查询
		schedule := v1.Group("/schedule")
		{
			schedule.GET("/week", h.Schedule.GetWeek)
			schedule.GET("/agenda", h.Schedule.GetAgenda)
			schedule.GET("/today", h.Schedule.GetToday)
			schedule.GET("/grid", h.Schedule.GetGrid)
			schedule.GET("/timeline", h.Schedule.GetTimeline)
		}

		// 课表快照（刷新与导入会访问上游数据源）
		limit := middleware.RateLimit(limiter, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window)
		snapshot := v1.Group("/snapshot")
		{
			snapshot.GET("", h.Snapshot.GetStatus)
			snapshot.POST("/refresh", limit, h.Snapshot.Refresh)
			snapshot.POST("/import", limit, middleware.BodyLimit(cfg.Server.MaxUploadBytes), h.Snapshot.Import)
		}

		// 导出
		export := v1.Group("/export")
		{
			export.GET("/week", h.Export.ExportWeek)
		}
	}

	return r
}
