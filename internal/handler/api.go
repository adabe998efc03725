package handler

import (
	"github.com/habitloop/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	habits      *service.HabitService
	completions *service.CompletionService
	stats       *service.StatsService
	reports     *service.ReportService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB) *API {
	return &API{
		db:          gdb,
		habits:      service.NewHabitService(gdb),
		completions: service.NewCompletionService(gdb),
		stats:       service.NewStatsService(gdb),
		reports:     service.NewReportService(gdb),
	}
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}

// ReportService 暴露周报服务，供调度器复用同一实例
func (a *API) ReportService() *service.ReportService {
	return a.reports
}
