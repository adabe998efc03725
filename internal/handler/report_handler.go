package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/service"
)

// ListReports 返回全部周报，按生成时间倒序
func (a *API) ListReports(c *gin.Context) {
	reports, err := a.reports.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取周报列表失败")
		return
	}

	items := make([]gin.H, 0, len(reports))
	for i := range reports {
		items = append(items, reportToPayload(&reports[i]))
	}

	c.JSON(http.StatusOK, items)
}

// GenerateReport 按需生成上一周的周报；该周已有报告时返回既有报告
func (a *API) GenerateReport(c *gin.Context) {
	report, err := a.reports.Generate(time.Now())
	if err != nil {
		if errors.Is(err, service.ErrNoActiveHabits) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "没有可生成周报的习惯"})
			return
		}
		respondError(c, http.StatusInternalServerError, "生成周报失败")
		return
	}

	c.JSON(http.StatusOK, reportToPayload(report))
}

// GetLatestReport 返回最近一份周报
func (a *API) GetLatestReport(c *gin.Context) {
	report, err := a.reports.Latest()
	if err != nil {
		if errors.Is(err, service.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "暂无周报"})
			return
		}
		respondError(c, http.StatusInternalServerError, "获取周报失败")
		return
	}

	c.JSON(http.StatusOK, reportToPayload(report))
}

func reportToPayload(report *db.WeeklyReport) gin.H {
	return gin.H{
		"id":                report.ID,
		"week_start":        report.WeekStart.In(time.Local).Format(dateFormat),
		"week_end":          report.WeekEnd.In(time.Local).Format(dateFormat),
		"total_habits":      report.TotalHabits,
		"total_completions": report.TotalCompletions,
		"overall_score":     report.OverallScore,
		"report_data":       json.RawMessage(report.ReportData),
		"generated_at":      report.CreatedAt.Format(time.RFC3339),
	}
}
