package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetDashboard 返回首页聚合数据：各习惯快照、整体评分与今日打卡数
func (a *API) GetDashboard(c *gin.Context) {
	data, err := a.stats.Dashboard(time.Now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取看板数据失败")
		return
	}

	habits := make([]gin.H, 0, len(data.Habits))
	for i := range data.Habits {
		habits = append(habits, snapshotToPayload(&data.Habits[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"habits":            habits,
		"overall_score":     data.OverallScore,
		"overall_health":    healthToPayload(data.OverallHealth),
		"total_habits":      data.TotalHabits,
		"today_completions": data.TodayCompletions,
		"date":              data.Date.Format(dateFormat),
	})
}
