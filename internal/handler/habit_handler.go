package handler

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/service"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	dateFormat         = "2006-01-02"
	defaultHistoryDays = 30
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

type habitPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type habitUpdatePayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// ListHabits 返回所有启用习惯及其统计快照
func (a *API) ListHabits(c *gin.Context) {
	habits, err := a.habits.ListActive()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取习惯列表失败")
		return
	}

	today := time.Now()
	items := make([]gin.H, 0, len(habits))
	for _, habit := range habits {
		snapshot, err := a.stats.HabitStats(habit.ID, today)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "计算统计信息失败")
			return
		}
		items = append(items, snapshotToPayload(snapshot))
	}

	c.JSON(http.StatusOK, items)
}

// CreateHabit 创建习惯并返回统计快照
func (a *API) CreateHabit(c *gin.Context) {
	var payload habitPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.Create(service.HabitInput{
		Name:        payload.Name,
		Description: payload.Description,
	})
	if err != nil {
		handleHabitError(c, err)
		return
	}

	snapshot, err := a.stats.HabitStats(habit.ID, time.Now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "计算统计信息失败")
		return
	}

	c.JSON(http.StatusCreated, snapshotToPayload(snapshot))
}

// GetHabit 返回单个习惯的统计快照
func (a *API) GetHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	snapshot, err := a.stats.HabitStats(id, time.Now())
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshotToPayload(snapshot))
}

// UpdateHabit 部分更新习惯，返回更新后的统计快照
func (a *API) UpdateHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload habitUpdatePayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.Update(id, service.HabitUpdate{
		Name:        payload.Name,
		Description: payload.Description,
		IsActive:    payload.IsActive,
	})
	if err != nil {
		handleHabitError(c, err)
		return
	}

	snapshot, err := a.stats.HabitStats(habit.ID, time.Now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "计算统计信息失败")
		return
	}

	c.JSON(http.StatusOK, snapshotToPayload(snapshot))
}

// DeleteHabit 删除习惯，级联删除打卡记录
func (a *API) DeleteHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	if err := a.habits.Delete(id); err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "习惯已删除"})
}

// ToggleCompletion 切换指定日期的打卡状态，缺省为今天
func (a *API) ToggleCompletion(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	if _, err := a.habits.Get(id); err != nil {
		handleHabitError(c, err)
		return
	}

	var payload struct {
		Date string `json:"date"`
	}
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return
		}
	}

	today := time.Now()
	date := today
	if strings.TrimSpace(payload.Date) != "" {
		parsed, err := time.ParseInLocation(dateFormat, payload.Date, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的打卡日期")
			return
		}
		date = parsed
	}

	completed, err := a.completions.Toggle(id, date)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存打卡记录失败")
		return
	}

	snapshot, err := a.stats.HabitStats(id, today)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "计算统计信息失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"completed": completed,
		"date":      date.Format(dateFormat),
		"stats":     snapshotToPayload(snapshot),
	})
}

// GetHabitHistory 返回日历视图所需的逐日完成状态
func (a *API) GetHabitHistory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	days := defaultHistoryDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(c, http.StatusBadRequest, "无效的天数参数")
			return
		}
		days = parsed
	}

	history, err := a.stats.History(id, days, time.Now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取打卡历史失败")
		return
	}

	items := make([]gin.H, 0, len(history))
	for _, entry := range history {
		items = append(items, gin.H{
			"date":      entry.Date.Format(dateFormat),
			"completed": entry.Completed,
		})
	}

	c.JSON(http.StatusOK, items)
}

func habitToPayload(habit db.Habit) gin.H {
	return gin.H{
		"id":               habit.ID,
		"name":             habit.Name,
		"description":      habit.Description,
		"description_html": renderMarkdown(habit.Description),
		"created_at":       habit.CreatedAt.Format(time.RFC3339),
		"is_active":        habit.IsActive,
	}
}

func snapshotToPayload(snapshot *service.HabitSnapshot) gin.H {
	return gin.H{
		"habit":             habitToPayload(snapshot.Habit),
		"current_streak":    snapshot.CurrentStreak,
		"longest_streak":    snapshot.LongestStreak,
		"consistency_score": snapshot.ConsistencyScore,
		"health":            healthToPayload(snapshot.Health),
		"total_completions": snapshot.TotalCompletions,
	}
}

func healthToPayload(health service.HabitHealth) gin.H {
	return gin.H{
		"status": health.Status,
		"color":  health.Color,
		"icon":   health.Icon,
	}
}

// renderMarkdown 将习惯描述渲染为净化后的 HTML，渲染失败时退回原文
func renderMarkdown(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(source), &buf); err != nil {
		return source
	}
	return sanitizer.Sanitize(buf.String())
}

func handleHabitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "习惯不存在")
	case errors.Is(err, service.ErrHabitNameRequired):
		respondError(c, http.StatusBadRequest, "习惯名称不能为空")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
