package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/habitloop/internal/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrNoActiveHabits 在没有任何启用习惯、无内容可报告时返回
	ErrNoActiveHabits = errors.New("no active habits to report")
	// ErrReportNotFound 在查询不到周报时返回
	ErrReportNotFound = errors.New("weekly report not found")
)

// reportConsistencyWindow 是周报中逐习惯一致性评分的窗口（天）
const reportConsistencyWindow = 7

// HabitReportEntry 是周报中单个习惯的条目，字段名即持久化格式，保持稳定
type HabitReportEntry struct {
	HabitID          uint    `json:"habit_id"`
	HabitName        string  `json:"habit_name"`
	Completions      int     `json:"completions"`
	ConsistencyScore float64 `json:"consistency_score"`
	Streak           int     `json:"streak"`
	HealthStatus     string  `json:"health_status"`
}

type reportData struct {
	HabitReports []HabitReportEntry `json:"habit_reports"`
}

// ReportService 负责生成并读取每周统计报告
// Generate 以互斥锁串行执行，加上 week_start 的唯一索引，
// 保证同一周重复触发也只会落库一份报告
type ReportService struct {
	db          *gorm.DB
	stats       *StatsService
	completions *CompletionService

	mu sync.Mutex
}

// NewReportService 构造 ReportService
func NewReportService(gdb *gorm.DB) *ReportService {
	return &ReportService{
		db:          gdb,
		stats:       NewStatsService(gdb),
		completions: NewCompletionService(gdb),
	}
}

// weekWindow 计算以 today 为基准要报告的自然周：
// 始终取上一个完整周（周一对齐，周日结束），与周日晚间的定时触发保持一致
func weekWindow(today time.Time) (start, end time.Time) {
	day := normalizeToDate(today)
	// weekday 折算为周一=0 … 周日=6
	weekday := (int(day.Weekday()) + 6) % 7
	start = day.AddDate(0, 0, -(weekday + 7))
	end = start.AddDate(0, 0, 6)
	return start, end
}

// Generate 为上一个自然周生成周报。
// 该周已有报告时原样返回（幂等）；没有启用习惯时返回 ErrNoActiveHabits。
func (s *ReportService) Generate(today time.Time) (*db.WeeklyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	weekStart, weekEnd := weekWindow(today)

	if existing, err := s.findByWeekStart(weekStart); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrReportNotFound) {
		return nil, err
	}

	var habits []db.Habit
	if err := s.db.Where("is_active = ?", true).Order("created_at ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list active habits: %w", err)
	}
	if len(habits) == 0 {
		return nil, ErrNoActiveHabits
	}

	entries := make([]HabitReportEntry, 0, len(habits))
	totalScore := 0.0
	totalCompletions := 0

	for _, habit := range habits {
		completions, err := s.completions.CountBetween(habit.ID, weekStart, weekEnd)
		if err != nil {
			return nil, err
		}
		score, err := s.stats.ConsistencyScore(habit.ID, reportConsistencyWindow, today)
		if err != nil {
			return nil, err
		}
		streak, err := s.stats.CurrentStreak(habit.ID, today)
		if err != nil {
			return nil, err
		}

		entries = append(entries, HabitReportEntry{
			HabitID:          habit.ID,
			HabitName:        habit.Name,
			Completions:      completions,
			ConsistencyScore: score,
			Streak:           streak,
			HealthStatus:     HealthForScore(score).Status,
		})
		totalScore += score
		totalCompletions += completions
	}

	payload, err := json.Marshal(reportData{HabitReports: entries})
	if err != nil {
		return nil, fmt.Errorf("marshal report data: %w", err)
	}

	report := db.WeeklyReport{
		WeekStart:        weekStart,
		WeekEnd:          weekEnd,
		TotalHabits:      len(habits),
		TotalCompletions: totalCompletions,
		OverallScore:     roundScore(totalScore / float64(len(habits))),
		ReportData:       datatypes.JSON(payload),
	}

	if err := s.db.Create(&report).Error; err != nil {
		// 唯一索引兜底：并发写入撞上同一周时返回已存在的报告
		if existing, findErr := s.findByWeekStart(weekStart); findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("save weekly report: %w", err)
	}

	return &report, nil
}

// Latest 返回最近生成的一份周报
func (s *ReportService) Latest() (*db.WeeklyReport, error) {
	var report db.WeeklyReport
	if err := s.db.Order("created_at DESC, id DESC").First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("latest report: %w", err)
	}
	return &report, nil
}

// List 返回全部周报，按生成时间倒序
func (s *ReportService) List() ([]db.WeeklyReport, error) {
	var reports []db.WeeklyReport
	if err := s.db.Order("created_at DESC, id DESC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

func (s *ReportService) findByWeekStart(weekStart time.Time) (*db.WeeklyReport, error) {
	var report db.WeeklyReport
	if err := s.db.Where("week_start = ?", weekStart).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("find report: %w", err)
	}
	return &report, nil
}
