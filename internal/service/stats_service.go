package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/habitloop/internal/db"
	"gorm.io/gorm"
)

// DefaultConsistencyWindow 是一致性评分的默认回看窗口（天）
const DefaultConsistencyWindow = 30

// HabitHealth 描述习惯健康度档位，状态、颜色与图标作为整体返回
type HabitHealth struct {
	Status string
	Color  string
	Icon   string
}

// HealthForScore 根据一致性评分映射健康档位。纯函数，任何输入都有定义。
func HealthForScore(score float64) HabitHealth {
	switch {
	case score >= 80:
		return HabitHealth{Status: "excellent", Color: "#10b981", Icon: "🔥"}
	case score >= 50:
		return HabitHealth{Status: "good", Color: "#f59e0b", Icon: "👍"}
	case score >= 25:
		return HabitHealth{Status: "needs_improvement", Color: "#ef4444", Icon: "⚠️"}
	default:
		return HabitHealth{Status: "critical", Color: "#dc2626", Icon: "❌"}
	}
}

// HabitSnapshot 汇总单个习惯的全部派生指标
type HabitSnapshot struct {
	Habit            db.Habit
	CurrentStreak    int
	LongestStreak    int
	ConsistencyScore float64
	Health           HabitHealth
	TotalCompletions int
}

// HistoryEntry 表示日历视图中的单日完成状态
type HistoryEntry struct {
	Date      time.Time
	Completed bool
}

// DashboardData 汇总首页所需的跨习惯统计
type DashboardData struct {
	Habits           []HabitSnapshot
	OverallScore     float64
	OverallHealth    HabitHealth
	TotalHabits      int
	TodayCompletions int
	Date             time.Time
}

// StatsService 负责从打卡历史派生连续天数、一致性评分等指标
// 所有带日期语义的方法都显式接收 today，便于测试与定时任务复用
type StatsService struct {
	db          *gorm.DB
	completions *CompletionService
}

// NewStatsService 构造 StatsService
func NewStatsService(gdb *gorm.DB) *StatsService {
	return &StatsService{db: gdb, completions: NewCompletionService(gdb)}
}

// CurrentStreak 计算截至 today 的当前连续完成天数。
// 从 today 起逐日向前数；若 today 尚未打卡但昨天已完成，
// 则改从昨天起数（宽限日规则：当天未打卡不立即清零连续记录）。
func (s *StatsService) CurrentStreak(habitID uint, today time.Time) (int, error) {
	dates, err := s.completions.AllDates(habitID)
	if err != nil {
		return 0, err
	}
	return currentStreakFrom(dates, today), nil
}

// LongestStreak 计算历史最长连续完成天数
func (s *StatsService) LongestStreak(habitID uint) (int, error) {
	dates, err := s.completions.AllDates(habitID)
	if err != nil {
		return 0, err
	}
	return longestStreakFrom(dates), nil
}

// ConsistencyScore 计算 [today-windowDays, today] 窗口内的一致性评分。
// 窗口下限被钳制到习惯创建日，新习惯不会因为创建前的日子被扣分；
// 结果收敛到 [0, 100]，保留一位小数。
func (s *StatsService) ConsistencyScore(habitID uint, windowDays int, today time.Time) (float64, error) {
	habit, err := s.getHabit(habitID)
	if err != nil {
		return 0, err
	}

	day := normalizeToDate(today.In(time.Local))
	windowStart := day.AddDate(0, 0, -windowDays)
	created := normalizeToDate(habit.CreatedAt.In(time.Local))

	effectiveStart := windowStart
	if created.After(windowStart) {
		effectiveStart = created
	}

	totalDays := daysBetween(effectiveStart, day) + 1
	if totalDays <= 0 {
		// 创建时间晚于评估日（时钟回拨等退化情况），按满分处理
		return 100.0, nil
	}

	count, err := s.completions.CountBetween(habitID, effectiveStart, day)
	if err != nil {
		return 0, err
	}

	score := float64(count) / float64(totalDays) * 100
	return roundScore(math.Min(score, 100.0)), nil
}

// HabitStats 汇总单个习惯的统计快照
func (s *StatsService) HabitStats(habitID uint, today time.Time) (*HabitSnapshot, error) {
	habit, err := s.getHabit(habitID)
	if err != nil {
		return nil, err
	}

	current, err := s.CurrentStreak(habitID, today)
	if err != nil {
		return nil, err
	}
	longest, err := s.LongestStreak(habitID)
	if err != nil {
		return nil, err
	}
	score, err := s.ConsistencyScore(habitID, DefaultConsistencyWindow, today)
	if err != nil {
		return nil, err
	}
	total, err := s.completions.CountAll(habitID)
	if err != nil {
		return nil, err
	}

	return &HabitSnapshot{
		Habit:            *habit,
		CurrentStreak:    current,
		LongestStreak:    longest,
		ConsistencyScore: score,
		Health:           HealthForScore(score),
		TotalCompletions: total,
	}, nil
}

// History 返回 [today-days, today] 区间内每一天的完成状态，
// 无打卡的日子也会出现在结果中（completed=false），供日历渲染使用
func (s *StatsService) History(habitID uint, days int, today time.Time) ([]HistoryEntry, error) {
	day := normalizeToDate(today)
	start := day.AddDate(0, 0, -days)

	dates, err := s.completions.DatesBetween(habitID, start, day)
	if err != nil {
		return nil, err
	}

	completed := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		completed[dateKey(d)] = struct{}{}
	}

	history := make([]HistoryEntry, 0, days+1)
	for cursor := start; !cursor.After(day); cursor = cursor.AddDate(0, 0, 1) {
		_, ok := completed[dateKey(cursor)]
		history = append(history, HistoryEntry{Date: cursor, Completed: ok})
	}

	return history, nil
}

// Dashboard 汇总所有启用习惯的统计与整体评分
func (s *StatsService) Dashboard(today time.Time) (*DashboardData, error) {
	var habits []db.Habit
	if err := s.db.Where("is_active = ?", true).Order("created_at ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list active habits: %w", err)
	}

	snapshots := make([]HabitSnapshot, 0, len(habits))
	totalScore := 0.0
	for _, habit := range habits {
		snapshot, err := s.HabitStats(habit.ID, today)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snapshot)
		totalScore += snapshot.ConsistencyScore
	}

	overall := 0.0
	if len(snapshots) > 0 {
		overall = roundScore(totalScore / float64(len(snapshots)))
	}

	todayCount, err := s.completions.CountOnDate(today)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		Habits:           snapshots,
		OverallScore:     overall,
		OverallHealth:    HealthForScore(overall),
		TotalHabits:      len(snapshots),
		TodayCompletions: todayCount,
		Date:             normalizeToDate(today),
	}, nil
}

func (s *StatsService) getHabit(habitID uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.First(&habit, habitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

func currentStreakFrom(dates []time.Time, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	completed := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		completed[dateKey(d)] = struct{}{}
	}

	day := normalizeToDate(today)
	streak := walkBack(completed, day)

	// 宽限日：今天尚未打卡时，从昨天开始回溯
	if streak == 0 {
		streak = walkBack(completed, day.AddDate(0, 0, -1))
	}

	return streak
}

func walkBack(completed map[string]struct{}, from time.Time) int {
	streak := 0
	for cursor := from; ; cursor = cursor.AddDate(0, 0, -1) {
		if _, ok := completed[dateKey(cursor)]; !ok {
			break
		}
		streak++
	}
	return streak
}

func longestStreakFrom(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	longest := 1
	current := 1

	for i := 1; i < len(dates); i++ {
		delta := daysBetween(dates[i-1], dates[i])
		switch {
		case delta == 0:
			continue
		case delta == 1:
			current++
			if current > longest {
				longest = current
			}
		default:
			current = 1
		}
	}

	return longest
}

// daysBetween 与 dateKey 都先换算到本地时区：
// 打卡日期以本地零点写入，SQLite 可能以 UTC 表示读回
func daysBetween(start, end time.Time) int {
	hours := normalizeToDate(end.In(time.Local)).Sub(normalizeToDate(start.In(time.Local))).Hours()
	return int(math.Round(hours / 24))
}

func dateKey(t time.Time) string {
	return t.In(time.Local).Format("2006-01-02")
}

func roundScore(v float64) float64 {
	return math.Round(v*10) / 10
}
