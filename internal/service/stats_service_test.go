package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/habitloop/internal/db"
)

// backdateHabit 将习惯创建时间改写到过去，便于构造评分窗口
func backdateHabit(t *testing.T, habitID uint, createdAt time.Time) {
	t.Helper()
	if err := db.DB.Model(&db.Habit{}).Where("id = ?", habitID).Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("failed to backdate habit: %v", err)
	}
}

func toggleOn(t *testing.T, svc *CompletionService, habitID uint, date time.Time) {
	t.Helper()
	completed, err := svc.Toggle(habitID, date)
	if err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	if !completed {
		t.Fatalf("expected toggle to mark %s completed", date.Format("2006-01-02"))
	}
}

func TestStreaksWithoutCompletions(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	habit, err := NewHabitService(db.DB).Create(HabitInput{Name: "拉伸"})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	backdateHabit(t, habit.ID, time.Now().AddDate(0, 0, -40))

	stats := NewStatsService(db.DB)
	today := time.Date(2025, 8, 20, 12, 0, 0, 0, time.Local)

	current, err := stats.CurrentStreak(habit.ID, today)
	if err != nil {
		t.Fatalf("CurrentStreak returned error: %v", err)
	}
	longest, err := stats.LongestStreak(habit.ID)
	if err != nil {
		t.Fatalf("LongestStreak returned error: %v", err)
	}
	score, err := stats.ConsistencyScore(habit.ID, DefaultConsistencyWindow, time.Now())
	if err != nil {
		t.Fatalf("ConsistencyScore returned error: %v", err)
	}

	if current != 0 || longest != 0 {
		t.Fatalf("expected zero streaks, got current=%d longest=%d", current, longest)
	}
	if score != 0.0 {
		t.Fatalf("expected score 0.0 for empty window, got %v", score)
	}
}

func TestCurrentStreakConsecutiveDays(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	habit, err := NewHabitService(db.DB).Create(HabitInput{Name: "晨跑"})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	logSvc := NewCompletionService(db.DB)
	today := time.Date(2025, 8, 20, 0, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		toggleOn(t, logSvc, habit.ID, today.AddDate(0, 0, -i))
	}

	stats := NewStatsService(db.DB)
	current, err := stats.CurrentStreak(habit.ID, today)
	if err != nil {
		t.Fatalf("CurrentStreak returned error: %v", err)
	}
	longest, err := stats.LongestStreak(habit.ID)
	if err != nil {
		t.Fatalf("LongestStreak returned error: %v", err)
	}

	if current != 3 {
		t.Fatalf("expected current streak 3, got %d", current)
	}
	if longest != 3 {
		t.Fatalf("expected longest streak 3, got %d", longest)
	}
}

func TestCurrentStreakGraceDay(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	habit, err := NewHabitService(db.DB).Create(HabitInput{Name: "背单词"})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	logSvc := NewCompletionService(db.DB)
	today := time.Date(2025, 8, 20, 0, 0, 0, 0, time.Local)

	// 只有昨天打卡：今天未标记不应清零
	toggleOn(t, logSvc, habit.ID, today.AddDate(0, 0, -1))

	stats := NewStatsService(db.DB)
	current, err := stats.CurrentStreak(habit.ID, today)
	if err != nil {
		t.Fatalf("CurrentStreak returned error: %v", err)
	}
	if current != 1 {
		t.Fatalf("expected grace-day streak 1, got %d", current)
	}

	// 最后一次打卡在前天，宽限日不再适用
	if _, err := logSvc.Toggle(habit.ID, today.AddDate(0, 0, -1)); err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	toggleOn(t, logSvc, habit.ID, today.AddDate(0, 0, -2))

	current, err = stats.CurrentStreak(habit.ID, today)
	if err != nil {
		t.Fatalf("CurrentStreak returned error: %v", err)
	}
	if current != 0 {
		t.Fatalf("expected streak 0 after two-day gap, got %d", current)
	}
}

func TestLongestStreakAcrossGaps(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	habit, err := NewHabitService(db.DB).Create(HabitInput{Name: "游泳"})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	logSvc := NewCompletionService(db.DB)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	for _, offset := range []int{0, 1, 2, 4, 5} {
		toggleOn(t, logSvc, habit.ID, base.AddDate(0, 0, offset))
	}

	stats := NewStatsService(db.DB)
	longest, err := stats.LongestStreak(habit.ID)
	if err != nil {
		t.Fatalf("LongestStreak returned error: %v", err)
	}
	if longest != 3 {
		t.Fatalf("expected longest streak 3, got %d", longest)
	}
}

func TestConsistencyScoreClampedToCreation(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	habit, err := NewHabitService(db.DB).Create(HabitInput{Name: "弹琴"})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	today := time.Date(2025, 8, 20, 12, 0, 0, 0, time.Local)
	// 创建于 9 天前：30 天窗口被钳制为 10 个有效天
	backdateHabit(t, habit.ID, today.AddDate(0, 0, -9))

	logSvc := NewCompletionService(db.DB)
	for _, offset := range []int{0, 2, 4, 6, 8} {
		toggleOn(t, logSvc, habit.ID, today.AddDate(0, 0, -offset))
	}

	stats := NewStatsService(db.DB)
	score, err := stats.ConsistencyScore(habit.ID, DefaultConsistencyWindow, today)
	if err != nil {
		t.Fatalf("ConsistencyScore returned error: %v", err)
	}
	if score != 50.0 {
		t.Fatalf("expected score 50.0 (5/10 days), got %v", score)
	}
}

func TestConsistencyScoreNewAndFutureHabits(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	habitSvc := NewHabitService(db.DB)
	stats := NewStatsService(db.DB)
	today := time.Date(2025, 8, 20, 12, 0, 0, 0, time.Local)

	// 当天创建、尚未打卡：有效窗口为 1 天，评分为 0 而非满分
	fresh, err := habitSvc.Create(HabitInput{Name: "喝水"})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	backdateHabit(t, fresh.ID, today)

	score, err := stats.ConsistencyScore(fresh.ID, DefaultConsistencyWindow, today)
	if err != nil {
		t.Fatalf("ConsistencyScore returned error: %v", err)
	}
	if score != 0.0 {
		t.Fatalf("expected score 0.0 for same-day habit, got %v", score)
	}

	// 创建时间晚于评估日（时钟偏移的退化情况）按满分处理
	future, err := habitSvc.Create(HabitInput{Name: "早睡"})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	backdateHabit(t, future.ID, today.AddDate(0, 0, 3))

	score, err = stats.ConsistencyScore(future.ID, DefaultConsistencyWindow, today)
	if err != nil {
		t.Fatalf("ConsistencyScore returned error: %v", err)
	}
	if score != 100.0 {
		t.Fatalf("expected sentinel score 100.0 for degenerate window, got %v", score)
	}
}

func TestHealthForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score  float64
		status string
	}{
		{100, "excellent"},
		{80, "excellent"},
		{79.9, "good"},
		{50, "good"},
		{49.9, "needs_improvement"},
		{25, "needs_improvement"},
		{24.9, "critical"},
		{0, "critical"},
	}

	for _, tc := range cases {
		health := HealthForScore(tc.score)
		if health.Status != tc.status {
			t.Errorf("score %v: expected status %s, got %s", tc.score, tc.status, health.Status)
		}
		if health.Color == "" || health.Icon == "" {
			t.Errorf("score %v: expected color and icon to be set", tc.score)
		}
	}
}

func TestHistoryMaterializesFullRange(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	habit, err := NewHabitService(db.DB).Create(HabitInput{Name: "俯卧撑"})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	logSvc := NewCompletionService(db.DB)
	today := time.Date(2025, 8, 20, 0, 0, 0, 0, time.Local)
	toggleOn(t, logSvc, habit.ID, today)
	toggleOn(t, logSvc, habit.ID, today.AddDate(0, 0, -3))

	stats := NewStatsService(db.DB)
	history, err := stats.History(habit.ID, 7, today)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}

	// 区间两端均含，7 天窗口应产出 8 条记录
	if len(history) != 8 {
		t.Fatalf("expected 8 history entries, got %d", len(history))
	}

	for i, entry := range history {
		expected := today.AddDate(0, 0, i-7)
		if entry.Date.Format("2006-01-02") != expected.Format("2006-01-02") {
			t.Fatalf("entry %d: expected date %s, got %s", i, expected.Format("2006-01-02"), entry.Date.Format("2006-01-02"))
		}
	}

	if !history[7].Completed || !history[4].Completed {
		t.Fatal("expected completions on today and today-3 to be flagged")
	}
	if history[6].Completed {
		t.Fatal("expected yesterday to be uncompleted")
	}
}

func TestDashboardAggregatesActiveHabits(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	habitSvc := NewHabitService(db.DB)
	logSvc := NewCompletionService(db.DB)
	today := time.Date(2025, 8, 20, 12, 0, 0, 0, time.Local)

	// 10 个习惯，每个一致性评分恰为 50.0
	for i := 0; i < 10; i++ {
		habit, err := habitSvc.Create(HabitInput{Name: fmt.Sprintf("习惯 %d", i+1)})
		if err != nil {
			t.Fatalf("failed to create habit: %v", err)
		}
		backdateHabit(t, habit.ID, today.AddDate(0, 0, -9))
		for _, offset := range []int{0, 2, 4, 6, 8} {
			toggleOn(t, logSvc, habit.ID, today.AddDate(0, 0, -offset))
		}
	}

	stats := NewStatsService(db.DB)
	data, err := stats.Dashboard(today)
	if err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}

	if data.TotalHabits != 10 || len(data.Habits) != 10 {
		t.Fatalf("expected 10 active habits, got %d", data.TotalHabits)
	}
	if data.OverallScore != 50.0 {
		t.Fatalf("expected overall score 50.0, got %v", data.OverallScore)
	}
	if data.OverallHealth.Status != "good" {
		t.Fatalf("expected overall health good, got %s", data.OverallHealth.Status)
	}
	if data.TodayCompletions != 10 {
		t.Fatalf("expected 10 completions today, got %d", data.TodayCompletions)
	}

	// 停用的习惯不计入看板
	inactive := false
	if _, err := habitSvc.Update(data.Habits[0].Habit.ID, HabitUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("failed to deactivate habit: %v", err)
	}

	data, err = stats.Dashboard(today)
	if err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}
	if data.TotalHabits != 9 {
		t.Fatalf("expected 9 active habits after deactivation, got %d", data.TotalHabits)
	}
}

func TestDashboardEmpty(t *testing.T) {
	cleanup := setupHabitTestDB(t)
	defer cleanup()

	stats := NewStatsService(db.DB)
	data, err := stats.Dashboard(time.Now())
	if err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}

	if data.OverallScore != 0.0 {
		t.Fatalf("expected overall score 0.0 with no habits, got %v", data.OverallScore)
	}
	if data.OverallHealth.Status != "critical" {
		t.Fatalf("expected critical health at score 0, got %s", data.OverallHealth.Status)
	}
	if len(data.Habits) != 0 {
		t.Fatalf("expected empty habit list, got %d", len(data.Habits))
	}
}
