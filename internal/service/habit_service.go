package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/habitloop/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrHabitNotFound 在指定习惯不存在时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitNameRequired 当创建习惯缺少名称时返回
	ErrHabitNameRequired = errors.New("habit name is required")
)

// HabitService 负责 Habit 数据的增删改查
// 主要用于 API 逻辑，保持与 handler 解耦
type HabitService struct {
	db *gorm.DB
}

// HabitInput 定义创建习惯时可配置字段
type HabitInput struct {
	Name        string
	Description string
}

// HabitUpdate 定义部分更新字段，nil 表示保持原值
type HabitUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB) *HabitService {
	return &HabitService{db: gdb}
}

// ListActive 返回所有启用中的习惯，按创建时间排序
func (s *HabitService) ListActive() ([]db.Habit, error) {
	var habits []db.Habit
	if err := s.db.Where("is_active = ?", true).Order("created_at ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list active habits: %w", err)
	}
	return habits, nil
}

// Get 根据 ID 获取习惯
func (s *HabitService) Get(id uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// Create 新建习惯，默认处于启用状态
func (s *HabitService) Create(input HabitInput) (*db.Habit, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrHabitNameRequired
	}

	habit := db.Habit{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}

	if err := s.db.Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &habit, nil
}

// Update 部分更新习惯，未提供的字段保持不变
func (s *HabitService) Update(id uint, update HabitUpdate) (*db.Habit, error) {
	habit, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, ErrHabitNameRequired
		}
		habit.Name = name
	}
	if update.Description != nil {
		habit.Description = strings.TrimSpace(*update.Description)
	}
	if update.IsActive != nil {
		habit.IsActive = *update.IsActive
	}

	if err := s.db.Save(habit).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return habit, nil
}

// Delete 删除习惯，级联删除其全部打卡记录
func (s *HabitService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	if err := s.db.Where("habit_id = ?", id).Delete(&db.HabitCompletion{}).Error; err != nil {
		return fmt.Errorf("delete habit completions: %w", err)
	}
	if err := s.db.Delete(&db.Habit{}, id).Error; err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return nil
}

// CompletionService 负责打卡记录的切换与区间查询
type CompletionService struct {
	db *gorm.DB
}

// NewCompletionService 构造 CompletionService
func NewCompletionService(gdb *gorm.DB) *CompletionService {
	return &CompletionService{db: gdb}
}

// Toggle 切换某习惯在指定日期的完成状态：已存在则删除，否则创建。
// 返回切换后的状态。先删后插配合唯一索引，保证并发下同一天不会出现两条记录。
func (s *CompletionService) Toggle(habitID uint, date time.Time) (bool, error) {
	day := normalizeToDate(date)

	res := s.db.Where("habit_id = ? AND completed_date = ?", habitID, day).
		Delete(&db.HabitCompletion{})
	if res.Error != nil {
		return false, fmt.Errorf("toggle completion: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	record := db.HabitCompletion{HabitID: habitID, CompletedDate: day}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "habit_id"}, {Name: "completed_date"}},
		DoNothing: true,
	}).Create(&record).Error; err != nil {
		return false, fmt.Errorf("toggle completion: %w", err)
	}

	return true, nil
}

// DatesBetween 返回某习惯在 [start, end] 区间内的完成日期，升序排列
func (s *CompletionService) DatesBetween(habitID uint, start, end time.Time) ([]time.Time, error) {
	var dates []time.Time
	if err := s.db.Model(&db.HabitCompletion{}).
		Where("habit_id = ?", habitID).
		Where("completed_date BETWEEN ? AND ?", normalizeToDate(start), normalizeToDate(end)).
		Order("completed_date ASC").
		Pluck("completed_date", &dates).Error; err != nil {
		return nil, fmt.Errorf("list completion dates: %w", err)
	}
	return dates, nil
}

// AllDates 返回某习惯的全部完成日期，升序排列
func (s *CompletionService) AllDates(habitID uint) ([]time.Time, error) {
	var dates []time.Time
	if err := s.db.Model(&db.HabitCompletion{}).
		Where("habit_id = ?", habitID).
		Order("completed_date ASC").
		Pluck("completed_date", &dates).Error; err != nil {
		return nil, fmt.Errorf("list completion dates: %w", err)
	}
	return dates, nil
}

// CountBetween 统计某习惯在 [start, end] 区间内的完成次数
func (s *CompletionService) CountBetween(habitID uint, start, end time.Time) (int, error) {
	var count int64
	if err := s.db.Model(&db.HabitCompletion{}).
		Where("habit_id = ?", habitID).
		Where("completed_date BETWEEN ? AND ?", normalizeToDate(start), normalizeToDate(end)).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return int(count), nil
}

// CountAll 统计某习惯的历史完成总次数
func (s *CompletionService) CountAll(habitID uint) (int, error) {
	var count int64
	if err := s.db.Model(&db.HabitCompletion{}).
		Where("habit_id = ?", habitID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return int(count), nil
}

// CountOnDate 统计所有习惯在指定日期的完成次数
func (s *CompletionService) CountOnDate(date time.Time) (int, error) {
	var count int64
	if err := s.db.Model(&db.HabitCompletion{}).
		Where("completed_date = ?", normalizeToDate(date)).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count completions on date: %w", err)
	}
	return int(count), nil
}

func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
