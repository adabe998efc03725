package db

import (
	"time"

	"gorm.io/gorm"
)

// Habit 定义了习惯模型
// IsActive 控制习惯是否参与统计与周报，软停用时保留历史打卡
// CreatedAt（gorm.Model）即习惯创建时间，一致性评分以此为窗口下限
// NOTE: 保持结构精简，更多配置可迭代扩展
type Habit struct {
	gorm.Model
	Name        string `gorm:"size:100;not null"`
	Description string
	IsActive    bool `gorm:"default:true"`
}

// HabitCompletion 记录某习惯在某个日历日的完成情况
// HabitID + CompletedDate 采用唯一索引，保证同一天至多一条记录，
// 并发 toggle 依赖该约束去重；CreatedAt 是补记时间，与完成日期无关。
// 不使用软删除：toggle 会真正删除记录，否则唯一索引会挡住重新打卡。
type HabitCompletion struct {
	ID            uint `gorm:"primarykey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	HabitID       uint      `gorm:"index;index:idx_completion_unique,unique;not null"`
	Habit         Habit     `gorm:"constraint:OnDelete:CASCADE"`
	CompletedDate time.Time `gorm:"index:idx_completion_unique,unique;not null"`
}

// TableName 重写确保唯一索引作用到 habit_id + completed_date
func (HabitCompletion) TableName() string {
	return "habit_completions"
}
