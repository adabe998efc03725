package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WeeklyReport 是某个自然周（周一对齐）的不可变统计快照
// WeekStart 采用唯一索引，作为"同一周只生成一份报告"的存储层兜底；
// ReportData 以 JSON 保存逐习惯的报告条目，生成后不再修改
type WeeklyReport struct {
	gorm.Model
	WeekStart        time.Time `gorm:"uniqueIndex;not null"`
	WeekEnd          time.Time `gorm:"not null"`
	TotalHabits      int       `gorm:"default:0"`
	TotalCompletions int       `gorm:"default:0"`
	OverallScore     float64   `gorm:"default:0"`
	ReportData       datatypes.JSON
}
