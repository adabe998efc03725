package main

import (
	"fmt"
	"log"
	"time"

	"github.com/habitloop/internal/config"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/service"
)

// 测试数据生成器：创建几个习惯并补记最近一个月的打卡记录
func main() {
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	habitSvc := service.NewHabitService(db.DB)
	logSvc := service.NewCompletionService(db.DB)

	samples := []struct {
		input service.HabitInput
		// 打卡间隔（天），让各习惯落在不同健康档位
		everyNDays int
	}{
		{service.HabitInput{Name: "晨跑", Description: "每天 **5 公里**"}, 1},
		{service.HabitInput{Name: "阅读", Description: "睡前 30 分钟"}, 2},
		{service.HabitInput{Name: "冥想", Description: "午间 10 分钟"}, 3},
		{service.HabitInput{Name: "写日记"}, 5},
	}

	today := time.Now()
	for _, sample := range samples {
		habit, err := habitSvc.Create(sample.input)
		if err != nil {
			log.Fatalf("创建习惯失败: %v", err)
		}

		// 创建时间回拨一个月，让一致性评分窗口铺满
		created := today.AddDate(0, 0, -30)
		if err := db.DB.Model(&db.Habit{}).Where("id = ?", habit.ID).Update("created_at", created).Error; err != nil {
			log.Fatalf("回拨创建时间失败: %v", err)
		}

		for offset := 0; offset <= 30; offset += sample.everyNDays {
			if _, err := logSvc.Toggle(habit.ID, today.AddDate(0, 0, -offset)); err != nil {
				log.Fatalf("打卡失败: %v", err)
			}
		}

		fmt.Printf("习惯 %q 已创建，打卡密度 1/%d 天\n", habit.Name, sample.everyNDays)
	}

	fmt.Println("测试数据生成完成！")
}
