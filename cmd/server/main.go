package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/config"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/handler"
	"github.com/habitloop/internal/router"
	"github.com/habitloop/internal/scheduler"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	api := handler.NewAPI(db.DB)

	// 后台调度器负责每周末生成周报
	sched, err := scheduler.New(api.ReportService(), cfg.ReportCron)
	if err != nil {
		log.Fatalf("failed to set up scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg.SessionSecret)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
