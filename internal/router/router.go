package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("habitloop_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/habits", api.ListHabits)
		apiGroup.POST("/habits", api.CreateHabit)
		apiGroup.GET("/habits/:id", api.GetHabit)
		apiGroup.PUT("/habits/:id", api.UpdateHabit)
		apiGroup.DELETE("/habits/:id", api.DeleteHabit)
		apiGroup.POST("/habits/:id/toggle", api.ToggleCompletion)
		apiGroup.GET("/habits/:id/history", api.GetHabitHistory)

		apiGroup.GET("/dashboard", api.GetDashboard)

		apiGroup.GET("/reports", api.ListReports)
		apiGroup.POST("/reports/generate", api.GenerateReport)
		apiGroup.GET("/reports/latest", api.GetLatestReport)
	}

	return r
}
