package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusflow/backend/internal/handler"
	"focusflow/backend/internal/middleware"
	"focusflow/backend/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	timerHandler *handler.TimerHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	timer := api.Group("/timer")
	timer.Use(middleware.Auth(authService))
	timer.GET("/state", timerHandler.GetState)
	timer.POST("/start", timerHandler.Start)
	timer.POST("/pause", timerHandler.Pause)
	timer.POST("/resume", timerHandler.Resume)
	timer.POST("/complete", timerHandler.Complete)
	timer.POST("/skip", timerHandler.Skip)
	timer.POST("/reset", timerHandler.Reset)
	timer.POST("/visibility", timerHandler.Visibility)
	timer.PUT("/settings", timerHandler.UpdateSettings)
	timer.GET("/history", timerHandler.GetHistory)
	timer.GET("/stats/today", timerHandler.GetTodayStats)

	return engine
}
