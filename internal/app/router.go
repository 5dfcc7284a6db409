package app

import (
	"time"
	"yks_coach_backend/docs"
	"yks_coach_backend/internal/config"
	"yks_coach_backend/internal/middleware"
	"yks_coach_backend/pkg/monitoring"
	"yks_coach_backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	coachRequestsPerWindow = 20
	coachWindow            = time.Minute
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerUserRoutes(authGroup, c)

		// 教练接口调用模型，按用户单独限流
		coach := authGroup.Group("/coach")
		coach.Use(security.RateLimiter(coachRequestsPerWindow, coachWindow, security.ByUserID(middleware.UserIDKey)))
		a.registerCoachRoutes(coach, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/verify", c.auth.Verify)
		public.POST("/resend-code", c.auth.ResendCode)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerUserRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.DELETE("/account", c.auth.DeleteAccount)
	rg.GET("/profile", c.profile.GetProfile)
	rg.GET("/stats", c.profile.GetStats)
	rg.GET("/chat/history", c.chat.GetHistory)

	// 任务
	rg.GET("/tasks", c.task.ListTasks)
	rg.POST("/tasks", c.task.CreateTask)
	rg.PUT("/tasks/:id/toggle", c.task.ToggleTask)
	rg.DELETE("/tasks/completed", c.task.ClearCompleted)

	// 考试
	rg.GET("/exams", c.exam.ListExams)
	rg.POST("/exams", c.exam.CreateExam)
	rg.PUT("/exams/:id", c.exam.UpdateExam)
	rg.DELETE("/exams/:id", c.exam.DeleteExam)
}

func (a *App) registerCoachRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/plan", c.coach.GeneratePlan)
	rg.POST("/ask", c.coach.Ask)
	rg.POST("/analyze", c.coach.Analyze)
	rg.POST("/challenge", c.coach.Challenge)
	rg.POST("/solve", c.coach.Solve)
}
