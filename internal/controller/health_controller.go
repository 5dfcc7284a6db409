package controller

import (
	"context"
	"net/http"
	"time"
	"yks_coach_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// AIStatus 报告模型是否已配置
type AIStatus interface {
	Configured() bool
}

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
	AI    AIStatus
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, ai AIStatus) *HealthController {
	return &HealthController{DB: db, Redis: rdb, AI: ai}
}

// @Summary 健康检查
// @Description 检查数据库、Redis 和 AI 配置状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response "数据库不可用"
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{"database": "up", "redis": "disabled", "ai": "unconfigured"}
	if c.Redis != nil {
		components["redis"] = "up"
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			components["redis"] = "down"
		}
	}
	if c.AI != nil && c.AI.Configured() {
		components["ai"] = "configured"
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
