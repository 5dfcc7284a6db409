package controller

import (
	"yks_coach_backend/internal/service"
	"yks_coach_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	ProfileService *service.ProfileService
}

func NewProfileController(profileService *service.ProfileService) *ProfileController {
	return &ProfileController{ProfileService: profileService}
}

// GetProfile godoc
// @Summary 获取个人资料
// @Description 返回等级、进度、目标和连续打卡天数；每天第一次访问会推进连续天数
// @Tags 用户
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Profile} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/profile [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	profile, err := c.ProfileService.Profile(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// GetStats godoc
// @Summary 获取统计数据
// @Tags 用户
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Stats} "成功"
// @Router /api/stats [get]
func (c *ProfileController) GetStats(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	stats, err := c.ProfileService.Stats(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
