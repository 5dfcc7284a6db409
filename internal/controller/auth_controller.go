package controller

import (
	"yks_coach_backend/internal/service"
	"yks_coach_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// RegisterRequest defines model for registration
// swagger:model RegisterRequest
type RegisterRequest struct {
	Username string               `json:"username" binding:"required,min=3,max=100"`
	Email    string               `json:"email" binding:"required,email"`
	Password string               `json:"password" binding:"required,min=6"`
	Targets  *service.TargetInput `json:"targets"`
}

// Register godoc
// @Summary 注册新用户
// @Description 创建未激活账户并发送邮箱验证码，可同时设置备考目标
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body RegisterRequest true "用户注册信息"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "用户名或邮箱已被注册"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.Register(ctx.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Target:   req.Targets,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{
		"id":      user.ID,
		"message": "Kayıt alındı. Kod mail adresine gönderildi.",
	})
}

// VerifyRequest 邮箱验证请求
// swagger:model VerifyRequest
type VerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// Verify godoc
// @Summary 验证邮箱
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body VerifyRequest true "邮箱和验证码"
// @Success 200 {object} util.Response "验证成功"
// @Failure 400 {object} util.Response "验证码错误"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/verify [post]
func (c *AuthController) Verify(ctx *gin.Context) {
	var req VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AuthService.Verify(ctx.Request.Context(), req.Email, req.Code); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Doğrulandı."})
}

// ResendCodeRequest 重新发送验证码请求
// swagger:model ResendCodeRequest
type ResendCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResendCode godoc
// @Summary 重新发送验证码
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body ResendCodeRequest true "邮箱"
// @Success 200 {object} util.Response "已发送"
// @Failure 400 {object} util.Response "账户已激活"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/resend-code [post]
func (c *AuthController) ResendCode(ctx *gin.Context) {
	var req ResendCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AuthService.ResendCode(ctx.Request.Context(), req.Email); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Kod tekrar gönderildi."})
}

// LoginRequest defines model for login
// swagger:model LoginRequest
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary 用户登录
// @Description 用户名密码登录，返回 Bearer token
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "登录凭证"
// @Success 200 {object} util.Response{data=object} "登录成功"
// @Failure 401 {object} util.Response "用户名或密码错误"
// @Failure 403 {object} util.Response "账户未验证"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, err := c.AuthService.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// DeleteAccount godoc
// @Summary 删除账户
// @Description 删除当前用户及其任务、考试、目标和聊天记录
// @Tags 认证
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response "已删除"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/account [delete]
func (c *AuthController) DeleteAccount(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	if err := c.AuthService.DeleteAccount(ctx.Request.Context(), userID); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Hesap silindi."})
}
