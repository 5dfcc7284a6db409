package controller

import (
	"bytes"
	"io"
	"yks_coach_backend/internal/service"
	"yks_coach_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CoachController struct {
	CoachService *service.CoachService
}

func NewCoachController(coachService *service.CoachService) *CoachController {
	return &CoachController{CoachService: coachService}
}

// GeneratePlan godoc
// @Summary 生成今日学习计划
// @Description 还有未完成任务时返回406和待完成数量；模型不可用时插入一条兜底任务
// @Tags 教练
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.PlanResult} "成功"
// @Failure 406 {object} util.Response{data=object} "存在未完成任务"
// @Router /api/coach/plan [post]
func (c *CoachController) GeneratePlan(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	result, err := c.CoachService.GeneratePlan(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// AskRequest 辅导提问
// swagger:model AskRequest
type AskRequest struct {
	Question string `json:"question" binding:"required,max=2000"`
}

// Ask godoc
// @Summary 向AI老师提问
// @Description 回答中可能附带一条自动加入任务列表的任务
// @Tags 教练
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AskRequest true "问题"
// @Success 200 {object} util.Response{data=service.TutorAnswer} "成功"
// @Router /api/coach/ask [post]
func (c *CoachController) Ask(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req AskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.CoachService.AskTutor(ctx.Request.Context(), userID, req.Question)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}

// AnalyzeRequest 目标分析请求
// swagger:model AnalyzeRequest
type AnalyzeRequest struct {
	Ranking    string `json:"ranking" binding:"required,max=50"`
	University string `json:"university" binding:"max=150"`
}

// Analyze godoc
// @Summary 目标分析
// @Description 保存目标排名和大学并返回一段激励
// @Tags 教练
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AnalyzeRequest true "目标"
// @Success 200 {object} util.Response{data=service.GoalAnalysis} "成功"
// @Failure 406 {object} util.Response{data=object} "存在未完成任务"
// @Router /api/coach/analyze [post]
func (c *CoachController) Analyze(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req AnalyzeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.CoachService.AnalyzeGoal(ctx.Request.Context(), userID, req.Ranking, req.University)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Challenge godoc
// @Summary 每日挑战
// @Tags 教练
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Challenge} "成功"
// @Router /api/coach/challenge [post]
func (c *CoachController) Challenge(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	result, err := c.CoachService.GenerateChallenge(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Solve godoc
// @Summary 拍照解题
// @Description 上传题目图片，解题成功奖励15经验
// @Tags 教练
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "题目图片"
// @Success 200 {object} util.Response{data=service.SolveResult} "成功"
// @Failure 400 {object} util.Response "文件无效"
// @Router /api/coach/solve [post]
func (c *CoachController) Solve(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if file.Size > util.MaxImageUploadBytes {
		util.BadRequest(ctx, "file too large")
		return
	}
	if !util.HasAllowedExtension(file.Filename, util.AllowedImageExtensions) {
		util.BadRequest(ctx, util.ErrInvalidImage.Error())
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, util.MaxImageUploadBytes+1))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	mimeType, err := util.ValidateMimeType(bytes.NewReader(data), []string{util.MimeImage})
	if err != nil || !util.IsImage(mimeType) {
		util.BadRequest(ctx, util.ErrInvalidImage.Error())
		return
	}

	result, err := c.CoachService.SolveImage(ctx.Request.Context(), userID, file.Filename, &service.ImageInput{
		Data:     data,
		MIMEType: mimeType,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
