package controller

import (
	"time"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/service"
	"yks_coach_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ExamController struct {
	ExamService *service.ExamService
}

func NewExamController(examService *service.ExamService) *ExamController {
	return &ExamController{ExamService: examService}
}

// ExamRequest 考试成绩；tytNet 即使提交也会被忽略，由服务端计算
// swagger:model ExamRequest
type ExamRequest struct {
	ExamName string             `json:"examName" binding:"required,max=150"`
	Turkish  float64            `json:"tytTurkish" binding:"lte=40"`
	Social   float64            `json:"tytSocial" binding:"lte=20"`
	Math     float64            `json:"tytMath" binding:"lte=40"`
	Science  float64            `json:"tytScience" binding:"lte=20"`
	AYTNet   float64            `json:"aytNet" binding:"lte=80"`
	Mistakes model.MistakeTally `json:"mistakes"`
	Date     *time.Time         `json:"date"`
}

func (r ExamRequest) input() service.ExamInput {
	return service.ExamInput{
		ExamName: r.ExamName,
		Turkish:  r.Turkish,
		Social:   r.Social,
		Math:     r.Math,
		Science:  r.Science,
		AYTNet:   r.AYTNet,
		Mistakes: r.Mistakes,
		TakenAt:  r.Date,
	}
}

// ListExams godoc
// @Summary 考试记录
// @Tags 考试
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.ExamResult} "成功"
// @Router /api/exams [get]
func (c *ExamController) ListExams(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	exams, err := c.ExamService.List(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if exams == nil {
		exams = []model.ExamResult{}
	}
	util.Success(ctx, exams)
}

// CreateExam godoc
// @Summary 添加考试成绩
// @Description 奖励50经验并生成AI点评
// @Tags 考试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ExamRequest true "成绩"
// @Success 201 {object} util.Response{data=model.ExamResult} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/exams [post]
func (c *ExamController) CreateExam(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req ExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	exam, err := c.ExamService.Create(ctx.Request.Context(), userID, req.input())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, exam)
}

// UpdateExam godoc
// @Summary 修改考试成绩
// @Tags 考试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "考试ID"
// @Param request body ExamRequest true "成绩"
// @Success 200 {object} util.Response{data=model.ExamResult} "成功"
// @Failure 404 {object} util.Response "考试不存在"
// @Router /api/exams/{id} [put]
func (c *ExamController) UpdateExam(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	examID := util.MustParseUint(ctx.Param("id"))
	if examID == 0 {
		util.BadRequest(ctx, "invalid exam id")
		return
	}
	var req ExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	exam, err := c.ExamService.Update(ctx.Request.Context(), userID, examID, req.input())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// DeleteExam godoc
// @Summary 删除考试成绩
// @Tags 考试
// @Produce json
// @Security BearerAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "考试不存在"
// @Router /api/exams/{id} [delete]
func (c *ExamController) DeleteExam(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	examID := util.MustParseUint(ctx.Param("id"))
	if examID == 0 {
		util.BadRequest(ctx, "invalid exam id")
		return
	}
	if err := c.ExamService.Delete(ctx.Request.Context(), userID, examID); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Deneme silindi"})
}
