package controller

import (
	"strconv"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/service"
	"yks_coach_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// TaskController 处理任务相关的API请求
type TaskController struct {
	TaskService *service.TaskService
}

func NewTaskController(taskService *service.TaskService) *TaskController {
	return &TaskController{TaskService: taskService}
}

// CreateTaskRequest 新建任务请求
// swagger:model CreateTaskRequest
type CreateTaskRequest struct {
	Content string `json:"content" binding:"required,max=500"`
}

// ListTasks godoc
// @Summary 获取任务列表
// @Tags 任务管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Task} "成功"
// @Router /api/tasks [get]
func (c *TaskController) ListTasks(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	tasks, err := c.TaskService.List(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	util.Success(ctx, tasks)
}

// CreateTask godoc
// @Summary 新建任务
// @Tags 任务管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "任务内容"
// @Success 201 {object} util.Response{data=model.Task} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/tasks [post]
func (c *TaskController) CreateTask(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	task, err := c.TaskService.Create(ctx.Request.Context(), userID, req.Content, model.TaskSourceUser)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, task)
}

// ToggleTask godoc
// @Summary 切换任务完成状态
// @Description 完成+10经验，撤销-10经验；任务不存在或不属于当前用户时不做任何修改
// @Tags 任务管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "任务ID"
// @Success 200 {object} util.Response{data=service.ToggleResult} "成功"
// @Failure 400 {object} util.Response "ID无效"
// @Router /api/tasks/{id}/toggle [put]
func (c *TaskController) ToggleTask(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	taskID := util.MustParseUint(ctx.Param("id"))
	if taskID == 0 {
		util.BadRequest(ctx, "invalid task id")
		return
	}

	result, err := c.TaskService.Toggle(ctx.Request.Context(), userID, taskID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// ClearCompleted godoc
// @Summary 清理已完成任务
// @Tags 任务管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/tasks/completed [delete]
func (c *TaskController) ClearCompleted(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	n, err := c.TaskService.ClearCompleted(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"deleted": n,
		"message": strconv.FormatInt(n, 10) + " tamamlanmış görev temizlendi!",
	})
}
