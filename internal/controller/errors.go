package controller

import (
	"errors"
	"net/http"
	"yks_coach_backend/internal/middleware"
	"yks_coach_backend/internal/service"
	"yks_coach_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 把服务层错误映射为 HTTP 响应，未识别的错误记录日志并返回500
func respondError(ctx *gin.Context, err error) {
	var pending *service.PendingTasksError
	switch {
	case errors.As(err, &pending):
		util.ErrorWithData(ctx, http.StatusNotAcceptable,
			"Önce elindeki görevleri tamamlamalısın!",
			gin.H{"pendingCount": pending.Count})
	case errors.Is(err, util.ErrTaskNotFound),
		errors.Is(err, util.ErrExamNotFound),
		errors.Is(err, util.ErrUserNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, err.Error())
	case errors.Is(err, util.ErrAccountInactive):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, util.ErrUserExists):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidCode),
		errors.Is(err, util.ErrAlreadyVerified),
		errors.Is(err, util.ErrEmptyTaskContent),
		errors.Is(err, util.ErrEmptyQuestion),
		errors.Is(err, util.ErrInvalidImage):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

func currentUserID(ctx *gin.Context) (uint, bool) {
	id := ctx.GetUint(middleware.UserIDKey)
	if id == 0 {
		util.Unauthorized(ctx)
		return 0, false
	}
	return id, true
}
