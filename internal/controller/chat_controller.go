package controller

import (
	"yks_coach_backend/internal/service"
	"yks_coach_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	ChatService *service.ChatService
}

func NewChatController(chatService *service.ChatService) *ChatController {
	return &ChatController{ChatService: chatService}
}

// GetHistory godoc
// @Summary 辅导聊天记录
// @Description 最近50条，按时间正序
// @Tags 教练
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.ChatMessage} "成功"
// @Router /api/chat/history [get]
func (c *ChatController) GetHistory(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	messages, err := c.ChatService.History(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, messages)
}
