package service

import (
	"context"
	"fmt"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/repository"
	"yks_coach_backend/internal/util"
)

const chatHistoryLimit = 50

type ChatService struct {
	ChatRepo *repository.ChatRepository
}

func NewChatService(chatRepo *repository.ChatRepository) *ChatService {
	return &ChatService{ChatRepo: chatRepo}
}

// History 最近50条问答，按时间正序
func (s *ChatService) History(ctx context.Context, userID uint) ([]model.ChatMessage, error) {
	messages, err := s.ChatRepo.For(userID).Latest(ctx, chatHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: chat history: %v", util.ErrPersistence, err)
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	return messages, nil
}
