package repository

import (
	"context"
	"yks_coach_backend/internal/model"

	"gorm.io/gorm"
)

type ChatRepository struct {
	DB *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: db}
}

func (r *ChatRepository) WithTx(tx *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: tx}
}

func (r *ChatRepository) For(userID uint) *UserChat {
	return &UserChat{ownerScope{db: r.DB, userID: userID}}
}

type UserChat struct {
	ownerScope
}

func (c *UserChat) Append(ctx context.Context, msg *model.ChatMessage) error {
	msg.UserID = c.userID
	return c.db.WithContext(ctx).Create(msg).Error
}

// Latest 取最近 limit 条消息，按时间正序返回
func (c *UserChat) Latest(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	err := c.query(ctx, &model.ChatMessage{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (c *UserChat) DeleteAll(ctx context.Context) error {
	return c.db.WithContext(ctx).Where("user_id = ?", c.userID).Delete(&model.ChatMessage{}).Error
}
