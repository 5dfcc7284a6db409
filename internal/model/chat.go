package model

import (
	"time"
)

// ChatMessage 存储 AI 辅导问答记录，只追加不修改
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"-"`
	Question  string    `gorm:"type:text;not null" json:"userQuestion"`
	Answer    string    `gorm:"type:text;not null" json:"aiResponse"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
