package model

import "time"

type TaskSource string

const (
	TaskSourceUser     TaskSource = "user"
	TaskSourcePlan     TaskSource = "plan"
	TaskSourceTutor    TaskSource = "tutor"
	TaskSourceFallback TaskSource = "fallback"
)

// swagger:model Task
type Task struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint       `gorm:"index:idx_task_user_completed;not null" json:"-"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	IsCompleted bool       `gorm:"index:idx_task_user_completed;default:false;not null" json:"isCompleted"`
	Source      TaskSource `gorm:"size:20;default:'user'" json:"source"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (Task) TableName() string {
	return "tasks"
}
