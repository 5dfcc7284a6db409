package model

// UserTarget 用户的备考目标，与用户一对一
// swagger:model UserTarget
type UserTarget struct {
	BaseModel
	UserID          uint    `gorm:"uniqueIndex;not null" json:"userId"`
	Ranking         string  `gorm:"size:50" json:"ranking"`
	DreamUniversity string  `gorm:"size:150" json:"dreamUniversity"`
	DreamDepartment string  `gorm:"size:150" json:"dreamDepartment"`
	CurrentTYTNet   float64 `gorm:"default:0" json:"currentTytNet"`
	TargetTYTNet    float64 `gorm:"default:0" json:"targetTytNet"`
}

func (UserTarget) TableName() string {
	return "user_targets"
}
