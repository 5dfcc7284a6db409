package model

import (
	"time"
)

// DateLayout 自然日字段的存储格式
const DateLayout = "2006-01-02"

// swagger:model User
type User struct {
	BaseModel
	Username         string  `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email            string  `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password         string  `gorm:"size:100;not null" json:"-"`
	IsActive         bool    `gorm:"default:false" json:"isActive"`
	VerificationCode *string `gorm:"size:10" json:"-"`
	XP               int     `gorm:"default:0;not null" json:"xp"`
	Streak           int     `gorm:"default:0;not null" json:"streak"`
	// 最后活跃日期，按配置时区的自然日存储（YYYY-MM-DD）
	LastActiveDate *string `gorm:"size:10" json:"lastActiveDate,omitempty"`

	Target *UserTarget `gorm:"foreignKey:UserID" json:"target,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// LastActiveDay 按 loc 解析最后活跃日期；从未活跃或值无法解析时 ok 为 false
func (u *User) LastActiveDay(loc *time.Location) (time.Time, bool) {
	if u.LastActiveDate == nil || *u.LastActiveDate == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, *u.LastActiveDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
