package model

import (
	"time"

	"gorm.io/datatypes"
)

// MistakeTally 每个科目/主题的错题数量
type MistakeTally map[string]int

// swagger:model ExamResult
type ExamResult struct {
	ID        uint                             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint                             `gorm:"index;not null" json:"-"`
	ExamName  string                           `gorm:"size:150" json:"examName"`
	Turkish   float64                          `gorm:"column:tyt_turkish" json:"tytTurkish"`
	Social    float64                          `gorm:"column:tyt_social" json:"tytSocial"`
	Math      float64                          `gorm:"column:tyt_math" json:"tytMath"`
	Science   float64                          `gorm:"column:tyt_science" json:"tytScience"`
	TYTNet    float64                          `gorm:"column:tyt_net" json:"tytNet"`
	AYTNet    float64                          `gorm:"column:ayt_net" json:"aytNet"`
	Mistakes  datatypes.JSONType[MistakeTally] `json:"mistakes"`
	AIComment string                           `gorm:"type:text" json:"aiComment"`
	TakenAt   time.Time                        `gorm:"index" json:"date"`
}

func (ExamResult) TableName() string {
	return "exam_results"
}

// RecomputeNet 由四个科目净分重新计算 TYT 总净分
func (e *ExamResult) RecomputeNet() {
	e.TYTNet = e.Turkish + e.Social + e.Math + e.Science
}
