package repository

import (
	"context"
	"errors"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/util"

	"gorm.io/gorm"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

func (r *ExamRepository) WithTx(tx *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: tx}
}

func (r *ExamRepository) For(userID uint) *UserExams {
	return &UserExams{ownerScope{db: r.DB, userID: userID}}
}

type UserExams struct {
	ownerScope
}

func (e *UserExams) Create(ctx context.Context, exam *model.ExamResult) error {
	exam.UserID = e.userID
	return e.db.WithContext(ctx).Create(exam).Error
}

func (e *UserExams) Find(ctx context.Context, id uint) (*model.ExamResult, error) {
	var exam model.ExamResult
	err := e.query(ctx, &model.ExamResult{}).Where("id = ?", id).First(&exam).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrExamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *UserExams) Save(ctx context.Context, exam *model.ExamResult) error {
	exam.UserID = e.userID
	return e.db.WithContext(ctx).Save(exam).Error
}

func (e *UserExams) Delete(ctx context.Context, id uint) error {
	res := e.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, e.userID).
		Delete(&model.ExamResult{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrExamNotFound
	}
	return nil
}

// Recent 按考试时间倒序返回最近的成绩，limit<=0 时返回全部
func (e *UserExams) Recent(ctx context.Context, limit int) ([]model.ExamResult, error) {
	var exams []model.ExamResult
	q := e.query(ctx, &model.ExamResult{}).Order("taken_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&exams).Error
	return exams, err
}

// Latest 最近一次考试，没有记录时返回 (nil, nil)
func (e *UserExams) Latest(ctx context.Context) (*model.ExamResult, error) {
	exams, err := e.Recent(ctx, 1)
	if err != nil || len(exams) == 0 {
		return nil, err
	}
	return &exams[0], nil
}

func (e *UserExams) DeleteAll(ctx context.Context) error {
	return e.db.WithContext(ctx).Where("user_id = ?", e.userID).Delete(&model.ExamResult{}).Error
}
