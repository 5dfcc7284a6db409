package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/repository"
	"yks_coach_backend/internal/util"
	"yks_coach_backend/pkg/monitoring"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExamService struct {
	DB         *gorm.DB
	ExamRepo   *repository.ExamRepository
	TargetRepo *repository.TargetRepository
	UserRepo   *repository.UserRepository
	Coach      *CoachService
}

// ExamInput 客户端提交的成绩；TYT 总分总是由服务端计算
type ExamInput struct {
	ExamName string
	Turkish  float64
	Social   float64
	Math     float64
	Science  float64
	AYTNet   float64
	Mistakes model.MistakeTally
	TakenAt  *time.Time
}

func (in ExamInput) apply(exam *model.ExamResult) {
	exam.ExamName = strings.TrimSpace(in.ExamName)
	exam.Turkish = in.Turkish
	exam.Social = in.Social
	exam.Math = in.Math
	exam.Science = in.Science
	exam.AYTNet = in.AYTNet
	if in.Mistakes != nil {
		exam.Mistakes = datatypes.NewJSONType(in.Mistakes)
	}
	if in.TakenAt != nil {
		exam.TakenAt = *in.TakenAt
	}
	exam.RecomputeNet()
}

// Create 保存成绩、奖励经验值、生成点评，并同步目标中的当前净分
func (s *ExamService) Create(ctx context.Context, userID uint, in ExamInput) (*model.ExamResult, error) {
	exam := &model.ExamResult{TakenAt: time.Now()}
	in.apply(exam)

	exam.AIComment = ExamCommentFallback
	if s.Coach != nil {
		exam.AIComment = s.Coach.ExamComment(ctx, exam)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ExamRepo.WithTx(tx).For(userID).Create(ctx, exam); err != nil {
			return err
		}
		if _, err := s.UserRepo.WithTx(tx).AddXP(ctx, userID, XPExamCreate); err != nil {
			return err
		}
		return s.TargetRepo.WithTx(tx).For(userID).SetCurrentNet(ctx, exam.TYTNet)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create exam: %v", util.ErrPersistence, err)
	}

	monitoring.XPAwarded.WithLabelValues("exam_create").Add(XPExamCreate)
	return exam, nil
}

// Update 重新计算总分；被修改的是最近一次考试时同步目标净分
func (s *ExamService) Update(ctx context.Context, userID, examID uint, in ExamInput) (*model.ExamResult, error) {
	var exam *model.ExamResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exams := s.ExamRepo.WithTx(tx).For(userID)

		var err error
		exam, err = exams.Find(ctx, examID)
		if err != nil {
			return err
		}
		in.apply(exam)
		if err := exams.Save(ctx, exam); err != nil {
			return err
		}

		latest, err := exams.Latest(ctx)
		if err != nil {
			return err
		}
		if latest != nil && latest.ID == exam.ID {
			return s.TargetRepo.WithTx(tx).For(userID).SetCurrentNet(ctx, exam.TYTNet)
		}
		return nil
	})
	if errors.Is(err, util.ErrExamNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update exam: %v", util.ErrPersistence, err)
	}
	return exam, nil
}

func (s *ExamService) Delete(ctx context.Context, userID, examID uint) error {
	err := s.ExamRepo.For(userID).Delete(ctx, examID)
	if err != nil && !errors.Is(err, util.ErrExamNotFound) {
		return fmt.Errorf("%w: delete exam: %v", util.ErrPersistence, err)
	}
	return err
}

// List 最新的考试在前
func (s *ExamService) List(ctx context.Context, userID uint) ([]model.ExamResult, error) {
	exams, err := s.ExamRepo.For(userID).Recent(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: list exams: %v", util.ErrPersistence, err)
	}
	return exams, nil
}
