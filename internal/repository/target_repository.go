package repository

import (
	"context"
	"errors"
	"yks_coach_backend/internal/model"

	"gorm.io/gorm"
)

type TargetRepository struct {
	DB *gorm.DB
}

func NewTargetRepository(db *gorm.DB) *TargetRepository {
	return &TargetRepository{DB: db}
}

func (r *TargetRepository) WithTx(tx *gorm.DB) *TargetRepository {
	return &TargetRepository{DB: tx}
}

func (r *TargetRepository) For(userID uint) *UserTargetScope {
	return &UserTargetScope{ownerScope{db: r.DB, userID: userID}}
}

type UserTargetScope struct {
	ownerScope
}

// Get 返回用户目标；没有设置过目标时返回 (nil, nil)
func (s *UserTargetScope) Get(ctx context.Context) (*model.UserTarget, error) {
	var target model.UserTarget
	err := s.query(ctx, &model.UserTarget{}).First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &target, nil
}

func (s *UserTargetScope) Create(ctx context.Context, target *model.UserTarget) error {
	target.UserID = s.userID
	return s.db.WithContext(ctx).Create(target).Error
}

// Upsert 读取（不存在则新建）目标，交给 mutate 修改后保存
func (s *UserTargetScope) Upsert(ctx context.Context, mutate func(*model.UserTarget)) (*model.UserTarget, error) {
	target, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if target == nil {
		target = &model.UserTarget{UserID: s.userID}
	}
	mutate(target)
	if err := s.db.WithContext(ctx).Save(target).Error; err != nil {
		return nil, err
	}
	return target, nil
}

// SetCurrentNet 更新当前TYT净分，用户没有目标时不做任何事
func (s *UserTargetScope) SetCurrentNet(ctx context.Context, net float64) error {
	return s.query(ctx, &model.UserTarget{}).Update("current_tyt_net", net).Error
}

func (s *UserTargetScope) Delete(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("user_id = ?", s.userID).Delete(&model.UserTarget{}).Error
}
