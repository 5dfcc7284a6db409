package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"yks_coach_backend/internal/config"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/repository"
	"yks_coach_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultTargetTYTNet 用户没有填写目标净分时使用
const DefaultTargetTYTNet = 120

type AuthService struct {
	DB         *gorm.DB
	UserRepo   *repository.UserRepository
	TargetRepo *repository.TargetRepository
	TaskRepo   *repository.TaskRepository
	ExamRepo   *repository.ExamRepository
	ChatRepo   *repository.ChatRepository
	Notifier   *Notifier
	Cfg        *config.Config
}

type TargetInput struct {
	Ranking         string  `json:"ranking"`
	DreamUniversity string  `json:"dreamUniversity"`
	DreamDepartment string  `json:"dreamDepartment"`
	CurrentTYTNet   float64 `json:"currentTytNet"`
	TargetTYTNet    float64 `json:"targetTytNet"`
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Target   *TargetInput
}

func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Register 创建未激活用户（可带目标），提交后发送验证码邮件
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	exists, err := s.UserRepo.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: check user: %v", util.ErrPersistence, err)
	}
	if exists {
		return nil, util.ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	code, err := generateVerificationCode()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:         in.Username,
		Email:            in.Email,
		Password:         string(hashedPassword),
		IsActive:         false,
		VerificationCode: &code,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.UserRepo.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		if in.Target == nil {
			return nil
		}
		target := &model.UserTarget{
			Ranking:         in.Target.Ranking,
			DreamUniversity: in.Target.DreamUniversity,
			DreamDepartment: in.Target.DreamDepartment,
			CurrentTYTNet:   in.Target.CurrentTYTNet,
			TargetTYTNet:    in.Target.TargetTYTNet,
		}
		if target.TargetTYTNet <= 0 {
			target.TargetTYTNet = DefaultTargetTYTNet
		}
		if err := s.TargetRepo.WithTx(tx).For(user.ID).Create(ctx, target); err != nil {
			return err
		}
		user.Target = target
		return nil
	})
	if err != nil {
		if errors.Is(err, util.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: register: %v", util.ErrPersistence, err)
	}

	if s.Notifier != nil {
		s.Notifier.SendVerification(ctx, user.Email, code)
	}
	return user, nil
}

func (s *AuthService) Verify(ctx context.Context, email, code string) error {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if user.IsActive {
		return util.ErrAlreadyVerified
	}
	if user.VerificationCode == nil || *user.VerificationCode != strings.TrimSpace(code) {
		return util.ErrInvalidCode
	}

	return s.UserRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"is_active":         true,
		"verification_code": nil,
	})
}

// ResendCode 为未激活账户生成新验证码并重新发送
func (s *AuthService) ResendCode(ctx context.Context, email string) error {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if user.IsActive {
		return util.ErrAlreadyVerified
	}

	code, err := generateVerificationCode()
	if err != nil {
		return err
	}
	if err := s.UserRepo.UpdateFields(ctx, user.ID, map[string]interface{}{"verification_code": code}); err != nil {
		return fmt.Errorf("%w: store code: %v", util.ErrPersistence, err)
	}

	if s.Notifier != nil {
		s.Notifier.SendVerification(ctx, user.Email, code)
	}
	return nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.UserRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, util.ErrUserNotFound) {
		return "", util.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", util.ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", util.ErrAccountInactive
	}

	return util.GenerateJWT(user.ID, user.Username, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
}

// DeleteAccount 在一个事务中删除用户及其全部数据
func (s *AuthService) DeleteAccount(ctx context.Context, userID uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.UserRepo.WithTx(tx).FindByID(ctx, userID); err != nil {
			return err
		}
		if err := s.TaskRepo.WithTx(tx).For(userID).DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.ExamRepo.WithTx(tx).For(userID).DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.TargetRepo.WithTx(tx).For(userID).Delete(ctx); err != nil {
			return err
		}
		if err := s.ChatRepo.WithTx(tx).For(userID).DeleteAll(ctx); err != nil {
			return err
		}
		return s.UserRepo.WithTx(tx).Delete(ctx, userID)
	})
	if errors.Is(err, util.ErrUserNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: delete account: %v", util.ErrPersistence, err)
	}
	return nil
}
