package service

import (
	"context"
	"fmt"
	"time"
	"yks_coach_backend/internal/repository"
	"yks_coach_backend/internal/util"
	"yks_coach_backend/pkg/logger"

	"go.uber.org/zap"
)

const unknownTarget = "Belirsiz"

type ProfileService struct {
	UserRepo   *repository.UserRepository
	TargetRepo *repository.TargetRepository
	ExamRepo   *repository.ExamRepository
	Location   *time.Location
	Now        func() time.Time
}

type Profile struct {
	Username   string  `json:"username"`
	TargetInfo string  `json:"targetInfo"`
	XP         int     `json:"xp"`
	Rank       string  `json:"rank"`
	Tier       Tier    `json:"tier"`
	Progress   float64 `json:"progress"`
	Streak     int     `json:"streak"`
}

type Stats struct {
	CurrentTYT      float64 `json:"currentTyt"`
	CurrentAYT      float64 `json:"currentAyt"`
	TargetTYT       float64 `json:"targetTyt"`
	DreamDepartment string  `json:"dreamDepartment"`
	DreamUniversity string  `json:"dreamUniversity"`
	SuccessRate     int     `json:"successRate"`
}

func (s *ProfileService) today() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	if s.Now != nil {
		return s.Now().In(loc)
	}
	return time.Now().In(loc)
}

// Profile 读取资料，同时推进连续打卡天数（只有变化时才写库）
func (s *ProfileService) Profile(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	last, hasLast := user.LastActiveDay(today.Location())
	update := AdvanceStreak(last, hasLast, today, user.Streak)
	if update.Changed {
		err := s.UserRepo.UpdateFields(ctx, userID, map[string]interface{}{
			"streak":           update.Streak,
			"last_active_date": update.ActiveDate,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: update streak: %v", util.ErrPersistence, err)
		}
		logger.Log.Debug("Streak advanced", zap.Uint("userID", userID), zap.Int("streak", update.Streak))
	}

	target, err := s.TargetRepo.For(userID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load target: %v", util.ErrPersistence, err)
	}
	info := unknownTarget
	if target != nil {
		switch {
		case target.DreamDepartment != "":
			info = target.DreamDepartment
		case target.Ranking != "":
			info = "Hedef: " + target.Ranking
		}
	}

	rank := Rank(user.XP)
	return &Profile{
		Username:   user.Username,
		TargetInfo: info,
		XP:         user.XP,
		Rank:       rank.Label,
		Tier:       rank.Tier,
		Progress:   rank.Progress,
		Streak:     update.Streak,
	}, nil
}

// Stats 当前净分优先取最近一次考试，其次取目标中的当前净分
func (s *ProfileService) Stats(ctx context.Context, userID uint) (*Stats, error) {
	target, err := s.TargetRepo.For(userID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load target: %v", util.ErrPersistence, err)
	}
	latest, err := s.ExamRepo.For(userID).Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load latest exam: %v", util.ErrPersistence, err)
	}

	stats := &Stats{
		TargetTYT:       DefaultTargetTYTNet,
		DreamDepartment: unknownTarget,
		DreamUniversity: unknownTarget,
	}
	if target != nil {
		stats.CurrentTYT = target.CurrentTYTNet
		if target.TargetTYTNet > 0 {
			stats.TargetTYT = target.TargetTYTNet
		}
		if target.DreamDepartment != "" {
			stats.DreamDepartment = target.DreamDepartment
		}
		if target.DreamUniversity != "" {
			stats.DreamUniversity = target.DreamUniversity
		}
	}
	if latest != nil {
		stats.CurrentTYT = latest.TYTNet
		stats.CurrentAYT = latest.AYTNet
	}
	stats.SuccessRate = successRate(stats.CurrentTYT, stats.TargetTYT)
	return stats, nil
}

func successRate(current, target float64) int {
	if target <= 0 {
		return 0
	}
	rate := int(current / target * 100)
	if rate > 100 {
		return 100
	}
	if rate < 0 {
		return 0
	}
	return rate
}
