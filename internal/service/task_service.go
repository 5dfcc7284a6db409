package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/repository"
	"yks_coach_backend/internal/util"
	"yks_coach_backend/pkg/logger"
	"yks_coach_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 经验值奖励
const (
	XPTaskToggle = 10
	XPExamCreate = 50
	XPImageSolve = 15
)

// TaskService 任务账本：任务完成状态和经验值总是一起变化
type TaskService struct {
	DB       *gorm.DB
	TaskRepo *repository.TaskRepository
	UserRepo *repository.UserRepository
}

func NewTaskService(db *gorm.DB, taskRepo *repository.TaskRepository, userRepo *repository.UserRepository) *TaskService {
	return &TaskService{
		DB:       db,
		TaskRepo: taskRepo,
		UserRepo: userRepo,
	}
}

type ToggleResult struct {
	TaskID      uint `json:"taskId"`
	Toggled     bool `json:"toggled"`
	IsCompleted bool `json:"isCompleted"`
	XPDelta     int  `json:"xpDelta"`
	XP          int  `json:"xp"`
}

func (s *TaskService) List(ctx context.Context, userID uint) ([]model.Task, error) {
	tasks, err := s.TaskRepo.For(userID).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list tasks: %v", util.ErrPersistence, err)
	}
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, userID uint, content string, source model.TaskSource) (*model.Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, util.ErrEmptyTaskContent
	}
	if source == "" {
		source = model.TaskSourceUser
	}

	task := &model.Task{Content: content, Source: source}
	if err := s.TaskRepo.For(userID).Create(ctx, task); err != nil {
		return nil, fmt.Errorf("%w: create task: %v", util.ErrPersistence, err)
	}
	return task, nil
}

// CreateMany 在一个事务里批量创建任务
func (s *TaskService) CreateMany(ctx context.Context, userID uint, contents []string, source model.TaskSource) ([]model.Task, error) {
	batch := make([]*model.Task, 0, len(contents))
	for _, c := range contents {
		batch = append(batch, &model.Task{Content: c, Source: source})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.TaskRepo.WithTx(tx).For(userID).CreateBatch(ctx, batch)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create tasks: %v", util.ErrPersistence, err)
	}

	tasks := make([]model.Task, 0, len(batch))
	for _, t := range batch {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

// Toggle 翻转任务完成状态并同步调整经验值（完成+10，撤销-10）。
// 任务不存在或不属于该用户时什么都不做，返回 Toggled=false 和当前经验值。
func (s *TaskService) Toggle(ctx context.Context, userID, taskID uint) (*ToggleResult, error) {
	result := &ToggleResult{TaskID: taskID}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.TaskRepo.WithTx(tx).For(userID)
		users := s.UserRepo.WithTx(tx)

		task, err := tasks.Find(ctx, taskID)
		if errors.Is(err, util.ErrTaskNotFound) {
			user, err := users.FindByID(ctx, userID)
			if err != nil {
				return err
			}
			result.XP = user.XP
			return nil
		}
		if err != nil {
			return err
		}

		completed := !task.IsCompleted
		if err := tasks.SetCompleted(ctx, task.ID, completed); err != nil {
			return err
		}

		delta := XPTaskToggle
		if !completed {
			delta = -XPTaskToggle
		}
		xp, err := users.AddXP(ctx, userID, delta)
		if err != nil {
			return err
		}

		result.Toggled = true
		result.IsCompleted = completed
		result.XPDelta = delta
		result.XP = xp
		return nil
	})
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: toggle task: %v", util.ErrPersistence, err)
	}

	if result.Toggled {
		if result.IsCompleted {
			monitoring.XPAwarded.WithLabelValues("task_complete").Add(XPTaskToggle)
		} else {
			monitoring.XPAwarded.WithLabelValues("task_reopen").Add(XPTaskToggle)
		}
	} else {
		logger.Log.Debug("Toggle ignored for missing or foreign task",
			zap.Uint("userID", userID),
			zap.Uint("taskID", taskID))
	}
	return result, nil
}

// ClearCompleted 删除所有已完成任务，返回删除数量
func (s *TaskService) ClearCompleted(ctx context.Context, userID uint) (int64, error) {
	n, err := s.TaskRepo.For(userID).DeleteCompleted(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: clear completed: %v", util.ErrPersistence, err)
	}
	return n, nil
}
