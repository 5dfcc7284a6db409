package service

import (
	"context"
	"fmt"
	"yks_coach_backend/internal/repository"
	"yks_coach_backend/internal/util"
)

// PendingTasksError 用户还有未完成的任务，计划生成和目标分析被拒绝
type PendingTasksError struct {
	Count int64
}

func (e *PendingTasksError) Error() string {
	return fmt.Sprintf("%d unfinished tasks pending", e.Count)
}

func (e *PendingTasksError) Is(target error) bool {
	return target == util.ErrTasksPending
}

type TaskGate struct {
	TaskRepo *repository.TaskRepository
}

func NewTaskGate(taskRepo *repository.TaskRepository) *TaskGate {
	return &TaskGate{TaskRepo: taskRepo}
}

// Check 没有未完成任务时返回 nil，否则返回 *PendingTasksError
func (g *TaskGate) Check(ctx context.Context, userID uint) error {
	pending, err := g.TaskRepo.For(userID).CountPending(ctx)
	if err != nil {
		return fmt.Errorf("%w: count pending tasks: %v", util.ErrPersistence, err)
	}
	if pending > 0 {
		return &PendingTasksError{Count: pending}
	}
	return nil
}
