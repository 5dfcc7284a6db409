package repository

import (
	"context"
	"errors"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/util"

	"gorm.io/gorm"
)

type TaskRepository struct {
	DB *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{DB: tx}
}

// For 返回只能访问 userID 名下任务的视图
func (r *TaskRepository) For(userID uint) *UserTasks {
	return &UserTasks{ownerScope{db: r.DB, userID: userID}}
}

type UserTasks struct {
	ownerScope
}

func (t *UserTasks) Create(ctx context.Context, task *model.Task) error {
	task.UserID = t.userID
	return t.db.WithContext(ctx).Create(task).Error
}

func (t *UserTasks) CreateBatch(ctx context.Context, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	for _, task := range tasks {
		task.UserID = t.userID
	}
	return t.db.WithContext(ctx).Create(&tasks).Error
}

func (t *UserTasks) List(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := t.query(ctx, &model.Task{}).Order("id ASC").Find(&tasks).Error
	return tasks, err
}

func (t *UserTasks) Find(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	err := t.query(ctx, &model.Task{}).Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (t *UserTasks) SetCompleted(ctx context.Context, id uint, completed bool) error {
	res := t.query(ctx, &model.Task{}).Where("id = ?", id).Update("is_completed", completed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrTaskNotFound
	}
	return nil
}

func (t *UserTasks) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := t.query(ctx, &model.Task{}).Where("is_completed = ?", false).Count(&count).Error
	return count, err
}

// RecentCompleted 最近完成的任务（按ID倒序）
func (t *UserTasks) RecentCompleted(ctx context.Context, limit int) ([]model.Task, error) {
	var tasks []model.Task
	err := t.query(ctx, &model.Task{}).
		Where("is_completed = ?", true).
		Order("id DESC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

func (t *UserTasks) DeleteCompleted(ctx context.Context) (int64, error) {
	res := t.db.WithContext(ctx).
		Where("user_id = ? AND is_completed = ?", t.userID, true).
		Delete(&model.Task{})
	return res.RowsAffected, res.Error
}

func (t *UserTasks) DeleteAll(ctx context.Context) error {
	return t.db.WithContext(ctx).Where("user_id = ?", t.userID).Delete(&model.Task{}).Error
}
