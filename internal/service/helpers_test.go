package service

import (
	"context"
	"sync"
	"testing"
	"time"
	"yks_coach_backend/internal/config"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeAI struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	images  int
}

func (f *fakeAI) Generate(ctx context.Context, prompt string, image *ImageInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if image != nil {
		f.images++
	}
	return f.reply, f.err
}

func (f *fakeAI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type testEnv struct {
	db      *gorm.DB
	users   *repository.UserRepository
	targets *repository.TargetRepository
	tasks   *repository.TaskRepository
	exams   *repository.ExamRepository
	chat    *repository.ChatRepository

	ai     *fakeAI
	ledger *TaskService
	coach  *CoachService
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&model.User{}, &model.UserTarget{}, &model.Task{}, &model.ExamResult{}, &model.ChatMessage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	prompts, err := LoadPrompts()
	if err != nil {
		t.Fatalf("prompts: %v", err)
	}

	env := &testEnv{
		db:      db,
		users:   repository.NewUserRepository(db),
		targets: repository.NewTargetRepository(db),
		tasks:   repository.NewTaskRepository(db),
		exams:   repository.NewExamRepository(db),
		chat:    repository.NewChatRepository(db),
		ai:      &fakeAI{},
		now:     time.Date(2026, 6, 14, 10, 0, 0, 0, time.UTC),
	}
	env.ledger = NewTaskService(db, env.tasks, env.users)
	env.coach = &CoachService{
		DB:         db,
		Gate:       NewTaskGate(env.tasks),
		Tasks:      env.ledger,
		UserRepo:   env.users,
		TargetRepo: env.targets,
		TaskRepo:   env.tasks,
		ExamRepo:   env.exams,
		ChatRepo:   env.chat,
		AI:         env.ai,
		Prompts:    prompts,
		Location:   time.UTC,
		Now:        func() time.Time { return env.now },
	}
	return env
}

func (e *testEnv) user(t *testing.T, name string, xp int) *model.User {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", Password: "x", IsActive: true, XP: xp}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) task(t *testing.T, userID uint, content string) *model.Task {
	t.Helper()
	task, err := e.ledger.Create(context.Background(), userID, content, model.TaskSourceUser)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func (e *testEnv) xp(t *testing.T, userID uint) int {
	t.Helper()
	u, err := e.users.FindByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	return u.XP
}

func (e *testEnv) taskCount(t *testing.T, userID uint) int {
	t.Helper()
	tasks, err := e.tasks.For(userID).List(context.Background())
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	return len(tasks)
}

func testConfig() *config.Config {
	return &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}
}
