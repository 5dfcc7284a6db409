package repository

import (
	"context"
	"errors"
	"testing"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/util"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	// 内存库每个连接都是独立的数据库
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.User{}, &model.UserTarget{}, &model.Task{}, &model.ExamResult{}, &model.ChatMessage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", Password: "x", IsActive: true}
	if err := NewUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestAddXPClampsAtZero(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	u := seedUser(t, db, "ayse")

	xp, err := users.AddXP(ctx, u.ID, 10)
	if err != nil || xp != 10 {
		t.Fatalf("AddXP(+10): want=10 got=%d err=%v", xp, err)
	}
	xp, err = users.AddXP(ctx, u.ID, -25)
	if err != nil || xp != 0 {
		t.Fatalf("AddXP(-25): want=0 got=%d err=%v", xp, err)
	}
	if _, err := users.AddXP(ctx, 9999, 10); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("AddXP unknown user: want ErrUserNotFound got %v", err)
	}
}

func TestTaskScopeIsolation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	task := &model.Task{Content: "Paragraf çöz", Source: model.TaskSourceUser}
	if err := repo.For(alice.ID).Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.For(bob.ID).Find(ctx, task.ID); !errors.Is(err, util.ErrTaskNotFound) {
		t.Fatalf("foreign find: want ErrTaskNotFound got %v", err)
	}
	if err := repo.For(bob.ID).SetCompleted(ctx, task.ID, true); !errors.Is(err, util.ErrTaskNotFound) {
		t.Fatalf("foreign update: want ErrTaskNotFound got %v", err)
	}
	bobTasks, _ := repo.For(bob.ID).List(ctx)
	if len(bobTasks) != 0 {
		t.Fatalf("bob tasks: want=0 got=%d", len(bobTasks))
	}

	pending, err := repo.For(alice.ID).CountPending(ctx)
	if err != nil || pending != 1 {
		t.Fatalf("pending: want=1 got=%d err=%v", pending, err)
	}
}

func TestDeleteCompletedKeepsPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "mehmet")
	tasks := NewTaskRepository(db).For(u.ID)

	batch := []*model.Task{
		{Content: "Türev tekrarı"},
		{Content: "Deneme çöz"},
		{Content: "Tarih özet"},
	}
	if err := tasks.CreateBatch(ctx, batch); err != nil {
		t.Fatalf("batch: %v", err)
	}
	_ = tasks.SetCompleted(ctx, batch[0].ID, true)
	_ = tasks.SetCompleted(ctx, batch[2].ID, true)

	n, err := tasks.DeleteCompleted(ctx)
	if err != nil || n != 2 {
		t.Fatalf("DeleteCompleted: want=2 got=%d err=%v", n, err)
	}
	left, _ := tasks.List(ctx)
	if len(left) != 1 || left[0].Content != "Deneme çöz" {
		t.Fatalf("remaining: got %+v", left)
	}
}

func TestTargetUpsertAndCurrentNet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "zeynep")
	targets := NewTargetRepository(db).For(u.ID)

	if got, err := targets.Get(ctx); err != nil || got != nil {
		t.Fatalf("Get without target: want nil,nil got %v,%v", got, err)
	}
	// 没有目标时更新净分是空操作
	if err := targets.SetCurrentNet(ctx, 80); err != nil {
		t.Fatalf("SetCurrentNet: %v", err)
	}

	if _, err := targets.Upsert(ctx, func(tg *model.UserTarget) { tg.Ranking = "İlk 5.000" }); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := targets.SetCurrentNet(ctx, 85.5); err != nil {
		t.Fatalf("SetCurrentNet: %v", err)
	}
	got, _ := targets.Get(ctx)
	if got == nil || got.Ranking != "İlk 5.000" || got.CurrentTYTNet != 85.5 {
		t.Fatalf("target: got %+v", got)
	}
}

func TestChatLatestReturnsNewestAscending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "can")
	chat := NewChatRepository(db).For(u.ID)

	for _, q := range []string{"q1", "q2", "q3", "q4"} {
		if err := chat.Append(ctx, &model.ChatMessage{Question: q, Answer: "a"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	msgs, err := chat.Latest(ctx, 3)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(msgs) != 3 || msgs[0].Question != "q2" || msgs[2].Question != "q4" {
		t.Fatalf("latest order: got %+v", msgs)
	}
}

func TestExamDeleteForeign(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewExamRepository(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	exam := &model.ExamResult{ExamName: "Deneme 1", Turkish: 30}
	exam.RecomputeNet()
	if err := repo.For(alice.ID).Create(ctx, exam); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.For(bob.ID).Delete(ctx, exam.ID); !errors.Is(err, util.ErrExamNotFound) {
		t.Fatalf("foreign delete: want ErrExamNotFound got %v", err)
	}
	if err := repo.For(alice.ID).Delete(ctx, exam.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestCreateDuplicateUserReturnsUserExists(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	seedUser(t, db, "ayse")

	dup := &model.User{Username: "ayse", Email: "baska@example.com", Password: "x"}
	if err := users.Create(context.Background(), dup); !errors.Is(err, util.ErrUserExists) {
		t.Fatalf("want ErrUserExists got %v", err)
	}
}
