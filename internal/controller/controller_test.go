package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
	"yks_coach_backend/internal/config"
	"yks_coach_backend/internal/middleware"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/repository"
	"yks_coach_backend/internal/service"
	"yks_coach_backend/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stubAI struct {
	reply string
	calls int
}

func (s *stubAI) Generate(ctx context.Context, prompt string, image *service.ImageInput) (string, error) {
	s.calls++
	return s.reply, nil
}

type apiEnv struct {
	db     *gorm.DB
	users  *repository.UserRepository
	tasks  *repository.TaskRepository
	exams  *repository.ExamRepository
	ai     *stubAI
	ledger *service.TaskService
	router *gin.Engine
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&model.User{}, &model.UserTarget{}, &model.Task{}, &model.ExamResult{}, &model.ChatMessage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	prompts, err := service.LoadPrompts()
	if err != nil {
		t.Fatalf("prompts: %v", err)
	}

	env := &apiEnv{
		db:    db,
		users: repository.NewUserRepository(db),
		tasks: repository.NewTaskRepository(db),
		exams: repository.NewExamRepository(db),
		ai:    &stubAI{reply: "1. Paragraf çöz\n2. Türev tekrar"},
	}
	targets := repository.NewTargetRepository(db)
	chat := repository.NewChatRepository(db)
	env.ledger = service.NewTaskService(db, env.tasks, env.users)

	now := func() time.Time { return time.Date(2026, 6, 14, 10, 0, 0, 0, time.UTC) }
	coach := &service.CoachService{
		DB:         db,
		Gate:       service.NewTaskGate(env.tasks),
		Tasks:      env.ledger,
		UserRepo:   env.users,
		TargetRepo: targets,
		TaskRepo:   env.tasks,
		ExamRepo:   env.exams,
		ChatRepo:   chat,
		AI:         env.ai,
		Prompts:    prompts,
		Location:   time.UTC,
		Now:        now,
	}
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}
	auth := &service.AuthService{
		DB:         db,
		UserRepo:   env.users,
		TargetRepo: targets,
		TaskRepo:   env.tasks,
		ExamRepo:   env.exams,
		ChatRepo:   chat,
		Cfg:        cfg,
	}
	exams := &service.ExamService{DB: db, ExamRepo: env.exams, TargetRepo: targets, UserRepo: env.users, Coach: coach}

	authCtl := NewAuthController(auth)
	taskCtl := NewTaskController(env.ledger)
	coachCtl := NewCoachController(coach)
	examCtl := NewExamController(exams)

	r := gin.New()
	r.POST("/api/login", authCtl.Login)
	api := r.Group("/api", middleware.AuthMiddleware(cfg))
	api.GET("/tasks", taskCtl.ListTasks)
	api.PUT("/tasks/:id/toggle", taskCtl.ToggleTask)
	api.POST("/coach/plan", coachCtl.GeneratePlan)
	api.POST("/coach/solve", coachCtl.Solve)
	api.DELETE("/exams/:id", examCtl.DeleteExam)
	env.router = r
	return env
}

func (e *apiEnv) user(t *testing.T, name, password string, active bool) (*model.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &model.User{Username: name, Email: name + "@example.com", Password: string(hash), IsActive: active}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := util.GenerateJWT(u.ID, u.Username, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return u, token
}

func (e *apiEnv) do(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, util.Response) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	var body util.Response
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body %q: %v", w.Body.String(), err)
		}
	}
	return w, body
}

func TestPlanRejectedWhileTasksPending(t *testing.T) {
	env := newAPIEnv(t)
	u, token := env.user(t, "ayse", "secret1", true)
	for _, c := range []string{"Paragraf", "Problemler"} {
		if _, err := env.ledger.Create(context.Background(), u.ID, c, model.TaskSourceUser); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	w, body := env.do(t, httptest.NewRequest(http.MethodPost, "/api/coach/plan", nil), token)
	if w.Code != http.StatusNotAcceptable {
		t.Fatalf("want=406 got=%d body=%s", w.Code, w.Body.String())
	}
	data, _ := body.Data.(map[string]interface{})
	if data["pendingCount"] != float64(2) {
		t.Fatalf("want pendingCount=2 got=%v", body.Data)
	}
	if env.ai.calls != 0 {
		t.Fatalf("model must not be called while gated, calls=%d", env.ai.calls)
	}
}

func TestPlanCreatesTasksWhenClear(t *testing.T) {
	env := newAPIEnv(t)
	u, token := env.user(t, "mert", "secret1", true)

	w, _ := env.do(t, httptest.NewRequest(http.MethodPost, "/api/coach/plan", nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	tasks, err := env.tasks.For(u.ID).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Content != "Paragraf çöz" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestToggleTaskAwardsXP(t *testing.T) {
	env := newAPIEnv(t)
	u, token := env.user(t, "zeynep", "secret1", true)
	task, err := env.ledger.Create(context.Background(), u.ID, "Deneme çöz", model.TaskSourceUser)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	url := "/api/tasks/" + strconv.FormatUint(uint64(task.ID), 10) + "/toggle"
	w, body := env.do(t, httptest.NewRequest(http.MethodPut, url, nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("want=200 got=%d", w.Code)
	}
	data, _ := body.Data.(map[string]interface{})
	if data["xp"] != float64(service.XPTaskToggle) {
		t.Fatalf("want xp=%d got=%v", service.XPTaskToggle, body.Data)
	}
}

func TestToggleTaskRejectsBadID(t *testing.T) {
	env := newAPIEnv(t)
	_, token := env.user(t, "can", "secret1", true)

	w, _ := env.do(t, httptest.NewRequest(http.MethodPut, "/api/tasks/abc/toggle", nil), token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want=400 got=%d", w.Code)
	}
}

func TestDeleteForeignExamIsNotFound(t *testing.T) {
	env := newAPIEnv(t)
	owner, _ := env.user(t, "owner", "secret1", true)
	_, other := env.user(t, "other", "secret1", true)

	exam := &model.ExamResult{ExamName: "TYT-1", Turkish: 30, TakenAt: time.Now()}
	exam.RecomputeNet()
	if err := env.exams.For(owner.ID).Create(context.Background(), exam); err != nil {
		t.Fatalf("create exam: %v", err)
	}

	url := "/api/exams/" + strconv.FormatUint(uint64(exam.ID), 10)
	w, _ := env.do(t, httptest.NewRequest(http.MethodDelete, url, nil), other)
	if w.Code != http.StatusNotFound {
		t.Fatalf("want=404 got=%d", w.Code)
	}
	if _, err := env.exams.For(owner.ID).Find(context.Background(), exam.ID); err != nil {
		t.Fatalf("owner's exam should survive: %v", err)
	}
}

func TestProtectedRouteNeedsToken(t *testing.T) {
	env := newAPIEnv(t)

	w, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/tasks", nil), "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want=401 got=%d", w.Code)
	}
}

func TestLoginStatusCodes(t *testing.T) {
	env := newAPIEnv(t)
	env.user(t, "active", "secret1", true)
	env.user(t, "pending", "secret1", false)

	cases := []struct {
		name     string
		username string
		password string
		want     int
	}{
		{"ok", "active", "secret1", http.StatusOK},
		{"wrong password", "active", "nope", http.StatusUnauthorized},
		{"unknown user", "ghost", "secret1", http.StatusUnauthorized},
		{"not verified", "pending", "secret1", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, _ := json.Marshal(map[string]string{"username": tc.username, "password": tc.password})
			req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			w, _ := env.do(t, req, "")
			if w.Code != tc.want {
				t.Fatalf("want=%d got=%d body=%s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestSolveRejectsNonImage(t *testing.T) {
	env := newAPIEnv(t)
	_, token := env.user(t, "elif", "secret1", true)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "soru.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte("this is plain text, not a picture"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/coach/solve", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, _ := env.do(t, req, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want=400 got=%d", w.Code)
	}
	if env.ai.calls != 0 {
		t.Fatalf("model must not be called, calls=%d", env.ai.calls)
	}
}
