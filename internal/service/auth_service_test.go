package service

import (
	"context"
	"errors"
	"testing"
	"time"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/util"
)

type recordingMailer struct {
	sent chan [3]string
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.sent <- [3]string{to, subject, body}
	return nil
}

type failingMailer struct {
	attempted chan string
}

func (m *failingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.attempted <- to
	return errors.New("smtp down")
}

func newAuthService(env *testEnv, mailer Mailer) *AuthService {
	return &AuthService{
		DB:         env.db,
		UserRepo:   env.users,
		TargetRepo: env.targets,
		TaskRepo:   env.tasks,
		ExamRepo:   env.exams,
		ChatRepo:   env.chat,
		Notifier:   NewNotifier(mailer, nil),
		Cfg:        testConfig(),
	}
}

func TestRegisterVerifyLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mailer := &recordingMailer{sent: make(chan [3]string, 2)}
	svc := newAuthService(env, mailer)

	user, err := svc.Register(ctx, RegisterInput{
		Username: "yeni",
		Email:    "Yeni@Example.com",
		Password: "sifre123",
		Target:   &TargetInput{DreamDepartment: "Bilgisayar Müh.", CurrentTYTNet: 70},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.IsActive || user.Email != "yeni@example.com" {
		t.Fatalf("new user: got %+v", user)
	}
	target, _ := env.targets.For(user.ID).Get(ctx)
	if target == nil || target.TargetTYTNet != DefaultTargetTYTNet {
		t.Fatalf("target: got %+v", target)
	}

	var mail [3]string
	select {
	case mail = <-mailer.sent:
	case <-time.After(2 * time.Second):
		t.Fatalf("verification mail not sent")
	}
	code := *user.VerificationCode
	if mail[0] != "yeni@example.com" || mail[2] != "Kodun: "+code || len(code) != 6 {
		t.Fatalf("mail: got %v code=%q", mail, code)
	}

	if _, err := svc.Login(ctx, "yeni", "sifre123"); !errors.Is(err, util.ErrAccountInactive) {
		t.Fatalf("inactive login: want ErrAccountInactive got %v", err)
	}
	if err := svc.Verify(ctx, "yeni@example.com", "0"); !errors.Is(err, util.ErrInvalidCode) {
		t.Fatalf("bad code: want ErrInvalidCode got %v", err)
	}
	if err := svc.Verify(ctx, "yeni@example.com", code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.Verify(ctx, "yeni@example.com", code); !errors.Is(err, util.ErrAlreadyVerified) {
		t.Fatalf("second verify: want ErrAlreadyVerified got %v", err)
	}

	if _, err := svc.Login(ctx, "yeni", "yanlis"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials got %v", err)
	}
	token, err := svc.Login(ctx, "yeni", "sifre123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := util.ParseJWT(token, testConfig().JWT.Secret)
	if err != nil || claims.UserID != user.ID {
		t.Fatalf("token claims: got %+v err=%v", claims, err)
	}

	if _, err := svc.Register(ctx, RegisterInput{Username: "yeni", Email: "baska@example.com", Password: "x"}); !errors.Is(err, util.ErrUserExists) {
		t.Fatalf("duplicate: want ErrUserExists got %v", err)
	}
}

func TestResendCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mailer := &recordingMailer{sent: make(chan [3]string, 4)}
	svc := newAuthService(env, mailer)

	if err := svc.ResendCode(ctx, "yok@example.com"); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("unknown: want ErrUserNotFound got %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "tekrar", Email: "tekrar@example.com", Password: "x"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	<-mailer.sent
	if err := svc.ResendCode(ctx, "tekrar@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	select {
	case <-mailer.sent:
	case <-time.After(2 * time.Second):
		t.Fatalf("resend mail not sent")
	}
}

func TestDeleteAccountRemovesEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newAuthService(env, &recordingMailer{sent: make(chan [3]string, 1)})
	u := env.user(t, "silinecek", 0)
	keep := env.user(t, "kalacak", 0)

	env.task(t, u.ID, "Silinecek görev")
	env.task(t, keep.ID, "Kalacak görev")
	_ = env.targets.For(u.ID).Create(ctx, &model.UserTarget{Ranking: "x"})
	_ = env.exams.For(u.ID).Create(ctx, &model.ExamResult{ExamName: "d"})
	_ = env.chat.For(u.ID).Append(ctx, &model.ChatMessage{Question: "q", Answer: "a"})

	if err := svc.DeleteAccount(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.users.FindByID(ctx, u.ID); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("user still present: %v", err)
	}
	for _, m := range []interface{}{&model.Task{}, &model.ExamResult{}, &model.UserTarget{}, &model.ChatMessage{}} {
		var n int64
		env.db.Model(m).Where("user_id = ?", u.ID).Count(&n)
		if n != 0 {
			t.Fatalf("%T rows left: %d", m, n)
		}
	}
	if env.taskCount(t, keep.ID) != 1 {
		t.Fatalf("other user's data must survive")
	}
}

func TestSMTPMailerRequiresCredentials(t *testing.T) {
	m := NewSMTPMailer(testConfig().Mail)
	if err := m.Send(context.Background(), "a@b.c", "s", "b"); !errors.Is(err, util.ErrMailNotConfigured) {
		t.Fatalf("want ErrMailNotConfigured got %v", err)
	}
}

func TestRegisterCommitsWhenMailFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mailer := &failingMailer{attempted: make(chan string, 1)}
	svc := newAuthService(env, mailer)

	user, err := svc.Register(ctx, RegisterInput{Username: "burak", Email: "burak@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register should succeed when mail fails: %v", err)
	}

	select {
	case to := <-mailer.attempted:
		if to != "burak@example.com" {
			t.Fatalf("mail recipient: want=burak@example.com got=%s", to)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("verification mail was never attempted")
	}

	stored, err := env.users.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("user row missing after failed mail: %v", err)
	}
	if stored.IsActive || stored.VerificationCode == nil {
		t.Fatalf("user should be pending verification: %+v", stored)
	}
}
