package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/util"
)

type memoryChallengeStore struct {
	data map[string][]byte
	ttl  time.Duration
}

func (m *memoryChallengeStore) Get(ctx context.Context, userID uint, day string) ([]byte, bool, error) {
	p, ok := m.data[day]
	return p, ok, nil
}

func (m *memoryChallengeStore) Set(ctx context.Context, userID uint, day string, payload []byte, ttl time.Duration) error {
	m.data[day] = payload
	m.ttl = ttl
	return nil
}

func TestGeneratePlanRejectedWhilePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "pending", 0)
	env.task(t, u.ID, "Matematik problemler")
	env.task(t, u.ID, "Türkçe dil bilgisi")
	env.ai.reply = "1. Yeni görev numara bir"

	_, err := env.coach.GeneratePlan(ctx, u.ID)
	var pending *PendingTasksError
	if !errors.As(err, &pending) || pending.Count != 2 {
		t.Fatalf("want PendingTasksError{2} got %v", err)
	}
	if env.ai.calls() != 0 {
		t.Fatalf("AI must not be called, calls=%d", env.ai.calls())
	}
	if n := env.taskCount(t, u.ID); n != 2 {
		t.Fatalf("no task may be created: want=2 got=%d", n)
	}
}

func TestGeneratePlanPersistsParsedTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "planner", 600)
	done := env.task(t, u.ID, "Limit konu tekrarı")
	if _, err := env.ledger.Toggle(ctx, u.ID, done.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := env.ledger.ClearCompleted(ctx, u.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	env.ai.reply = "- **30 paragraf sorusu**\n2) Türev 20 soru\nok\n* Fizik deneme 1"

	res, err := env.coach.GeneratePlan(ctx, u.ID)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if res.Fallback || len(res.Tasks) != 3 {
		t.Fatalf("plan result: got %+v", res)
	}
	tasks, _ := env.ledger.List(ctx, u.ID)
	if len(tasks) != 3 || tasks[0].Source != model.TaskSourcePlan || tasks[0].Content != "30 paragraf sorusu" {
		t.Fatalf("stored tasks: got %+v", tasks)
	}
	prompt := env.ai.prompts[0]
	if !strings.Contains(prompt, DefaultRanking) || !strings.Contains(prompt, "Kalfa") {
		t.Fatalf("prompt missing context: %q", prompt)
	}
}

func TestGeneratePlanFallbackWhenUnconfigured(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "offline", 0)
	env.ai.err = util.ErrAIUnavailable

	res, err := env.coach.GeneratePlan(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !res.Fallback || len(res.Tasks) != 1 || res.Tasks[0] != FallbackPlanTask {
		t.Fatalf("fallback plan: got %+v", res)
	}
	tasks, _ := env.ledger.List(context.Background(), u.ID)
	if len(tasks) != 1 || tasks[0].Source != model.TaskSourceFallback {
		t.Fatalf("fallback task: got %+v", tasks)
	}
}

func TestAskTutorAddsTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "soru", 0)
	env.ai.reply = "Türevde zincir kuralını çalış.\nGOREV_EKLE: **15 zincir kuralı sorusu**"

	ans, err := env.coach.AskTutor(ctx, u.ID, "Türev nasıl çalışılır?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if ans.Answer != "Türevde zincir kuralını çalış." || !ans.TaskAdded {
		t.Fatalf("answer: got %+v", ans)
	}

	msgs, _ := env.chat.For(u.ID).Latest(ctx, 10)
	if len(msgs) != 1 || msgs[0].Answer != ans.Answer {
		t.Fatalf("chat: got %+v", msgs)
	}
	tasks, _ := env.ledger.List(ctx, u.ID)
	if len(tasks) != 1 || tasks[0].Content != "🤖 Hoca: 15 zincir kuralı sorusu" || tasks[0].Source != model.TaskSourceTutor {
		t.Fatalf("tutor task: got %+v", tasks)
	}
}

func TestAskTutorFailurePersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "sessiz", 0)
	env.ai.err = errors.New("timeout")

	ans, err := env.coach.AskTutor(ctx, u.ID, "Merhaba")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if ans.Answer != TutorApology || ans.TaskAdded {
		t.Fatalf("apology: got %+v", ans)
	}
	msgs, _ := env.chat.For(u.ID).Latest(ctx, 10)
	if len(msgs) != 0 {
		t.Fatalf("chat must be empty, got %d", len(msgs))
	}
	if _, err := env.coach.AskTutor(ctx, u.ID, "  "); !errors.Is(err, util.ErrEmptyQuestion) {
		t.Fatalf("empty question: want ErrEmptyQuestion got %v", err)
	}
}

func TestAnalyzeGoal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "hedef", 0)

	env.ai.err = util.ErrAIUnavailable
	res, err := env.coach.AnalyzeGoal(ctx, u.ID, "İlk 1.000", "Boğaziçi")
	if err != nil || *res != GoalAnalysisOffline {
		t.Fatalf("offline: got %+v err=%v", res, err)
	}
	target, _ := env.targets.For(u.ID).Get(ctx)
	if target == nil || target.Ranking != "İlk 1.000" || target.DreamUniversity != "Boğaziçi" {
		t.Fatalf("target not upserted: %+v", target)
	}

	env.ai.err = nil
	env.ai.reply = "tamam işte: not json"
	res, _ = env.coach.AnalyzeGoal(ctx, u.ID, "İlk 1.000", "Boğaziçi")
	if *res != GoalAnalysisFallback {
		t.Fatalf("parse fallback: got %+v", res)
	}

	env.ai.reply = "```json\n{\"title\":\"KARTAL\",\"message\":\"Hedefe az kaldı\"}\n```"
	res, _ = env.coach.AnalyzeGoal(ctx, u.ID, "İlk 1.000", "Boğaziçi")
	if res.Title != "KARTAL" {
		t.Fatalf("parsed: got %+v", res)
	}

	env.task(t, u.ID, "Bitmemiş iş")
	calls := env.ai.calls()
	if _, err := env.coach.AnalyzeGoal(ctx, u.ID, "x", "y"); !errors.Is(err, util.ErrTasksPending) {
		t.Fatalf("gate: want ErrTasksPending got %v", err)
	}
	if env.ai.calls() != calls {
		t.Fatalf("AI called despite pending tasks")
	}
	target, _ = env.targets.For(u.ID).Get(ctx)
	if target.Ranking != "İlk 1.000" {
		t.Fatalf("target must not change when gated")
	}
}

func TestGenerateChallengeFallbackWhenUnconfigured(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "meydan", 0)
	env.ai.err = util.ErrAIUnavailable

	got, err := env.coach.GenerateChallenge(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	if got.Title == "" || got.Description == "" || got.DurationMinutes <= 0 || got.XPReward <= 0 {
		t.Fatalf("fallback fields must be set: %+v", got)
	}
	if *got != ChallengeFallback {
		t.Fatalf("want fallback got %+v", got)
	}
}

func TestGenerateChallengeCachedPerDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "cache", 2000)
	store := &memoryChallengeStore{data: map[string][]byte{}}
	env.coach.Cache = store
	env.ai.reply = `{"title":"Deneme Maratonu","description":"Tam TYT denemesi","durationMinutes":165,"xpReward":120}`

	first, err := env.coach.GenerateChallenge(ctx, u.ID)
	if err != nil || first.Title != "Deneme Maratonu" {
		t.Fatalf("first: got %+v err=%v", first, err)
	}
	if store.ttl != 14*time.Hour {
		t.Fatalf("ttl: want=14h got=%v", store.ttl)
	}

	env.ai.reply = `{"title":"Başka","description":"x","durationMinutes":1,"xpReward":1}`
	second, _ := env.coach.GenerateChallenge(ctx, u.ID)
	if *second != *first || env.ai.calls() != 1 {
		t.Fatalf("second call should hit cache: got %+v calls=%d", second, env.ai.calls())
	}
	if !strings.Contains(env.ai.prompts[0], "Usta") {
		t.Fatalf("challenge prompt should carry rank: %q", env.ai.prompts[0])
	}
}

func TestSolveImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "goruntu", 0)
	img := &ImageInput{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}

	env.ai.reply = "Cevap C."
	res, err := env.coach.SolveImage(ctx, u.ID, "soru.png", img)
	if err != nil || res.Answer != "Cevap C." || res.XPAwarded != XPImageSolve {
		t.Fatalf("solve: got %+v err=%v", res, err)
	}
	if env.xp(t, u.ID) != XPImageSolve || env.ai.images != 1 {
		t.Fatalf("xp=%d images=%d", env.xp(t, u.ID), env.ai.images)
	}

	env.ai.err = errors.New("vision failed")
	res, _ = env.coach.SolveImage(ctx, u.ID, "soru.png", img)
	if res.Answer != SolveFailureAnswer || res.XPAwarded != 0 {
		t.Fatalf("failure: got %+v", res)
	}
	if env.xp(t, u.ID) != XPImageSolve {
		t.Fatalf("no xp on failure")
	}
}

func TestTopTopics(t *testing.T) {
	got := topTopics(model.MistakeTally{"Türev": 3, "Paragraf": 5, "Optik": 3, "Mol": 0, "Limit": 1}, 3)
	want := []string{"Paragraf", "Optik", "Türev"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("want=%v got=%v", want, got)
	}
}
