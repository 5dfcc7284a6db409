package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"yks_coach_backend/internal/model"
	"yks_coach_backend/internal/repository"
	"yks_coach_backend/internal/util"
	"yks_coach_backend/pkg/logger"
	"yks_coach_backend/pkg/monitoring"
	"yks_coach_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 兜底文案
const (
	DefaultRanking      = "İlk 10.000"
	FallbackPlanTask    = "Bugün 1 TYT denemesi çöz ve yanlışlarını konu konu not al."
	TutorApology        = "Üzgünüm, şu an cevap veremiyorum. Biraz sonra tekrar dene."
	SolveFailureAnswer  = "Görseli okuyamadım."
	ExamCommentFallback = "Analiz oluşturulamadı."

	recentTaskWindow = 5
	tutorHistorySize = 5
	weakTopicCount   = 3
	examTopicWindow  = 3
)

var (
	GoalAnalysisFallback = GoalAnalysis{Title: "YKS SAVAŞÇISI", Message: "Asla pes etme!"}
	GoalAnalysisOffline  = GoalAnalysis{Title: "OFFLINE", Message: "Bağlantı yok."}
	ChallengeFallback    = Challenge{Title: "Soru Avı", Description: "20 Paragraf sorusu çöz!", DurationMinutes: 30, XPReward: 50}
)

type GoalAnalysis struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Challenge struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"durationMinutes"`
	XPReward        int    `json:"xpReward"`
}

type PlanResult struct {
	Tasks    []string `json:"tasks"`
	Fallback bool     `json:"fallback"`
}

type TutorAnswer struct {
	Answer    string `json:"answer"`
	Task      string `json:"task,omitempty"`
	TaskAdded bool   `json:"taskAdded"`
}

type SolveResult struct {
	Answer    string `json:"answer"`
	XPAwarded int    `json:"xpAwarded"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// ChallengeStore 每日挑战缓存，未启用 Redis 时为 nil
type ChallengeStore interface {
	Get(ctx context.Context, userID uint, day string) ([]byte, bool, error)
	Set(ctx context.Context, userID uint, day string, payload []byte, ttl time.Duration) error
}

// CoachService 组装上下文、调用模型、解析结果并在失败时兜底
type CoachService struct {
	DB         *gorm.DB
	Gate       *TaskGate
	Tasks      *TaskService
	UserRepo   *repository.UserRepository
	TargetRepo *repository.TargetRepository
	TaskRepo   *repository.TaskRepository
	ExamRepo   *repository.ExamRepository
	ChatRepo   *repository.ChatRepository
	AI         AIProvider
	Prompts    *PromptSet
	Storage    *StorageService
	Cache      ChallengeStore
	Location   *time.Location
	Now        func() time.Time
}

func (s *CoachService) now() time.Time {
	if s.Now != nil {
		return s.Now().In(s.location())
	}
	return time.Now().In(s.location())
}

func (s *CoachService) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// generate 调用模型并记录追踪、日志和兜底指标
func (s *CoachService) generate(ctx context.Context, flow, prompt string, image *ImageInput) (string, error) {
	ctx, span := tracing.Tracer.Start(ctx, "coach."+flow, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("prompt.length", len(prompt)))

	text, err := s.AI.Generate(ctx, prompt, image)
	if err != nil {
		span.RecordError(err)
		reason := "error"
		if errors.Is(err, util.ErrAIUnavailable) {
			reason = "unconfigured"
		} else {
			logger.Log.Warn("AI call failed", zap.String("flow", flow), zap.Error(err))
		}
		monitoring.AIFallbacks.WithLabelValues(flow, reason).Inc()
		return "", err
	}
	return text, nil
}

func (s *CoachService) rejectPending(ctx context.Context, flow string, userID uint) error {
	if err := s.Gate.Check(ctx, userID); err != nil {
		if errors.Is(err, util.ErrTasksPending) {
			monitoring.GateRejections.WithLabelValues(flow).Inc()
		}
		return err
	}
	return nil
}

type planPromptData struct {
	Ranking    string
	CurrentNet float64
	RankLabel  string
	Difficulty string
	Completed  []string
	WeakTopics []string
}

// GeneratePlan 生成今日计划。有未完成任务时直接拒绝，不调用模型也不写库。
func (s *CoachService) GeneratePlan(ctx context.Context, userID uint) (*PlanResult, error) {
	if err := s.rejectPending(ctx, "plan", userID); err != nil {
		return nil, err
	}

	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	target, err := s.TargetRepo.For(userID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load target: %v", util.ErrPersistence, err)
	}
	recent, err := s.TaskRepo.For(userID).RecentCompleted(ctx, recentTaskWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: load recent tasks: %v", util.ErrPersistence, err)
	}

	rank := Rank(user.XP)
	data := planPromptData{
		Ranking:    rankingOf(target),
		RankLabel:  rank.Label,
		Difficulty: TierDescription(rank.Tier),
		WeakTopics: s.weakTopics(ctx, userID),
	}
	if target != nil {
		data.CurrentNet = target.CurrentTYTNet
	}
	for _, t := range recent {
		data.Completed = append(data.Completed, t.Content)
	}

	var contents []string
	prompt, err := s.Prompts.Render(promptPlan, data)
	if err == nil {
		if raw, genErr := s.generate(ctx, "plan", prompt, nil); genErr == nil {
			contents = ParsePlan(raw)
			if len(contents) == 0 {
				monitoring.AIFallbacks.WithLabelValues("plan", "parse").Inc()
			}
		}
	} else {
		logger.Log.Error("Render plan prompt failed", zap.Error(err))
	}

	result := &PlanResult{Tasks: contents}
	source := model.TaskSourcePlan
	if len(contents) == 0 {
		result.Tasks = []string{FallbackPlanTask}
		result.Fallback = true
		source = model.TaskSourceFallback
	}

	if _, err := s.Tasks.CreateMany(ctx, userID, result.Tasks, source); err != nil {
		return nil, err
	}
	return result, nil
}

type tutorPromptData struct {
	Username  string
	Ranking   string
	RankLabel string
	History   []model.ChatMessage
	Question  string
}

// AskTutor 回答学生问题。模型失败时返回固定道歉文案且不写库。
func (s *CoachService) AskTutor(ctx context.Context, userID uint, question string) (*TutorAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, util.ErrEmptyQuestion
	}

	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	target, err := s.TargetRepo.For(userID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load target: %v", util.ErrPersistence, err)
	}
	history, err := s.ChatRepo.For(userID).Latest(ctx, tutorHistorySize)
	if err != nil {
		return nil, fmt.Errorf("%w: load chat history: %v", util.ErrPersistence, err)
	}

	prompt, err := s.Prompts.Render(promptTutor, tutorPromptData{
		Username:  user.Username,
		Ranking:   rankingOf(target),
		RankLabel: Rank(user.XP).Label,
		History:   history,
		Question:  question,
	})
	if err != nil {
		logger.Log.Error("Render tutor prompt failed", zap.Error(err))
		return &TutorAnswer{Answer: TutorApology}, nil
	}

	raw, err := s.generate(ctx, "tutor", prompt, nil)
	if err != nil {
		return &TutorAnswer{Answer: TutorApology}, nil
	}

	reply := ParseTutorReply(raw)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg := &model.ChatMessage{Question: question, Answer: reply.Answer}
		if err := s.ChatRepo.WithTx(tx).For(userID).Append(ctx, msg); err != nil {
			return err
		}
		if reply.HasTask {
			task := &model.Task{Content: reply.Task, Source: model.TaskSourceTutor}
			return s.TaskRepo.WithTx(tx).For(userID).Create(ctx, task)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: save tutor answer: %v", util.ErrPersistence, err)
	}

	return &TutorAnswer{Answer: reply.Answer, Task: reply.Task, TaskAdded: reply.HasTask}, nil
}

// AnalyzeGoal 更新目标排名/大学并生成一段激励
func (s *CoachService) AnalyzeGoal(ctx context.Context, userID uint, ranking, university string) (*GoalAnalysis, error) {
	if err := s.rejectPending(ctx, "analyze", userID); err != nil {
		return nil, err
	}

	ranking = strings.TrimSpace(ranking)
	university = strings.TrimSpace(university)
	_, err := s.TargetRepo.For(userID).Upsert(ctx, func(t *model.UserTarget) {
		t.Ranking = ranking
		t.DreamUniversity = university
	})
	if err != nil {
		return nil, fmt.Errorf("%w: save target: %v", util.ErrPersistence, err)
	}

	prompt, err := s.Prompts.Render(promptAnalyze, map[string]string{
		"Ranking":    ranking,
		"University": university,
	})
	if err != nil {
		logger.Log.Error("Render analyze prompt failed", zap.Error(err))
		result := GoalAnalysisFallback
		return &result, nil
	}

	raw, err := s.generate(ctx, "analyze", prompt, nil)
	if errors.Is(err, util.ErrAIUnavailable) {
		result := GoalAnalysisOffline
		return &result, nil
	}
	if err != nil {
		result := GoalAnalysisFallback
		return &result, nil
	}

	result, ok := ParseStructured(raw, GoalAnalysisFallback, func(g GoalAnalysis) bool {
		return strings.TrimSpace(g.Title) != "" && strings.TrimSpace(g.Message) != ""
	})
	if !ok {
		monitoring.AIFallbacks.WithLabelValues("analyze", "parse").Inc()
	}
	return &result, nil
}

// GenerateChallenge 生成（或从当天缓存读取）每日挑战，难度由等级决定
func (s *CoachService) GenerateChallenge(ctx context.Context, userID uint) (*Challenge, error) {
	now := s.now()
	day := now.Format(model.DateLayout)

	if s.Cache != nil {
		payload, ok, err := s.Cache.Get(ctx, userID, day)
		if err != nil {
			logger.Log.Warn("Challenge cache read failed", zap.Uint("userID", userID), zap.Error(err))
		}
		if ok {
			var cached Challenge
			if err := json.Unmarshal(payload, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	rank := Rank(user.XP)

	prompt, err := s.Prompts.Render(promptChallenge, map[string]string{
		"RankLabel":  rank.Label,
		"Difficulty": TierDescription(rank.Tier),
	})
	if err != nil {
		logger.Log.Error("Render challenge prompt failed", zap.Error(err))
		result := ChallengeFallback
		return &result, nil
	}

	raw, err := s.generate(ctx, "challenge", prompt, nil)
	if err != nil {
		result := ChallengeFallback
		return &result, nil
	}

	result, ok := ParseStructured(raw, ChallengeFallback, validChallenge)
	if !ok {
		monitoring.AIFallbacks.WithLabelValues("challenge", "parse").Inc()
		return &result, nil
	}

	if s.Cache != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := s.Cache.Set(ctx, userID, day, payload, untilEndOfDay(now)); err != nil {
				logger.Log.Warn("Challenge cache write failed", zap.Uint("userID", userID), zap.Error(err))
			}
		}
	}
	return &result, nil
}

func validChallenge(c Challenge) bool {
	return strings.TrimSpace(c.Title) != "" &&
		strings.TrimSpace(c.Description) != "" &&
		c.DurationMinutes > 0 &&
		c.XPReward > 0
}

func untilEndOfDay(now time.Time) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return midnight.Sub(now)
}

// SolveImage 保存题目图片并让模型解题，成功时奖励经验值
func (s *CoachService) SolveImage(ctx context.Context, userID uint, filename string, image *ImageInput) (*SolveResult, error) {
	result := &SolveResult{}

	if s.Storage != nil {
		url, err := s.Storage.SaveQuestionImage(ctx, userID, filename, image)
		if err != nil {
			logger.Log.Warn("Store question image failed", zap.Uint("userID", userID), zap.Error(err))
		} else {
			result.ImageURL = url
		}
	}

	prompt, err := s.Prompts.Render(promptSolve, nil)
	if err != nil {
		logger.Log.Error("Render solve prompt failed", zap.Error(err))
		result.Answer = SolveFailureAnswer
		return result, nil
	}

	raw, err := s.generate(ctx, "solve", prompt, image)
	if err != nil {
		result.Answer = SolveFailureAnswer
		return result, nil
	}

	if _, err := s.UserRepo.AddXP(ctx, userID, XPImageSolve); err != nil {
		return nil, fmt.Errorf("%w: award solve xp: %v", util.ErrPersistence, err)
	}
	monitoring.XPAwarded.WithLabelValues("image_solve").Add(XPImageSolve)

	result.Answer = strings.TrimSpace(raw)
	result.XPAwarded = XPImageSolve
	return result, nil
}

// ExamComment 两句话点评，失败时返回固定文案
func (s *CoachService) ExamComment(ctx context.Context, exam *model.ExamResult) string {
	prompt, err := s.Prompts.Render(promptExamComment, map[string]interface{}{
		"Turkish":  exam.Turkish,
		"Social":   exam.Social,
		"Math":     exam.Math,
		"Science":  exam.Science,
		"Net":      exam.TYTNet,
		"Mistakes": topTopics(exam.Mistakes.Data(), weakTopicCount),
	})
	if err != nil {
		logger.Log.Error("Render exam prompt failed", zap.Error(err))
		return ExamCommentFallback
	}

	raw, err := s.generate(ctx, "exam_comment", prompt, nil)
	if err != nil || strings.TrimSpace(raw) == "" {
		return ExamCommentFallback
	}
	return strings.TrimSpace(raw)
}

// weakTopics 汇总最近几次考试的错题主题，出错时返回空
func (s *CoachService) weakTopics(ctx context.Context, userID uint) []string {
	exams, err := s.ExamRepo.For(userID).Recent(ctx, examTopicWindow)
	if err != nil {
		logger.Log.Warn("Load recent exams failed", zap.Uint("userID", userID), zap.Error(err))
		return nil
	}
	tally := model.MistakeTally{}
	for _, e := range exams {
		for topic, n := range e.Mistakes.Data() {
			tally[topic] += n
		}
	}
	return topTopics(tally, weakTopicCount)
}

func topTopics(tally model.MistakeTally, n int) []string {
	topics := make([]string, 0, len(tally))
	for topic, count := range tally {
		if count > 0 {
			topics = append(topics, topic)
		}
	}
	sort.Slice(topics, func(i, j int) bool {
		if tally[topics[i]] != tally[topics[j]] {
			return tally[topics[i]] > tally[topics[j]]
		}
		return topics[i] < topics[j]
	})
	if len(topics) > n {
		topics = topics[:n]
	}
	return topics
}

func rankingOf(target *model.UserTarget) string {
	if target == nil || strings.TrimSpace(target.Ranking) == "" {
		return DefaultRanking
	}
	return target.Ranking
}
