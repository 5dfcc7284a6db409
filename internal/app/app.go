package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"yks_coach_backend/internal/config"
	"yks_coach_backend/internal/controller"
	"yks_coach_backend/internal/repository"
	"yks_coach_backend/internal/service"
	"yks_coach_backend/pkg/configwatcher"
	"yks_coach_backend/pkg/database"
	"yks_coach_backend/pkg/logger"
	"yks_coach_backend/pkg/mailqueue"
	"yks_coach_backend/pkg/monitoring"
	"yks_coach_backend/pkg/security"
	"yks_coach_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	publisher       *mailqueue.Publisher
	configCallbacks []func(*config.Config)
	shutdownHooks   []func(context.Context) error
}

type repositories struct {
	user      *repository.UserRepository
	target    *repository.TargetRepository
	task      *repository.TaskRepository
	exam      *repository.ExamRepository
	chat      *repository.ChatRepository
	challenge *repository.ChallengeCache
}

type services struct {
	ai       *service.AIService
	storage  *service.StorageService
	notifier *service.Notifier
	auth     *service.AuthService
	profile  *service.ProfileService
	task     *service.TaskService
	coach    *service.CoachService
	exam     *service.ExamService
	chat     *service.ChatService
}

type controllers struct {
	auth    *controller.AuthController
	profile *controller.ProfileController
	task    *controller.TaskController
	coach   *controller.CoachController
	exam    *controller.ExamController
	chat    *controller.ChatController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	repos := &repositories{
		user:   repository.NewUserRepository(db),
		target: repository.NewTargetRepository(db),
		task:   repository.NewTaskRepository(db),
		exam:   repository.NewExamRepository(db),
		chat:   repository.NewChatRepository(db),
	}
	if rdb != nil {
		repos.challenge = repository.NewChallengeCache(rdb)
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB) *services {
	s := &services{}

	prompts, err := service.LoadPrompts()
	if err != nil {
		logger.Log.Fatal("Failed to load coach prompts", zap.Error(err))
	}

	s.ai = service.NewAIService(cfg.AI)
	s.storage = service.NewStorageService(cfg)
	s.notifier = service.NewNotifier(service.NewSMTPMailer(cfg.Mail), a.publisher)
	s.task = service.NewTaskService(db, repos.task, repos.user)
	s.chat = service.NewChatService(repos.chat)

	s.auth = &service.AuthService{
		DB:         db,
		UserRepo:   repos.user,
		TargetRepo: repos.target,
		TaskRepo:   repos.task,
		ExamRepo:   repos.exam,
		ChatRepo:   repos.chat,
		Notifier:   s.notifier,
		Cfg:        cfg,
	}

	loc := cfg.Server.Location()
	s.profile = &service.ProfileService{
		UserRepo:   repos.user,
		TargetRepo: repos.target,
		ExamRepo:   repos.exam,
		Location:   loc,
	}

	s.coach = &service.CoachService{
		DB:         db,
		Gate:       service.NewTaskGate(repos.task),
		Tasks:      s.task,
		UserRepo:   repos.user,
		TargetRepo: repos.target,
		TaskRepo:   repos.task,
		ExamRepo:   repos.exam,
		ChatRepo:   repos.chat,
		AI:         s.ai,
		Prompts:    prompts,
		Storage:    s.storage,
		Location:   loc,
	}
	// 未启用 Redis 时保持接口为 nil
	if repos.challenge != nil {
		s.coach.Cache = repos.challenge
	}

	s.exam = &service.ExamService{
		DB:         db,
		ExamRepo:   repos.exam,
		TargetRepo: repos.target,
		UserRepo:   repos.user,
		Coach:      s.coach,
	}

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:    controller.NewAuthController(s.auth),
		profile: controller.NewProfileController(s.profile),
		task:    controller.NewTaskController(s.task),
		coach:   controller.NewCoachController(s.coach),
		exam:    controller.NewExamController(s.exam),
		chat:    controller.NewChatController(s.chat),
		health:  controller.NewHealthController(db, rdb, s.ai),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window, security.ByClientIP))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 配置热更新和邮件队列消费者，ctx 取消时退出
func (a *App) startBackgroundTasks(ctx context.Context, s *services) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.ai.Reconfigure(cfg.AI)
		logger.SetMode(cfg.Server.Mode)
		logger.Log.Info("AI settings reloaded", zap.String("provider", cfg.AI.Provider), zap.String("model", cfg.AI.Model))
	})

	configFile := filepath.Join(a.ConfigDir, "config.yaml")
	go func() {
		err := configwatcher.WatchConfig(ctx, configFile, config.LoadConfig, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()

	if a.publisher != nil {
		go func() {
			if err := mailqueue.Consume(ctx, a.Config.Broker.URL, a.Config.Broker.Queue, s.notifier.Deliver); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.Error("Mail consumer stopped", zap.Error(err))
			}
		}()
	}
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	}

	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
		Redis:     rdb,
	}

	if rdb != nil {
		app.shutdownHooks = append(app.shutdownHooks, func(context.Context) error {
			return rdb.Close()
		})
	}

	if cfg.Broker.URL != "" {
		app.publisher = mailqueue.NewPublisher(cfg.Broker.URL, cfg.Broker.Queue)
		app.shutdownHooks = append(app.shutdownHooks, func(context.Context) error {
			return app.publisher.Close()
		})
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.shutdownHooks = append(app.shutdownHooks, tp.Shutdown)
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg, db)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundTasks(ctx, a.services)

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	for _, hook := range a.shutdownHooks {
		if err := hook(shutdownCtx); err != nil {
			logger.Log.Warn("Shutdown hook failed", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
	_ = logger.Log.Sync()
}
