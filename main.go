// @title YKS Coach API
// @version 1.0
// @description YKS sınav hazırlığı için oyunlaştırılmış çalışma koçu arka ucu.

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"
	"yks_coach_backend/internal/app"
	"yks_coach_backend/internal/config"
	"yks_coach_backend/pkg/database"
	"yks_coach_backend/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	configDir := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, using environment")
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.MigrateOnly = *migrateOnly

	// 迁移完成后直接退出
	if cfg.MigrateOnly {
		logger.InitLogger(cfg)
		defer logger.Log.Sync()
		if _, err := database.InitDB(&cfg.Database, false); err != nil {
			logger.Log.Fatal("Migration failed", zap.Error(err))
		}
		logger.Log.Info("数据库迁移完成，退出程序")
		return
	}

	application := app.NewApp(cfg, *configDir)
	application.Run()
}
