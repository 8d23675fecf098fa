/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移、模型引导和各业务服务的装配
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 应用启动时执行初始化流程：数据库 -> 迁移 -> 服务装配 -> 模型引导 -> 后台任务
 * @rules 确保所有依赖服务正常启动后才提供API服务；模型引导失败不阻止启动，评分退回默认值
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs dev_docs/model.md
 */

package service

import (
	"log"
	"os"
	"time"

	"incluscore-service/service/beneficiary"
	"incluscore-service/service/cache"
	"incluscore-service/service/cleanup"
	"incluscore-service/service/config"
	"incluscore-service/service/event"
	"incluscore-service/service/models"
	"incluscore-service/service/scoring"
	"incluscore-service/service/user"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                       *gorm.DB
	GlobalModelStore         *scoring.ModelStore
	GlobalScoringEngine      *scoring.ScoringEngine
	GlobalExplainer          *scoring.Explainer
	GlobalConfigService      *config.ConfigService
	GlobalBeneficiaryService *beneficiary.Service
	GlobalUserService        *user.Service
	GlobalEventService       *event.EventService
	GlobalScorePublisher     *event.ScorePublisher
	GlobalScoreCache         *cache.ScoreCache
	GlobalCleanupService     *cleanup.HistoryCleanupService
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
	bootstrapModel()
	startBackgroundTasks()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = "host=" + host + " port=" + port + " user=" + user +
			" password=" + password + " dbname=" + dbname +
			" sslmode=" + sslmode + " search_path=" + schema
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := DB.AutoMigrate(
		&models.Beneficiary{},
		&models.ScoreRecord{},
		&models.User{},
		&models.SystemConfig{},
		&models.SSEEvent{},
	); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	modelDir := getEnvWithDefault("MODEL_DIR", "./model_artifacts")

	GlobalModelStore = scoring.NewModelStore(modelDir)
	GlobalScoringEngine = scoring.NewScoringEngine(GlobalModelStore)
	GlobalExplainer = scoring.NewExplainer(GlobalModelStore)

	GlobalConfigService = config.NewConfigService(DB)
	GlobalBeneficiaryService = beneficiary.NewService(DB)
	GlobalUserService = user.NewService(DB)

	// SSE事件服务，带PostgreSQL变更监听
	enableListener := getEnvWithDefault("ENABLE_DB_LISTENER", "true") == "true"
	GlobalEventService = event.NewEventService(DB, enableListener)

	GlobalScorePublisher = event.NewScorePublisher()

	cacheTTL := time.Duration(GlobalConfigService.GetScoreCacheTTLSeconds()) * time.Second
	GlobalScoreCache = cache.NewScoreCache(cacheTTL)

	GlobalCleanupService = cleanup.NewHistoryCleanupService(DB, GlobalConfigService)

	log.Println("服务初始化完成")
}

// bootstrapModel 模型引导：优先加载已有模型，其次用数据库真值标签训练，
// 最后退回合成数据集训练，保证服务启动后就能评分
func bootstrapModel() {
	if err := GlobalModelStore.Load(); err == nil {
		log.Println("已加载持久化模型")
		return
	}

	// 尝试用数据库中带真值标签的受益人训练
	if ds, err := GlobalBeneficiaryService.TrainingDataset(); err == nil && len(ds.Labels) >= scoring.MinTrainingRows {
		if report, err := GlobalScoringEngine.TrainInitial(ds); err == nil {
			log.Printf("基于数据库标签完成初始训练: 样本数=%d 准确率=%.3f",
				report.TrainingSamples+report.TestSamples, report.Accuracy)
			return
		} else {
			log.Printf("数据库标签训练失败，退回合成数据: %v", err)
		}
	}

	// 合成数据集兜底
	ds := scoring.GenerateBeneficiaryData(100, scoring.DefaultRandomSeed)
	report, err := GlobalScoringEngine.TrainInitial(ds)
	if err != nil {
		log.Printf("合成数据训练失败，评分将返回默认值: %v", err)
		return
	}
	log.Printf("基于合成数据完成初始训练: 样本数=%d 准确率=%.3f",
		report.TrainingSamples+report.TestSamples, report.Accuracy)
}

// startBackgroundTasks 启动后台任务
func startBackgroundTasks() {
	if err := GlobalCleanupService.StartScheduledCleanup(); err != nil {
		log.Printf("启动评分历史清理调度失败: %v", err)
	}
}
