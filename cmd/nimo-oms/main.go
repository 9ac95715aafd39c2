package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-oms/internal/config"
	"github.com/bitfantasy/nimo-oms/internal/middleware"
	"github.com/bitfantasy/nimo-oms/internal/oms/entity"
	"github.com/bitfantasy/nimo-oms/internal/oms/events"
	omsHandler "github.com/bitfantasy/nimo-oms/internal/oms/handler"
	omsRepo "github.com/bitfantasy/nimo-oms/internal/oms/repository"
	omsService "github.com/bitfantasy/nimo-oms/internal/oms/service"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-oms service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// AutoMigrate OMS tables
	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to auto-migrate OMS tables", zap.Error(err))
	}
	zapLogger.Info("OMS database migration completed")

	// Redis（批次目录快照缓存）
	rdb := initRedis(cfg.Redis)

	// Kafka 履约事件发布
	var publisher *events.Publisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		topic := cfg.Kafka.Topic
		if topic == "" {
			topic = "oms.order-events"
		}
		publisher = events.NewPublisher(cfg.Kafka.Brokers, topic, zapLogger)
		defer publisher.Close()
	}

	// 初始化 OMS 依赖
	repos := omsRepo.NewRepositories(db)
	services := omsService.NewServices(repos, db, rdb, publisher)
	handlers := omsHandler.NewHandlers(services)

	// 确定端口
	port := os.Getenv("OMS_PORT")
	if port == "" {
		port = "8082"
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())

	// 健康检查
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "nimo-oms"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "nimo-oms"})
	})

	// 版本信息
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":    "nimo-oms",
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// OMS API v1
	v1 := router.Group("/api/v1/oms")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		operator := middleware.RequireRole("oms_operator")

		// 进货订单
		orders := v1.Group("/orders")
		{
			orders.GET("", handlers.Order.List)
			orders.POST("", handlers.Order.Create)
			orders.GET("/:id", handlers.Order.Get)
			orders.POST("/:id/confirm", handlers.Order.Confirm)
			orders.POST("/:id/payment", handlers.Order.RecordPayment)
			orders.POST("/:id/verify-payment", operator, handlers.Fulfillment.VerifyPayment)
			orders.GET("/:id/allocation/plan", handlers.Fulfillment.GetPlan)
			orders.POST("/:id/allocation/reassign", handlers.Fulfillment.ReassignLine)
			orders.POST("/:id/allocation/quantity", handlers.Fulfillment.SetLineQuantity)
			orders.POST("/:id/allocation/commit", operator, handlers.Fulfillment.CommitAllocation)
			orders.POST("/:id/dispatch", operator, handlers.Fulfillment.RecordDispatch)
			orders.POST("/:id/transit", handlers.Order.MarkInTransit)
			orders.POST("/:id/deliver", handlers.Order.MarkDelivered)
			orders.POST("/:id/cancel", handlers.Order.Cancel)
		}

		// 库存批次
		batches := v1.Group("/batches")
		{
			batches.GET("", handlers.Batch.List)
			batches.POST("/inbound", operator, handlers.Batch.Inbound)
		}
	}

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("OMS Server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down OMS server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("OMS Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	if cfg.Host == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
