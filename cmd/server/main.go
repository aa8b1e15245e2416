package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"lecture-sync/config"
	"lecture-sync/internal/api/handler"
	"lecture-sync/internal/api/router"
	"lecture-sync/internal/repository"
	"lecture-sync/internal/service"
	"lecture-sync/pkg/cache"
	"lecture-sync/pkg/database"
	"lecture-sync/pkg/jwt"
	applogger "lecture-sync/pkg/logger"
	"lecture-sync/pkg/redis"
	"lecture-sync/pkg/storage"
	"lecture-sync/pkg/validation"
)

func main() {
	// 0. 本地开发可使用 .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "读取 .env 失败: %v\n", err)
		os.Exit(1)
	}

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("LECTURE_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("lock_backend", cfg.Scheduler.LockBackend),
	)

	if err := validation.Register(); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与分布式排课锁将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 排课锁与可选组件：对象存储、进程内缓存
	locker, err := service.NewBookingLocker(&cfg.Scheduler, rdb, logger)
	if err != nil {
		logger.Fatal("初始化排课锁失败", zap.Error(err))
	}
	deps := service.Deps{
		Repo:   repository.NewRepository(db),
		JWT:    jwt.NewManager(&cfg.Auth),
		Locker: locker,
		Cache:  cache.New(cfg.Cache.CatalogTTL, cfg.Cache.CleanupInterval),
	}
	if rdb != nil {
		deps.Blacklist = rdb
	}
	if cfg.Storage.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := storage.NewMinIOStore(ctx, &cfg.Storage, logger)
		cancel()
		if err != nil {
			logger.Warn("对象存储初始化失败，课程封面上传不可用", zap.Error(err))
		} else {
			deps.Images = store
		}
	}

	// 6. 依赖注入: Repository → Service → Handler
	svc := service.NewService(cfg, deps, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, deps.JWT, rdb, deps.Cache, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	sqlDB.Close()
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
