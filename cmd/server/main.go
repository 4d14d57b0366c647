package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/CreaMakers/CSUSTPlanet-sub001/config"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/api/handler"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/api/middleware"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/api/router"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/repository"
	"github.com/CreaMakers/CSUSTPlanet-sub001/internal/service"
	"github.com/CreaMakers/CSUSTPlanet-sub001/pkg/database"
	applogger "github.com/CreaMakers/CSUSTPlanet-sub001/pkg/logger"
	"github.com/CreaMakers/CSUSTPlanet-sub001/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	rollback := flag.Int("rollback", 0, "回滚 N 个数据库迁移版本后退出（仅 store.driver=postgres）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
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
		zap.String("store", cfg.Store.Driver),
		zap.String("timezone", cfg.Engine.Timezone),
	)

	// 3. 初始化课表引擎
	eng, err := service.NewEngineFromConfig(&cfg.Engine, logger)
	if err != nil {
		logger.Fatal("课表引擎配置无效", zap.Error(err))
	}

	// 4. 快照缓存
	codec := repository.NewSnapshotCodec(cfg.Engine.Location())
	var (
		store   repository.SnapshotStore
		limiter middleware.RateLimiter
		db      *gorm.DB
		rdb     *redis.Client
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, err = database.NewDB(&cfg.Database, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
		}
		if *rollback > 0 {
			if err := database.RollbackMigrations(sqlDB, *rollback, logger); err != nil {
				logger.Fatal("回滚迁移失败", zap.Error(err))
			}
			sqlDB.Close()
			return
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
		store = repository.NewSnapshotRepo(db, codec, cfg.Store.Key)
	case "redis":
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Redis 连接失败", zap.Error(err))
		}
		store = repository.NewRedisSnapshotStore(rdb, codec, cfg.Store.Key, cfg.Store.TTL, logger)
		limiter = rdb
	default:
		store = repository.NewMemorySnapshotStore()
	}
	if *rollback > 0 && db == nil {
		logger.Fatal("-rollback 仅在 store.driver=postgres 时可用")
	}

	// 5. 课表数据源（可选）
	var fetcher service.SnapshotFetcher
	if cfg.Source.ICSURL != "" {
		fetcher = service.NewICSFetcher(
			cfg.Source.ICSURL,
			service.ParseOptionsFromConfig(cfg, eng.Slots()),
			cfg.Source.FetchTimeout,
			logger,
		)
	} else {
		logger.Warn("未配置 source.ics_url，仅能通过导入接口提供课表")
	}

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(store)
	svc := service.NewService(service.Deps{
		Config:  cfg,
		Repo:    repo,
		Engine:  eng,
		Fetcher: fetcher,
		Logger:  logger,
	})
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, limiter, logger)

	// 8. 定时刷新
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var refresher *service.Refresher
	if cfg.Refresher.Enabled && fetcher != nil {
		refresher = service.NewRefresher(svc.Snapshot, cfg.Refresher.Cron, 2*cfg.Source.FetchTimeout, logger)
		refresher.Start(ctx)
		// 启动时预热缓存
		go refresher.RunOnce(ctx)
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	if refresher != nil {
		refresher.Stop()
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
