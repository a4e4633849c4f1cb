package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/api/handler"
	"github.com/ahmed-sakil/asian-school/internal/api/router"
	"github.com/ahmed-sakil/asian-school/internal/job"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/repository"
	"github.com/ahmed-sakil/asian-school/internal/service"
	"github.com/ahmed-sakil/asian-school/pkg/database"
	"github.com/ahmed-sakil/asian-school/pkg/jwt"
	applogger "github.com/ahmed-sakil/asian-school/pkg/logger"
	"github.com/ahmed-sakil/asian-school/pkg/metrics"
	"github.com/ahmed-sakil/asian-school/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（缺省时查找 ./config/config.yaml）")
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
		zap.String("academic_year", cfg.School.AcademicYear),
	)

	// 3. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功", zap.String("driver", cfg.Database.Driver))

	if err := database.Migrate(db, logger, model.All()...); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，成绩缓存、限流与 Token 黑名单将不可用", zap.Error(err))
		rdb = nil
	}
	// 成绩缓存
	var cache service.ResultCache
	if rdb != nil {
		cache = rdb
	}

	// 5. 初始化 JWT 管理器与指标
	jwtMgr := jwt.NewManager(&cfg.Auth)
	m := metrics.New()

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, cache, m, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	if err := router.RegisterValidators(); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}
	engine := router.Setup(cfg, h, jwtMgr, rdb, m, logger)

	// 8. 启动定时任务
	scheduler, err := job.NewScheduler(cfg, svc.Finance, logger)
	if err != nil {
		logger.Fatal("初始化定时任务失败", zap.Error(err))
	}
	scheduler.Start()

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // 导出接口生成文件需要更长时间
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	scheduler.Stop(ctx)

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
