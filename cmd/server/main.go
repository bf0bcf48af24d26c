package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/niosh12/ddeducation/config"
	"github.com/niosh12/ddeducation/internal/api/handler"
	"github.com/niosh12/ddeducation/internal/api/middleware"
	"github.com/niosh12/ddeducation/internal/api/router"
	"github.com/niosh12/ddeducation/internal/realtime"
	"github.com/niosh12/ddeducation/internal/repository"
	"github.com/niosh12/ddeducation/internal/service"
	"github.com/niosh12/ddeducation/pkg/cloudinary"
	"github.com/niosh12/ddeducation/pkg/database"
	"github.com/niosh12/ddeducation/pkg/jwt"
	applogger "github.com/niosh12/ddeducation/pkg/logger"
	"github.com/niosh12/ddeducation/pkg/payment"
	"github.com/niosh12/ddeducation/pkg/queue"
	"github.com/niosh12/ddeducation/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
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
		zap.Int("bootstrap_admins", len(cfg.Auth.BootstrapAdmins)),
	)

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
		logger.Warn("Redis 连接失败，Token 黑名单、限流与跨实例广播将不可用", zap.Error(err))
	}

	// 5. 实时事件中心（有 Redis 时跨实例广播）
	var relay realtime.Relay
	if rdb != nil {
		relay = realtime.NewRedisRelay(rdb, cfg.Redis.EventsChannel)
	}
	hub := realtime.NewHub(relay, logger)

	// 6. 可选外部依赖
	deps := service.Deps{}
	var limiter middleware.RateLimiter
	if rdb != nil {
		deps.Blacklist = rdb
		limiter = rdb
	}

	var producer *queue.Producer
	if cfg.Kafka.Enabled {
		producer = queue.NewProducer(&cfg.Kafka, logger)
		deps.Events = producer
		logger.Info("Kafka 事件投递已启用", zap.String("topic", cfg.Kafka.Topic))
	}

	if cfg.Upload.CloudinaryURL != "" {
		uploader, err := cloudinary.NewUploader(cfg.Upload.CloudinaryURL, cfg.Upload.Folder)
		if err != nil {
			logger.Warn("Cloudinary 初始化失败，付款截图将内联保存", zap.Error(err))
		} else {
			deps.Uploader = uploader
		}
	}

	if cfg.Payment.Enabled {
		deps.Gateway = payment.NewClient(&cfg.Payment, logger)
	} else {
		logger.Warn("支付未启用，结算将保存资料但不创建订单")
	}

	// 7. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 8. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, hub, jwtMgr, deps, logger)
	h := handler.NewHandler(cfg, svc)

	// 9. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, deps.Blacklist, limiter, svc.Roles, logger)

	// 10. HTTP 服务器，SSE 长连接不设置写超时
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// 11. 服务器与事件中心同生命周期，收到系统信号或任一方出错即开始优雅关闭
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, egctx := errgroup.WithContext(sigCtx)
	eg.Go(func() error {
		hub.Run(egctx)
		return nil
	})
	eg.Go(func() error {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务器异常: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		logger.Info("开始优雅关闭...")

		// 先关闭订阅，SSE 连接随之结束，Shutdown 才不会等满超时
		hub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	if err := eg.Wait(); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warn("Kafka 生产者关闭异常", zap.Error(err))
		}
	}

	// 关闭数据库连接
	if closeDB, _ := db.DB(); closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
