package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	echoSwagger "github.com/swaggo/echo-swagger"

	"chainpulse-self/docs"
	custommiddleware "chainpulse-self/internal/middleware"
	"chainpulse-self/internal/modules/auth/client"
	"chainpulse-self/internal/modules/auth/handler"
	"chainpulse-self/internal/modules/auth/service"
	"chainpulse-self/internal/modules/auth/tasks"
	"chainpulse-self/internal/pkg/config"
	"chainpulse-self/internal/pkg/i18n"
	"chainpulse-self/internal/pkg/log"
	"chainpulse-self/internal/pkg/metrics"
	"chainpulse-self/internal/pkg/notify"
	"chainpulse-self/internal/pkg/redis"
	"chainpulse-self/internal/pkg/response"
	"chainpulse-self/internal/pkg/sessioncache"
	"chainpulse-self/internal/pkg/validator"
	"chainpulse-self/internal/repository/impl"
)

// @title           ChainPulse Account Gateway API
// @version         1.0
// @description     加密资产研究平台账户网关 - 多提供方登录、会话解析与登出

// @host      localhost
// @BasePath  /api/v1

func main() {
	environment := config.GetEnvOrDefault("APP_ENV", "development")

	logLevel := slog.LevelInfo
	if environment == "development" {
		logLevel = slog.LevelDebug
	}
	log.Init(logLevel, environment)
	logger := log.GetLogger()

	metrics.SetServiceName("account-gateway")

	fmt.Println("==============================================")
	fmt.Println("  ChainPulse Account Gateway")
	fmt.Println("  Version: 1.0.0")
	fmt.Println("==============================================")
	fmt.Println()

	// --- Redis（会话记录存储，必需） ---
	redisClient, err := redis.NewClient(redis.Config{
		Host:     config.GetEnvOrDefault("REDIS_HOST", "localhost"),
		Port:     config.GetEnvInt("REDIS_PORT", 6379),
		Password: config.GetEnvOrDefault("REDIS_PASSWORD", ""),
		DB:       config.GetEnvInt("REDIS_DB", 0),
	}, "account-gateway")
	if err != nil {
		logger.Error("连接 Redis 失败", err)
		os.Exit(1)
	}

	// --- PostgreSQL（登录历史，可选） ---
	var db *sql.DB
	if dsn := config.GetEnvOrDefault("DATABASE_URL", ""); dsn != "" {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Error("连接数据库失败", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(config.GetEnvInt("DB_MAX_OPEN_CONNS", 20))
		db.SetMaxIdleConns(config.GetEnvInt("DB_MAX_IDLE_CONNS", 5))
		if err := db.Ping(); err != nil {
			logger.Error("数据库 ping 失败", err)
			os.Exit(1)
		}
		defer db.Close()
	} else {
		logger.Warn("未配置 DATABASE_URL，登录历史记录不落库")
	}

	// --- NATS（认证事件广播，可选） ---
	natsConfigured := false
	if natsAddr := config.GetEnvOrDefault("NATS_ADDRESS", ""); natsAddr != "" {
		natsConfigured = true
		nc, err := nats.Connect("nats://"+natsAddr,
			nats.MaxReconnects(10),
			nats.ReconnectWait(1*time.Second),
		)
		if err != nil {
			logger.Error("连接 NATS 失败", err)
			os.Exit(1)
		}
		notify.SetNatsConn(nc)
		defer nc.Close()
	} else {
		logger.Warn("未配置 NATS_ADDRESS，认证事件广播关闭")
	}

	// --- Keto（can_publish 权限富化，可选） ---
	var permissions service.PermissionAPI
	if ketoAddr := config.GetEnvOrDefault("KETO_READ_ADDRESS", ""); ketoAddr != "" {
		permissionClient, err := client.NewPermissionClient(ketoAddr, logger)
		if err != nil {
			logger.Error("连接 Keto 失败", err)
			os.Exit(1)
		}
		defer permissionClient.Close()
		permissions = permissionClient
	} else {
		logger.Warn("未配置 KETO_READ_ADDRESS，权限富化关闭")
	}

	// --- 上游客户端 ---
	platformClient := client.NewPlatformClient(
		config.GetEnvOrDefault("PLATFORM_API_URL", "http://localhost:8071"),
		config.GetEnvDuration("PLATFORM_API_TIMEOUT", 10*time.Second),
		logger,
	)
	kratosClient := client.NewKratosClient(
		config.GetEnvOrDefault("KRATOS_PUBLIC_URL", "http://localhost:4433"),
		logger,
	)

	// --- 认证模块装配 ---
	tokenSecret := config.GetEnvOrDefault("SESSION_TOKEN_SECRET", "")
	if tokenSecret == "" {
		if environment != "development" {
			logger.Error("缺少 SESSION_TOKEN_SECRET", nil)
			os.Exit(1)
		}
		tokenSecret = "dev-only-insecure-secret"
		logger.Warn("使用开发环境默认令牌密钥")
	}
	sessionTTL := config.GetEnvDuration("SESSION_TTL", 7*24*time.Hour)

	store := service.NewRedisSessionStore(redisClient)
	cache := sessioncache.New(config.GetEnvDuration("SESSION_CACHE_TTL", 5*time.Minute), nil, logger)
	tokens := service.NewTokenManager(tokenSecret, sessionTTL)

	var history service.LoginHistoryRecorder
	if db != nil {
		history = impl.NewLoginHistoryRecorder(impl.NewLoginHistoryRepository(db))
	}

	resolver := service.NewSessionResolver(store, platformClient, permissions, cache, nil, logger)
	authService := service.NewAuthService(store, platformClient, kratosClient, resolver, tokens, cache, history, nil, logger)

	respWriter := response.NewResponseHandler(logger, environment)
	cookieSecure := environment != "development"
	authHandler := handler.NewAuthHandler(authService, resolver, tokens, respWriter, cookieSecure)

	// --- HTTP 服务 ---
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	e.Use(custommiddleware.TraceMiddleware())
	e.Use(metrics.Middleware("account-gateway"))
	e.Use(i18n.Middleware())
	e.Use(custommiddleware.LoggingMiddlewareWithConfig(logger, &custommiddleware.LoggingConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}))
	e.Use(custommiddleware.RecoveryMiddleware(respWriter, logger))
	e.Use(custommiddleware.ErrorMiddleware(respWriter, logger))
	e.Use(custommiddleware.SecurityMiddleware())
	e.Use(custommiddleware.CORSMiddleware(nil))
	e.Use(custommiddleware.RateLimitMiddleware(config.GetEnvInt("RATE_LIMIT_PER_SECOND", 20)))

	v1 := e.Group("/api/v1")
	auth := v1.Group("/auth")
	{
		auth.GET("/session", authHandler.GetSession)
		auth.GET("/history", authHandler.GetLoginHistory)
		auth.GET("/wallet/message", authHandler.GetWalletMessage)
		auth.POST("/wallet/login", authHandler.WalletLogin)
		auth.POST("/social/login", authHandler.SocialLogin)
		auth.POST("/email/login", authHandler.EmailLogin)
		auth.POST("/logout", authHandler.Logout)
	}

	// Swagger UI
	docs.SwaggerInfo.Host = ""
	docs.SwaggerInfo.Schemes = []string{"http"}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Health check：/health 只确认进程存活，/health/ready 探测依赖
	healthHandler := handler.NewHealthHandler("account-gateway", logger)
	healthHandler.AddProbe("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.AddProbe("platform", platformClient.Ping)
	if natsConfigured {
		healthHandler.AddProbe("nats", func(ctx context.Context) error {
			if !notify.Connected() {
				return fmt.Errorf("NATS 连接不可用")
			}
			return nil
		})
	}
	if db != nil {
		healthHandler.AddProbe("postgres", func(ctx context.Context) error {
			return db.PingContext(ctx)
		})
	}
	e.GET("/health", healthHandler.Live)
	e.GET("/health/ready", healthHandler.Ready)

	// Prometheus metrics endpoint
	e.GET("/metrics", metrics.EchoHandler())

	// --- 定时清理 ---
	retention := tasks.NewRetentionTask(db, cache, logger)
	retention.Start()
	defer retention.Stop()

	// --- 启动与优雅退出 ---
	port := config.GetEnvOrDefault("HTTP_PORT", "8090")
	go func() {
		logger.Info("账户网关启动", log.String("port", port))
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP 服务启动失败", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("收到退出信号，开始优雅关闭")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("HTTP 服务关闭失败", err)
	}
	logger.Info("账户网关已退出")
}
