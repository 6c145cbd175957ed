package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MedMinderPlatform/pkg/config"
	"MedMinderPlatform/pkg/logger"
	"MedMinderPlatform/pkg/metrics"
	"MedMinderPlatform/pkg/rabbitmq"
	"MedMinderPlatform/pkg/ratelimit"
	pkg_redis "MedMinderPlatform/pkg/redis"
	httphandler "MedMinderPlatform/services/identity-service/internal/handler/http"
	"MedMinderPlatform/services/identity-service/internal/middleware"
	"MedMinderPlatform/services/identity-service/internal/pkg/jwt"
	"MedMinderPlatform/services/identity-service/internal/pkg/password"
	"MedMinderPlatform/services/identity-service/internal/repository"
	redisrepo "MedMinderPlatform/services/identity-service/internal/repository/redis"
	"MedMinderPlatform/services/identity-service/internal/service"
)

func main() {
	// Инициализация конфигурации
	configFile := os.Getenv("CONFIG_FILE")
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger, err := logger.NewLogger(cfg.Environment, cfg.Logger.Level, "identity-service")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() {
		if err := appLogger.Sync(); err != nil {
			log.Printf("Error syncing logger: %v", err)
		}
	}()

	// Инициализация трассировки
	if err := metrics.InitializeOpenTelemetry("identity-service"); err != nil {
		appLogger.Warn("Failed to initialize tracing", logger.Error(err))
	}

	// Инициализация Redis
	redisConfig := pkg_redis.NewConfig()
	redisConfig.Addr = cfg.Redis.Addr
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB
	redisConfig.PoolSize = cfg.Redis.PoolSize
	redisConfig.MinIdleConn = cfg.Redis.MinIdleConn
	redisConfig.MaxRetries = cfg.Redis.MaxRetries

	redisCtx, redisCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer redisCancel()

	redisClient, err := pkg_redis.Connect(redisCtx, redisConfig)
	if err != nil {
		appLogger.Error("Failed to connect to redis", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// Инициализация RabbitMQ; при недоступности брокера сервис
	// продолжает работу без отправки писем
	var mailPublisher service.MailPublisher
	rabbitConfig := rabbitmq.NewConfig()
	rabbitConfig.URL = cfg.RabbitMQ.URL
	rabbitConfig.Exchange = cfg.RabbitMQ.Exchange
	rabbitConfig.RoutingKey = cfg.RabbitMQ.RoutingKey
	rabbitConfig.Queue = cfg.RabbitMQ.Queue

	rabbitCtx, rabbitCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer rabbitCancel()

	rabbitConn, err := rabbitmq.Connect(rabbitCtx, rabbitConfig)
	if err != nil {
		appLogger.Warn("Failed to connect to rabbitmq, mail events disabled", logger.Error(err))
		mailPublisher = service.NewNoopMailPublisher(appLogger)
	} else {
		defer rabbitConn.Close()
		mailPublisher = service.NewRabbitMailPublisher(rabbitmq.NewProducer(rabbitConn, rabbitConfig))
	}

	// Инициализация метрик и rate limiter
	metricCollector := metrics.NewMetrics("identity_service")
	rateLimiter := ratelimit.NewRedisRateLimiter(redisClient.Client)

	// Инициализация репозиториев
	userRepo := redisrepo.NewUserRepository(redisClient.Client)
	adminRepo := redisrepo.NewAdminRepository(redisClient.Client)
	tokenRepo := redisrepo.NewActionTokenRepository(redisClient.Client)

	// Инициализация JWT менеджера и хешера паролей
	jwtManager := jwt.NewManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTTL(),
		cfg.JWT.RefreshTTL(),
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
	)
	hasher := password.NewBcryptHasher(cfg.Password.BcryptCost, cfg.Password.Workers)

	// Инициализация сервисов
	authService := service.NewAuthService(userRepo, adminRepo, tokenRepo, jwtManager, hasher, mailPublisher, metricCollector, appLogger)
	accountService := service.NewAccountService(userRepo, adminRepo, tokenRepo, jwtManager, hasher, mailPublisher, metricCollector, appLogger)
	adminService := service.NewAdminService(userRepo, adminRepo, appLogger)

	// Добавление настроенных администраторов в набор
	bootstrapAdmins(context.Background(), cfg.Admin.Emails, userRepo, adminRepo, appLogger)

	// Настройка HTTP обработчиков
	healthHandler := httphandler.NewHealthHandler(redisClient, appLogger)
	authMW := middleware.AuthMiddleware(jwtManager)
	adminMW := middleware.AdminMiddleware(adminRepo, appLogger)
	rateLimitMW := middleware.RateLimitMiddleware(rateLimiter, cfg.RateLimiting.RequestsPerMinute, time.Minute, appLogger)

	baseHandler := httphandler.NewHandler(
		authService,
		accountService,
		adminService,
		healthHandler,
		authMW,
		adminMW,
		rateLimitMW,
		cfg.JWT.RefreshTTL(),
		cfg.Environment == "prod",
		appLogger,
	)

	// Обертываем хендлер в middleware метрик и общий таймаут запроса
	// По истечении таймаута запрос завершается отказом, а не зависает
	var httpHandler http.Handler = metricCollector.Middleware(baseHandler)
	httpHandler = http.TimeoutHandler(httpHandler, cfg.Server.Timeout(), `{"error":{"code":"INTERNAL_ERROR","message":"request timed out"}}`)

	// Добавляем эндпоинт для метрик
	rootMux := http.NewServeMux()
	rootMux.Handle("/metrics", metricCollector.GetHandler())
	rootMux.Handle("/", httpHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      rootMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		appLogger.Info("Starting identity service", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", logger.Error(err))
		}
	}()

	// Обработка сигналов для graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server shutdown failed", logger.Error(err))
	}

	appLogger.Info("Server stopped")
}

// bootstrapAdmins добавляет пользователей с настроенными email
// в набор администраторов; неизвестные адреса пропускаются
func bootstrapAdmins(ctx context.Context, emails []string, users repository.UserRepository, admins repository.AdminRepository, log logger.Logger) {
	for _, email := range emails {
		user, err := users.FindByEmail(ctx, redisrepo.NormalizeEmail(email))
		if err != nil {
			log.Warn("admin bootstrap: user not found",
				logger.String("email", email), logger.Error(err))
			continue
		}
		if err := admins.Add(ctx, user.ID); err != nil {
			log.Error("admin bootstrap: failed to grant privileges",
				logger.String("user_id", user.ID), logger.Error(err))
			continue
		}
		log.Info("admin bootstrap: privileges granted",
			logger.String("user_id", user.ID))
	}
}
