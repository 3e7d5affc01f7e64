// Точка входа Share Module — сервис авторизации скачиваний по share-ссылкам.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт репозитории и сервисный слой, запускает topologymetrics,
// HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goartstore/share-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/share-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/share-module/internal/config"
	"github.com/bigkaa/goartstore/share-module/internal/database"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
	"github.com/bigkaa/goartstore/share-module/internal/server"
	"github.com/bigkaa/goartstore/share-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Share Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("SM_DEPHEALTH_GROUP") == "" {
		logger.Warn("SM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories
	shareRepo := repository.NewFileShareRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	contentRepo := repository.NewContentRepository(pool)

	// 6. Services
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	assembler := service.NewAssembler(contentRepo, cache)
	downloadSvc := service.NewDownloadService(shareRepo, activityRepo, assembler, logger)
	shareSvc := service.NewShareService(shareRepo, activityRepo, contentRepo, cfg.DefaultLinkTTL, logger)

	// 7. JWT middleware (опционально: пустой SM_JWKS_URL отключает auth)
	var jwtAuth *middleware.JWTAuth
	var kcChecker handlers.ReadinessChecker
	if cfg.JWKSURL != "" {
		jwtAuth, err = middleware.NewJWTAuth(
			cfg.JWKSURL,
			cfg.JWKSCACertPath,
			cfg.JWTIssuer,
			cfg.JWTAdminGroups,
			cfg.JWTReadonlyGroups,
			cfg.JWKSClientTimeout,
			cfg.JWKSRefreshInterval,
			cfg.JWTLeeway,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer jwtAuth.Close()
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)

		checker, checkerErr := middleware.NewKeycloakReadinessChecker(cfg.JWKSURL, cfg.JWKSCACertPath, cfg.JWKSClientTimeout)
		if checkerErr != nil {
			logger.Error("Ошибка создания Keycloak readiness checker", slog.String("error", checkerErr.Error()))
			os.Exit(1)
		}
		kcChecker = checker
	} else {
		logger.Warn("SM_JWKS_URL не задан — JWT-аутентификация ОТКЛЮЧЕНА, management endpoints открыты (только для dev)")
	}

	// 8. topologymetrics — мониторинг зависимостей (PostgreSQL + Keycloak)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"share-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.JWKSURL,
		cfg.DephealthCheckInterval,
		cfg.DephealthIsEntry,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
			defer dephealthSvc.Stop()
		}
	}

	// 9. Handlers
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker, kcChecker)
	apiHandler := handlers.NewAPIHandler(healthHandler, downloadSvc, shareSvc, logger)

	// 10. HTTP-сервер (metrics и logging — глобальные middleware)
	srv := server.New(cfg, logger, apiHandler, jwtAuth,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	// 11. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Share Module остановлен")
}
