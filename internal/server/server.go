// Пакет server — HTTP-сервер Share Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goartstore/share-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/share-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/share-module/internal/config"
)

// Server — HTTP-сервер Share Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// jwtAuth — nil, если JWT отключён (SM_JWKS_URL не задан): management
// endpoints тогда открыты, что допустимо только в dev-окружении.
// globalMiddlewares (metrics, logging) применяются ко всем маршрутам.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler *handlers.APIHandler,
	jwtAuth *middleware.JWTAuth,
	globalMiddlewares ...func(http.Handler) http.Handler,
) *Server {
	router := chi.NewRouter()

	for _, mw := range globalMiddlewares {
		router.Use(mw)
	}

	// Служебные endpoints — без аутентификации
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	// Публичный путь скачивания: токен ссылки сам является credential
	router.Get("/api/v1/download/{token}", handler.HandleDownload)

	// Management endpoints — JWT + RBAC
	router.Route("/api/v1/shares", func(r chi.Router) {
		if jwtAuth != nil {
			r.Use(jwtAuth.Middleware())
		}

		write := []func(http.Handler) http.Handler{}
		read := []func(http.Handler) http.Handler{}
		if jwtAuth != nil {
			write = append(write, middleware.RequireRoleOrScope(
				[]string{middleware.RoleAdmin},
				[]string{middleware.ScopeSharesWrite},
			))
			read = append(read, middleware.RequireRoleOrScope(
				[]string{middleware.RoleAdmin, middleware.RoleReadonly},
				[]string{middleware.ScopeSharesRead, middleware.ScopeSharesWrite},
			))
		}

		r.With(write...).Post("/", handler.HandleCreateShare)
		r.With(read...).Get("/{file_id}", handler.HandleGetShare)
		r.With(write...).Post("/{file_id}/revoke", handler.HandleRevokeShare)
		r.With(read...).Get("/{file_id}/activity", handler.HandleShareActivity)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
