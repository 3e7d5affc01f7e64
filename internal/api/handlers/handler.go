// handler.go — основной обработчик API Share Module.
// Объединяет health, публичный download и управление share-ссылками.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/share-module/internal/service"
)

// APIHandler — основной обработчик API Share Module.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health   *HealthHandler
	download *service.DownloadService
	shares   *service.ShareService
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	download *service.DownloadService,
	shares *service.ShareService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		download: download,
		shares:   shares,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// limitDefault нормализует параметр limit списочных запросов.
func limitDefault(limit int) int {
	if limit < 1 {
		return 100
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
