// shares.go — обработчики управления share-ссылками.
// POST /api/v1/shares                      — создание ссылки
// GET  /api/v1/shares/{file_id}           — метаданные записи
// POST /api/v1/shares/{file_id}/revoke    — отзыв ссылки
// GET  /api/v1/shares/{file_id}/activity  — история аудита
// Авторизация: RequireRoleOrScope — на уровне middleware.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/share-module/internal/api/errors"
	"github.com/bigkaa/goartstore/share-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
	"github.com/bigkaa/goartstore/share-module/internal/service"
)

// createShareRequest — тело POST /api/v1/shares.
type createShareRequest struct {
	Name          string `json:"name"`
	MimeType      string `json:"mime_type,omitempty"`
	ContentBase64 string `json:"content"`
	MaxDownloads  int    `json:"max_downloads,omitempty"`
	// TTLSeconds — срок действия от момента создания; 0 — TTL по умолчанию.
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
	Visibility string `json:"visibility,omitempty"`
}

// shareResponse — представление записи file_shares в API.
// access_token возвращается только при создании.
type shareResponse struct {
	FileID         string    `json:"file_id"`
	Name           string    `json:"name"`
	Size           int64     `json:"size"`
	MimeType       string    `json:"mime_type,omitempty"`
	AccessToken    string    `json:"access_token,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
	MaxDownloads   int       `json:"max_downloads"`
	UsedDownloads  int       `json:"used_downloads"`
	Status         string    `json:"status"`
	Visibility     string    `json:"visibility,omitempty"`
	UploadedBy     string    `json:"uploaded_by,omitempty"`
	UploadedByName string    `json:"uploaded_by_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// activityEventResponse — представление события аудита в API.
type activityEventResponse struct {
	Seq       int64     `json:"seq"`
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
	FileID    *string   `json:"file_id,omitempty"`
	EventType string    `json:"event_type"`
	Detail    *string   `json:"detail,omitempty"`
}

// toShareResponse конвертирует domain модель в API-тип.
// withToken — включить access_token (только в ответе создания).
func toShareResponse(f *model.FileShare, withToken bool) shareResponse {
	resp := shareResponse{
		FileID:         f.FileID,
		Name:           f.Name,
		Size:           f.Size,
		MimeType:       f.MimeType,
		ExpiresAt:      f.ExpiresAt,
		MaxDownloads:   f.MaxDownloads,
		UsedDownloads:  f.UsedDownloads,
		Status:         f.Status,
		Visibility:     f.Visibility,
		UploadedBy:     f.UploadedBy,
		UploadedByName: f.UploadedByName,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
	if withToken {
		resp.AccessToken = f.AccessToken
	}
	return resp
}

// HandleCreateShare — реализация POST /api/v1/shares.
func (h *APIHandler) HandleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}
	if req.TTLSeconds < 0 {
		apierrors.ValidationError(w, "ttl_seconds не может быть отрицательным")
		return
	}

	in := service.CreateShareInput{
		Name:          req.Name,
		MimeType:      req.MimeType,
		ContentBase64: req.ContentBase64,
		MaxDownloads:  req.MaxDownloads,
		TTL:           time.Duration(req.TTLSeconds) * time.Second,
		Visibility:    req.Visibility,
	}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		in.UploadedBy = claims.Subject
		in.UploadedByName = claims.PreferredUsername
	}

	f, err := h.shares.Create(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, repository.ErrConflict):
			apierrors.Conflict(w, "Запись с таким идентификатором уже существует")
		default:
			h.logger.Error("Ошибка создания share-ссылки",
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка при создании ссылки")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toShareResponse(f, true))
}

// HandleGetShare — реализация GET /api/v1/shares/{file_id}.
func (h *APIHandler) HandleGetShare(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "file_id")

	f, err := h.shares.Get(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Запись не найдена")
			return
		}
		h.logger.Error("Ошибка получения share-записи",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при получении записи")
		return
	}

	writeJSON(w, http.StatusOK, toShareResponse(f, false))
}

// HandleRevokeShare — реализация POST /api/v1/shares/{file_id}/revoke.
// Отзыв односторонний; повторный отзыв также возвращает 200.
func (h *APIHandler) HandleRevokeShare(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "file_id")

	if err := h.shares.Revoke(r.Context(), fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Запись не найдена")
			return
		}
		h.logger.Error("Ошибка отзыва share-ссылки",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при отзыве ссылки")
		return
	}

	f, err := h.shares.Get(r.Context(), fileID)
	if err != nil {
		apierrors.InternalError(w, "Внутренняя ошибка при получении записи")
		return
	}
	writeJSON(w, http.StatusOK, toShareResponse(f, false))
}

// HandleShareActivity — реализация GET /api/v1/shares/{file_id}/activity.
func (h *APIHandler) HandleShareActivity(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "file_id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			apierrors.ValidationError(w, "Некорректный параметр limit")
			return
		}
		limit = parsed
	}
	limit = limitDefault(limit)

	events, err := h.shares.Activity(r.Context(), fileID, limit)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Запись не найдена")
			return
		}
		h.logger.Error("Ошибка чтения истории аудита",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при чтении истории")
		return
	}

	resp := make([]activityEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, activityEventResponse{
			Seq:       e.Seq,
			EventID:   e.EventID,
			CreatedAt: e.CreatedAt,
			FileID:    e.FileID,
			EventType: e.EventType,
			Detail:    e.Detail,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_id": fileID,
		"events":  resp,
	})
}
