// download.go — обработчик GET /api/v1/download/{token}.
// Публичный endpoint: токен ссылки сам является credential, JWT не требуется.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/share-module/internal/api/errors"
	"github.com/bigkaa/goartstore/share-module/internal/service"
)

// HandleDownload — реализация GET /api/v1/download/{token}.
// Тексты сообщений отказов — контракт клиентского API, берутся из
// доменных ошибок дословно.
func (h *APIHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		apierrors.ValidationError(w, "Токен не указан")
		return
	}

	payload, err := h.download.Download(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, service.ErrNotFound.Error())
		case errors.Is(err, service.ErrRevoked):
			apierrors.LinkRevoked(w, service.ErrRevoked.Error())
		case errors.Is(err, service.ErrExpired):
			apierrors.LinkExpired(w, service.ErrExpired.Error())
		case errors.Is(err, service.ErrQuotaExceeded):
			apierrors.QuotaExceeded(w, service.ErrQuotaExceeded.Error())
		case errors.Is(err, service.ErrContentDecode):
			apierrors.ContentDecode(w, "Контент файла повреждён")
		default:
			h.logger.Error("Ошибка обработки скачивания",
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка при скачивании")
		}
		return
	}

	w.Header().Set("Content-Type", payload.ContentType)
	w.Header().Set("Content-Disposition", payload.ContentDisposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload.Data)
}
