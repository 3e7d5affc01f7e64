package service

import (
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

// Decision — результат проверки записи policy gate.
type Decision int

const (
	// Allow — все проверки пройдены, скачивание разрешено.
	Allow Decision = iota
	// DenyRevoked — ссылка отозвана.
	DenyRevoked
	// DenyExpired — срок действия истёк.
	DenyExpired
	// DenyQuota — лимит скачиваний исчерпан.
	DenyQuota
)

// Evaluate — чистая функция policy gate. Порядок проверок фиксирован:
// revoked, затем expired, затем quota. Запись, отозванная И истёкшая,
// всегда даёт DenyRevoked. Порядок важен для стабильности аудита и
// клиентских сообщений.
//
// Истечение — строгое сравнение: now > ExpiresAt. В момент now == ExpiresAt
// ссылка ещё действует.
//
// MaxDownloads == 0 означает безлимит: проверка квоты пропускается
// независимо от накопленного used_downloads.
func Evaluate(rec *model.FileShare, now time.Time) Decision {
	if rec.Status == model.StatusRevoked {
		return DenyRevoked
	}
	if now.After(rec.ExpiresAt) {
		return DenyExpired
	}
	if rec.MaxDownloads != 0 && rec.UsedDownloads >= rec.MaxDownloads {
		return DenyQuota
	}
	return Allow
}

// Err возвращает доменную ошибку отказа; nil для Allow.
func (d Decision) Err() error {
	switch d {
	case DenyRevoked:
		return ErrRevoked
	case DenyExpired:
		return ErrExpired
	case DenyQuota:
		return ErrQuotaExceeded
	default:
		return nil
	}
}

// EventType возвращает тип события аудита для решения.
func (d Decision) EventType() string {
	switch d {
	case Allow:
		return model.EventDownloadSuccess
	case DenyRevoked:
		return model.EventDeniedRevoked
	case DenyExpired:
		return model.EventDeniedExpired
	case DenyQuota:
		return model.EventDeniedQuota
	default:
		return ""
	}
}
