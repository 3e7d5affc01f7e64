package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
)

// Prometheus-метрики скачиваний.
var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_downloads_total",
		Help: "Количество попыток скачивания по исходу.",
	}, []string{"outcome"})
	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_download_bytes_total",
		Help: "Суммарный объём отданных байт.",
	})
	commitRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_commit_retries_total",
		Help: "Количество повторов коммита скачивания из-за конкурентных изменений.",
	})
)

// DownloadService — публичный путь скачивания: резолв токена, policy gate,
// атомарный коммит (инкремент + success-событие одной транзакцией) и
// сборка ответа. На каждую попытку — ровно одно событие аудита.
type DownloadService struct {
	shares    repository.FileShareRepository
	activity  repository.ActivityRepository
	assembler *Assembler
	logger    *slog.Logger
	// now вынесено в поле для детерминированных тестов истечения.
	now func() time.Time
}

// NewDownloadService создаёт сервис скачивания.
func NewDownloadService(
	shares repository.FileShareRepository,
	activity repository.ActivityRepository,
	assembler *Assembler,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		shares:    shares,
		activity:  activity,
		assembler: assembler,
		logger:    logger,
		now:       time.Now,
	}
}

// Download обрабатывает попытку скачивания по токену.
//
// Решение policy gate и инкремент счётчика образуют атомарную единицу:
// коммит — compare-and-swap по (used_downloads, status). Если между
// чтением и коммитом запись изменилась конкурентной попыткой, состояние
// перечитывается и gate выполняется заново. Каждый неуспешный CAS
// означает успешный коммит другой попытки, поэтому цикл продвигается.
//
// Ошибка ErrContentDecode возвращается ПОСЛЕ успешного коммита:
// авторизация состоялась, счётчик инкрементирован, success-событие
// записано — проблема в целостности контента, не в правах доступа.
func (s *DownloadService) Download(ctx context.Context, token string) (*Payload, error) {
	rec, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordDenial(ctx, nil, token, model.EventDeniedNotFound)
			downloadsTotal.WithLabelValues("notfound").Inc()
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка резолва токена: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		decision := Evaluate(rec, s.now())
		if decision != Allow {
			fileID := rec.FileID
			s.recordDenial(ctx, &fileID, token, decision.EventType())
			downloadsTotal.WithLabelValues(outcomeLabel(decision)).Inc()
			return nil, decision.Err()
		}

		event := &model.ActivityEvent{
			EventID:   uuid.NewString(),
			FileID:    &rec.FileID,
			Token:     token,
			EventType: model.EventDownloadSuccess,
		}
		err := s.shares.CommitDownload(ctx, rec.FileID, rec.UsedDownloads, event)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrStale) {
			return nil, fmt.Errorf("ошибка коммита скачивания: %w", err)
		}

		// Конкурентная попытка успела раньше — перечитываем и решаем заново.
		commitRetriesTotal.Inc()
		rec, err = s.shares.GetByToken(ctx, token)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.recordDenial(ctx, nil, token, model.EventDeniedNotFound)
				downloadsTotal.WithLabelValues("notfound").Inc()
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("ошибка резолва токена: %w", err)
		}
	}

	payload, err := s.assembler.Build(ctx, rec)
	if err != nil {
		s.logger.Error("контент не собран после успешной авторизации",
			"file_id", rec.FileID, "content_ref", rec.ContentRef, "error", err)
		downloadsTotal.WithLabelValues("decode_error").Inc()
		return nil, err
	}

	downloadsTotal.WithLabelValues("success").Inc()
	downloadBytesTotal.Add(float64(len(payload.Data)))
	return payload, nil
}

// recordDenial пишет событие отказа. Исход попытки уже определён,
// поэтому отказ лога аудита не меняет ответ клиенту — только логируется.
func (s *DownloadService) recordDenial(ctx context.Context, fileID *string, token, eventType string) {
	event := &model.ActivityEvent{
		EventID:   uuid.NewString(),
		FileID:    fileID,
		Token:     token,
		EventType: eventType,
	}
	if err := s.activity.Append(ctx, event); err != nil {
		s.logger.Error("событие отказа не записано в лог аудита",
			"event_type", eventType, "error", err)
	}
}

func outcomeLabel(d Decision) string {
	switch d {
	case DenyRevoked:
		return "revoked"
	case DenyExpired:
		return "expired"
	case DenyQuota:
		return "quota"
	default:
		return "unknown"
	}
}
