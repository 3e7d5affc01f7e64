package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
)

// tokenBytes — длина access_token в байтах до hex-кодирования.
const tokenBytes = 16

// CreateShareInput — параметры создания share-ссылки.
type CreateShareInput struct {
	Name           string
	MimeType       string
	ContentBase64  string
	MaxDownloads   int
	TTL            time.Duration // 0 — использовать TTL по умолчанию
	UploadedBy     string
	UploadedByName string
	Visibility     string
}

// ShareService — управление share-ссылками: создание, отзыв, чтение,
// история аудита.
type ShareService struct {
	shares     repository.FileShareRepository
	activity   repository.ActivityRepository
	content    repository.ContentRepository
	logger     *slog.Logger
	defaultTTL time.Duration
	now        func() time.Time
}

// NewShareService создаёт сервис управления ссылками.
func NewShareService(
	shares repository.FileShareRepository,
	activity repository.ActivityRepository,
	content repository.ContentRepository,
	defaultTTL time.Duration,
	logger *slog.Logger,
) *ShareService {
	return &ShareService{
		shares:     shares,
		activity:   activity,
		content:    content,
		logger:     logger,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Create валидирует вход, сохраняет контент и создаёт активную запись.
// Токен генерируется криптографически; expires_at фиксируется при
// создании и далее не меняется.
func (s *ShareService) Create(ctx context.Context, in CreateShareInput) (*model.FileShare, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name обязателен", ErrValidation)
	}
	if in.MaxDownloads < 0 {
		return nil, fmt.Errorf("%w: max_downloads не может быть отрицательным", ErrValidation)
	}
	if in.TTL < 0 {
		return nil, fmt.Errorf("%w: ttl не может быть отрицательным", ErrValidation)
	}
	decoded, err := base64.StdEncoding.DecodeString(in.ContentBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: content должен быть валидным base64", ErrValidation)
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("%w: content обязателен", ErrValidation)
	}

	ttl := in.TTL
	if ttl == 0 {
		ttl = s.defaultTTL
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации токена: %w", err)
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = "private"
	}

	f := &model.FileShare{
		FileID:         uuid.NewString(),
		Name:           in.Name,
		Size:           int64(len(decoded)),
		MimeType:       in.MimeType,
		AccessToken:    token,
		ExpiresAt:      s.now().Add(ttl),
		MaxDownloads:   in.MaxDownloads,
		UsedDownloads:  0,
		Status:         model.StatusActive,
		ContentRef:     uuid.NewString(),
		UploadedBy:     in.UploadedBy,
		UploadedByName: in.UploadedByName,
		Visibility:     visibility,
	}

	if err := s.content.Put(ctx, f.ContentRef, in.ContentBase64); err != nil {
		return nil, fmt.Errorf("ошибка сохранения контента: %w", err)
	}
	if err := s.shares.Create(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info("share-ссылка создана",
		"file_id", f.FileID, "name", f.Name, "expires_at", f.ExpiresAt,
		"max_downloads", f.MaxDownloads)
	return f, nil
}

// Get возвращает запись по file_id.
func (s *ShareService) Get(ctx context.Context, fileID string) (*model.FileShare, error) {
	return s.shares.GetByID(ctx, fileID)
}

// Revoke отзывает ссылку. Переход односторонний, повторный отзыв — no-op.
func (s *ShareService) Revoke(ctx context.Context, fileID string) error {
	if err := s.shares.Revoke(ctx, fileID); err != nil {
		return err
	}
	s.logger.Info("share-ссылка отозвана", "file_id", fileID)
	return nil
}

// Activity возвращает события аудита записи в порядке лога.
// ErrNotFound, если записи не существует.
func (s *ShareService) Activity(ctx context.Context, fileID string, limit int) ([]*model.ActivityEvent, error) {
	if _, err := s.shares.GetByID(ctx, fileID); err != nil {
		return nil, err
	}
	return s.activity.ListByFileID(ctx, fileID, limit)
}

// generateToken возвращает криптографически случайный hex-токен.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
