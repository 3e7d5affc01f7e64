package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/goartstore/share-module/internal/config"
	"github.com/bigkaa/goartstore/share-module/internal/database"
	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

// setupTestPool поднимает PostgreSQL в контейнере, применяет миграции
// и возвращает пул подключений.
func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("shares_test"),
		postgres.WithUsername("artstore"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("SM_DB_HOST", host)
	t.Setenv("SM_DB_PORT", port.Port())
	t.Setenv("SM_DB_NAME", "shares_test")
	t.Setenv("SM_DB_USER", "artstore")
	t.Setenv("SM_DB_PASSWORD", "test-password")
	t.Setenv("SM_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// newShare создаёт валидную активную запись для теста.
func newShare(token string) *model.FileShare {
	return &model.FileShare{
		FileID:      uuid.NewString(),
		Name:        "report.pdf",
		Size:        1024,
		MimeType:    "application/pdf",
		AccessToken: token,
		ExpiresAt:   time.Now().Add(24 * time.Hour),
		Status:      model.StatusActive,
		ContentRef:  uuid.NewString(),
	}
}

// successEvent создаёт success-событие для CommitDownload.
func successEvent(fileID, token string) *model.ActivityEvent {
	return &model.ActivityEvent{
		EventID:   uuid.NewString(),
		FileID:    &fileID,
		Token:     token,
		EventType: model.EventDownloadSuccess,
	}
}

// TestShareRepo_CreateGet проверяет создание и чтение записи по id и токену.
func TestShareRepo_CreateGet(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewFileShareRepository(pool)
	ctx := context.Background()

	f := newShare("tok-create-get")
	if err := repo.Create(ctx, f); err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}
	if f.CreatedAt.IsZero() || f.UpdatedAt.IsZero() {
		t.Error("CreatedAt/UpdatedAt не заполнены при вставке")
	}

	got, err := repo.GetByID(ctx, f.FileID)
	if err != nil {
		t.Fatalf("GetByID() вернул ошибку: %v", err)
	}
	if got.AccessToken != f.AccessToken || got.Name != f.Name {
		t.Errorf("GetByID() вернул %+v", got)
	}

	got, err = repo.GetByToken(ctx, "tok-create-get")
	if err != nil {
		t.Fatalf("GetByToken() вернул ошибку: %v", err)
	}
	if got.FileID != f.FileID {
		t.Errorf("GetByToken().FileID = %q, ожидался %q", got.FileID, f.FileID)
	}

	if _, err := repo.GetByToken(ctx, "no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByToken неизвестного токена: %v, ожидался ErrNotFound", err)
	}

	// Дубликат токена — конфликт
	dup := newShare("tok-create-get")
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("Create с дубликатом токена: %v, ожидался ErrConflict", err)
	}
}

// TestShareRepo_GetByTokenRevoked проверяет, что отозванная запись
// находится по токену — отказ должен иметь правильную причину.
func TestShareRepo_GetByTokenRevoked(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewFileShareRepository(pool)
	ctx := context.Background()

	f := newShare("tok-revoked-visible")
	if err := repo.Create(ctx, f); err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}
	if err := repo.Revoke(ctx, f.FileID); err != nil {
		t.Fatalf("Revoke() вернул ошибку: %v", err)
	}

	got, err := repo.GetByToken(ctx, "tok-revoked-visible")
	if err != nil {
		t.Fatalf("GetByToken() после отзыва вернул ошибку: %v", err)
	}
	if got.Status != model.StatusRevoked {
		t.Errorf("Status = %q, ожидался revoked", got.Status)
	}

	// Повторный отзыв — no-op
	if err := repo.Revoke(ctx, f.FileID); err != nil {
		t.Errorf("повторный Revoke() вернул ошибку: %v", err)
	}
	// Неизвестная запись — ErrNotFound
	if err := repo.Revoke(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Revoke неизвестного id: %v, ожидался ErrNotFound", err)
	}
}

// TestShareRepo_CommitDownload проверяет CAS-коммит: инкремент, событие
// в той же транзакции и ErrStale при несовпадении ожидаемого счётчика.
func TestShareRepo_CommitDownload(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewFileShareRepository(pool)
	activity := NewActivityRepository(pool)
	ctx := context.Background()

	f := newShare("tok-commit")
	if err := repo.Create(ctx, f); err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}

	if err := repo.CommitDownload(ctx, f.FileID, 0, successEvent(f.FileID, f.AccessToken)); err != nil {
		t.Fatalf("CommitDownload() вернул ошибку: %v", err)
	}

	got, err := repo.GetByID(ctx, f.FileID)
	if err != nil {
		t.Fatalf("GetByID() вернул ошибку: %v", err)
	}
	if got.UsedDownloads != 1 {
		t.Errorf("used_downloads = %d, ожидался 1", got.UsedDownloads)
	}

	events, err := activity.ListByFileID(ctx, f.FileID, 100)
	if err != nil {
		t.Fatalf("ListByFileID() вернул ошибку: %v", err)
	}
	if len(events) != 1 || events[0].EventType != model.EventDownloadSuccess {
		t.Errorf("ожидалось одно success-событие, получено %d", len(events))
	}

	// Устаревший expected — ErrStale, счётчик не меняется
	err = repo.CommitDownload(ctx, f.FileID, 0, successEvent(f.FileID, f.AccessToken))
	if !errors.Is(err, ErrStale) {
		t.Fatalf("CommitDownload с устаревшим expected: %v, ожидался ErrStale", err)
	}
	got, _ = repo.GetByID(ctx, f.FileID)
	if got.UsedDownloads != 1 {
		t.Errorf("used_downloads после ErrStale = %d, ожидался 1", got.UsedDownloads)
	}

	// Отозванная запись — ErrStale даже при верном expected
	if err := repo.Revoke(ctx, f.FileID); err != nil {
		t.Fatalf("Revoke() вернул ошибку: %v", err)
	}
	err = repo.CommitDownload(ctx, f.FileID, 1, successEvent(f.FileID, f.AccessToken))
	if !errors.Is(err, ErrStale) {
		t.Errorf("CommitDownload по отозванной записи: %v, ожидался ErrStale", err)
	}
}

// TestShareRepo_CommitDownloadConcurrent проверяет отсутствие потерянных
// обновлений при конкурентных коммитах с ретраем на ErrStale.
func TestShareRepo_CommitDownloadConcurrent(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewFileShareRepository(pool)
	ctx := context.Background()

	f := newShare("tok-concurrent")
	if err := repo.Create(ctx, f); err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				rec, err := repo.GetByToken(ctx, "tok-concurrent")
				if err != nil {
					errs[i] = err
					return
				}
				err = repo.CommitDownload(ctx, rec.FileID, rec.UsedDownloads, successEvent(rec.FileID, rec.AccessToken))
				if errors.Is(err, ErrStale) {
					continue
				}
				errs[i] = err
				return
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("горутина %d: %v", i, err)
		}
	}

	got, err := repo.GetByID(ctx, f.FileID)
	if err != nil {
		t.Fatalf("GetByID() вернул ошибку: %v", err)
	}
	if got.UsedDownloads != n {
		t.Errorf("used_downloads = %d, ожидался %d", got.UsedDownloads, n)
	}
}

// TestActivityRepo_AppendOrder проверяет порядок лога: seq возрастает,
// created_at неубывает.
func TestActivityRepo_AppendOrder(t *testing.T) {
	pool := setupTestPool(t)
	shares := NewFileShareRepository(pool)
	activity := NewActivityRepository(pool)
	ctx := context.Background()

	f := newShare("tok-audit-order")
	if err := shares.Create(ctx, f); err != nil {
		t.Fatalf("Create() вернул ошибку: %v", err)
	}

	types := []string{
		model.EventDeniedExpired,
		model.EventDeniedQuota,
		model.EventDeniedRevoked,
	}
	for _, et := range types {
		e := &model.ActivityEvent{
			EventID:   uuid.NewString(),
			FileID:    &f.FileID,
			Token:     f.AccessToken,
			EventType: et,
		}
		if err := activity.Append(ctx, e); err != nil {
			t.Fatalf("Append(%s) вернул ошибку: %v", et, err)
		}
		if e.Seq == 0 {
			t.Errorf("Seq не присвоен для %s", et)
		}
	}

	events, err := activity.ListByFileID(ctx, f.FileID, 100)
	if err != nil {
		t.Fatalf("ListByFileID() вернул ошибку: %v", err)
	}
	if len(events) != len(types) {
		t.Fatalf("событий = %d, ожидалось %d", len(events), len(types))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Errorf("Seq не возрастает: %d после %d", events[i].Seq, events[i-1].Seq)
		}
		if events[i].CreatedAt.Before(events[i-1].CreatedAt) {
			t.Errorf("CreatedAt убывает в порядке лога")
		}
	}

	// Событие без file_id (токен не резолвлен)
	e := &model.ActivityEvent{
		EventID:   uuid.NewString(),
		FileID:    nil,
		Token:     "unknown-token",
		EventType: model.EventDeniedNotFound,
	}
	if err := activity.Append(ctx, e); err != nil {
		t.Fatalf("Append без file_id вернул ошибку: %v", err)
	}
}

// TestContentRepo_PutGet проверяет хранение контента.
func TestContentRepo_PutGet(t *testing.T) {
	pool := setupTestPool(t)
	content := NewContentRepository(pool)
	ctx := context.Background()

	ref := uuid.NewString()
	if err := content.Put(ctx, ref, "aGVsbG8="); err != nil {
		t.Fatalf("Put() вернул ошибку: %v", err)
	}

	data, err := content.Get(ctx, ref)
	if err != nil {
		t.Fatalf("Get() вернул ошибку: %v", err)
	}
	if data != "aGVsbG8=" {
		t.Errorf("data = %q", data)
	}

	// Повторный Put по тому же ref — конфликт
	if err := content.Put(ctx, ref, "b3RoZXI="); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный Put: %v, ожидался ErrConflict", err)
	}

	if _, err := content.Get(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get неизвестного ref: %v, ожидался ErrNotFound", err)
	}
}
