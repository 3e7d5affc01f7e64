package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

// shareColumns — список столбцов таблицы file_shares для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const shareColumns = `file_id, name, size, mime_type, access_token,
	expires_at, max_downloads, used_downloads, status, content_ref,
	uploaded_by, uploaded_by_name, visibility, created_at, updated_at`

// FileShareRepository — интерфейс доступа к записям share-ссылок.
type FileShareRepository interface {
	// Create сохраняет новую запись. ErrConflict при занятом token/file_id.
	Create(ctx context.Context, f *model.FileShare) error
	// GetByID возвращает запись по UUID.
	GetByID(ctx context.Context, fileID string) (*model.FileShare, error)
	// GetByToken ищет запись по access_token среди ВСЕХ записей независимо
	// от статуса: отозванная запись должна находиться, чтобы отказ имел
	// правильную причину, а не маскировался под «не найдено».
	// ErrNotFound — только если токен не несёт ни одна запись.
	GetByToken(ctx context.Context, token string) (*model.FileShare, error)
	// Revoke переводит запись в status='revoked' (односторонний переход).
	// Возвращает ErrNotFound, если записи нет; повторный отзыв — no-op.
	Revoke(ctx context.Context, fileID string) error
	// CommitDownload атомарно применяет авторизованное скачивание:
	// compare-and-swap инкремент used_downloads (только если текущее
	// значение равно expected и запись всё ещё active) и вставка
	// success-события аудита — одной транзакцией, вместе или никак.
	// ErrStale — запись изменилась, вызывающий перечитывает и повторяет
	// решение policy gate на свежем состоянии.
	CommitDownload(ctx context.Context, fileID string, expectedUsed int, event *model.ActivityEvent) error
}

// shareRepo — реализация FileShareRepository через pgx.
type shareRepo struct {
	db DBTX
}

// NewFileShareRepository создаёт репозиторий share-ссылок.
func NewFileShareRepository(db DBTX) FileShareRepository {
	return &shareRepo{db: db}
}

func (r *shareRepo) Create(ctx context.Context, f *model.FileShare) error {
	query := `
		INSERT INTO file_shares (file_id, name, size, mime_type, access_token,
			expires_at, max_downloads, used_downloads, status, content_ref,
			uploaded_by, uploaded_by_name, visibility)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		f.FileID, f.Name, f.Size, f.MimeType, f.AccessToken,
		f.ExpiresAt, f.MaxDownloads, f.UsedDownloads, f.Status, f.ContentRef,
		f.UploadedBy, f.UploadedByName, f.Visibility,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: token или file_id уже заняты", ErrConflict)
		}
		return fmt.Errorf("ошибка создания share-записи: %w", err)
	}
	return nil
}

func (r *shareRepo) GetByID(ctx context.Context, fileID string) (*model.FileShare, error) {
	query := fmt.Sprintf(`SELECT %s FROM file_shares WHERE file_id = $1`, shareColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, fileID))
}

func (r *shareRepo) GetByToken(ctx context.Context, token string) (*model.FileShare, error) {
	// Без фильтра по статусу — см. контракт интерфейса.
	query := fmt.Sprintf(`SELECT %s FROM file_shares WHERE access_token = $1`, shareColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, token))
}

// scanOne сканирует одну запись file_shares или возвращает ErrNotFound.
func (r *shareRepo) scanOne(row pgx.Row) (*model.FileShare, error) {
	f := &model.FileShare{}
	err := row.Scan(
		&f.FileID, &f.Name, &f.Size, &f.MimeType, &f.AccessToken,
		&f.ExpiresAt, &f.MaxDownloads, &f.UsedDownloads, &f.Status, &f.ContentRef,
		&f.UploadedBy, &f.UploadedByName, &f.Visibility, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения share-записи: %w", err)
	}
	return f, nil
}

func (r *shareRepo) Revoke(ctx context.Context, fileID string) error {
	query := `
		UPDATE file_shares
		SET status = 'revoked', updated_at = NOW()
		WHERE file_id = $1 AND status != 'revoked'`

	tag, err := r.db.Exec(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("ошибка отзыва ссылки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Либо записи нет, либо она уже отозвана (повторный отзыв — no-op).
		if _, err := r.GetByID(ctx, fileID); err != nil {
			return err
		}
	}
	return nil
}

// CommitDownload — атомарная единица «перепроверка + инкремент + аудит».
// Предикат UPDATE покрывает обе мутируемые компоненты policy-решения:
// used_downloads (CAS по ожидаемому значению) и status (active).
// expires_at после создания не меняется, поэтому предикатом не проверяется —
// решение gate по нему не может быть инвалидировано другим писателем.
func (r *shareRepo) CommitDownload(ctx context.Context, fileID string, expectedUsed int, event *model.ActivityEvent) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE file_shares
		SET used_downloads = used_downloads + 1, updated_at = NOW()
		WHERE file_id = $1 AND used_downloads = $2 AND status = 'active'`,
		fileID, expectedUsed,
	)
	if err != nil {
		return fmt.Errorf("ошибка инкремента used_downloads: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}

	if err := insertActivity(ctx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка коммита скачивания: %w", err)
	}
	return nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
