package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

// ActivityRepository — интерфейс append-only лога аудита.
// UPDATE/DELETE-путей нет намеренно: событие неизменяемо после вставки.
type ActivityRepository interface {
	// Append добавляет событие в конец лога. Seq и CreatedAt
	// присваиваются при вставке и записываются обратно в event.
	Append(ctx context.Context, event *model.ActivityEvent) error
	// ListByFileID возвращает события одной записи в порядке лога.
	ListByFileID(ctx context.Context, fileID string, limit int) ([]*model.ActivityEvent, error)
	// ListRecent возвращает последние limit событий (по убыванию Seq).
	ListRecent(ctx context.Context, limit int) ([]*model.ActivityEvent, error)
}

// activityRepo — реализация ActivityRepository через pgx.
type activityRepo struct {
	db DBTX
}

// NewActivityRepository создаёт репозиторий лога аудита.
func NewActivityRepository(db DBTX) ActivityRepository {
	return &activityRepo{db: db}
}

// insertActivity вставляет событие через переданный executor (pool или tx).
// Вынесено отдельно: CommitDownload вставляет success-событие внутри
// своей транзакции, Append — напрямую через пул.
func insertActivity(ctx context.Context, db DBTX, e *model.ActivityEvent) error {
	query := `
		INSERT INTO share_activity (event_id, file_id, token, event_type, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq, created_at`

	err := db.QueryRow(ctx, query,
		e.EventID, e.FileID, e.Token, e.EventType, e.Detail,
	).Scan(&e.Seq, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи события аудита: %w", err)
	}
	return nil
}

func (r *activityRepo) Append(ctx context.Context, event *model.ActivityEvent) error {
	return insertActivity(ctx, r.db, event)
}

const activityColumns = `seq, event_id, created_at, file_id, token, event_type, detail`

func (r *activityRepo) ListByFileID(ctx context.Context, fileID string, limit int) ([]*model.ActivityEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM share_activity
		WHERE file_id = $1
		ORDER BY seq
		LIMIT $2`, activityColumns)
	return r.list(ctx, query, fileID, limit)
}

func (r *activityRepo) ListRecent(ctx context.Context, limit int) ([]*model.ActivityEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM share_activity
		ORDER BY seq DESC
		LIMIT $1`, activityColumns)
	return r.list(ctx, query, limit)
}

// list выполняет запрос и сканирует события.
func (r *activityRepo) list(ctx context.Context, query string, args ...any) ([]*model.ActivityEvent, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения лога аудита: %w", err)
	}
	defer rows.Close()

	var result []*model.ActivityEvent
	for rows.Next() {
		e := &model.ActivityEvent{}
		if err := rows.Scan(
			&e.Seq, &e.EventID, &e.CreatedAt, &e.FileID, &e.Token, &e.EventType, &e.Detail,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования события аудита: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
