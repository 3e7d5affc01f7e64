package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ContentRepository — хранилище байтовых payload отдельно от метаданных.
// Значение — base64-текст (формат контракта с upload-потоком); декодирует
// его только Response Assembler, ядро policy/ledger контента не касается.
type ContentRepository interface {
	// Put сохраняет payload под ключом ref.
	Put(ctx context.Context, ref, data string) error
	// Get возвращает payload по ключу или ErrNotFound.
	Get(ctx context.Context, ref string) (string, error)
}

// contentRepo — реализация ContentRepository через pgx.
type contentRepo struct {
	db DBTX
}

// NewContentRepository создаёт репозиторий контента.
func NewContentRepository(db DBTX) ContentRepository {
	return &contentRepo{db: db}
}

func (r *contentRepo) Put(ctx context.Context, ref, data string) error {
	query := `INSERT INTO share_content (content_ref, data) VALUES ($1, $2)`

	if _, err := r.db.Exec(ctx, query, ref, data); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: content_ref уже занят", ErrConflict)
		}
		return fmt.Errorf("ошибка сохранения контента: %w", err)
	}
	return nil
}

func (r *contentRepo) Get(ctx context.Context, ref string) (string, error) {
	query := `SELECT data FROM share_content WHERE content_ref = $1`

	var data string
	err := r.db.QueryRow(ctx, query, ref).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("ошибка чтения контента: %w", err)
	}
	return data, nil
}
