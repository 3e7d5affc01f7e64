// Пакет repository — слой доступа к данным PostgreSQL для Share Module.
// Таблицы: file_shares (записи ссылок), share_activity (append-only лог
// аудита), share_content (base64-payload, отдельно от метаданных).
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — нарушение уникальности (token или file_id уже существуют).
	ErrConflict = errors.New("конфликт уникальности")
	// ErrStale — compare-and-swap не прошёл: запись изменилась между
	// чтением и коммитом. Вызывающий обязан перечитать запись и повторить
	// решение policy gate на свежем состоянии.
	ErrStale = errors.New("запись изменена конкурентной попыткой")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет использовать
// репозитории как внутри, так и вне транзакций. Begin нужен CommitDownload:
// инкремент счётчика и success-событие аудита коммитятся одной транзакцией.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}
