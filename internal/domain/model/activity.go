// activity.go — события аудита попыток скачивания (таблица share_activity).
package model

import "time"

// Типы событий аудита. Ровно одно событие на попытку резолва токена —
// успех или конкретная причина отказа.
const (
	EventDownloadSuccess = "download_success"
	EventDeniedRevoked   = "download_denied_revoked"
	EventDeniedExpired   = "download_denied_expired"
	EventDeniedQuota     = "download_denied_quota"
	EventDeniedNotFound  = "download_denied_notfound"
)

// ActivityEvent — неизменяемая запись одной попытки скачивания.
// Лог append-only: события никогда не обновляются и не удаляются,
// порядок задаётся Seq (порядок вставки).
type ActivityEvent struct {
	// Seq — позиция в логе (bigserial), присваивается при вставке.
	Seq int64
	// EventID — UUID события.
	EventID string
	// CreatedAt — время создания события; неубывающее в порядке лога.
	CreatedAt time.Time
	// FileID — UUID записи файла; nil, если токен не был резолвлен.
	FileID *string
	// Token — токен из запроса (как пришёл, без нормализации).
	Token string
	// EventType — один из Event*-констант выше.
	EventType string
	// Detail — опциональное пояснение (например, текст ошибки доставки).
	Detail *string
}
