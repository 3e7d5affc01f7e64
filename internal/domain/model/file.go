// Пакет model — доменные модели Share Module.
// FileShare — запись share-ссылки (таблица file_shares).
package model

import "time"

// Статусы записи share-ссылки.
// Истечение срока действия статусом НЕ является — оно всегда вычисляется
// из ExpiresAt и текущего времени, чтобы сохранённый статус не расходился
// с реальностью.
const (
	// StatusActive — ссылка активна, скачивание разрешено policy gate.
	StatusActive = "active"
	// StatusRevoked — ссылка отозвана. Переход односторонний и окончательный.
	StatusRevoked = "revoked"
)

// FileShare — запись файла с share-ссылкой в таблице file_shares.
// Метаданные (Name, Size, MimeType, ContentRef) неизменяемы после создания.
// Единственное поле, которое мутирует ядро, — UsedDownloads (CommitDownload).
type FileShare struct {
	// FileID — UUID записи.
	FileID string
	// Name — оригинальное имя файла (для Content-Disposition).
	Name string
	// Size — размер контента в байтах.
	Size int64
	// MimeType — MIME-тип контента.
	MimeType string
	// AccessToken — opaque bearer-токен ссылки.
	// Уникален среди всех когда-либо созданных записей независимо от статуса:
	// отозванная запись сохраняет токен, чтобы отказ «отозвано» был отличим
	// от «не найдено».
	AccessToken string
	// ExpiresAt — момент, после которого ссылка не обслуживается.
	ExpiresAt time.Time
	// MaxDownloads — квота успешных скачиваний; 0 = без ограничения.
	MaxDownloads int
	// UsedDownloads — счётчик успешных скачиваний; монотонно неубывающий,
	// инкрементируется только при Allow-решении.
	UsedDownloads int
	// Status — active или revoked.
	Status string
	// ContentRef — ключ байтового payload в хранилище контента.
	// Для ядра opaque; декодирует его только Response Assembler.
	ContentRef string
	// UploadedBy — идентификатор загрузившего (sub из JWT).
	UploadedBy string
	// UploadedByName — отображаемое имя загрузившего.
	UploadedByName string
	// Visibility — описательный атрибут видимости; policy его не оценивает.
	Visibility string
	// CreatedAt — время создания записи.
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time
}
