// Пакет service — бизнес-логика Share Module: policy gate, атомарный
// коммит скачивания, сборка ответа и управление share-ссылками.
package service

import "errors"

// Ошибки доменного уровня. Тексты — контракт клиентского API:
// они уходят наружу дословно и менять их нельзя.
var (
	// ErrNotFound — токен не резолвится ни в одну запись.
	ErrNotFound = errors.New("File not found")
	// ErrRevoked — ссылка отозвана.
	ErrRevoked = errors.New("This link has been revoked")
	// ErrExpired — срок действия ссылки истёк.
	ErrExpired = errors.New("This link has expired")
	// ErrQuotaExceeded — лимит скачиваний исчерпан.
	ErrQuotaExceeded = errors.New("Download limit reached")

	// ErrContentDecode — контент записи не декодируется (повреждён или
	// отсутствует). Это НЕ отказ policy gate: авторизация уже прошла,
	// счётчик инкрементирован, проблема в целостности данных.
	ErrContentDecode = errors.New("ошибка декодирования контента")

	// ErrValidation — некорректные входные данные при создании ссылки.
	ErrValidation = errors.New("ошибка валидации")
)
