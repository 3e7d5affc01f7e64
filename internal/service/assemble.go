package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
	"github.com/bigkaa/goartstore/share-module/internal/repository"
)

var contentDecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sm_content_decode_errors_total",
	Help: "Количество ошибок декодирования контента после успешной авторизации.",
})

// Payload — собранный ответ на авторизованное скачивание.
type Payload struct {
	// Data — декодированные байты файла.
	Data []byte
	// ContentType — MIME-тип записи; application/octet-stream, если не задан.
	ContentType string
	// ContentDisposition — заголовок attachment с безопасным именем файла.
	ContentDisposition string
}

// Assembler собирает Payload из записи: читает base64-контент из
// хранилища, декодирует и формирует заголовки доставки.
// Декодированные байты кэшируются по content_ref — payload неизменяем.
type Assembler struct {
	content repository.ContentRepository
	cache   *CacheService
}

// NewAssembler создаёт сборщик ответов.
func NewAssembler(content repository.ContentRepository, cache *CacheService) *Assembler {
	return &Assembler{content: content, cache: cache}
}

// Build собирает Payload для записи. Ошибка декодирования или отсутствие
// контента — ErrContentDecode: нарушение целостности данных, не отказ
// авторизации.
func (a *Assembler) Build(ctx context.Context, rec *model.FileShare) (*Payload, error) {
	data, ok := a.cache.Get(rec.ContentRef)
	if !ok {
		encoded, err := a.content.Get(ctx, rec.ContentRef)
		if err != nil {
			contentDecodeErrorsTotal.Inc()
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: контент %s отсутствует", ErrContentDecode, rec.ContentRef)
			}
			return nil, fmt.Errorf("%w: %v", ErrContentDecode, err)
		}

		data, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			contentDecodeErrorsTotal.Inc()
			return nil, fmt.Errorf("%w: %v", ErrContentDecode, err)
		}
		a.cache.Set(rec.ContentRef, data)
	}

	contentType := rec.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Payload{
		Data:               data,
		ContentType:        contentType,
		ContentDisposition: fmt.Sprintf(`attachment; filename="%s"`, sanitizeFilename(rec.Name)),
	}, nil
}

// sanitizeFilename приводит имя файла к безопасному для заголовка
// Content-Disposition виду: отбрасывает компоненты пути и символы,
// способные разорвать заголовок или закрыть кавычки.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.NewReplacer("\"", "", "\r", "", "\n", "", ";", "").Replace(name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "download"
	}
	return name
}
