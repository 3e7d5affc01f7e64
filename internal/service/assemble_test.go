package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/share-module/internal/domain/model"
)

// TestAssembler_Build проверяет сборку ответа: декодирование base64,
// MIME-тип и заголовок Content-Disposition.
func TestAssembler_Build(t *testing.T) {
	content := newMemContentRepo()
	a := NewAssembler(content, NewCacheService(16, time.Minute))

	raw := "hello world"
	if err := content.Put(context.Background(), "ref-1", base64.StdEncoding.EncodeToString([]byte(raw))); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rec := &model.FileShare{
		FileID:     "f1",
		Name:       "report.pdf",
		MimeType:   "application/pdf",
		ContentRef: "ref-1",
	}
	payload, err := a.Build(context.Background(), rec)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if string(payload.Data) != raw {
		t.Errorf("Data = %q, ожидалось %q", payload.Data, raw)
	}
	if payload.ContentType != "application/pdf" {
		t.Errorf("ContentType = %q", payload.ContentType)
	}
	if payload.ContentDisposition != `attachment; filename="report.pdf"` {
		t.Errorf("ContentDisposition = %q", payload.ContentDisposition)
	}
}

// TestAssembler_DefaultContentType проверяет fallback на octet-stream.
func TestAssembler_DefaultContentType(t *testing.T) {
	content := newMemContentRepo()
	a := NewAssembler(content, NewCacheService(16, time.Minute))

	_ = content.Put(context.Background(), "ref-1", base64.StdEncoding.EncodeToString([]byte("x")))
	rec := &model.FileShare{FileID: "f1", Name: "blob", ContentRef: "ref-1"}

	payload, err := a.Build(context.Background(), rec)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if payload.ContentType != "application/octet-stream" {
		t.Errorf("ContentType = %q, ожидался application/octet-stream", payload.ContentType)
	}
}

// TestAssembler_MalformedBase64 проверяет ошибку целостности при
// повреждённом контенте.
func TestAssembler_MalformedBase64(t *testing.T) {
	content := newMemContentRepo()
	a := NewAssembler(content, NewCacheService(16, time.Minute))

	_ = content.Put(context.Background(), "ref-1", "!!!не base64!!!")
	rec := &model.FileShare{FileID: "f1", Name: "x", ContentRef: "ref-1"}

	_, err := a.Build(context.Background(), rec)
	if !errors.Is(err, ErrContentDecode) {
		t.Fatalf("error = %v, ожидался ErrContentDecode", err)
	}
}

// TestAssembler_MissingContent проверяет ошибку целостности при
// отсутствующем content_ref.
func TestAssembler_MissingContent(t *testing.T) {
	content := newMemContentRepo()
	a := NewAssembler(content, NewCacheService(16, time.Minute))

	rec := &model.FileShare{FileID: "f1", Name: "x", ContentRef: "ref-missing"}
	_, err := a.Build(context.Background(), rec)
	if !errors.Is(err, ErrContentDecode) {
		t.Fatalf("error = %v, ожидался ErrContentDecode", err)
	}
}

// TestAssembler_CacheReuse проверяет, что повторная сборка берёт payload
// из кэша и не обращается к хранилищу.
func TestAssembler_CacheReuse(t *testing.T) {
	content := newMemContentRepo()
	a := NewAssembler(content, NewCacheService(16, time.Minute))

	_ = content.Put(context.Background(), "ref-1", base64.StdEncoding.EncodeToString([]byte("data")))
	rec := &model.FileShare{FileID: "f1", Name: "x", ContentRef: "ref-1"}

	if _, err := a.Build(context.Background(), rec); err != nil {
		t.Fatalf("первая сборка: %v", err)
	}

	// Подменяем содержимое хранилища на невалидное: при hit из кэша
	// повторная сборка всё равно должна отдать исходные байты.
	content.mu.Lock()
	content.data["ref-1"] = "битое"
	content.mu.Unlock()

	payload, err := a.Build(context.Background(), rec)
	if err != nil {
		t.Fatalf("повторная сборка: %v", err)
	}
	if string(payload.Data) != "data" {
		t.Errorf("Data = %q, ожидалось %q", payload.Data, "data")
	}
}

// TestSanitizeFilename проверяет нейтрализацию опасных имён файлов.
func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`..\..\windows\system32`, "system32"},
		{"name\"; rm -rf", "name rm -rf"},
		{"crlf\r\ninject.txt", "crlfinject.txt"},
		{"", "download"},
		{".", "download"},
		{"   ", "download"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}
