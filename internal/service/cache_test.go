package service

import (
	"bytes"
	"testing"
	"time"
)

// TestCacheService_GetSet проверяет базовые операции Get/Set.
func TestCacheService_GetSet(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	payload := []byte("hello world")

	// Cache miss
	_, ok := cache.Get("ref-1")
	if ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	// Set + cache hit
	cache.Set("ref-1", payload)
	got, ok := cache.Get("ref-1")
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, ожидался %q", got, payload)
	}
}

// TestCacheService_Delete проверяет удаление из кэша.
func TestCacheService_Delete(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	cache.Set("delete-me", []byte("data"))

	// Проверяем что запись есть
	_, ok := cache.Get("delete-me")
	if !ok {
		t.Fatal("ожидался cache hit перед удалением")
	}

	// Удаляем
	cache.Delete("delete-me")

	// Проверяем что записи больше нет
	_, ok = cache.Get("delete-me")
	if ok {
		t.Fatal("ожидался cache miss после Delete")
	}
}

// TestCacheService_TTLExpiration проверяет автоматическое истечение TTL.
func TestCacheService_TTLExpiration(t *testing.T) {
	// Короткий TTL = 50ms для теста
	cache := NewCacheService(100, 50*time.Millisecond)

	cache.Set("ttl-test", []byte("data"))

	// Сразу после Set — должен быть hit
	_, ok := cache.Get("ttl-test")
	if !ok {
		t.Fatal("ожидался cache hit сразу после Set")
	}

	// Ждём истечения TTL
	time.Sleep(100 * time.Millisecond)

	// После истечения TTL — должен быть miss
	_, ok = cache.Get("ttl-test")
	if ok {
		t.Fatal("ожидался cache miss после истечения TTL")
	}
}

// TestCacheService_Eviction проверяет вытеснение при превышении maxSize.
func TestCacheService_Eviction(t *testing.T) {
	// Кэш на 2 записи
	cache := NewCacheService(2, 5*time.Minute)

	cache.Set("r1", []byte("1"))
	cache.Set("r2", []byte("2"))

	// Обе записи в кэше
	if _, ok := cache.Get("r1"); !ok {
		t.Fatal("ожидался cache hit для r1")
	}
	if _, ok := cache.Get("r2"); !ok {
		t.Fatal("ожидался cache hit для r2")
	}

	// Добавляем третью — одна из старых должна быть вытеснена
	cache.Set("r3", []byte("3"))

	// r3 должна быть в кэше
	if _, ok := cache.Get("r3"); !ok {
		t.Fatal("ожидался cache hit для r3")
	}
}

// TestCacheService_Update проверяет обновление записи в кэше.
func TestCacheService_Update(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	cache.Set("update-test", []byte("old"))
	cache.Set("update-test", []byte("new"))

	got, ok := cache.Get("update-test")
	if !ok {
		t.Fatal("ожидался cache hit после обновления")
	}
	if string(got) != "new" {
		t.Errorf("payload = %q, ожидался %q", got, "new")
	}
}
