// CacheService — LRU-кэш декодированных payload с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
//
// Кэшируются именно payload (по content_ref), а не записи file_shares:
// payload неизменяем после загрузки, тогда как запись мутирует
// (used_downloads, status) и из кэша давала бы устаревшие решения gate.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш декодированного контента.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша декодированного контента.",
	})
)

// CacheService — LRU-кэш декодированных payload с автоматическим TTL.
// Каждый экземпляр SM имеет собственный in-memory кэш (per-instance, stateless архитектура).
type CacheService struct {
	cache *expirable.LRU[string, []byte]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
// maxSize — максимальное количество записей в кэше.
// ttl — время жизни записи после добавления.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, []byte](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает декодированный payload из кэша по content_ref.
// Возвращает (данные, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(contentRef string) ([]byte, bool) {
	val, ok := c.cache.Get(contentRef)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет payload в кэше.
func (c *CacheService) Set(contentRef string, data []byte) {
	c.cache.Add(contentRef, data)
}

// Delete удаляет payload из кэша.
func (c *CacheService) Delete(contentRef string) {
	c.cache.Remove(contentRef)
}
