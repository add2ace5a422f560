package services

import (
	"context"
	"sync"
	"time"

	"github.com/shipping-mapper/app/models"
)

// QuoteCache cache báo giá in-memory với TTL
type QuoteCache struct {
	cache      map[string]*models.FeeQuoteResult
	timestamps map[string]time.Time
	mu         sync.RWMutex
	ttl        time.Duration

	// now tách ra để test TTL với clock giả
	now func() time.Time

	hits   int64
	misses int64
}

// NewQuoteCache tạo mới QuoteCache
func NewQuoteCache(ttl time.Duration) *QuoteCache {
	return &QuoteCache{
		cache:      make(map[string]*models.FeeQuoteResult),
		timestamps: make(map[string]time.Time),
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get lấy báo giá từ cache
func (qc *QuoteCache) Get(ctx context.Context, key string) (*models.FeeQuoteResult, bool, error) {
	qc.mu.RLock()
	result, exists := qc.cache[key]
	expired := exists && qc.isExpired(key)
	qc.mu.RUnlock()

	if !exists || expired {
		qc.mu.Lock()
		if expired {
			delete(qc.cache, key)
			delete(qc.timestamps, key)
		}
		qc.misses++
		qc.mu.Unlock()
		return nil, false, nil
	}

	qc.mu.Lock()
	qc.hits++
	qc.mu.Unlock()

	// copy để caller không sửa được entry trong cache
	out := *result
	return &out, true, nil
}

// Set lưu báo giá vào cache
func (qc *QuoteCache) Set(ctx context.Context, key string, result *models.FeeQuoteResult) error {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	stored := *result
	qc.cache[key] = &stored
	qc.timestamps[key] = qc.now()
	return nil
}

// Delete xóa entry khỏi cache
func (qc *QuoteCache) Delete(ctx context.Context, key string) error {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	delete(qc.cache, key)
	delete(qc.timestamps, key)
	return nil
}

// Clear xóa toàn bộ cache
func (qc *QuoteCache) Clear(ctx context.Context) error {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	qc.cache = make(map[string]*models.FeeQuoteResult)
	qc.timestamps = make(map[string]time.Time)
	return nil
}

// GetStats thống kê hit/miss
func (qc *QuoteCache) GetStats(ctx context.Context) (*CacheStats, error) {
	qc.mu.RLock()
	defer qc.mu.RUnlock()

	total := qc.hits + qc.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(qc.hits) / float64(total)
	}
	return &CacheStats{
		HitRate:    hitRate,
		TotalHits:  qc.hits,
		TotalMiss:  qc.misses,
		TotalItems: int64(len(qc.cache)),
	}, nil
}

// Close không có gì để đóng với cache in-memory
func (qc *QuoteCache) Close() error { return nil }

// isExpired caller phải giữ lock
func (qc *QuoteCache) isExpired(key string) bool {
	ts, ok := qc.timestamps[key]
	if !ok {
		return true
	}
	return qc.now().Sub(ts) > qc.ttl
}
