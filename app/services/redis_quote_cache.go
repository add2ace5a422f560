package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
)

// RedisQuoteCache cache báo giá trên Redis, dùng khi chạy nhiều instance
// để các instance chia sẻ cùng một bảng giá đã tính.
type RedisQuoteCache struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	ttl    time.Duration

	// handler báo giá gọi đồng thời từ nhiều goroutine
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisQuoteCache tạo mới Redis quote cache
func NewRedisQuoteCache(redisURL string, ttl time.Duration, logger *zap.Logger) (*RedisQuoteCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("lỗi parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("không thể kết nối Redis: %w", err)
	}

	return &RedisQuoteCache{
		client: client,
		logger: logger,
		prefix: "ship_quote:",
		ttl:    ttl,
	}, nil
}

// Get lấy báo giá từ cache
func (rqc *RedisQuoteCache) Get(ctx context.Context, key string) (*models.FeeQuoteResult, bool, error) {
	cacheKey := rqc.prefix + key

	val, err := rqc.client.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		rqc.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		rqc.logger.Error("Lỗi get từ Redis", zap.Error(err), zap.String("key", cacheKey))
		return nil, false, err
	}

	var result models.FeeQuoteResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		rqc.logger.Error("Lỗi unmarshal cache data", zap.Error(err))
		return nil, false, err
	}

	rqc.hits.Add(1)
	rqc.logger.Debug("Redis cache hit", zap.String("key", key))
	return &result, true, nil
}

// Set lưu báo giá vào cache
func (rqc *RedisQuoteCache) Set(ctx context.Context, key string, result *models.FeeQuoteResult) error {
	cacheKey := rqc.prefix + key

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("lỗi marshal cache data: %w", err)
	}

	if err := rqc.client.Set(ctx, cacheKey, data, rqc.ttl).Err(); err != nil {
		rqc.logger.Error("Lỗi set vào Redis", zap.Error(err), zap.String("key", cacheKey))
		return err
	}
	return nil
}

// Delete xóa key khỏi cache
func (rqc *RedisQuoteCache) Delete(ctx context.Context, key string) error {
	cacheKey := rqc.prefix + key

	if err := rqc.client.Del(ctx, cacheKey).Err(); err != nil {
		rqc.logger.Error("Lỗi delete từ Redis", zap.Error(err), zap.String("key", cacheKey))
		return err
	}
	return nil
}

// Clear xóa toàn bộ cache theo prefix
func (rqc *RedisQuoteCache) Clear(ctx context.Context) error {
	pattern := rqc.prefix + "*"
	keys, err := rqc.client.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("lỗi lấy danh sách keys: %w", err)
	}

	if len(keys) > 0 {
		if err := rqc.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("lỗi xóa keys: %w", err)
		}
	}

	rqc.logger.Info("Đã xóa cache báo giá", zap.Int("keys", len(keys)))
	return nil
}

// GetStats thống kê hit/miss của instance hiện tại
func (rqc *RedisQuoteCache) GetStats(ctx context.Context) (*CacheStats, error) {
	hits := rqc.hits.Load()
	misses := rqc.misses.Load()
	total := hits + misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	items, err := rqc.client.Keys(ctx, rqc.prefix+"*").Result()
	if err != nil {
		return nil, err
	}

	return &CacheStats{
		HitRate:    hitRate,
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: int64(len(items)),
	}, nil
}

// Close đóng kết nối Redis
func (rqc *RedisQuoteCache) Close() error {
	return rqc.client.Close()
}
