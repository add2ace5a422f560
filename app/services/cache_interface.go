package services

import (
	"context"

	"github.com/shipping-mapper/app/models"
)

// CacheStats thống kê cache báo giá
type CacheStats struct {
	HitRate    float64 `json:"hit_rate"`
	TotalHits  int64   `json:"total_hits"`
	TotalMiss  int64   `json:"total_miss"`
	TotalItems int64   `json:"total_items"`
}

// IQuoteCache interface cache báo giá theo (tuyến, kích thước, service).
//
// Cache lưu nguyên kết quả, kể cả phí 0. Diễn giải entry là việc của
// caller: phí dương dùng được ngay, phí 0 là negative cũ phải xác nhận
// lại với hãng.
type IQuoteCache interface {
	// Get lấy báo giá từ cache
	Get(ctx context.Context, key string) (*models.FeeQuoteResult, bool, error)

	// Set lưu báo giá vào cache
	Set(ctx context.Context, key string, result *models.FeeQuoteResult) error

	// Delete xóa báo giá khỏi cache
	Delete(ctx context.Context, key string) error

	// Clear xóa toàn bộ cache
	Clear(ctx context.Context) error

	// GetStats lấy thống kê cache
	GetStats(ctx context.Context) (*CacheStats, error)

	// Close đóng kết nối (nếu cần)
	Close() error
}
