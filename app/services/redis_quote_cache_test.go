package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
)

func newRedisTestCache(t *testing.T) *RedisQuoteCache {
	t.Helper()
	srv := miniredis.RunT(t)
	cache, err := NewRedisQuoteCache("redis://"+srv.Addr(), time.Minute, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestRedisQuoteCache_RoundTrip(t *testing.T) {
	cache := newRedisTestCache(t)
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "ghn:1:2:3")
	require.NoError(t, err)
	assert.False(t, found)

	days := 2
	require.NoError(t, cache.Set(ctx, "ghn:1:2:3", &models.FeeQuoteResult{
		Fee: 32000, ServiceCode: "GHN-STD", LeadTimeDays: &days,
	}))

	got, found, err := cache.Get(ctx, "ghn:1:2:3")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(32000), got.Fee)
	assert.Equal(t, "GHN-STD", got.ServiceCode)
	require.NotNil(t, got.LeadTimeDays)
	assert.Equal(t, 2, *got.LeadTimeDays)
}

// Get chạy song song từ nhiều goroutine, đếm hit/miss không được rơi số
func TestRedisQuoteCache_StatsUnderConcurrency(t *testing.T) {
	cache := newRedisTestCache(t)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "hot", &models.FeeQuoteResult{Fee: 15000, ServiceCode: "VCN"}))

	const workers = 16
	const rounds = 25

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			key := "hot"
			if worker%2 == 1 {
				key = "cold"
			}
			for j := 0; j < rounds; j++ {
				if _, _, err := cache.Get(ctx, key); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	stats, err := cache.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(workers/2*rounds), stats.TotalHits)
	assert.Equal(t, int64(workers/2*rounds), stats.TotalMiss)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}
