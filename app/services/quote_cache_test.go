package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipping-mapper/app/models"
)

func TestQuoteCache_SetGet(t *testing.T) {
	qc := NewQuoteCache(time.Hour)
	ctx := context.Background()

	days := 2
	require.NoError(t, qc.Set(ctx, "k1", &models.FeeQuoteResult{Fee: 25000, LeadTimeDays: &days, ServiceCode: "VCN"}))

	got, hit, err := qc.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, int64(25000), got.Fee)
	assert.Equal(t, "VCN", got.ServiceCode)
	require.NotNil(t, got.LeadTimeDays)
	assert.Equal(t, 2, *got.LeadTimeDays)

	_, hit, err = qc.Get(ctx, "khac")
	require.NoError(t, err)
	assert.False(t, hit)
}

// Entry phí 0 vẫn là cache hit; dùng hay không là việc của caller
func TestQuoteCache_ZeroFeeIsStillAHit(t *testing.T) {
	qc := NewQuoteCache(time.Hour)
	ctx := context.Background()

	require.NoError(t, qc.Set(ctx, "k0", &models.FeeQuoteResult{Fee: 0, ServiceCode: "VTK"}))

	got, hit, err := qc.Get(ctx, "k0")
	require.NoError(t, err)
	require.True(t, hit)
	assert.False(t, got.Usable())
}

func TestQuoteCache_TTLExpiry(t *testing.T) {
	qc := NewQuoteCache(24 * time.Hour)
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	qc.now = func() time.Time { return now }

	require.NoError(t, qc.Set(ctx, "k", &models.FeeQuoteResult{Fee: 30000, ServiceCode: "VCN"}))

	// 23h sau vẫn còn
	now = now.Add(23 * time.Hour)
	_, hit, err := qc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)

	// quá 24h thì hết hạn
	now = now.Add(2 * time.Hour)
	_, hit, err = qc.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	// entry hết hạn bị dọn khỏi map
	stats, err := qc.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalItems)
}

func TestQuoteCache_CallerCannotMutateEntry(t *testing.T) {
	qc := NewQuoteCache(time.Hour)
	ctx := context.Background()

	require.NoError(t, qc.Set(ctx, "k", &models.FeeQuoteResult{Fee: 10000, ServiceCode: "VCN"}))

	got, _, _ := qc.Get(ctx, "k")
	got.Fee = 999999

	again, _, _ := qc.Get(ctx, "k")
	assert.Equal(t, int64(10000), again.Fee)
}

func TestQuoteCache_ClearAndStats(t *testing.T) {
	qc := NewQuoteCache(time.Hour)
	ctx := context.Background()

	require.NoError(t, qc.Set(ctx, "a", &models.FeeQuoteResult{Fee: 1, ServiceCode: "X"}))
	require.NoError(t, qc.Set(ctx, "b", &models.FeeQuoteResult{Fee: 2, ServiceCode: "Y"}))

	qc.Get(ctx, "a")
	qc.Get(ctx, "missing")

	stats, err := qc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalHits)
	assert.Equal(t, int64(1), stats.TotalMiss)
	assert.Equal(t, int64(2), stats.TotalItems)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)

	require.NoError(t, qc.Clear(ctx))
	_, hit, _ := qc.Get(ctx, "a")
	assert.False(t, hit)
}
