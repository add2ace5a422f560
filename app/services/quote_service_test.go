package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
	"github.com/shipping-mapper/internal/carriers"
	"github.com/shipping-mapper/internal/matcher"
	"github.com/shipping-mapper/internal/resolver"
)

/* ---------- fakes ---------- */

type fakeLocations struct {
	providers map[uint]models.ShippingProvider
}

func (f *fakeLocations) ListProvinces(ctx context.Context) ([]models.Province, error) {
	return nil, nil
}
func (f *fakeLocations) ListDistricts(ctx context.Context, provinceID uint) ([]models.District, error) {
	return nil, nil
}
func (f *fakeLocations) ListWards(ctx context.Context, districtID uint) ([]models.Ward, error) {
	return nil, nil
}
func (f *fakeLocations) GetProvince(ctx context.Context, id uint) (*models.Province, error) {
	return &models.Province{ID: id, Name: fmt.Sprintf("Tỉnh %d", id)}, nil
}
func (f *fakeLocations) GetDistrict(ctx context.Context, id uint) (*models.District, error) {
	return &models.District{ID: id, Name: fmt.Sprintf("Huyện %d", id)}, nil
}
func (f *fakeLocations) GetWard(ctx context.Context, id uint) (*models.Ward, error) {
	return &models.Ward{ID: id, Name: fmt.Sprintf("Xã %d", id)}, nil
}
func (f *fakeLocations) GetProvider(ctx context.Context, id uint) (*models.ShippingProvider, error) {
	p, ok := f.providers[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
func (f *fakeLocations) ListActiveProviders(ctx context.Context) ([]models.ShippingProvider, error) {
	var out []models.ShippingProvider
	for _, p := range f.providers {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

type codeKey struct {
	providerID uint
	kind       models.UnitKind
	internalID uint
}

type fakeCodes struct {
	mappings map[codeKey]models.ProviderMapping
}

func (f *fakeCodes) Upsert(ctx context.Context, providerID uint, kind models.UnitKind, internalID uint, code, name string, parentID uint) error {
	f.mappings[codeKey{providerID, kind, internalID}] = models.ProviderMapping{Code: code, Name: name}
	return nil
}
func (f *fakeCodes) Get(ctx context.Context, providerID uint, kind models.UnitKind, internalID uint) (*models.ProviderMapping, error) {
	m, ok := f.mappings[codeKey{providerID, kind, internalID}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}
func (f *fakeCodes) ListCandidates(ctx context.Context, providerID uint, kind models.UnitKind, parentID uint) ([]models.MappingCandidate, error) {
	return nil, nil
}

// fakeDriver trả phí theo kịch bản từng service, đếm số lần gọi
type fakeDriver struct {
	fees      map[string]int64 // serviceCode -> fee; thiếu key = lỗi transport
	available []string
	preferred []string
	feeCalls  map[string]int
}

func (f *fakeDriver) Code() string                 { return "fake" }
func (f *fakeDriver) Origin() models.ResolvedCodes { return models.ResolvedCodes{} }
func (f *fakeDriver) PreferredServices() []string  { return f.preferred }
func (f *fakeDriver) ListProvinces(ctx context.Context) ([]carriers.Unit, error) {
	return nil, nil
}
func (f *fakeDriver) ListDistricts(ctx context.Context, provinceCode string) ([]carriers.Unit, error) {
	return nil, nil
}
func (f *fakeDriver) ListWards(ctx context.Context, districtCode string) ([]carriers.Unit, error) {
	return nil, nil
}
func (f *fakeDriver) ListAvailableServices(ctx context.Context, from, to string) ([]string, error) {
	return f.available, nil
}
func (f *fakeDriver) GetFee(ctx context.Context, req carriers.FeeRequest) (*models.FeeQuoteResult, error) {
	if f.feeCalls == nil {
		f.feeCalls = make(map[string]int)
	}
	f.feeCalls[req.ServiceCode]++
	fee, ok := f.fees[req.ServiceCode]
	if !ok {
		return nil, errors.New("transport error")
	}
	return &models.FeeQuoteResult{Fee: fee, ServiceCode: req.ServiceCode}, nil
}

/* ---------- helpers ---------- */

func newTestQuoteService(drv carriers.Driver) (*QuoteService, *QuoteCache) {
	locations := &fakeLocations{providers: map[uint]models.ShippingProvider{
		3: {ID: 3, Code: "fake", Name: "Fake Express", IsActive: true},
		9: {ID: 9, Code: "fake", Name: "Fake Off", IsActive: false},
	}}
	codes := &fakeCodes{mappings: map[codeKey]models.ProviderMapping{
		{3, models.UnitProvince, 92}:  {Code: "CT", Name: "Cần Thơ"},
		{3, models.UnitDistrict, 921}: {Code: "NK", Name: "Ninh Kiều"},
	}}

	registry := carriers.NewRegistry()
	registry.Register(drv)

	match := matcher.NewMatcher(0.05)
	thresholds := matcher.Thresholds{Province: 0.55, District: 0.60, Ward: 0.60}
	res := resolver.NewResolver(locations, codes, match, thresholds, zap.NewNop())
	cache := NewQuoteCache(24 * time.Hour)

	return NewQuoteService(locations, registry, res, cache, zap.NewNop()), cache
}

func quoteReq(providerID uint) models.FeeQuoteRequest {
	return models.FeeQuoteRequest{
		ProviderID: providerID,
		Province:   models.LocationRef{ID: 92},
		District:   models.LocationRef{ID: 921},
		Weight:     500,
		Length:     20,
		Width:      15,
		Height:     10,
	}
}

/* ---------- tests ---------- */

func TestQuote_FirstUsableServiceWins(t *testing.T) {
	drv := &fakeDriver{
		available: []string{"VCN", "VTK"},
		fees:      map[string]int64{"VCN": 32000, "VTK": 27000},
	}
	qs, _ := newTestQuoteService(drv)

	result, err := qs.Quote(context.Background(), quoteReq(3))
	require.NoError(t, err)
	assert.Equal(t, int64(32000), result.Fee)
	assert.Equal(t, "VCN", result.ServiceCode)
	// service đầu dùng được thì không thử service sau
	assert.Zero(t, drv.feeCalls["VTK"])
}

// Phí 0 không phải lỗi: bỏ qua service đó, thử service kế tiếp
func TestQuote_ZeroFeeTriesNextService(t *testing.T) {
	drv := &fakeDriver{
		available: []string{"VCN", "VTK"},
		fees:      map[string]int64{"VCN": 0, "VTK": 27000},
	}
	qs, _ := newTestQuoteService(drv)

	result, err := qs.Quote(context.Background(), quoteReq(3))
	require.NoError(t, err)
	assert.Equal(t, "VTK", result.ServiceCode)
	assert.Equal(t, int64(27000), result.Fee)
}

// Báo giá dương trong cache được dùng lại, không gọi hãng lần hai
func TestQuote_CachedUsableServedFromCache(t *testing.T) {
	drv := &fakeDriver{
		available: []string{"VCN"},
		fees:      map[string]int64{"VCN": 32000},
	}
	qs, _ := newTestQuoteService(drv)

	_, err := qs.Quote(context.Background(), quoteReq(3))
	require.NoError(t, err)
	result, err := qs.Quote(context.Background(), quoteReq(3))
	require.NoError(t, err)

	assert.Equal(t, int64(32000), result.Fee)
	assert.Equal(t, 1, drv.feeCalls["VCN"])
}

// Entry cache phí 0 là negative cũ, không được tin: lần sau phải gọi
// hãng lại vì tuyến có thể đã mở
func TestQuote_CachedZeroRetriesCarrier(t *testing.T) {
	drv := &fakeDriver{
		available: []string{"VCN", "VTK"},
		fees:      map[string]int64{"VCN": 0, "VTK": 27000},
	}
	qs, _ := newTestQuoteService(drv)

	_, err := qs.Quote(context.Background(), quoteReq(3))
	require.NoError(t, err)

	// tuyến VCN mở lại giữa hai lần báo giá
	drv.fees["VCN"] = 35000

	result, err := qs.Quote(context.Background(), quoteReq(3))
	require.NoError(t, err)

	assert.Equal(t, "VCN", result.ServiceCode)
	assert.Equal(t, int64(35000), result.Fee)
	assert.Equal(t, 2, drv.feeCalls["VCN"])
}

func TestQuote_AllServicesExhausted(t *testing.T) {
	drv := &fakeDriver{
		available: []string{"VCN", "VTK"},
		fees:      map[string]int64{"VCN": 0, "VTK": 0},
	}
	qs, _ := newTestQuoteService(drv)

	_, err := qs.Quote(context.Background(), quoteReq(3))
	require.ErrorIs(t, err, models.ErrNoServiceAvailable)
}

func TestQuote_TransportErrorTriesNext(t *testing.T) {
	drv := &fakeDriver{
		available: []string{"VCN", "VTK"},
		fees:      map[string]int64{"VTK": 19000}, // VCN lỗi transport
	}
	qs, cache := newTestQuoteService(drv)

	result, err := qs.Quote(context.Background(), quoteReq(3))
	require.NoError(t, err)
	assert.Equal(t, "VTK", result.ServiceCode)

	// lỗi transport không được cache thành entry 0
	stats, _ := cache.GetStats(context.Background())
	assert.Equal(t, int64(1), stats.TotalItems)
}

func TestQuote_InactiveProvider(t *testing.T) {
	qs, _ := newTestQuoteService(&fakeDriver{})

	_, err := qs.Quote(context.Background(), quoteReq(9))
	require.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestQuote_UnknownProvider(t *testing.T) {
	qs, _ := newTestQuoteService(&fakeDriver{})

	_, err := qs.Quote(context.Background(), quoteReq(777))
	require.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestQuote_LocationNotMappable(t *testing.T) {
	drv := &fakeDriver{available: []string{"VCN"}, fees: map[string]int64{"VCN": 10000}}
	qs, _ := newTestQuoteService(drv)

	req := quoteReq(3)
	req.District = models.LocationRef{ID: 555} // không có mapping, taxonomy hãng cũng rỗng

	_, err := qs.Quote(context.Background(), req)
	require.ErrorIs(t, err, models.ErrLocationNotMappable)
}

// Thứ tự ưu tiên của hãng thắng thứ tự API trả về
func TestQuote_PreferredServiceOrder(t *testing.T) {
	drv := &fakeDriver{
		available: []string{"SCOD", "VTK", "VCN"},
		preferred: []string{"VCN", "VTK"},
		fees:      map[string]int64{"SCOD": 15000, "VTK": 20000, "VCN": 30000},
	}
	qs, _ := newTestQuoteService(drv)

	result, err := qs.Quote(context.Background(), quoteReq(3))
	require.NoError(t, err)
	assert.Equal(t, "VCN", result.ServiceCode)
}

// Caller chỉ định service: chỉ thử đúng service đó
func TestQuote_ExplicitServiceCode(t *testing.T) {
	drv := &fakeDriver{
		available: []string{"VCN", "VTK"},
		fees:      map[string]int64{"VCN": 30000, "VTK": 0},
	}
	qs, _ := newTestQuoteService(drv)

	req := quoteReq(3)
	req.ServiceCode = "VTK"

	_, err := qs.Quote(context.Background(), req)
	require.ErrorIs(t, err, models.ErrNoServiceAvailable)
	assert.Zero(t, drv.feeCalls["VCN"])
}

// Service caller chỉ định nhưng hãng không mở trên tuyến: không báo giá
// liều mà trả ErrNoServiceAvailable luôn
func TestQuote_ExplicitServiceCodeNotOffered(t *testing.T) {
	drv := &fakeDriver{
		available: []string{"VCN"},
		fees:      map[string]int64{"VCN": 30000, "VTK": 20000},
	}
	qs, _ := newTestQuoteService(drv)

	req := quoteReq(3)
	req.ServiceCode = "VTK"

	_, err := qs.Quote(context.Background(), req)
	require.ErrorIs(t, err, models.ErrNoServiceAvailable)
	assert.Zero(t, drv.feeCalls["VTK"])
	assert.Zero(t, drv.feeCalls["VCN"])
}
