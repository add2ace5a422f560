package resolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
	"github.com/shipping-mapper/internal/carriers"
	"github.com/shipping-mapper/internal/matcher"
)

/* ---------- fakes ---------- */

type fakeLocations struct {
	provinces []models.Province
	districts map[uint][]models.District
	wards     map[uint][]models.Ward
}

func (f *fakeLocations) ListProvinces(ctx context.Context) ([]models.Province, error) {
	return f.provinces, nil
}
func (f *fakeLocations) ListDistricts(ctx context.Context, provinceID uint) ([]models.District, error) {
	return f.districts[provinceID], nil
}
func (f *fakeLocations) ListWards(ctx context.Context, districtID uint) ([]models.Ward, error) {
	return f.wards[districtID], nil
}
func (f *fakeLocations) GetProvince(ctx context.Context, id uint) (*models.Province, error) {
	for _, p := range f.provinces {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}
func (f *fakeLocations) GetDistrict(ctx context.Context, id uint) (*models.District, error) {
	for _, ds := range f.districts {
		for _, d := range ds {
			if d.ID == id {
				return &d, nil
			}
		}
	}
	return nil, nil
}
func (f *fakeLocations) GetWard(ctx context.Context, id uint) (*models.Ward, error) {
	for _, ws := range f.wards {
		for _, w := range ws {
			if w.ID == id {
				return &w, nil
			}
		}
	}
	return nil, nil
}
func (f *fakeLocations) GetProvider(ctx context.Context, id uint) (*models.ShippingProvider, error) {
	return nil, nil
}
func (f *fakeLocations) ListActiveProviders(ctx context.Context) ([]models.ShippingProvider, error) {
	return nil, nil
}

type codeKey struct {
	providerID uint
	kind       models.UnitKind
	internalID uint
}

type candKey struct {
	kind     models.UnitKind
	parentID uint
}

type fakeCodes struct {
	mappings   map[codeKey]models.ProviderMapping
	candidates map[candKey][]models.MappingCandidate
	upserts    int
}

func (f *fakeCodes) Upsert(ctx context.Context, providerID uint, kind models.UnitKind, internalID uint, code, name string, parentID uint) error {
	if f.mappings == nil {
		f.mappings = make(map[codeKey]models.ProviderMapping)
	}
	f.mappings[codeKey{providerID, kind, internalID}] = models.ProviderMapping{Code: code, Name: name}
	f.upserts++
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
	return f.candidates[candKey{kind, parentID}], nil
}

type fakeDriver struct {
	provinces []carriers.Unit
	districts map[string][]carriers.Unit
	wards     map[string][]carriers.Unit

	listCalls int
}

func (f *fakeDriver) Code() string                 { return "fake" }
func (f *fakeDriver) Origin() models.ResolvedCodes { return models.ResolvedCodes{} }
func (f *fakeDriver) PreferredServices() []string  { return nil }
func (f *fakeDriver) ListProvinces(ctx context.Context) ([]carriers.Unit, error) {
	f.listCalls++
	return f.provinces, nil
}
func (f *fakeDriver) ListDistricts(ctx context.Context, provinceCode string) ([]carriers.Unit, error) {
	f.listCalls++
	return f.districts[provinceCode], nil
}
func (f *fakeDriver) ListWards(ctx context.Context, districtCode string) ([]carriers.Unit, error) {
	f.listCalls++
	return f.wards[districtCode], nil
}
func (f *fakeDriver) ListAvailableServices(ctx context.Context, from, to string) ([]string, error) {
	return nil, nil
}
func (f *fakeDriver) GetFee(ctx context.Context, req carriers.FeeRequest) (*models.FeeQuoteResult, error) {
	return nil, fmt.Errorf("not implemented")
}

/* ---------- helpers ---------- */

func seededStores() (*fakeLocations, *fakeCodes) {
	locations := &fakeLocations{
		provinces: []models.Province{{ID: 92, Name: "Thành phố Cần Thơ"}},
		districts: map[uint][]models.District{
			92: {{ID: 921, Name: "Quận Ninh Kiều", ProvinceID: 92}},
		},
		wards: map[uint][]models.Ward{
			921: {{ID: 9211, Name: "Phường Tân An", DistrictID: 921}},
		},
	}
	codes := &fakeCodes{mappings: map[codeKey]models.ProviderMapping{
		{3, models.UnitProvince, 92}:  {Code: "CT", Name: "Cần Thơ"},
		{3, models.UnitDistrict, 921}: {Code: "NK", Name: "Ninh Kiều"},
		{3, models.UnitWard, 9211}:    {Code: "TA", Name: "Tân An"},
	}}
	return locations, codes
}

func newTestResolver(locations *fakeLocations, codes *fakeCodes) *Resolver {
	return NewResolver(
		locations, codes,
		matcher.NewMatcher(0.05),
		matcher.Thresholds{Province: 0.55, District: 0.60, Ward: 0.60},
		zap.NewNop(),
	)
}

/* ---------- tests ---------- */

func TestResolve_StoreHitNoLiveCalls(t *testing.T) {
	locations, codes := seededStores()
	drv := &fakeDriver{}

	ward := models.LocationRef{ID: 9211}
	resolved, err := newTestResolver(locations, codes).Resolve(
		context.Background(), 3, drv,
		models.LocationRef{ID: 92}, models.LocationRef{ID: 921}, &ward)
	require.NoError(t, err)

	assert.Equal(t, "CT", resolved.ProvinceCode)
	assert.Equal(t, "NK", resolved.DistrictCode)
	assert.Equal(t, "TA", resolved.WardCode)
	// mapping có sẵn: không được gọi hãng
	assert.Zero(t, drv.listCalls)
}

func TestResolve_ByName(t *testing.T) {
	locations, codes := seededStores()
	drv := &fakeDriver{}

	resolved, err := newTestResolver(locations, codes).Resolve(
		context.Background(), 3, drv,
		models.LocationRef{Name: "Cần Thơ"}, models.LocationRef{Name: "Ninh Kiều"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "CT", resolved.ProvinceCode)
	assert.Equal(t, "NK", resolved.DistrictCode)
	assert.Empty(t, resolved.WardCode)
	assert.Zero(t, drv.listCalls)
}

// Tên khớp corpus tên hãng đã import: mã lấy từ bảng mapping, không
// đụng tới taxonomy live
func TestResolve_ByNameThroughStoredCorpus(t *testing.T) {
	locations, codes := seededStores()
	// huyện này không có trong danh sách nội bộ, chỉ corpus của hãng biết
	codes.mappings[codeKey{3, models.UnitDistrict, 925}] = models.ProviderMapping{Code: "CR", Name: "Cái Răng"}
	codes.candidates = map[candKey][]models.MappingCandidate{
		{models.UnitDistrict, 92}: {{InternalID: 925, DisplayText: "Cái Răng"}},
	}

	drv := &fakeDriver{}

	resolved, err := newTestResolver(locations, codes).Resolve(
		context.Background(), 3, drv,
		models.LocationRef{ID: 92}, models.LocationRef{Name: "Quận Cái Răng"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "CR", resolved.DistrictCode)
	assert.Zero(t, drv.listCalls)
}

// Thiếu mapping: fuzzy trực tiếp trên taxonomy hãng và ghi ngược kết quả
func TestResolve_LiveFallbackWithWriteBack(t *testing.T) {
	locations, codes := seededStores()
	// xóa mapping huyện để ép đường live
	delete(codes.mappings, codeKey{3, models.UnitDistrict, 921})

	drv := &fakeDriver{
		districts: map[string][]carriers.Unit{
			"CT": {{Code: "NK-live", Name: "Ninh Kiều"}},
		},
	}

	resolved, err := newTestResolver(locations, codes).Resolve(
		context.Background(), 3, drv,
		models.LocationRef{ID: 92}, models.LocationRef{ID: 921}, nil)
	require.NoError(t, err)

	assert.Equal(t, "NK-live", resolved.DistrictCode)

	// lần sau phải đi đường nhanh nhờ write-back
	mapping, err := codes.Get(context.Background(), 3, models.UnitDistrict, 921)
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, "NK-live", mapping.Code)
}

func TestResolve_DistrictNotMappable(t *testing.T) {
	locations, codes := seededStores()
	delete(codes.mappings, codeKey{3, models.UnitDistrict, 921})

	// taxonomy hãng cũng không có gì khớp
	drv := &fakeDriver{
		districts: map[string][]carriers.Unit{
			"CT": {{Code: "XX", Name: "Totally Different"}},
		},
	}

	_, err := newTestResolver(locations, codes).Resolve(
		context.Background(), 3, drv,
		models.LocationRef{ID: 92}, models.LocationRef{ID: 921}, nil)
	require.ErrorIs(t, err, models.ErrLocationNotMappable)
}

func TestResolve_MissingRequiredInput(t *testing.T) {
	locations, codes := seededStores()
	drv := &fakeDriver{}

	_, err := newTestResolver(locations, codes).Resolve(
		context.Background(), 3, drv,
		models.LocationRef{}, models.LocationRef{ID: 921}, nil)
	require.ErrorIs(t, err, models.ErrLocationNotMappable)
}

// Xã không resolve được: không lỗi, WardCode rỗng
func TestResolve_WardOptional(t *testing.T) {
	locations, codes := seededStores()
	delete(codes.mappings, codeKey{3, models.UnitWard, 9211})

	drv := &fakeDriver{
		wards: map[string][]carriers.Unit{
			"NK": {{Code: "ZZ", Name: "Somewhere Unrelated"}},
		},
	}

	ward := models.LocationRef{ID: 9211}
	resolved, err := newTestResolver(locations, codes).Resolve(
		context.Background(), 3, drv,
		models.LocationRef{ID: 92}, models.LocationRef{ID: 921}, &ward)
	require.NoError(t, err)

	assert.Equal(t, "NK", resolved.DistrictCode)
	assert.Empty(t, resolved.WardCode)
}
