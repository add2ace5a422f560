package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
	"github.com/shipping-mapper/internal/carriers"
	"github.com/shipping-mapper/internal/resolver"
	"github.com/shipping-mapper/internal/store"
)

// QuoteService service báo giá vận chuyển: resolve địa chỉ sang mã hãng,
// thử lần lượt các service theo thứ tự ưu tiên cho đến khi có phí dương.
type QuoteService struct {
	locations store.LocationStore
	registry  *carriers.Registry
	resolve   *resolver.Resolver
	cache     IQuoteCache
	logger    *zap.Logger
}

// NewQuoteService tạo mới QuoteService
func NewQuoteService(
	locations store.LocationStore,
	registry *carriers.Registry,
	resolve *resolver.Resolver,
	cache IQuoteCache,
	logger *zap.Logger,
) *QuoteService {
	return &QuoteService{
		locations: locations,
		registry:  registry,
		resolve:   resolve,
		cache:     cache,
		logger:    logger,
	}
}

// Quote báo giá cho một yêu cầu. Thử từng service theo thứ tự ưu tiên
// của hãng; service trả phí 0 coi như tuyến không hỗ trợ và chuyển sang
// service kế tiếp. Cache chỉ được tin khi phí dương; entry phí 0 không
// được tái sử dụng — gọi lại hãng vì tuyến có thể đã mở. Hết service mà
// chưa có phí dương thì ErrNoServiceAvailable.
func (qs *QuoteService) Quote(ctx context.Context, req models.FeeQuoteRequest) (*models.FeeQuoteResult, error) {
	provider, err := qs.locations.GetProvider(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}
	if provider == nil || !provider.IsActive {
		return nil, fmt.Errorf("%w: hãng %d", models.ErrProviderUnavailable, req.ProviderID)
	}

	drv, err := qs.registry.Driver(provider.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}

	var ward *models.LocationRef
	if !req.Ward.IsZero() {
		ward = &req.Ward
	}
	resolved, err := qs.resolve.Resolve(ctx, provider.ID, drv, req.Province, req.District, ward)
	if err != nil {
		return nil, err
	}

	servicesToTry, err := qs.servicesToTry(ctx, drv, resolved, req.ServiceCode)
	if err != nil {
		return nil, err
	}
	if len(servicesToTry) == 0 {
		return nil, fmt.Errorf("%w: hãng %s không có service nào cho tuyến", models.ErrNoServiceAvailable, provider.Code)
	}

	for _, svc := range servicesToTry {
		key := quoteCacheKey(provider.Code, resolved, req, svc)

		cached, hit, err := qs.cache.Get(ctx, key)
		if err == nil && hit {
			if cached.Usable() {
				qs.logger.Debug("Báo giá từ cache",
					zap.String("provider", provider.Code),
					zap.String("service", svc),
					zap.Int64("fee", cached.Fee))
				return cached, nil
			}
			// entry phí 0 là negative cũ: tuyến có thể đã mở lại,
			// không tin mà gọi hãng lại cho service này
			qs.logger.Debug("Cache ghi nhận phí 0, gọi lại hãng để kiểm tra",
				zap.String("provider", provider.Code),
				zap.String("service", svc))
		}

		feeReq := carriers.FeeRequest{
			To:            *resolved,
			Weight:        req.Weight,
			Length:        req.Length,
			Width:         req.Width,
			Height:        req.Height,
			DeclaredValue: req.DeclaredValue,
			ServiceCode:   svc,
		}

		result, err := drv.GetFee(ctx, feeReq)
		if err != nil {
			// lỗi transport không cache, lần sau còn thử lại được
			qs.logger.Warn("Gọi tính phí thất bại, thử service kế tiếp",
				zap.Error(err),
				zap.String("provider", provider.Code),
				zap.String("service", svc))
			continue
		}

		if cacheErr := qs.cache.Set(ctx, key, result); cacheErr != nil {
			qs.logger.Warn("Lưu cache báo giá thất bại", zap.Error(cacheErr))
		}

		if result.Usable() {
			qs.logger.Info("Báo giá thành công",
				zap.String("provider", provider.Code),
				zap.String("service", result.ServiceCode),
				zap.Int64("fee", result.Fee))
			return result, nil
		}

		qs.logger.Warn("Service trả phí 0, thử service kế tiếp",
			zap.String("provider", provider.Code),
			zap.String("service", svc))
	}

	return nil, fmt.Errorf("%w: đã thử %d service của hãng %s", models.ErrNoServiceAvailable, len(servicesToTry), provider.Code)
}

// ResolveCodes resolve địa chỉ sang bộ mã của hãng, không báo giá.
// Phục vụ endpoint debug cho người vận hành đối soát mapping.
func (qs *QuoteService) ResolveCodes(ctx context.Context, providerID uint, province, district models.LocationRef, ward *models.LocationRef) (*models.ResolvedCodes, error) {
	provider, err := qs.locations.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if provider == nil || !provider.IsActive {
		return nil, fmt.Errorf("%w: hãng %d", models.ErrProviderUnavailable, providerID)
	}

	drv, err := qs.registry.Driver(provider.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}

	return qs.resolve.Resolve(ctx, provider.ID, drv, province, district, ward)
}

// ListProviders danh sách hãng đang hoạt động kèm trạng thái driver
func (qs *QuoteService) ListProviders(ctx context.Context) ([]models.ShippingProvider, error) {
	return qs.locations.ListActiveProviders(ctx)
}

// CarrierCodes mã các driver đã đăng ký
func (qs *QuoteService) CarrierCodes() []string {
	return qs.registry.Codes()
}

// BookPickup tạo vận đơn lấy hàng qua hãng hỗ trợ (luồng đổi/trả)
func (qs *QuoteService) BookPickup(ctx context.Context, providerID uint, req carriers.PickupRequest) (*carriers.PickupResult, error) {
	provider, err := qs.locations.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if provider == nil || !provider.IsActive {
		return nil, fmt.Errorf("%w: hãng %d", models.ErrProviderUnavailable, providerID)
	}

	drv, err := qs.registry.Driver(provider.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}

	booker, ok := drv.(carriers.PickupBooker)
	if !ok {
		return nil, fmt.Errorf("%w: hãng %s không hỗ trợ tạo vận đơn lấy hàng", models.ErrProviderUnavailable, provider.Code)
	}

	return booker.BookPickup(ctx, req)
}

// servicesToTry thứ tự service sẽ thử. Caller chỉ định thì chỉ thử đúng
// service đó và chỉ khi hãng đang mở service này trên tuyến; không thì
// ưu tiên PreferredServices của hãng trước, phần còn lại theo thứ tự
// hãng trả về.
func (qs *QuoteService) servicesToTry(ctx context.Context, drv carriers.Driver, resolved *models.ResolvedCodes, serviceCode string) ([]string, error) {
	available, err := drv.ListAvailableServices(ctx, "", resolved.DistrictCode)

	if serviceCode != "" {
		if err != nil {
			// không xác minh được danh sách thì vẫn thử service caller yêu cầu
			qs.logger.Warn("Lấy danh sách service thất bại, thử thẳng service được chỉ định",
				zap.Error(err), zap.String("carrier", drv.Code()), zap.String("service", serviceCode))
			return []string{serviceCode}, nil
		}
		for _, s := range available {
			if s == serviceCode {
				return []string{serviceCode}, nil
			}
		}
		// hãng không mở service này trên tuyến: hết đường thử
		return nil, nil
	}

	preferred := drv.PreferredServices()
	if err != nil {
		if len(preferred) == 0 {
			return nil, err
		}
		qs.logger.Warn("Lấy danh sách service thất bại, dùng thứ tự ưu tiên tĩnh",
			zap.Error(err), zap.String("carrier", drv.Code()))
		return preferred, nil
	}

	if len(preferred) == 0 {
		return available, nil
	}

	availSet := make(map[string]bool, len(available))
	for _, s := range available {
		availSet[s] = true
	}

	out := make([]string, 0, len(available))
	for _, s := range preferred {
		if availSet[s] {
			out = append(out, s)
			availSet[s] = false
		}
	}
	for _, s := range available {
		if availSet[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

func quoteCacheKey(providerCode string, to *models.ResolvedCodes, req models.FeeQuoteRequest, svc string) string {
	return fmt.Sprintf("%s:%s|%s|%s|%d|%d|%d|%d|%s",
		providerCode, to.ProvinceCode, to.DistrictCode, to.WardCode,
		req.Weight, req.Length, req.Width, req.Height, svc)
}
