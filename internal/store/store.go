package store

import (
	"context"

	"github.com/shipping-mapper/app/models"
)

// LocationStore đọc dữ liệu hành chính nội bộ và danh sách hãng.
// Core chỉ point-lookup; schema/migration thuộc về collaborator bên ngoài.
type LocationStore interface {
	ListProvinces(ctx context.Context) ([]models.Province, error)
	ListDistricts(ctx context.Context, provinceID uint) ([]models.District, error)
	ListWards(ctx context.Context, districtID uint) ([]models.Ward, error)

	GetProvince(ctx context.Context, id uint) (*models.Province, error)
	GetDistrict(ctx context.Context, id uint) (*models.District, error)
	GetWard(ctx context.Context, id uint) (*models.Ward, error)

	GetProvider(ctx context.Context, id uint) (*models.ShippingProvider, error)
	ListActiveProviders(ctx context.Context) ([]models.ShippingProvider, error)
}

// ProviderCodeStore bảng mapping (providerId, internalId) -> mã của hãng.
//
// Get trả về (nil, nil) khi chưa có mapping: absence là trạng thái hợp lệ,
// không phải lỗi. Upsert idempotent theo khóa kép — import lại ghi đè
// code/name, không bao giờ nhân bản dòng.
//
// parentID: provinceId cho district, districtId cho ward, 0 cho province.
// ListCandidates bắt buộc scope theo parent — match không scope sẽ dính
// va chạm tên giữa các tỉnh.
type ProviderCodeStore interface {
	Upsert(ctx context.Context, providerID uint, kind models.UnitKind, internalID uint, code, name string, parentID uint) error
	Get(ctx context.Context, providerID uint, kind models.UnitKind, internalID uint) (*models.ProviderMapping, error)
	ListCandidates(ctx context.Context, providerID uint, kind models.UnitKind, parentID uint) ([]models.MappingCandidate, error)
}
