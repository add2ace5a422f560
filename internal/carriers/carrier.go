package carriers

import (
	"context"
	"fmt"
	"sync"

	"github.com/shipping-mapper/app/models"
)

// Unit một node trong taxonomy địa chỉ của hãng (mã + tên hiển thị).
// Mã để dạng string vì hãng có thể dùng số (GHN DistrictID) hoặc
// alphanumeric (GHN WardCode).
type Unit struct {
	Code string
	Name string
}

// FeeRequest yêu cầu tính phí đã resolve sang mã của hãng
type FeeRequest struct {
	To            models.ResolvedCodes
	Weight        int // gram
	Length        int // cm
	Width         int // cm
	Height        int // cm
	DeclaredValue int64
	ServiceCode   string
}

// PickupRequest yêu cầu tạo vận đơn lấy hàng (dành cho luồng đổi/trả)
type PickupRequest struct {
	FromName     string
	FromPhone    string
	FromAddress  string
	From         models.ResolvedCodes
	ToName       string
	ToPhone      string
	ToAddress    string
	To           models.ResolvedCodes
	Weight       int
	Length       int
	Width        int
	Height       int
	OrderCode    string
	Content      string
}

// PickupResult mã vận đơn + link in nhãn
type PickupResult struct {
	TrackingCode string
	LabelURL     string
}

// Driver interface mọi hãng vận chuyển phải hiện thực.
// Mỗi hãng một struct riêng, đăng ký vào Registry theo code.
type Driver interface {
	// Code mã hãng ("ghn", "vtp")
	Code() string

	// Origin bộ mã (theo taxonomy của hãng) của kho gửi hàng, lấy từ cấu hình
	Origin() models.ResolvedCodes

	// ListProvinces / ListDistricts / ListWards duyệt taxonomy của hãng
	ListProvinces(ctx context.Context) ([]Unit, error)
	ListDistricts(ctx context.Context, provinceCode string) ([]Unit, error)
	ListWards(ctx context.Context, districtCode string) ([]Unit, error)

	// ListAvailableServices các service đang mở cho tuyến from -> to
	ListAvailableServices(ctx context.Context, fromDistrictCode, toDistrictCode string) ([]string, error)

	// PreferredServices thứ tự ưu tiên thử service khi caller không chỉ định.
	// nil nghĩa là dùng nguyên thứ tự ListAvailableServices trả về.
	PreferredServices() []string

	// GetFee phí + lead-time cho một service. Fee <= 0 là "tuyến không
	// hỗ trợ" chứ không phải lỗi transport — caller tự quyết định thử tiếp.
	GetFee(ctx context.Context, req FeeRequest) (*models.FeeQuoteResult, error)
}

// PickupBooker interface tùy chọn cho hãng hỗ trợ tạo vận đơn lấy hàng
type PickupBooker interface {
	BookPickup(ctx context.Context, req PickupRequest) (*PickupResult, error)
}

// Registry bảng tra driver theo mã hãng
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

func NewRegistry() *Registry {
	return &Registry{drivers: make(map[string]Driver)}
}

// Register đăng ký driver; đăng ký lại cùng code sẽ ghi đè
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[d.Code()] = d
}

// Driver tra driver theo mã hãng
func (r *Registry) Driver(code string) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[code]
	if !ok {
		return nil, fmt.Errorf("chưa hỗ trợ driver %q", code)
	}
	return d, nil
}

// Codes danh sách mã hãng đã đăng ký
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.drivers))
	for code := range r.drivers {
		out = append(out, code)
	}
	return out
}
