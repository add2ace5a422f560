package responses

import "github.com/shipping-mapper/app/models"

// ErrorResponse response lỗi chuẩn
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// QuoteResponse response báo giá
type QuoteResponse struct {
	Fee              int64  `json:"fee"`
	LeadTimeDays     *int   `json:"lead_time_days,omitempty"`
	ServiceCode      string `json:"service_code"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// ResolveResponse bộ mã của hãng sau khi resolve
type ResolveResponse struct {
	ProviderID   uint   `json:"provider_id"`
	ProvinceCode string `json:"province_code"`
	DistrictCode string `json:"district_code"`
	WardCode     string `json:"ward_code,omitempty"`
}

// ProvidersResponse danh sách hãng đang hoạt động
type ProvidersResponse struct {
	Providers []models.ShippingProvider `json:"providers"`
}

// BookPickupResponse mã vận đơn lấy hàng vừa tạo
type BookPickupResponse struct {
	TrackingCode string `json:"tracking_code"`
	LabelURL     string `json:"label_url,omitempty"`
}

// HealthResponse trạng thái service
type HealthResponse struct {
	Status   string   `json:"status"`
	Carriers []string `json:"carriers"`
}
