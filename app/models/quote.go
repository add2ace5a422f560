package models

// FeeQuoteRequest yêu cầu báo giá vận chuyển, provider-agnostic.
// Transient: được caller tạo ra, service tiêu thụ, không bao giờ persist.
type FeeQuoteRequest struct {
	ProviderID uint        `json:"provider_id"`
	Province   LocationRef `json:"province"`
	District   LocationRef `json:"district"`
	Ward       LocationRef `json:"ward,omitempty"` // optional, quote theo huyện vẫn hợp lệ

	Weight int `json:"weight"` // gram
	Length int `json:"length"` // cm
	Width  int `json:"width"`  // cm
	Height int `json:"height"` // cm

	DeclaredValue int64  `json:"declared_value,omitempty"` // VND, dùng cho bảo hiểm
	ServiceCode   string `json:"service_code,omitempty"`   // chỉ thử đúng service này nếu có
}

// FeeQuoteResult kết quả báo giá. LeadTimeDays = nil khi hãng không trả
// về thời gian dự kiến.
type FeeQuoteResult struct {
	Fee          int64  `json:"fee"`
	LeadTimeDays *int   `json:"lead_time_days"`
	ServiceCode  string `json:"service_code"`
}

// Usable phí > 0 mới dùng được; một số hãng trả 0 để báo tuyến không hỗ trợ.
func (r *FeeQuoteResult) Usable() bool { return r != nil && r.Fee > 0 }

// ResolvedCodes bộ mã địa chỉ theo taxonomy riêng của hãng.
// WardCode rỗng là trạng thái hợp lệ (nhiều tuyến chỉ cần đến cấp huyện).
type ResolvedCodes struct {
	ProvinceCode string `json:"province_code"`
	DistrictCode string `json:"district_code"`
	WardCode     string `json:"ward_code,omitempty"`
}

// ImportReport tổng kết một lần import taxonomy của hãng.
// Match hụt là dữ liệu, không phải lỗi: Unmatched liệt kê để đối soát.
type ImportReport struct {
	ProviderID uint `json:"provider_id"`

	Matched   map[UnitKind]int `json:"matched"`
	Unmatched map[UnitKind]int `json:"unmatched"`
	Errors    int              `json:"errors"`

	UnmatchedUnits []UnmatchedUnit `json:"unmatched_units,omitempty"`
	NearMisses     []ReviewEntry   `json:"near_misses,omitempty"`
}

// NewImportReport khởi tạo report với các counter rỗng
func NewImportReport(providerID uint) *ImportReport {
	return &ImportReport{
		ProviderID: providerID,
		Matched:    map[UnitKind]int{UnitProvince: 0, UnitDistrict: 0, UnitWard: 0},
		Unmatched:  map[UnitKind]int{UnitProvince: 0, UnitDistrict: 0, UnitWard: 0},
	}
}

// UnmatchedUnit một đơn vị của hãng không khớp được với DB nội bộ
type UnmatchedUnit struct {
	Kind         UnitKind `json:"kind"`
	ProviderCode string   `json:"provider_code"`
	ProviderName string   `json:"provider_name"`
}

// ReviewEntry match dưới ngưỡng nhưng trong biên review — cần người
// vận hành đối soát thủ công thay vì lặng lẽ bỏ qua.
type ReviewEntry struct {
	Kind          UnitKind `json:"kind"`
	ProviderName  string   `json:"provider_name"`
	CandidateName string   `json:"candidate_name"`
	Score         float64  `json:"score"`
	Threshold     float64  `json:"threshold"`
}
