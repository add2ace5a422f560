package models

// ShippingProvider hãng vận chuyển được tích hợp (ghn, vtp, ...).
// Tạo từ seed/cấu hình, admin bật/tắt qua isActive.
type ShippingProvider struct {
	ID       uint   `gorm:"primaryKey;column:id" json:"id"`
	Code     string `gorm:"column:code" json:"code"`
	Name     string `gorm:"column:name" json:"name"`
	IsActive bool   `gorm:"column:isActive" json:"is_active"`
}

func (ShippingProvider) TableName() string { return "shippingproviders" }

// ProviderProvince mapping (providerId, provinceId) -> mã tỉnh của hãng.
// Tối đa một dòng cho mỗi cặp khóa; import lại sẽ ghi đè (upsert).
type ProviderProvince struct {
	ProviderID           uint   `gorm:"primaryKey;column:providerId" json:"provider_id"`
	ProvinceID           uint   `gorm:"primaryKey;column:provinceId" json:"province_id"`
	ProviderProvinceCode string `gorm:"column:providerProvinceCode" json:"provider_province_code"`
	ProviderProvinceName string `gorm:"column:providerProvinceName" json:"provider_province_name"`
}

func (ProviderProvince) TableName() string { return "providerprovinces" }

// ProviderDistrict mapping huyện, kèm provinceId denormalized để lookup
// theo scope tỉnh mà không cần join ngược về hãng.
type ProviderDistrict struct {
	ProviderID           uint   `gorm:"primaryKey;column:providerId" json:"provider_id"`
	DistrictID           uint   `gorm:"primaryKey;column:districtId" json:"district_id"`
	ProviderDistrictCode string `gorm:"column:providerDistrictCode" json:"provider_district_code"`
	ProviderDistrictName string `gorm:"column:providerDistrictName" json:"provider_district_name"`
	ProvinceID           uint   `gorm:"column:provinceId" json:"province_id"`
}

func (ProviderDistrict) TableName() string { return "providerdistricts" }

// ProviderWard mapping xã/phường, kèm districtId denormalized.
type ProviderWard struct {
	ProviderID       uint   `gorm:"primaryKey;column:providerId" json:"provider_id"`
	WardID           uint   `gorm:"primaryKey;column:wardId" json:"ward_id"`
	ProviderWardCode string `gorm:"column:providerWardCode" json:"provider_ward_code"`
	ProviderWardName string `gorm:"column:providerWardName" json:"provider_ward_name"`
	DistrictID       uint   `gorm:"column:districtId" json:"district_id"`
}

func (ProviderWard) TableName() string { return "providerwards" }

// ProviderMapping kết quả tra mapping: mã + tên của hãng cho một đơn vị nội bộ.
type ProviderMapping struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// MappingCandidate một ứng viên khi fallback fuzzy matching trên corpus
// đã import: key là ID nội bộ, display text là tên theo cách gọi của hãng.
type MappingCandidate struct {
	InternalID  uint   `json:"internal_id"`
	DisplayText string `json:"display_text"`
}
