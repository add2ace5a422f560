package models

// UnitKind cấp đơn vị hành chính (tỉnh / huyện / xã)
type UnitKind string

const (
	UnitProvince UnitKind = "province"
	UnitDistrict UnitKind = "district"
	UnitWard     UnitKind = "ward"
)

// Province đơn vị hành chính cấp tỉnh. Seeded một lần từ nguồn chuẩn,
// sau đó bất biến (không có đường xóa trong core này).
type Province struct {
	ID   uint   `gorm:"primaryKey;column:id" json:"id"`
	Name string `gorm:"column:name" json:"name"`
}

func (Province) TableName() string { return "provinces" }

// District đơn vị hành chính cấp huyện, luôn thuộc đúng một tỉnh.
type District struct {
	ID         uint   `gorm:"primaryKey;column:id" json:"id"`
	Name       string `gorm:"column:name" json:"name"`
	ProvinceID uint   `gorm:"column:provinceId" json:"province_id"`
}

func (District) TableName() string { return "districts" }

// Ward đơn vị hành chính cấp xã/phường, luôn thuộc đúng một huyện.
type Ward struct {
	ID         uint   `gorm:"primaryKey;column:id" json:"id"`
	Name       string `gorm:"column:name" json:"name"`
	DistrictID uint   `gorm:"column:districtId" json:"district_id"`
}

func (Ward) TableName() string { return "wards" }

// LocationRef tham chiếu một đơn vị hành chính theo ID nội bộ hoặc theo tên.
// ID = 0 nghĩa là chỉ có tên.
type LocationRef struct {
	ID   uint   `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// IsZero báo ref rỗng (không có cả ID lẫn tên)
func (r LocationRef) IsZero() bool { return r.ID == 0 && r.Name == "" }
