package matcher

import "github.com/shipping-mapper/app/models"

// Thresholds ngưỡng chấp nhận theo cấp đơn vị. Tỉnh ít và phân biệt rõ
// nên ngưỡng nới hơn; huyện/xã trùng tên giữa các vùng nên siết hơn.
type Thresholds struct {
	Province float64
	District float64
	Ward     float64
}

func (t Thresholds) ForKind(kind models.UnitKind) float64 {
	switch kind {
	case models.UnitProvince:
		return t.Province
	case models.UnitDistrict:
		return t.District
	}
	return t.Ward
}
