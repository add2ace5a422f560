package requests

import "github.com/shipping-mapper/app/models"

// LocationRefRequest tham chiếu đơn vị hành chính trong request body.
// Cho phép truyền ID nội bộ hoặc tên tự do, ít nhất một trong hai.
type LocationRefRequest struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func (r LocationRefRequest) ToModel() models.LocationRef {
	return models.LocationRef{ID: r.ID, Name: r.Name}
}

// QuoteRequest request báo giá vận chuyển
type QuoteRequest struct {
	ProviderID    uint                `json:"provider_id" binding:"required"`
	Province      LocationRefRequest  `json:"province" binding:"required"`
	District      LocationRefRequest  `json:"district" binding:"required"`
	Ward          *LocationRefRequest `json:"ward"`
	Weight        int                 `json:"weight" binding:"required,gt=0"`
	Length        int                 `json:"length"`
	Width         int                 `json:"width"`
	Height        int                 `json:"height"`
	DeclaredValue int64               `json:"declared_value"`
	ServiceCode   string              `json:"service_code"`
}

// ResolveRequest request resolve địa chỉ sang mã hãng (endpoint đối soát)
type ResolveRequest struct {
	ProviderID uint                `json:"provider_id" binding:"required"`
	Province   LocationRefRequest  `json:"province" binding:"required"`
	District   LocationRefRequest  `json:"district" binding:"required"`
	Ward       *LocationRefRequest `json:"ward"`
}

// PickupAddress địa chỉ kèm thông tin liên hệ cho vận đơn lấy hàng
type PickupAddress struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Address  string `json:"address" binding:"required"`
	Province string `json:"province_code" binding:"required"`
	District string `json:"district_code" binding:"required"`
	Ward     string `json:"ward_code"`
}

// BookPickupRequest request tạo vận đơn lấy hàng (luồng đổi/trả)
type BookPickupRequest struct {
	ProviderID uint          `json:"provider_id" binding:"required"`
	From       PickupAddress `json:"from" binding:"required"`
	To         PickupAddress `json:"to" binding:"required"`
	Weight     int           `json:"weight" binding:"required,gt=0"`
	Length     int           `json:"length"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	OrderCode  string        `json:"order_code"`
	Content    string        `json:"content"`
}
