package models

import "errors"

// Phân loại lỗi của core:
//   - data-absence (không match, thiếu ward) trả về nil/rỗng, không phải error
//   - các lỗi dưới đây là "required input không resolve được", caller phải xử lý
var (
	// ErrLocationNotMappable tỉnh hoặc huyện không map được sang mã của hãng
	ErrLocationNotMappable = errors.New("location not mappable to provider codes")

	// ErrProviderUnavailable hãng vận chuyển không tồn tại hoặc đang tắt
	ErrProviderUnavailable = errors.New("shipping provider unavailable")

	// ErrNoServiceAvailable đã thử hết các service mà không có báo giá dùng được
	ErrNoServiceAvailable = errors.New("no shipping service available")
)
