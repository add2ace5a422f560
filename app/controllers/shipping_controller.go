package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
	"github.com/shipping-mapper/app/requests"
	"github.com/shipping-mapper/app/responses"
	"github.com/shipping-mapper/app/services"
	"github.com/shipping-mapper/internal/carriers"
)

// ShippingController controller xử lý các request báo giá và resolve địa chỉ
type ShippingController struct {
	quoteService *services.QuoteService
	logger       *zap.Logger
}

// NewShippingController tạo mới ShippingController
func NewShippingController(quoteService *services.QuoteService, logger *zap.Logger) *ShippingController {
	return &ShippingController{
		quoteService: quoteService,
		logger:       logger,
	}
}

// Quote báo giá vận chuyển cho một địa chỉ nhận
func (sc *ShippingController) Quote(c *gin.Context) {
	var req requests.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: "Request không hợp lệ: " + err.Error(),
		})
		return
	}

	startTime := time.Now()

	var ward models.LocationRef
	if req.Ward != nil {
		ward = req.Ward.ToModel()
	}

	result, err := sc.quoteService.Quote(c.Request.Context(), models.FeeQuoteRequest{
		ProviderID:    req.ProviderID,
		Province:      req.Province.ToModel(),
		District:      req.District.ToModel(),
		Ward:          ward,
		Weight:        req.Weight,
		Length:        req.Length,
		Width:         req.Width,
		Height:        req.Height,
		DeclaredValue: req.DeclaredValue,
		ServiceCode:   req.ServiceCode,
	})
	if err != nil {
		sc.writeQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.QuoteResponse{
		Fee:              result.Fee,
		LeadTimeDays:     result.LeadTimeDays,
		ServiceCode:      result.ServiceCode,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	})
}

// Resolve resolve địa chỉ sang bộ mã của hãng, phục vụ đối soát mapping
func (sc *ShippingController) Resolve(c *gin.Context) {
	var req requests.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: "Request không hợp lệ: " + err.Error(),
		})
		return
	}

	var ward *models.LocationRef
	if req.Ward != nil {
		w := req.Ward.ToModel()
		ward = &w
	}

	resolved, err := sc.quoteService.ResolveCodes(
		c.Request.Context(), req.ProviderID,
		req.Province.ToModel(), req.District.ToModel(), ward)
	if err != nil {
		sc.writeQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.ResolveResponse{
		ProviderID:   req.ProviderID,
		ProvinceCode: resolved.ProvinceCode,
		DistrictCode: resolved.DistrictCode,
		WardCode:     resolved.WardCode,
	})
}

// ListProviders danh sách hãng vận chuyển đang hoạt động
func (sc *ShippingController) ListProviders(c *gin.Context) {
	providers, err := sc.quoteService.ListProviders(c.Request.Context())
	if err != nil {
		sc.logger.Error("Lỗi lấy danh sách hãng", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:   "INTERNAL_ERROR",
			Message: "Không lấy được danh sách hãng",
		})
		return
	}

	c.JSON(http.StatusOK, responses.ProvidersResponse{Providers: providers})
}

// BookPickup tạo vận đơn lấy hàng cho luồng đổi/trả
func (sc *ShippingController) BookPickup(c *gin.Context) {
	var req requests.BookPickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: "Request không hợp lệ: " + err.Error(),
		})
		return
	}

	result, err := sc.quoteService.BookPickup(c.Request.Context(), req.ProviderID, carriers.PickupRequest{
		FromName:    req.From.Name,
		FromPhone:   req.From.Phone,
		FromAddress: req.From.Address,
		From: models.ResolvedCodes{
			ProvinceCode: req.From.Province,
			DistrictCode: req.From.District,
			WardCode:     req.From.Ward,
		},
		ToName:    req.To.Name,
		ToPhone:   req.To.Phone,
		ToAddress: req.To.Address,
		To: models.ResolvedCodes{
			ProvinceCode: req.To.Province,
			DistrictCode: req.To.District,
			WardCode:     req.To.Ward,
		},
		Weight:    req.Weight,
		Length:    req.Length,
		Width:     req.Width,
		Height:    req.Height,
		OrderCode: req.OrderCode,
		Content:   req.Content,
	})
	if err != nil {
		if errors.Is(err, models.ErrProviderUnavailable) {
			c.JSON(http.StatusNotFound, responses.ErrorResponse{
				Error:   "PROVIDER_UNAVAILABLE",
				Message: err.Error(),
			})
			return
		}
		sc.logger.Error("Lỗi tạo vận đơn lấy hàng", zap.Error(err))
		c.JSON(http.StatusBadGateway, responses.ErrorResponse{
			Error:   "CARRIER_ERROR",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, responses.BookPickupResponse{
		TrackingCode: result.TrackingCode,
		LabelURL:     result.LabelURL,
	})
}

// HealthCheck endpoint kiểm tra trạng thái service
func (sc *ShippingController) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, responses.HealthResponse{
		Status:   "ok",
		Carriers: sc.quoteService.CarrierCodes(),
	})
}

// writeQuoteError map lỗi nghiệp vụ sang HTTP status. Địa chỉ không map
// được và hết service đều là 422: request hợp lệ nhưng không phục vụ
// được, client phân biệt qua mã lỗi.
func (sc *ShippingController) writeQuoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrProviderUnavailable):
		c.JSON(http.StatusNotFound, responses.ErrorResponse{
			Error:   "PROVIDER_UNAVAILABLE",
			Message: err.Error(),
		})
	case errors.Is(err, models.ErrLocationNotMappable):
		c.JSON(http.StatusUnprocessableEntity, responses.ErrorResponse{
			Error:   "LOCATION_NOT_MAPPABLE",
			Message: err.Error(),
		})
	case errors.Is(err, models.ErrNoServiceAvailable):
		c.JSON(http.StatusUnprocessableEntity, responses.ErrorResponse{
			Error:   "NO_SERVICE_AVAILABLE",
			Message: err.Error(),
		})
	default:
		sc.logger.Error("Lỗi báo giá", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:   "INTERNAL_ERROR",
			Message: "Lỗi hệ thống khi báo giá",
		})
	}
}
