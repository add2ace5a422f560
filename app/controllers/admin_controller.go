package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shipping-mapper/app/responses"
	"github.com/shipping-mapper/app/services"
)

// AdminController controller xử lý các request vận hành: chạy import
// taxonomy hãng, theo dõi job, quản lý cache báo giá.
type AdminController struct {
	importService *services.ImportService
	quoteCache    services.IQuoteCache
	logger        *zap.Logger
}

// NewAdminController tạo mới AdminController
func NewAdminController(importService *services.ImportService, quoteCache services.IQuoteCache, logger *zap.Logger) *AdminController {
	return &AdminController{
		importService: importService,
		quoteCache:    quoteCache,
		logger:        logger,
	}
}

// StartImport khởi chạy job import taxonomy cho một hãng
func (ac *AdminController) StartImport(c *gin.Context) {
	providerID, err := strconv.ParseUint(c.Param("provider"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: "provider phải là ID số: " + c.Param("provider"),
		})
		return
	}

	job, err := ac.importService.StartImport(c.Request.Context(), uint(providerID))
	if err != nil {
		ac.logger.Error("Lỗi khởi chạy import", zap.Error(err), zap.Uint64("providerId", providerID))
		c.JSON(http.StatusConflict, responses.ErrorResponse{
			Error:   "IMPORT_START_FAILED",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// GetImportJob trạng thái một job import
func (ac *AdminController) GetImportJob(c *gin.Context) {
	job := ac.importService.GetJob(c.Param("jobID"))
	if job == nil {
		c.JSON(http.StatusNotFound, responses.ErrorResponse{
			Error:   "JOB_NOT_FOUND",
			Message: "Không tìm thấy job " + c.Param("jobID"),
		})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListImportJobs toàn bộ job import đã biết
func (ac *AdminController) ListImportJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": ac.importService.ListJobs()})
}

// CancelImportJob hủy một job import đang chạy
func (ac *AdminController) CancelImportJob(c *gin.Context) {
	if err := ac.importService.CancelJob(c.Param("jobID")); err != nil {
		c.JSON(http.StatusConflict, responses.ErrorResponse{
			Error:   "CANCEL_FAILED",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "canceling"})
}

// GetCacheStats thống kê cache báo giá
func (ac *AdminController) GetCacheStats(c *gin.Context) {
	stats, err := ac.quoteCache.GetStats(c.Request.Context())
	if err != nil {
		ac.logger.Error("Lỗi lấy thống kê cache", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:   "INTERNAL_ERROR",
			Message: "Không lấy được thống kê cache",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ClearCache xóa toàn bộ cache báo giá, dùng sau khi hãng đổi bảng giá
func (ac *AdminController) ClearCache(c *gin.Context) {
	if err := ac.quoteCache.Clear(c.Request.Context()); err != nil {
		ac.logger.Error("Lỗi xóa cache", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:   "INTERNAL_ERROR",
			Message: "Không xóa được cache",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
