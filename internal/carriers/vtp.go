package carriers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
)

// VTPConfig cấu hình driver ViettelPost
type VTPConfig struct {
	BaseURL          string
	Token            string
	FromProvinceCode string
	FromDistrictCode string
	FromWardCode     string
}

// VTPDriver driver ViettelPost. Danh sách service cache 24h, fallback
// sang bộ mặc định khi API lỗi.
type VTPDriver struct {
	cfg    VTPConfig
	client *http.Client
	logger *zap.Logger

	// key duy nhất "services"; dùng LRU expirable thay vì map+timer
	serviceCache *lru.LRU[string, []string]
}

const (
	vtpDefaultBaseURL = "https://partner.viettelpost.vn/v2"

	vtpListTimeout = 10 * time.Second
	vtpFeeTimeout  = 10 * time.Second

	vtpServiceCacheTTL = 24 * time.Hour
)

// vtpFallbackServices dùng khi listService không gọi được
var vtpFallbackServices = []string{"VCN", "VHT", "VTK", "SCOD", "V60"}

// vtpPreferredServices thứ tự thử service khi caller không chỉ định
var vtpPreferredServices = []string{"VCN", "VHT", "VTK"}

func NewVTPDriver(cfg VTPConfig, logger *zap.Logger) *VTPDriver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = vtpDefaultBaseURL
	}
	return &VTPDriver{
		cfg:          cfg,
		client:       &http.Client{Timeout: 15 * time.Second},
		logger:       logger,
		serviceCache: lru.NewLRU[string, []string](4, nil, vtpServiceCacheTTL),
	}
}

func (d *VTPDriver) Code() string { return "vtp" }

func (d *VTPDriver) Origin() models.ResolvedCodes {
	return models.ResolvedCodes{
		ProvinceCode: d.cfg.FromProvinceCode,
		DistrictCode: d.cfg.FromDistrictCode,
		WardCode:     d.cfg.FromWardCode,
	}
}

func (d *VTPDriver) PreferredServices() []string {
	out := make([]string, len(vtpPreferredServices))
	copy(out, vtpPreferredServices)
	return out
}

/* ---------- taxonomy ---------- */

type vtpEnvelope struct {
	Status  int             `json:"status"`
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type vtpProvince struct {
	ProvinceID   int    `json:"PROVINCE_ID"`
	ProvinceName string `json:"PROVINCE_NAME"`
}

type vtpDistrict struct {
	DistrictID   int    `json:"DISTRICT_ID"`
	DistrictName string `json:"DISTRICT_NAME"`
}

type vtpWard struct {
	WardsID   int    `json:"WARDS_ID"`
	WardsName string `json:"WARDS_NAME"`
}

// ListProvinces provinceId=0 trả toàn bộ tỉnh
func (d *VTPDriver) ListProvinces(ctx context.Context) ([]Unit, error) {
	var rows []vtpProvince
	if err := d.call(ctx, http.MethodGet, "/categories/listProvinceById?provinceId=0", nil, vtpListTimeout, &rows); err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(rows))
	for _, p := range rows {
		units = append(units, Unit{Code: strconv.Itoa(p.ProvinceID), Name: p.ProvinceName})
	}
	return units, nil
}

func (d *VTPDriver) ListDistricts(ctx context.Context, provinceCode string) ([]Unit, error) {
	var rows []vtpDistrict
	path := "/categories/listDistrict?provinceId=" + provinceCode
	if err := d.call(ctx, http.MethodGet, path, nil, vtpListTimeout, &rows); err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(rows))
	for _, r := range rows {
		units = append(units, Unit{Code: strconv.Itoa(r.DistrictID), Name: r.DistrictName})
	}
	return units, nil
}

func (d *VTPDriver) ListWards(ctx context.Context, districtCode string) ([]Unit, error) {
	var rows []vtpWard
	path := "/categories/listWards?districtId=" + districtCode
	if err := d.call(ctx, http.MethodGet, path, nil, vtpListTimeout, &rows); err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(rows))
	for _, r := range rows {
		units = append(units, Unit{Code: strconv.Itoa(r.WardsID), Name: r.WardsName})
	}
	return units, nil
}

/* ---------- services & fee ---------- */

type vtpService struct {
	ServiceCode string `json:"SERVICE_CODE"`
	ServiceName string `json:"SERVICE_NAME"`
}

// serviceList danh sách service của tài khoản, cache 24h. API lỗi thì
// dùng bộ fallback để báo giá không chết theo.
func (d *VTPDriver) serviceList(ctx context.Context) []string {
	if cached, ok := d.serviceCache.Get("services"); ok {
		return cached
	}

	var rows []vtpService
	body := map[string]int{"TYPE": 2}
	if err := d.call(ctx, http.MethodPost, "/categories/listService", body, vtpListTimeout, &rows); err != nil {
		d.logger.Warn("VTP listService lỗi, dùng danh sách dịch vụ dự phòng",
			zap.Error(err),
			zap.Strings("fallback", vtpFallbackServices))
		return vtpFallbackServices
	}

	codes := make([]string, 0, len(rows))
	for _, s := range rows {
		codes = append(codes, s.ServiceCode)
	}
	if len(codes) == 0 {
		return vtpFallbackServices
	}
	d.serviceCache.Add("services", codes)
	return codes
}

func (d *VTPDriver) ListAvailableServices(ctx context.Context, fromDistrictCode, toDistrictCode string) ([]string, error) {
	// listService của VTP không phân tuyến, trả theo tài khoản
	codes := d.serviceList(ctx)
	out := make([]string, len(codes))
	copy(out, codes)
	return out, nil
}

type vtpPriceData struct {
	MoneyTotalFee json.Number `json:"MONEY_TOTAL_FEE"`
	MoneyTotal    json.Number `json:"MONEY_TOTAL"`
	KpiHt         json.Number `json:"KPI_HT"`
}

// GetFee báo giá một service. VTP yêu cầu sàn dữ liệu: cân nặng >= 100g,
// kích thước >= 1cm, giá trị hàng >= 100k.
func (d *VTPDriver) GetFee(ctx context.Context, req FeeRequest) (*models.FeeQuoteResult, error) {
	svc := req.ServiceCode
	if svc == "" {
		services := d.serviceList(ctx)
		if len(services) == 0 {
			return nil, fmt.Errorf("vtp: tài khoản không có dịch vụ nào")
		}
		svc = services[0]
	}

	senderProvince, _ := strconv.Atoi(d.cfg.FromProvinceCode)
	senderDistrict, _ := strconv.Atoi(d.cfg.FromDistrictCode)
	receiverProvince, err := strconv.Atoi(req.To.ProvinceCode)
	if err != nil {
		return nil, fmt.Errorf("vtp: mã tỉnh nhận không hợp lệ %q: %w", req.To.ProvinceCode, err)
	}
	receiverDistrict, err := strconv.Atoi(req.To.DistrictCode)
	if err != nil {
		return nil, fmt.Errorf("vtp: mã huyện nhận không hợp lệ %q: %w", req.To.DistrictCode, err)
	}

	body := map[string]interface{}{
		"PRODUCT_TYPE":      "HH",
		"SENDER_PROVINCE":   senderProvince,
		"SENDER_DISTRICT":   senderDistrict,
		"RECEIVER_PROVINCE": receiverProvince,
		"RECEIVER_DISTRICT": receiverDistrict,
		"PRODUCT_WEIGHT":    max(req.Weight, 100),
		"PRODUCT_DIMENSION": fmt.Sprintf("%dx%dx%d", max(req.Length, 1), max(req.Width, 1), max(req.Height, 1)),
		"ORDER_SERVICE":     svc,
		"ORDER_SERVICE_ADD": "",
		"NATIONAL_TYPE":     1,
		"ORDER_VALUE":       maxInt64(req.DeclaredValue, 100_000),
	}
	if d.cfg.FromWardCode != "" {
		if senderWard, err := strconv.Atoi(d.cfg.FromWardCode); err == nil {
			body["SENDER_WARD"] = senderWard
		}
	}
	if req.To.WardCode != "" {
		if receiverWard, err := strconv.Atoi(req.To.WardCode); err == nil {
			body["RECEIVER_WARD"] = receiverWard
		}
	}

	var data vtpPriceData
	if err := d.call(ctx, http.MethodPost, "/order/getPrice", body, vtpFeeTimeout, &data); err != nil {
		return nil, err
	}

	fee, _ := data.MoneyTotalFee.Int64()
	result := &models.FeeQuoteResult{
		Fee:         fee,
		ServiceCode: svc,
	}
	if fee <= 0 {
		d.logger.Warn("VTP trả phí 0, dịch vụ có thể không hỗ trợ tuyến",
			zap.String("service", svc),
			zap.String("toProvince", req.To.ProvinceCode),
			zap.String("toDistrict", req.To.DistrictCode))
		return result, nil
	}

	// KPI_HT là số giờ giao dự kiến, quy ra ngày và kẹp tối thiểu 1
	if hours, err := data.KpiHt.Float64(); err == nil && hours > 0 {
		days := int(math.Ceil(hours / 24))
		if days < 1 {
			days = 1
		}
		result.LeadTimeDays = &days
	}
	return result, nil
}

/* ---------- transport ---------- */

// call gọi API VTP. /categories/* nhận header Token, phần còn lại dùng
// Bearer — hai kiểu auth này là quirk của VTP chứ không phải cấu hình.
func (d *VTPDriver) call(ctx context.Context, method, path string, body interface{}, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("vtp %s: marshal body: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("vtp %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if len(path) >= len("/categories/") && path[:len("/categories/")] == "/categories/" {
		req.Header.Set("Token", d.cfg.Token)
	} else {
		req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("vtp %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("vtp %s: đọc phản hồi: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vtp %s: HTTP %d: %s", path, resp.StatusCode, truncate(raw, 200))
	}

	var env vtpEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("vtp %s: phản hồi không hợp lệ: %w", path, err)
	}
	if env.Error {
		return fmt.Errorf("vtp %s: %s", path, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("vtp %s: decode data: %w", path, err)
		}
	}
	return nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
