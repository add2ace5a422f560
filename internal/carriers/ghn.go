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

	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
)

// GHNConfig cấu hình driver Giao Hàng Nhanh
type GHNConfig struct {
	BaseURL          string
	Token            string
	ShopID           int
	FromDistrictCode string // GHN DistrictID của kho lấy hàng
	FromWardCode     string // GHN WardCode của kho lấy hàng
}

// GHNDriver driver Giao Hàng Nhanh. Mọi call đều có timeout riêng;
// lỗi transport trả về error để caller chuyển sang service/đơn vị kế tiếp.
type GHNDriver struct {
	cfg    GHNConfig
	client *http.Client
	logger *zap.Logger

	// now tách ra để test lead-time với clock giả
	now func() time.Time
}

const (
	ghnDefaultBaseURL = "https://online-gateway.ghn.vn/shiip/public-api"

	ghnListTimeout     = 10 * time.Second
	ghnServicesTimeout = 5 * time.Second
	ghnFeeTimeout      = 8 * time.Second
	ghnLeadTimeTimeout = 5 * time.Second
	ghnCreateTimeout   = 10 * time.Second

	// GHN không trả leadtime thì ước lượng 3 ngày
	ghnFallbackLeadDays = 3
)

func NewGHNDriver(cfg GHNConfig, logger *zap.Logger) *GHNDriver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ghnDefaultBaseURL
	}
	return &GHNDriver{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
		now:    time.Now,
	}
}

func (d *GHNDriver) Code() string { return "ghn" }

func (d *GHNDriver) Origin() models.ResolvedCodes {
	return models.ResolvedCodes{
		DistrictCode: d.cfg.FromDistrictCode,
		WardCode:     d.cfg.FromWardCode,
	}
}

func (d *GHNDriver) PreferredServices() []string {
	// GHN không có thứ tự ưu tiên cố định: dùng nguyên thứ tự API trả về
	return nil
}

/* ---------- taxonomy ---------- */

type ghnEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type ghnProvince struct {
	ProvinceID   int    `json:"ProvinceID"`
	ProvinceName string `json:"ProvinceName"`
}

type ghnDistrict struct {
	DistrictID   int    `json:"DistrictID"`
	DistrictName string `json:"DistrictName"`
}

type ghnWard struct {
	WardCode string `json:"WardCode"`
	WardName string `json:"WardName"`
}

func (d *GHNDriver) ListProvinces(ctx context.Context) ([]Unit, error) {
	var rows []ghnProvince
	if err := d.call(ctx, http.MethodGet, "/master-data/province", nil, ghnListTimeout, &rows); err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(rows))
	for _, p := range rows {
		units = append(units, Unit{Code: strconv.Itoa(p.ProvinceID), Name: p.ProvinceName})
	}
	return units, nil
}

func (d *GHNDriver) ListDistricts(ctx context.Context, provinceCode string) ([]Unit, error) {
	pid, err := strconv.Atoi(provinceCode)
	if err != nil {
		return nil, fmt.Errorf("ghn: mã tỉnh không hợp lệ %q: %w", provinceCode, err)
	}
	var rows []ghnDistrict
	body := map[string]int{"province_id": pid}
	if err := d.call(ctx, http.MethodPost, "/master-data/district", body, ghnListTimeout, &rows); err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(rows))
	for _, r := range rows {
		units = append(units, Unit{Code: strconv.Itoa(r.DistrictID), Name: r.DistrictName})
	}
	return units, nil
}

func (d *GHNDriver) ListWards(ctx context.Context, districtCode string) ([]Unit, error) {
	did, err := strconv.Atoi(districtCode)
	if err != nil {
		return nil, fmt.Errorf("ghn: mã huyện không hợp lệ %q: %w", districtCode, err)
	}
	var rows []ghnWard
	body := map[string]int{"district_id": did}
	if err := d.call(ctx, http.MethodPost, "/master-data/ward", body, ghnListTimeout, &rows); err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(rows))
	for _, r := range rows {
		units = append(units, Unit{Code: r.WardCode, Name: r.WardName})
	}
	return units, nil
}

/* ---------- services & fee ---------- */

type ghnService struct {
	ServiceID     int    `json:"service_id"`
	ShortName     string `json:"short_name"`
	ServiceTypeID int    `json:"service_type_id"`
}

func (d *GHNDriver) availableServices(ctx context.Context, fromDistrict, toDistrict string) ([]ghnService, error) {
	from, err := strconv.Atoi(fromDistrict)
	if err != nil {
		return nil, fmt.Errorf("ghn: mã huyện gửi không hợp lệ %q: %w", fromDistrict, err)
	}
	to, err := strconv.Atoi(toDistrict)
	if err != nil {
		return nil, fmt.Errorf("ghn: mã huyện nhận không hợp lệ %q: %w", toDistrict, err)
	}

	var rows []ghnService
	body := map[string]int{
		"shop_id":       d.cfg.ShopID,
		"from_district": from,
		"to_district":   to,
	}
	if err := d.call(ctx, http.MethodPost, "/v2/shipping-order/available-services", body, ghnServicesTimeout, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (d *GHNDriver) ListAvailableServices(ctx context.Context, fromDistrictCode, toDistrictCode string) ([]string, error) {
	if fromDistrictCode == "" {
		fromDistrictCode = d.cfg.FromDistrictCode
	}
	rows, err := d.availableServices(ctx, fromDistrictCode, toDistrictCode)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(rows))
	for _, s := range rows {
		codes = append(codes, strconv.Itoa(s.ServiceID))
	}
	return codes, nil
}

type ghnFeeData struct {
	Total                int64 `json:"total"`
	ExpectedDeliveryTime int64 `json:"expected_delivery_time"`
}

type ghnLeadTimeData struct {
	LeadTime int64 `json:"leadtime"`
}

// GetFee phí + lead-time GHN. Chuỗi fallback lead-time:
// expected_delivery_time -> /leadtime -> mặc định 3 ngày.
func (d *GHNDriver) GetFee(ctx context.Context, req FeeRequest) (*models.FeeQuoteResult, error) {
	services, err := d.availableServices(ctx, d.cfg.FromDistrictCode, req.To.DistrictCode)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("ghn: không có dịch vụ khả dụng cho huyện %s", req.To.DistrictCode)
	}

	svc := services[0]
	if req.ServiceCode != "" {
		for _, s := range services {
			if strconv.Itoa(s.ServiceID) == req.ServiceCode {
				svc = s
				break
			}
		}
	}

	toDistrict, err := strconv.Atoi(req.To.DistrictCode)
	if err != nil {
		return nil, fmt.Errorf("ghn: mã huyện nhận không hợp lệ %q: %w", req.To.DistrictCode, err)
	}
	fromDistrict, _ := strconv.Atoi(d.cfg.FromDistrictCode)

	feeBody := map[string]interface{}{
		"from_district_id": fromDistrict,
		"service_type_id":  svc.ServiceTypeID,
		"to_district_id":   toDistrict,
		"to_ward_code":     req.To.WardCode,
		"weight":           req.Weight,
		"length":           req.Length,
		"width":            req.Width,
		"height":           req.Height,
		"insurance_value":  req.DeclaredValue,
		"coupon":           nil,
	}

	var fee ghnFeeData
	if err := d.call(ctx, http.MethodPost, "/v2/shipping-order/fee", feeBody, ghnFeeTimeout, &fee); err != nil {
		return nil, err
	}

	result := &models.FeeQuoteResult{
		Fee:         fee.Total,
		ServiceCode: strconv.Itoa(svc.ServiceID),
	}
	if fee.Total <= 0 {
		d.logger.Warn("GHN trả phí 0, tuyến có thể không hỗ trợ",
			zap.String("toDistrict", req.To.DistrictCode),
			zap.String("toWard", req.To.WardCode))
		return result, nil
	}

	result.LeadTimeDays = d.leadTimeDays(ctx, fee.ExpectedDeliveryTime, svc.ServiceID, toDistrict, req.To.WardCode)
	return result, nil
}

func (d *GHNDriver) leadTimeDays(ctx context.Context, expectedDelivery int64, serviceID, toDistrict int, toWardCode string) *int {
	now := d.now().Unix()
	if expectedDelivery > now {
		days := int(math.Ceil(float64(expectedDelivery-now) / 86400))
		if days < 1 {
			days = 1
		}
		return &days
	}

	fromDistrict, _ := strconv.Atoi(d.cfg.FromDistrictCode)
	body := map[string]interface{}{
		"from_district_id": fromDistrict,
		"from_ward_code":   d.cfg.FromWardCode,
		"to_district_id":   toDistrict,
		"to_ward_code":     toWardCode,
		"service_id":       serviceID,
	}

	var lt ghnLeadTimeData
	if err := d.call(ctx, http.MethodPost, "/v2/shipping-order/leadtime", body, ghnLeadTimeTimeout, &lt); err != nil {
		d.logger.Warn("GHN /leadtime lỗi, dùng lead-time mặc định", zap.Error(err))
		days := ghnFallbackLeadDays
		return &days
	}
	if lt.LeadTime > 0 {
		days := int(math.Ceil(float64(lt.LeadTime) / 86400))
		if days < 1 {
			days = 1
		}
		return &days
	}

	days := ghnFallbackLeadDays
	return &days
}

/* ---------- booking ---------- */

type ghnOrderData struct {
	OrderCode string `json:"order_code"`
	Label     string `json:"label"`
}

// BookPickup tạo vận đơn lấy hàng cho luồng đổi/trả
func (d *GHNDriver) BookPickup(ctx context.Context, req PickupRequest) (*PickupResult, error) {
	services, err := d.availableServices(ctx, d.cfg.FromDistrictCode, req.From.DistrictCode)
	if err != nil {
		return nil, fmt.Errorf("ghn: không xác định được dịch vụ lấy hàng: %w", err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("ghn: không có dịch vụ khả dụng cho tuyến lấy hàng")
	}

	fromDistrict, _ := strconv.Atoi(req.From.DistrictCode)
	toDistrict, _ := strconv.Atoi(req.To.DistrictCode)

	body := map[string]interface{}{
		"service_type_id": services[0].ServiceTypeID,
		"required_note":   "KHONGCHOXEMHANG",
		"payment_type_id": 1,

		"from_name":        req.FromName,
		"from_phone":       req.FromPhone,
		"from_address":     req.FromAddress,
		"from_ward_code":   req.From.WardCode,
		"from_district_id": fromDistrict,

		"to_name":        req.ToName,
		"to_phone":       req.ToPhone,
		"to_address":     req.ToAddress,
		"to_ward_code":   req.To.WardCode,
		"to_district_id": toDistrict,

		"weight": req.Weight,
		"length": max(1, req.Length),
		"width":  max(1, req.Width),
		"height": max(1, req.Height),

		"cod_amount":        0,
		"client_order_code": req.OrderCode,
		"content":           req.Content,
	}

	var data ghnOrderData
	if err := d.call(ctx, http.MethodPost, "/v2/shipping-order/create", body, ghnCreateTimeout, &data); err != nil {
		return nil, fmt.Errorf("ghn: lỗi tạo vận đơn: %w", err)
	}
	if data.OrderCode == "" {
		return nil, fmt.Errorf("ghn: phản hồi tạo vận đơn thiếu order_code")
	}
	return &PickupResult{TrackingCode: data.OrderCode, LabelURL: data.Label}, nil
}

/* ---------- transport ---------- */

// call gọi API GHN, parse envelope {code, message, data} và decode data
// vào out. code != 200 coi như lỗi từ hãng.
func (d *GHNDriver) call(ctx context.Context, method, path string, body interface{}, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ghn %s: marshal body: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("ghn %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", d.cfg.Token)
	req.Header.Set("ShopId", strconv.Itoa(d.cfg.ShopID))

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("ghn %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ghn %s: đọc phản hồi: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ghn %s: HTTP %d: %s", path, resp.StatusCode, truncate(raw, 200))
	}

	var env ghnEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("ghn %s: phản hồi không hợp lệ: %w", path, err)
	}
	if env.Code != 200 {
		return fmt.Errorf("ghn %s: code %d: %s", path, env.Code, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("ghn %s: decode data: %w", path, err)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
