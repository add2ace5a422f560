package carriers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
	"github.com/shipping-mapper/internal/normalizer"
	"github.com/shipping-mapper/internal/store"
)

// GHTKConfig cấu hình driver Giao Hàng Tiết Kiệm. Kho gửi khai báo bằng
// TÊN tỉnh/huyện đúng như trong DB nội bộ — API GHTK nhận địa chỉ dạng
// tên chứ không có bộ mã riêng.
type GHTKConfig struct {
	BaseURL      string
	Token        string
	FromProvince string
	FromDistrict string
}

// GHTKDriver driver Giao Hàng Tiết Kiệm. GHTK không có API taxonomy:
// "mã" của driver này là tên đơn vị đã làm sạch, lấy từ gazetteer nội bộ.
// Import cho GHTK vì thế luôn khớp exact, còn tính phí thì gửi thẳng tên.
type GHTKDriver struct {
	cfg       GHTKConfig
	locations store.LocationStore
	client    *http.Client
	logger    *zap.Logger

	now func() time.Time
}

const (
	ghtkDefaultBaseURL = "https://services.giaohangtietkiem.vn"

	ghtkFeeTimeout      = 8 * time.Second
	ghtkLeadTimeTimeout = 5 * time.Second
	ghtkOrderTimeout    = 10 * time.Second

	// GHTK chỉ có một service chuẩn
	ghtkService = "GHTK"

	// không hỏi được lead-time: cùng tỉnh + huyện với kho ước 1 ngày,
	// khác thì 3 ngày
	ghtkSameAreaLeadDays = 1
	ghtkFallbackLeadDays = 3
)

func NewGHTKDriver(cfg GHTKConfig, locations store.LocationStore, logger *zap.Logger) *GHTKDriver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ghtkDefaultBaseURL
	}
	return &GHTKDriver{
		cfg:       cfg,
		locations: locations,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger,
		now:       time.Now,
	}
}

func (d *GHTKDriver) Code() string { return "ghtk" }

func (d *GHTKDriver) Origin() models.ResolvedCodes {
	return models.ResolvedCodes{
		ProvinceCode: d.cfg.FromProvince,
		DistrictCode: ghtkClean(d.cfg.FromDistrict),
	}
}

func (d *GHTKDriver) PreferredServices() []string { return nil }

// ghtkPrefixes tiền tố dài xếp trước để "thi xa" không bị "xa" cắt hụt
var ghtkPrefixes = []string{
	"thanh pho", "thi tran", "thi xa", "huyen", "quan", "phuong", "xa", "tx", "tt",
}

// ghtkClean bỏ dấu + cắt một tiền tố hành chính ở đầu, giữ nguyên hoa
// thường vì tên này đi thẳng vào tham số API của GHTK
func ghtkClean(name string) string {
	s := strings.TrimSpace(normalizer.FoldASCII(name))
	lower := strings.ToLower(s)
	for _, p := range ghtkPrefixes {
		if strings.HasPrefix(lower, p+" ") {
			return strings.TrimSpace(s[len(p)+1:])
		}
	}
	return s
}

/* ---------- taxonomy ---------- */

// Taxonomy của GHTK chính là gazetteer nội bộ: tỉnh giữ tên gốc (API
// phí nhận tên tỉnh nguyên bản), huyện/xã dùng tên đã làm sạch.

func (d *GHTKDriver) ListProvinces(ctx context.Context) ([]Unit, error) {
	rows, err := d.locations.ListProvinces(ctx)
	if err != nil {
		return nil, fmt.Errorf("ghtk: đọc danh sách tỉnh nội bộ: %w", err)
	}
	units := make([]Unit, 0, len(rows))
	for _, p := range rows {
		units = append(units, Unit{Code: p.Name, Name: p.Name})
	}
	return units, nil
}

func (d *GHTKDriver) ListDistricts(ctx context.Context, provinceCode string) ([]Unit, error) {
	p, err := d.findProvince(ctx, provinceCode)
	if err != nil {
		return nil, err
	}
	rows, err := d.locations.ListDistricts(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("ghtk: đọc danh sách huyện nội bộ: %w", err)
	}
	units := make([]Unit, 0, len(rows))
	for _, r := range rows {
		units = append(units, Unit{Code: ghtkClean(r.Name), Name: r.Name})
	}
	return units, nil
}

func (d *GHTKDriver) ListWards(ctx context.Context, districtCode string) ([]Unit, error) {
	provinces, err := d.locations.ListProvinces(ctx)
	if err != nil {
		return nil, fmt.Errorf("ghtk: đọc danh sách tỉnh nội bộ: %w", err)
	}
	for _, p := range provinces {
		districts, err := d.locations.ListDistricts(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("ghtk: đọc danh sách huyện nội bộ: %w", err)
		}
		for _, dist := range districts {
			if ghtkClean(dist.Name) != districtCode {
				continue
			}
			wards, err := d.locations.ListWards(ctx, dist.ID)
			if err != nil {
				return nil, fmt.Errorf("ghtk: đọc danh sách xã nội bộ: %w", err)
			}
			units := make([]Unit, 0, len(wards))
			for _, w := range wards {
				units = append(units, Unit{Code: ghtkClean(w.Name), Name: w.Name})
			}
			return units, nil
		}
	}
	return nil, fmt.Errorf("ghtk: không tìm thấy huyện %q trong gazetteer nội bộ", districtCode)
}

func (d *GHTKDriver) findProvince(ctx context.Context, provinceCode string) (*models.Province, error) {
	rows, err := d.locations.ListProvinces(ctx)
	if err != nil {
		return nil, fmt.Errorf("ghtk: đọc danh sách tỉnh nội bộ: %w", err)
	}
	for i, p := range rows {
		if p.Name == provinceCode || ghtkClean(p.Name) == ghtkClean(provinceCode) {
			return &rows[i], nil
		}
	}
	return nil, fmt.Errorf("ghtk: không tìm thấy tỉnh %q trong gazetteer nội bộ", provinceCode)
}

/* ---------- services & fee ---------- */

func (d *GHTKDriver) ListAvailableServices(ctx context.Context, fromDistrictCode, toDistrictCode string) ([]string, error) {
	// GHTK không có API liệt kê service, mọi tuyến dùng chung service chuẩn
	return []string{ghtkService}, nil
}

type ghtkFeeResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Fee     struct {
		Fee   int64 `json:"fee"`
		Total int64 `json:"total"`
	} `json:"fee"`
	Expected string `json:"expected"`
	LeadTime int64  `json:"leadtime"`
}

type ghtkLeadTimeResp struct {
	LeadTime float64 `json:"leadtime"`
}

// GetFee phí + lead-time GHTK. Địa chỉ nhận đi dạng tên: province giữ
// nguyên, district/ward đã làm sạch. Chuỗi fallback lead-time:
// expected (dd/mm/yyyy) -> leadtime (unix) -> /shipment/leadtime (giờ)
// -> ước lượng theo cùng/khác khu vực kho.
func (d *GHTKDriver) GetFee(ctx context.Context, req FeeRequest) (*models.FeeQuoteResult, error) {
	params := url.Values{}
	params.Set("pick_province", d.cfg.FromProvince)
	params.Set("pick_district", d.cfg.FromDistrict)
	params.Set("province", req.To.ProvinceCode)
	params.Set("district", req.To.DistrictCode)
	params.Set("address", req.To.WardCode)
	params.Set("weight", strconv.Itoa(req.Weight))
	params.Set("length", strconv.Itoa(req.Length))
	params.Set("width", strconv.Itoa(req.Width))
	params.Set("height", strconv.Itoa(req.Height))
	params.Set("value", strconv.FormatInt(req.DeclaredValue, 10))
	params.Set("deliver_option", "none")

	var resp ghtkFeeResp
	if err := d.call(ctx, http.MethodGet, "/services/shipment/fee", params, nil, ghtkFeeTimeout, &resp); err != nil {
		return nil, err
	}

	fee := resp.Fee.Total
	if fee == 0 {
		fee = resp.Fee.Fee
	}

	result := &models.FeeQuoteResult{Fee: fee, ServiceCode: ghtkService}
	if fee <= 0 {
		d.logger.Warn("GHTK trả phí 0, tuyến có thể không hỗ trợ",
			zap.String("toProvince", req.To.ProvinceCode),
			zap.String("toDistrict", req.To.DistrictCode))
		return result, nil
	}

	result.LeadTimeDays = d.leadTimeDays(ctx, &resp, req.To)
	return result, nil
}

func (d *GHTKDriver) leadTimeDays(ctx context.Context, resp *ghtkFeeResp, to models.ResolvedCodes) *int {
	now := d.now()

	if len(resp.Expected) >= 10 {
		if expected, err := time.Parse("02/01/2006", resp.Expected[:10]); err == nil {
			if days := daysUntil(now, expected.Unix()); days > 0 {
				return &days
			}
		}
	}

	if days := daysUntil(now, resp.LeadTime); days > 0 {
		return &days
	}

	params := url.Values{}
	params.Set("pick_province", d.cfg.FromProvince)
	params.Set("pick_district", d.cfg.FromDistrict)
	params.Set("province", to.ProvinceCode)
	params.Set("district", to.DistrictCode)

	var lt ghtkLeadTimeResp
	if err := d.call(ctx, http.MethodGet, "/services/shipment/leadtime", params, nil, ghtkLeadTimeTimeout, &lt); err != nil {
		d.logger.Warn("GHTK /leadtime lỗi, dùng ước lượng theo khu vực", zap.Error(err))
	} else if lt.LeadTime > 0 {
		days := int(math.Ceil(lt.LeadTime / 24))
		if days < 1 {
			days = 1
		}
		return &days
	}

	days := ghtkFallbackLeadDays
	if to.ProvinceCode == d.cfg.FromProvince && to.DistrictCode == ghtkClean(d.cfg.FromDistrict) {
		days = ghtkSameAreaLeadDays
	}
	return &days
}

// daysUntil số ngày (làm tròn lên) từ now tới một unix timestamp, 0 nếu
// mốc đã qua
func daysUntil(now time.Time, ts int64) int {
	sec := ts - now.Unix()
	if sec <= 0 {
		return 0
	}
	return int(math.Ceil(float64(sec) / 86400))
}

/* ---------- booking ---------- */

type ghtkOrderResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   struct {
		Label string `json:"label"`
		URL   string `json:"url"`
	} `json:"order"`
}

// BookPickup tạo đơn gửi tại bưu cục GHTK cho luồng đổi/trả. Label của
// GHTK chính là mã tra cứu vận đơn.
func (d *GHTKDriver) BookPickup(ctx context.Context, req PickupRequest) (*PickupResult, error) {
	content := req.Content
	if content == "" {
		content = "Hàng hóa"
	}

	body := map[string]interface{}{
		"products": []map[string]interface{}{{
			"name":     content,
			"weight":   req.Weight,
			"quantity": 1,
		}},
		"order": map[string]interface{}{
			"id":            req.OrderCode,
			"pick_name":     req.FromName,
			"pick_address":  req.FromAddress,
			"pick_province": req.From.ProvinceCode,
			"pick_district": req.From.DistrictCode,
			"pick_tel":      req.FromPhone,

			"name":     req.ToName,
			"address":  req.ToAddress,
			"province": req.To.ProvinceCode,
			"district": req.To.DistrictCode,
			"ward":     req.To.WardCode,
			"tel":      req.ToPhone,

			"is_freeship": 1,
			"value":       0,
			"weight":      req.Weight,
			"length":      req.Length,
			"width":       req.Width,
			"height":      req.Height,
			"content":     content,
		},
	}

	var resp ghtkOrderResp
	if err := d.call(ctx, http.MethodPost, "/services/shipment/order", nil, body, ghtkOrderTimeout, &resp); err != nil {
		return nil, fmt.Errorf("ghtk: lỗi tạo đơn: %w", err)
	}
	if !resp.Success || resp.Order.Label == "" {
		return nil, fmt.Errorf("ghtk: không tạo được đơn: %s", resp.Message)
	}
	return &PickupResult{TrackingCode: resp.Order.Label, LabelURL: resp.Order.URL}, nil
}

/* ---------- transport ---------- */

// call gọi API GHTK với header Token. GHTK không bọc envelope, decode
// thẳng body JSON vào out.
func (d *GHTKDriver) call(ctx context.Context, method, path string, params url.Values, body interface{}, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := d.cfg.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ghtk %s: marshal body: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("ghtk %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", d.cfg.Token)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("ghtk %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ghtk %s: đọc phản hồi: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ghtk %s: HTTP %d: %s", path, resp.StatusCode, truncate(raw, 200))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("ghtk %s: phản hồi không hợp lệ: %w", path, err)
		}
	}
	return nil
}
