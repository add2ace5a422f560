package carriers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
)

func toCodes(province, district, ward string) models.ResolvedCodes {
	return models.ResolvedCodes{
		ProvinceCode: province,
		DistrictCode: district,
		WardCode:     ward,
	}
}

func newGHNTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *GHNDriver) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	drv := NewGHNDriver(GHNConfig{
		BaseURL:          server.URL,
		Token:            "test-token",
		ShopID:           12345,
		FromDistrictCode: "1442",
		FromWardCode:     "20101",
	}, zap.NewNop())
	return server, drv
}

func ghnOK(w http.ResponseWriter, data interface{}) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    200,
		"message": "Success",
		"data":    data,
	})
}

func TestGHN_ListProvinces(t *testing.T) {
	_, drv := newGHNTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/master-data/province", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("Token"))
		ghnOK(w, []map[string]interface{}{
			{"ProvinceID": 201, "ProvinceName": "Hà Nội"},
			{"ProvinceID": 202, "ProvinceName": "Hồ Chí Minh"},
		})
	})

	units, err := drv.ListProvinces(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, Unit{Code: "201", Name: "Hà Nội"}, units[0])
	assert.Equal(t, Unit{Code: "202", Name: "Hồ Chí Minh"}, units[1])
}

func TestGHN_ListDistrictsPostsProvinceID(t *testing.T) {
	_, drv := newGHNTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/master-data/district", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 201, body["province_id"])

		ghnOK(w, []map[string]interface{}{
			{"DistrictID": 1482, "DistrictName": "Long Biên"},
		})
	})

	units, err := drv.ListDistricts(context.Background(), "201")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "1482", units[0].Code)
}

func TestGHN_GetFeeWithExpectedDelivery(t *testing.T) {
	expected := time.Now().Add(48 * time.Hour).Unix()

	_, drv := newGHNTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/shipping-order/available-services":
			ghnOK(w, []map[string]interface{}{
				{"service_id": 53320, "short_name": "Chuẩn", "service_type_id": 2},
			})
		case "/v2/shipping-order/fee":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(2), body["service_type_id"])
			assert.Equal(t, "20308", body["to_ward_code"])
			ghnOK(w, map[string]interface{}{
				"total":                  31000,
				"expected_delivery_time": expected,
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	result, err := drv.GetFee(context.Background(), FeeRequest{
		To:     toCodes("0", "1482", "20308"),
		Weight: 500, Length: 20, Width: 15, Height: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(31000), result.Fee)
	assert.Equal(t, "53320", result.ServiceCode)
	require.NotNil(t, result.LeadTimeDays)
	assert.Equal(t, 2, *result.LeadTimeDays)
}

// Không có expected_delivery_time và /leadtime lỗi: ước lượng 3 ngày
func TestGHN_GetFeeLeadTimeFallback(t *testing.T) {
	_, drv := newGHNTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/shipping-order/available-services":
			ghnOK(w, []map[string]interface{}{
				{"service_id": 53320, "service_type_id": 2},
			})
		case "/v2/shipping-order/fee":
			ghnOK(w, map[string]interface{}{"total": 31000})
		case "/v2/shipping-order/leadtime":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	result, err := drv.GetFee(context.Background(), FeeRequest{
		To:     toCodes("0", "1482", "20308"),
		Weight: 500,
	})
	require.NoError(t, err)
	require.NotNil(t, result.LeadTimeDays)
	assert.Equal(t, 3, *result.LeadTimeDays)
}

// Phí 0 trả về kết quả không usable, không phải error
func TestGHN_GetFeeZeroTotal(t *testing.T) {
	_, drv := newGHNTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/shipping-order/available-services":
			ghnOK(w, []map[string]interface{}{{"service_id": 53320, "service_type_id": 2}})
		case "/v2/shipping-order/fee":
			ghnOK(w, map[string]interface{}{"total": 0})
		}
	})

	result, err := drv.GetFee(context.Background(), FeeRequest{
		To:     toCodes("0", "1482", ""),
		Weight: 500,
	})
	require.NoError(t, err)
	assert.False(t, result.Usable())
	assert.Nil(t, result.LeadTimeDays)
}

func TestGHN_EnvelopeError(t *testing.T) {
	_, drv := newGHNTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    400,
			"message": "Shop not found",
		})
	})

	_, err := drv.ListProvinces(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Shop not found")
}

func TestGHN_BookPickup(t *testing.T) {
	_, drv := newGHNTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/shipping-order/available-services":
			ghnOK(w, []map[string]interface{}{{"service_id": 53320, "service_type_id": 2}})
		case "/v2/shipping-order/create":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Nguyễn Văn A", body["from_name"])
			// kích thước 0 được nâng sàn lên 1
			assert.Equal(t, float64(1), body["length"])
			ghnOK(w, map[string]interface{}{
				"order_code": "GHN123456",
				"label":      "https://example.com/label/GHN123456",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	result, err := drv.BookPickup(context.Background(), PickupRequest{
		FromName:    "Nguyễn Văn A",
		FromPhone:   "0900000001",
		FromAddress: "1 Trần Hưng Đạo",
		From:        toCodes("", "1482", "20308"),
		ToName:      "Kho Đổi Trả",
		ToPhone:     "0900000002",
		ToAddress:   "2 Lê Lợi",
		To:          toCodes("", "1442", "20101"),
		Weight:      800,
		OrderCode:   "RET-0042",
	})
	require.NoError(t, err)
	assert.Equal(t, "GHN123456", result.TrackingCode)
	assert.Equal(t, "https://example.com/label/GHN123456", result.LabelURL)
}
