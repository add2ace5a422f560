package normalizer

import (
	"testing"

	"github.com/shipping-mapper/app/models"
)

func TestNormalize_ProvinceNames(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Tinh_Prefix",
			input:    "Tỉnh Cần Thơ",
			expected: "can tho",
		},
		{
			name:     "ThanhPho_Prefix",
			input:    "Thành phố Cần Thơ",
			expected: "can tho",
		},
		{
			name:     "TP_Abbreviation",
			input:    "TP. Hồ Chí Minh",
			expected: "ho chi minh",
		},
		{
			name:     "Plain_Name",
			input:    "An Giang",
			expected: "an giang",
		},
		{
			name:     "Extra_Whitespace",
			input:    "  Tỉnh   Bà Rịa - Vũng Tàu  ",
			expected: "ba ria vung tau",
		},
		{
			name:     "Letter_D_With_Stroke",
			input:    "Đồng Nai",
			expected: "dong nai",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.input, models.UnitProvince)
			if got != tc.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestNormalize_DistrictNames(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"Quận Ba Đình", "ba dinh"},
		{"Huyện Củ Chi", "cu chi"},
		{"Thị xã Gò Công", "go cong"},
		{"Thành phố Thủ Đức", "thu duc"},
		{"Quận 10", "10"},
		{"TX Gò Công", "go cong"},
	}

	for _, tc := range testCases {
		got := Normalize(tc.input, models.UnitDistrict)
		if got != tc.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestNormalize_WardNames(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"Phường Bồ Đề", "bo de"},
		{"Xã Tân Thông Hội", "tan thong hoi"},
		{"Thị trấn Củ Chi", "cu chi"},
		{"Phường 2", "2"},
		{"TT Tân Túc", "tan tuc"},
	}

	for _, tc := range testCases {
		got := Normalize(tc.input, models.UnitWard)
		if got != tc.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

// Tiền tố chỉ được cắt đúng cấp: "Quận" không phải tiền tố của tỉnh
func TestNormalize_PrefixIsKindScoped(t *testing.T) {
	got := Normalize("Quận Ba Đình", models.UnitProvince)
	if got != "quan ba dinh" {
		t.Errorf("prefix cấp huyện không được cắt ở cấp tỉnh, got %q", got)
	}
}

// Tên trùng hẳn với tiền tố thì giữ nguyên thay vì cắt thành rỗng
func TestNormalize_NameEqualsPrefix(t *testing.T) {
	got := Normalize("Phường", models.UnitWard)
	if got != "phuong" {
		t.Errorf("Normalize(\"Phường\") = %q, want \"phuong\"", got)
	}
}

// Tiền tố chỉ cắt khi khớp nguyên từ đầu chuỗi
func TestNormalize_NoMidWordStrip(t *testing.T) {
	got := Normalize("Tân Phú", models.UnitDistrict)
	if got != "tan phu" {
		t.Errorf("Normalize(\"Tân Phú\") = %q, want \"tan phu\"", got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []struct {
		raw  string
		kind models.UnitKind
	}{
		{"Tỉnh Cần Thơ", models.UnitProvince},
		{"TP. Hồ Chí Minh", models.UnitProvince},
		{"Quận Ba Đình", models.UnitDistrict},
		{"Thị trấn Củ Chi", models.UnitWard},
		{"Phường 2", models.UnitWard},
	}

	for _, in := range inputs {
		once := Normalize(in.raw, in.kind)
		twice := Normalize(once, in.kind)
		if once != twice {
			t.Errorf("Normalize không idempotent với %q: %q -> %q", in.raw, once, twice)
		}
	}
}

func TestNormalize_Empty(t *testing.T) {
	if got := Normalize("", models.UnitProvince); got != "" {
		t.Errorf("Normalize(\"\") = %q, want \"\"", got)
	}
}
