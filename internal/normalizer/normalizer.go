package normalizer

import (
	"regexp"
	"strings"

	"github.com/shipping-mapper/app/models"
)

// unitPrefixes các tiền tố hành chính được cắt ở đầu tên, theo cấp.
// Dạng không dấu vì prefix được cắt sau khi fold ASCII; khớp nguyên từ.
var unitPrefixes = map[models.UnitKind][]string{
	models.UnitProvince: {"thanh pho", "tinh", "tp"},
	models.UnitDistrict: {"thanh pho", "thi xa", "quan", "huyen", "tp", "tx"},
	models.UnitWard:     {"thi tran", "phuong", "xa", "tt"},
}

var (
	reNonAlnum = regexp.MustCompile(`[^a-z0-9 ]`)
	reSpaces   = regexp.MustCompile(`\s+`)
)

// Normalize chuẩn hóa tên đơn vị hành chính để so khớp giữa DB nội bộ
// và master data của hãng vận chuyển:
//
//	(a) bỏ dấu + fold về ASCII, lowercase
//	(b) ký tự ngoài [a-z0-9 ] thay bằng khoảng trắng
//	(c) gộp khoảng trắng, trim
//	(d) cắt tiền tố hành chính đúng cấp ở đầu chuỗi ("Tỉnh", "Quận", "Phường", ...)
//
// Idempotent: Normalize(Normalize(x)) == Normalize(x). Chuỗi rỗng trả về rỗng.
func Normalize(raw string, kind models.UnitKind) string {
	if raw == "" {
		return ""
	}

	s := strings.ToLower(FoldASCII(raw))
	s = reNonAlnum.ReplaceAllString(s, " ")
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	s = stripUnitPrefix(s, kind)

	return s
}

// stripUnitPrefix cắt đúng một tiền tố ở đầu chuỗi, khớp nguyên từ.
// "thanh pho can tho" -> "can tho" nhưng "tanphu" giữ nguyên.
func stripUnitPrefix(s string, kind models.UnitKind) string {
	for _, prefix := range unitPrefixes[kind] {
		if s == prefix {
			// tên chỉ gồm tiền tố thì giữ nguyên, cắt nữa thành rỗng
			return s
		}
		if strings.HasPrefix(s, prefix+" ") {
			return strings.TrimSpace(s[len(prefix)+1:])
		}
	}
	return s
}
