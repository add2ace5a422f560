package normalizer

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics loại bỏ dấu tiếng Việt một cách an toàn
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	out, _, _ := transform.String(t, s)
	return out
}

// isMn kiểm tra xem rune có phải là diacritic mark không
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// FoldASCII đưa chuỗi về ASCII thuần. NFD chỉ bỏ được combining marks;
// đ/Đ là chữ cái độc lập nên phần còn lại đi qua unidecode.
func FoldASCII(s string) string {
	stripped := StripDiacritics(s)
	for _, r := range stripped {
		if r > unicode.MaxASCII {
			return unidecode.Unidecode(stripped)
		}
	}
	return stripped
}

// RemoveAccentsAndLowercase loại bỏ dấu và chuyển về lowercase
func RemoveAccentsAndLowercase(s string) string {
	return strings.ToLower(FoldASCII(s))
}
