package matcher

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

// Candidate một ứng viên so khớp. Key do caller định nghĩa (ID nội bộ
// khi import, mã của hãng khi fallback trực tiếp); DisplayText phải được
// chuẩn hóa sẵn bằng normalizer.Normalize.
type Candidate struct {
	Key         string
	DisplayText string
}

// Match ứng viên thắng kèm điểm trong [0, 1]
type Match struct {
	Candidate
	Score float64
}

// Matcher chấm điểm xấp xỉ giữa query và danh sách ứng viên.
// Điểm = jwWeight*JaroWinkler + levWeight*Levenshtein chuẩn hóa,
// lấy max với tỷ lệ token trùng. Ngưỡng do caller truyền vào vì
// calibration khác nhau theo hãng và theo cấp đơn vị.
type Matcher struct {
	jwWeight     float64
	levWeight    float64
	reviewMargin float64
}

// NewMatcher tạo matcher với trọng số mặc định 0.5/0.5
func NewMatcher(reviewMargin float64) *Matcher {
	return &Matcher{
		jwWeight:     0.5,
		levWeight:    0.5,
		reviewMargin: reviewMargin,
	}
}

// NewMatcherWeighted tạo matcher với trọng số tùy chỉnh
func NewMatcherWeighted(jwWeight, levWeight, reviewMargin float64) *Matcher {
	return &Matcher{jwWeight: jwWeight, levWeight: levWeight, reviewMargin: reviewMargin}
}

// BestMatch trả về ứng viên điểm cao nhất nếu vượt threshold, nil nếu không.
// Không match là kết quả bình thường, không phải lỗi.
//
// nearMiss != nil khi ứng viên tốt nhất nằm trong [threshold-reviewMargin,
// threshold): điểm sát ngưỡng đáng để người vận hành đối soát thay vì
// lặng lẽ loại bỏ.
//
// Tie-break: hai ứng viên bằng điểm thì ứng viên đứng trước trong danh
// sách thắng — kết quả ổn định giữa các lần chạy lại.
func (m *Matcher) BestMatch(query string, candidates []Candidate, threshold float64) (match *Match, nearMiss *Match) {
	if query == "" || len(candidates) == 0 {
		return nil, nil
	}

	best := -1.0
	bestIdx := -1
	for i, c := range candidates {
		s := m.Score(query, c.DisplayText)
		if s > best {
			best = s
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return nil, nil
	}

	found := &Match{Candidate: candidates[bestIdx], Score: best}
	if best >= threshold {
		return found, nil
	}
	if best >= threshold-m.reviewMargin {
		return nil, found
	}
	return nil, nil
}

// Score chấm điểm một cặp chuỗi đã chuẩn hóa
func (m *Matcher) Score(query, target string) float64 {
	if query == target {
		return 1.0
	}
	if query == "" || target == "" {
		return 0.0
	}

	jw := smetrics.JaroWinkler(query, target, 0.7, 4)

	dist := levenshtein.ComputeDistance(query, target)
	maxLen := len(query)
	if len(target) > maxLen {
		maxLen = len(target)
	}
	lev := 1.0 - float64(dist)/float64(maxLen)
	if lev < 0 {
		lev = 0
	}

	score := m.jwWeight*jw + m.levWeight*lev

	if ts := tokenOverlap(query, target); ts > score {
		score = ts
	}
	return score
}

// tokenOverlap Jaccard trên tập token — bắt các trường hợp đảo thứ tự
// từ mà điểm ký tự bỏ sót ("cho moi an giang" vs "an giang cho moi")
func tokenOverlap(a, b string) float64 {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}

	inter := 0
	union := len(set)
	seen := make(map[string]bool, len(tb))
	for _, t := range tb {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}
