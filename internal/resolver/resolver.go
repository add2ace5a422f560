// Package resolver chuyển địa chỉ nội bộ (ID hoặc tên) sang bộ mã của
// một hãng vận chuyển. Ưu tiên bảng mapping đã import; thiếu mapping thì
// fuzzy trực tiếp trên taxonomy của hãng và ghi ngược kết quả về bảng
// mapping cho lần sau.
package resolver

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
	"github.com/shipping-mapper/internal/carriers"
	"github.com/shipping-mapper/internal/matcher"
	"github.com/shipping-mapper/internal/normalizer"
	"github.com/shipping-mapper/internal/store"
)

type Resolver struct {
	locations  store.LocationStore
	codes      store.ProviderCodeStore
	match      *matcher.Matcher
	thresholds matcher.Thresholds
	logger     *zap.Logger
}

func NewResolver(
	locations store.LocationStore,
	codes store.ProviderCodeStore,
	match *matcher.Matcher,
	thresholds matcher.Thresholds,
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		locations:  locations,
		codes:      codes,
		match:      match,
		thresholds: thresholds,
		logger:     logger,
	}
}

// resolvedUnit kết quả resolve một cấp: mã của hãng + ID nội bộ (0 nếu
// không xác định được ID, ví dụ match trực tiếp theo tên trên taxonomy hãng)
type resolvedUnit struct {
	code       string
	internalID uint
}

// Resolve trả về bộ mã tỉnh/huyện/xã của hãng cho một địa chỉ nhận.
// Tỉnh và huyện bắt buộc resolve được, không thì ErrLocationNotMappable.
// Xã là tùy chọn: thiếu hoặc không resolve được thì WardCode rỗng, nhiều
// hãng vẫn báo giá được tới cấp huyện.
func (r *Resolver) Resolve(ctx context.Context, providerID uint, drv carriers.Driver, province, district models.LocationRef, ward *models.LocationRef) (*models.ResolvedCodes, error) {
	if province.IsZero() || district.IsZero() {
		return nil, fmt.Errorf("%w: thiếu tỉnh hoặc huyện", models.ErrLocationNotMappable)
	}

	prov, err := r.resolveUnit(ctx, providerID, drv, models.UnitProvince, province, resolvedUnit{})
	if err != nil {
		return nil, err
	}
	if prov.code == "" {
		return nil, fmt.Errorf("%w: không resolve được tỉnh %q", models.ErrLocationNotMappable, refLabel(province))
	}

	dist, err := r.resolveUnit(ctx, providerID, drv, models.UnitDistrict, district, prov)
	if err != nil {
		return nil, err
	}
	if dist.code == "" {
		return nil, fmt.Errorf("%w: không resolve được huyện %q", models.ErrLocationNotMappable, refLabel(district))
	}

	out := &models.ResolvedCodes{
		ProvinceCode: prov.code,
		DistrictCode: dist.code,
	}

	if ward != nil && !ward.IsZero() {
		wd, err := r.resolveUnit(ctx, providerID, drv, models.UnitWard, *ward, dist)
		if err != nil {
			return nil, err
		}
		if wd.code == "" {
			r.logger.Warn("Không resolve được xã, báo giá tới cấp huyện",
				zap.Uint("providerId", providerID),
				zap.String("ward", refLabel(*ward)))
		}
		out.WardCode = wd.code
	}
	return out, nil
}

// resolveUnit một cấp đơn vị. Có ID thì tra thẳng bảng mapping; chỉ có
// tên thì fuzzy trên corpus tên hãng đã import -> gắn về ID nội bộ rồi
// tra bảng mapping -> fuzzy trực tiếp trên taxonomy hãng (kèm ghi ngược
// khi biết ID nội bộ). Trả code rỗng khi mọi đường đều trượt — caller
// quyết định cấp đó bắt buộc hay tùy chọn.
func (r *Resolver) resolveUnit(ctx context.Context, providerID uint, drv carriers.Driver, kind models.UnitKind, ref models.LocationRef, parent resolvedUnit) (resolvedUnit, error) {
	internalID := ref.ID
	name := ref.Name

	// Chỉ có tên: thử corpus tên hãng đã import trước — tên caller đưa
	// thường theo cách gọi của hãng, và trúng corpus thì khỏi gọi hãng
	if internalID == 0 && name != "" {
		unit, err := r.matchStoredCorpus(ctx, providerID, kind, name, parent)
		if err != nil {
			return resolvedUnit{}, err
		}
		if unit.code != "" {
			return unit, nil
		}

		// corpus trượt: gắn về ID nội bộ để còn tra bảng mapping
		id, canonical, err := r.matchInternal(ctx, kind, name, parent.internalID)
		if err != nil {
			return resolvedUnit{}, err
		}
		internalID = id
		if canonical != "" {
			name = canonical
		}
	}

	// Tên canonical phục vụ fuzzy trực tiếp khi bảng mapping trượt
	if internalID != 0 && ref.Name == "" {
		canonical, err := r.internalName(ctx, kind, internalID)
		if err != nil {
			return resolvedUnit{}, err
		}
		name = canonical
	}

	if internalID != 0 {
		mapping, err := r.codes.Get(ctx, providerID, kind, internalID)
		if err != nil {
			return resolvedUnit{}, err
		}
		if mapping != nil {
			return resolvedUnit{code: mapping.Code, internalID: internalID}, nil
		}
	}

	if name == "" {
		return resolvedUnit{}, nil
	}
	return r.resolveLive(ctx, providerID, drv, kind, name, internalID, parent)
}

// matchStoredCorpus fuzzy trên các tên hãng đã import (scope theo parent
// nội bộ). Khớp được thì mã lấy thẳng từ bảng mapping, không cần gọi hãng.
func (r *Resolver) matchStoredCorpus(ctx context.Context, providerID uint, kind models.UnitKind, name string, parent resolvedUnit) (resolvedUnit, error) {
	rows, err := r.codes.ListCandidates(ctx, providerID, kind, parent.internalID)
	if err != nil {
		return resolvedUnit{}, err
	}
	if len(rows) == 0 {
		return resolvedUnit{}, nil
	}

	candidates := make([]matcher.Candidate, 0, len(rows))
	for _, c := range rows {
		candidates = append(candidates, matcher.Candidate{
			Key:         strconv.FormatUint(uint64(c.InternalID), 10),
			DisplayText: normalizer.Normalize(c.DisplayText, kind),
		})
	}

	m, _ := r.match.BestMatch(normalizer.Normalize(name, kind), candidates, r.thresholds.ForKind(kind))
	if m == nil {
		return resolvedUnit{}, nil
	}

	id, _ := strconv.ParseUint(m.Key, 10, 64)
	mapping, err := r.codes.Get(ctx, providerID, kind, uint(id))
	if err != nil {
		return resolvedUnit{}, err
	}
	if mapping == nil {
		return resolvedUnit{}, nil
	}
	return resolvedUnit{code: mapping.Code, internalID: uint(id)}, nil
}

// matchInternal gắn một tên tự do về đơn vị nội bộ (fuzzy, scope theo
// parent). Trả (0, "") khi không khớp — chưa phải thất bại, vẫn còn
// đường fuzzy trực tiếp trên taxonomy hãng.
func (r *Resolver) matchInternal(ctx context.Context, kind models.UnitKind, name string, parentInternalID uint) (uint, string, error) {
	refs, err := r.internalUnits(ctx, kind, parentInternalID)
	if err != nil {
		return 0, "", err
	}

	candidates := make([]matcher.Candidate, 0, len(refs))
	names := make(map[string]string, len(refs))
	for _, u := range refs {
		key := strconv.FormatUint(uint64(u.ID), 10)
		candidates = append(candidates, matcher.Candidate{
			Key:         key,
			DisplayText: normalizer.Normalize(u.Name, kind),
		})
		names[key] = u.Name
	}

	m, _ := r.match.BestMatch(normalizer.Normalize(name, kind), candidates, r.thresholds.ForKind(kind))
	if m == nil {
		return 0, "", nil
	}

	id, _ := strconv.ParseUint(m.Key, 10, 64)
	return uint(id), names[m.Key], nil
}

func (r *Resolver) internalUnits(ctx context.Context, kind models.UnitKind, parentInternalID uint) ([]models.LocationRef, error) {
	switch kind {
	case models.UnitProvince:
		rows, err := r.locations.ListProvinces(ctx)
		if err != nil {
			return nil, err
		}
		refs := make([]models.LocationRef, 0, len(rows))
		for _, p := range rows {
			refs = append(refs, models.LocationRef{ID: p.ID, Name: p.Name})
		}
		return refs, nil
	case models.UnitDistrict:
		rows, err := r.locations.ListDistricts(ctx, parentInternalID)
		if err != nil {
			return nil, err
		}
		refs := make([]models.LocationRef, 0, len(rows))
		for _, d := range rows {
			refs = append(refs, models.LocationRef{ID: d.ID, Name: d.Name})
		}
		return refs, nil
	default:
		rows, err := r.locations.ListWards(ctx, parentInternalID)
		if err != nil {
			return nil, err
		}
		refs := make([]models.LocationRef, 0, len(rows))
		for _, w := range rows {
			refs = append(refs, models.LocationRef{ID: w.ID, Name: w.Name})
		}
		return refs, nil
	}
}

func (r *Resolver) internalName(ctx context.Context, kind models.UnitKind, id uint) (string, error) {
	switch kind {
	case models.UnitProvince:
		p, err := r.locations.GetProvince(ctx, id)
		if err != nil || p == nil {
			return "", err
		}
		return p.Name, nil
	case models.UnitDistrict:
		d, err := r.locations.GetDistrict(ctx, id)
		if err != nil || d == nil {
			return "", err
		}
		return d.Name, nil
	default:
		w, err := r.locations.GetWard(ctx, id)
		if err != nil || w == nil {
			return "", err
		}
		return w.Name, nil
	}
}

// resolveLive fuzzy trực tiếp trên taxonomy của hãng (scope theo mã
// parent của hãng). Khớp được và biết ID nội bộ thì ghi ngược vào bảng
// mapping — request sau đi đường nhanh.
func (r *Resolver) resolveLive(ctx context.Context, providerID uint, drv carriers.Driver, kind models.UnitKind, name string, internalID uint, parent resolvedUnit) (resolvedUnit, error) {
	var units []carriers.Unit
	var err error
	switch kind {
	case models.UnitProvince:
		units, err = drv.ListProvinces(ctx)
	case models.UnitDistrict:
		units, err = drv.ListDistricts(ctx, parent.code)
	default:
		units, err = drv.ListWards(ctx, parent.code)
	}
	if err != nil {
		return resolvedUnit{}, fmt.Errorf("tra trực tiếp taxonomy hãng %s: %w", drv.Code(), err)
	}

	candidates := make([]matcher.Candidate, 0, len(units))
	unitNames := make(map[string]string, len(units))
	for _, u := range units {
		candidates = append(candidates, matcher.Candidate{
			Key:         u.Code,
			DisplayText: normalizer.Normalize(u.Name, kind),
		})
		unitNames[u.Code] = u.Name
	}

	m, _ := r.match.BestMatch(normalizer.Normalize(name, kind), candidates, r.thresholds.ForKind(kind))
	if m == nil {
		return resolvedUnit{}, nil
	}

	if internalID != 0 {
		if err := r.codes.Upsert(ctx, providerID, kind, internalID, m.Key, unitNames[m.Key], parent.internalID); err != nil {
			// mapping ghi sau cũng được, không chặn báo giá
			r.logger.Warn("Ghi ngược mapping thất bại",
				zap.Error(err),
				zap.Uint("providerId", providerID),
				zap.String("kind", string(kind)),
				zap.Uint("internalId", internalID))
		}
	}

	r.logger.Info("Resolve trực tiếp trên taxonomy hãng",
		zap.String("carrier", drv.Code()),
		zap.String("kind", string(kind)),
		zap.String("name", name),
		zap.String("code", m.Key),
		zap.Float64("score", m.Score))
	return resolvedUnit{code: m.Key, internalID: internalID}, nil
}

func refLabel(ref models.LocationRef) string {
	if ref.Name != "" {
		return ref.Name
	}
	return fmt.Sprintf("#%d", ref.ID)
}
