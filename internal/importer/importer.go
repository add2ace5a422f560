// Package importer đồng bộ taxonomy địa chỉ của hãng vận chuyển về bảng
// mapping nội bộ: duyệt tỉnh -> huyện -> xã của hãng, khớp từng đơn vị
// với danh mục nội bộ (exact trước, fuzzy sau) và ghi mapping ngay khi
// khớp được. Đơn vị không khớp thì bỏ qua cả nhánh con, ghi vào report
// để người vận hành xử lý tay.
package importer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/shipping-mapper/app/models"
	"github.com/shipping-mapper/internal/carriers"
	"github.com/shipping-mapper/internal/matcher"
	"github.com/shipping-mapper/internal/normalizer"
	"github.com/shipping-mapper/internal/store"
)

type Importer struct {
	locations  store.LocationStore
	codes      store.ProviderCodeStore
	match      *matcher.Matcher
	thresholds matcher.Thresholds
	pacing     time.Duration
	logger     *zap.Logger

	// sleep tách ra để test không phải chờ pacing thật
	sleep func(ctx context.Context, d time.Duration) error
}

func NewImporter(
	locations store.LocationStore,
	codes store.ProviderCodeStore,
	match *matcher.Matcher,
	thresholds matcher.Thresholds,
	pacing time.Duration,
	logger *zap.Logger,
) *Importer {
	return &Importer{
		locations:  locations,
		codes:      codes,
		match:      match,
		thresholds: thresholds,
		pacing:     pacing,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// candidateSet danh mục nội bộ đã chuẩn hóa, kèm index tra exact
type candidateSet struct {
	candidates []matcher.Candidate
	byNorm     map[string]matcher.Candidate
	names      map[string]string // Key -> tên gốc
}

func buildCandidateSet(kind models.UnitKind, units []models.LocationRef) candidateSet {
	cs := candidateSet{
		candidates: make([]matcher.Candidate, 0, len(units)),
		byNorm:     make(map[string]matcher.Candidate, len(units)),
		names:      make(map[string]string, len(units)),
	}
	for _, u := range units {
		c := matcher.Candidate{
			Key:         strconv.FormatUint(uint64(u.ID), 10),
			DisplayText: normalizer.Normalize(u.Name, kind),
		}
		cs.candidates = append(cs.candidates, c)
		cs.names[c.Key] = u.Name
		// trùng tên chuẩn hóa thì giữ đơn vị đứng trước, khớp tie-break của fuzzy
		if _, dup := cs.byNorm[c.DisplayText]; !dup {
			cs.byNorm[c.DisplayText] = c
		}
	}
	return cs
}

// resolve khớp một đơn vị của hãng với danh mục nội bộ. Trả về ID nội bộ
// và cờ khớp; sát ngưỡng thì ghi near-miss vào report.
func (im *Importer) resolve(kind models.UnitKind, providerName string, cs candidateSet, report *models.ImportReport) (uint, bool) {
	norm := normalizer.Normalize(providerName, kind)
	if c, ok := cs.byNorm[norm]; ok {
		return parseID(c.Key), true
	}

	m, near := im.match.BestMatch(norm, cs.candidates, im.thresholds.ForKind(kind))
	if m != nil {
		return parseID(m.Key), true
	}
	if near != nil {
		report.NearMisses = append(report.NearMisses, models.ReviewEntry{
			Kind:          kind,
			ProviderName:  providerName,
			CandidateName: cs.names[near.Key],
			Score:         near.Score,
			Threshold:     im.thresholds.ForKind(kind),
		})
	}
	return 0, false
}

func parseID(key string) uint {
	id, _ := strconv.ParseUint(key, 10, 64)
	return uint(id)
}

// ImportProvider chạy một vòng import đầy đủ cho một hãng. Lỗi transport
// ở cấp huyện/xã chỉ bỏ qua nhánh đó; lỗi lấy danh sách tỉnh làm hỏng cả
// vòng nên trả error. Mapping được ghi ngay từng đơn vị, hủy giữa chừng
// vẫn giữ nguyên phần đã ghi.
func (im *Importer) ImportProvider(ctx context.Context, providerID uint, drv carriers.Driver) (*models.ImportReport, error) {
	report := models.NewImportReport(providerID)

	carrierProvinces, err := drv.ListProvinces(ctx)
	if err != nil {
		return report, fmt.Errorf("lấy danh sách tỉnh của hãng %s: %w", drv.Code(), err)
	}

	internalProvinces, err := im.locations.ListProvinces(ctx)
	if err != nil {
		return report, err
	}
	refs := make([]models.LocationRef, 0, len(internalProvinces))
	for _, p := range internalProvinces {
		refs = append(refs, models.LocationRef{ID: p.ID, Name: p.Name})
	}
	provinceSet := buildCandidateSet(models.UnitProvince, refs)

	im.logger.Info("Bắt đầu import taxonomy hãng",
		zap.Uint("providerId", providerID),
		zap.String("carrier", drv.Code()),
		zap.Int("carrierProvinces", len(carrierProvinces)),
		zap.Int("internalProvinces", len(internalProvinces)))

	for _, cp := range carrierProvinces {
		if err := im.sleep(ctx, im.pacing); err != nil {
			return report, err
		}

		provinceID, ok := im.resolve(models.UnitProvince, cp.Name, provinceSet, report)
		if !ok {
			report.Unmatched[models.UnitProvince]++
			report.UnmatchedUnits = append(report.UnmatchedUnits, models.UnmatchedUnit{
				Kind: models.UnitProvince, ProviderCode: cp.Code, ProviderName: cp.Name,
			})
			im.logger.Warn("Không khớp được tỉnh, bỏ qua toàn bộ huyện/xã bên dưới",
				zap.String("providerName", cp.Name), zap.String("providerCode", cp.Code))
			continue
		}

		if err := im.codes.Upsert(ctx, providerID, models.UnitProvince, provinceID, cp.Code, cp.Name, 0); err != nil {
			report.Errors++
			im.logger.Error("Ghi mapping tỉnh thất bại", zap.Error(err), zap.String("providerCode", cp.Code))
			continue
		}
		report.Matched[models.UnitProvince]++

		if err := im.importDistricts(ctx, providerID, drv, cp, provinceID, report); err != nil {
			return report, err
		}
	}

	im.logger.Info("Hoàn tất import taxonomy hãng",
		zap.Uint("providerId", providerID),
		zap.Int("matchedProvinces", report.Matched[models.UnitProvince]),
		zap.Int("matchedDistricts", report.Matched[models.UnitDistrict]),
		zap.Int("matchedWards", report.Matched[models.UnitWard]),
		zap.Int("errors", report.Errors))
	return report, nil
}

func (im *Importer) importDistricts(ctx context.Context, providerID uint, drv carriers.Driver, cp carriers.Unit, provinceID uint, report *models.ImportReport) error {
	if err := im.sleep(ctx, im.pacing); err != nil {
		return err
	}

	carrierDistricts, err := drv.ListDistricts(ctx, cp.Code)
	if err != nil {
		report.Errors++
		im.logger.Error("Lấy danh sách huyện thất bại, bỏ qua tỉnh",
			zap.Error(err), zap.String("providerProvince", cp.Code))
		return nil
	}

	internalDistricts, err := im.locations.ListDistricts(ctx, provinceID)
	if err != nil {
		return err
	}
	refs := make([]models.LocationRef, 0, len(internalDistricts))
	for _, d := range internalDistricts {
		refs = append(refs, models.LocationRef{ID: d.ID, Name: d.Name})
	}
	districtSet := buildCandidateSet(models.UnitDistrict, refs)

	for _, cd := range carrierDistricts {
		if err := im.sleep(ctx, im.pacing); err != nil {
			return err
		}

		districtID, ok := im.resolve(models.UnitDistrict, cd.Name, districtSet, report)
		if !ok {
			report.Unmatched[models.UnitDistrict]++
			report.UnmatchedUnits = append(report.UnmatchedUnits, models.UnmatchedUnit{
				Kind: models.UnitDistrict, ProviderCode: cd.Code, ProviderName: cd.Name,
			})
			continue
		}

		if err := im.codes.Upsert(ctx, providerID, models.UnitDistrict, districtID, cd.Code, cd.Name, provinceID); err != nil {
			report.Errors++
			im.logger.Error("Ghi mapping huyện thất bại", zap.Error(err), zap.String("providerCode", cd.Code))
			continue
		}
		report.Matched[models.UnitDistrict]++

		if err := im.importWards(ctx, providerID, drv, cd, districtID, report); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) importWards(ctx context.Context, providerID uint, drv carriers.Driver, cd carriers.Unit, districtID uint, report *models.ImportReport) error {
	if err := im.sleep(ctx, im.pacing); err != nil {
		return err
	}

	carrierWards, err := drv.ListWards(ctx, cd.Code)
	if err != nil {
		report.Errors++
		im.logger.Error("Lấy danh sách xã thất bại, bỏ qua huyện",
			zap.Error(err), zap.String("providerDistrict", cd.Code))
		return nil
	}

	internalWards, err := im.locations.ListWards(ctx, districtID)
	if err != nil {
		return err
	}
	refs := make([]models.LocationRef, 0, len(internalWards))
	for _, w := range internalWards {
		refs = append(refs, models.LocationRef{ID: w.ID, Name: w.Name})
	}
	wardSet := buildCandidateSet(models.UnitWard, refs)

	for _, cw := range carrierWards {
		wardID, ok := im.resolve(models.UnitWard, cw.Name, wardSet, report)
		if !ok {
			report.Unmatched[models.UnitWard]++
			report.UnmatchedUnits = append(report.UnmatchedUnits, models.UnmatchedUnit{
				Kind: models.UnitWard, ProviderCode: cw.Code, ProviderName: cw.Name,
			})
			continue
		}

		if err := im.codes.Upsert(ctx, providerID, models.UnitWard, wardID, cw.Code, cw.Name, districtID); err != nil {
			report.Errors++
			im.logger.Error("Ghi mapping xã thất bại", zap.Error(err), zap.String("providerCode", cw.Code))
			continue
		}
		report.Matched[models.UnitWard]++
	}
	return nil
}
