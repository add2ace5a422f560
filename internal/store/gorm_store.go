package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shipping-mapper/app/models"
)

// GormStore hiện thực LocationStore + ProviderCodeStore trên MySQL.
// Upsert là row-level theo khóa kép; không cần transaction chéo dòng vì
// mapping của từng đơn vị độc lập với nhau.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

/* ---------- LocationStore ---------- */

func (s *GormStore) ListProvinces(ctx context.Context) ([]models.Province, error) {
	var out []models.Province
	if err := s.db.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list provinces: %w", err)
	}
	return out, nil
}

func (s *GormStore) ListDistricts(ctx context.Context, provinceID uint) ([]models.District, error) {
	var out []models.District
	if err := s.db.WithContext(ctx).Where("provinceId = ?", provinceID).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list districts of province %d: %w", provinceID, err)
	}
	return out, nil
}

func (s *GormStore) ListWards(ctx context.Context, districtID uint) ([]models.Ward, error) {
	var out []models.Ward
	if err := s.db.WithContext(ctx).Where("districtId = ?", districtID).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list wards of district %d: %w", districtID, err)
	}
	return out, nil
}

func (s *GormStore) GetProvince(ctx context.Context, id uint) (*models.Province, error) {
	var p models.Province
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get province %d: %w", id, err)
	}
	return &p, nil
}

func (s *GormStore) GetDistrict(ctx context.Context, id uint) (*models.District, error) {
	var d models.District
	if err := s.db.WithContext(ctx).First(&d, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get district %d: %w", id, err)
	}
	return &d, nil
}

func (s *GormStore) GetWard(ctx context.Context, id uint) (*models.Ward, error) {
	var w models.Ward
	if err := s.db.WithContext(ctx).First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ward %d: %w", id, err)
	}
	return &w, nil
}

func (s *GormStore) GetProvider(ctx context.Context, id uint) (*models.ShippingProvider, error) {
	var p models.ShippingProvider
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get provider %d: %w", id, err)
	}
	return &p, nil
}

func (s *GormStore) ListActiveProviders(ctx context.Context) ([]models.ShippingProvider, error) {
	var out []models.ShippingProvider
	if err := s.db.WithContext(ctx).Where("isActive = ?", true).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list active providers: %w", err)
	}
	return out, nil
}

/* ---------- ProviderCodeStore ---------- */

func (s *GormStore) Upsert(ctx context.Context, providerID uint, kind models.UnitKind, internalID uint, code, name string, parentID uint) error {
	db := s.db.WithContext(ctx)

	switch kind {
	case models.UnitProvince:
		row := models.ProviderProvince{
			ProviderID:           providerID,
			ProvinceID:           internalID,
			ProviderProvinceCode: code,
			ProviderProvinceName: name,
		}
		return s.upsert(db, &row, []string{"providerProvinceCode", "providerProvinceName"})
	case models.UnitDistrict:
		row := models.ProviderDistrict{
			ProviderID:           providerID,
			DistrictID:           internalID,
			ProviderDistrictCode: code,
			ProviderDistrictName: name,
			ProvinceID:           parentID,
		}
		return s.upsert(db, &row, []string{"providerDistrictCode", "providerDistrictName", "provinceId"})
	case models.UnitWard:
		row := models.ProviderWard{
			ProviderID:       providerID,
			WardID:           internalID,
			ProviderWardCode: code,
			ProviderWardName: name,
			DistrictID:       parentID,
		}
		return s.upsert(db, &row, []string{"providerWardCode", "providerWardName", "districtId"})
	default:
		return fmt.Errorf("upsert: unknown unit kind %q", kind)
	}
}

func (s *GormStore) upsert(db *gorm.DB, row interface{}, updateCols []string) error {
	err := db.Clauses(clause.OnConflict{
		DoUpdates: clause.AssignmentColumns(updateCols),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("upsert provider mapping: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, providerID uint, kind models.UnitKind, internalID uint) (*models.ProviderMapping, error) {
	db := s.db.WithContext(ctx)

	switch kind {
	case models.UnitProvince:
		var row models.ProviderProvince
		err := db.Where("providerId = ? AND provinceId = ?", providerID, internalID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get province mapping: %w", err)
		}
		return &models.ProviderMapping{Code: row.ProviderProvinceCode, Name: row.ProviderProvinceName}, nil
	case models.UnitDistrict:
		var row models.ProviderDistrict
		err := db.Where("providerId = ? AND districtId = ?", providerID, internalID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get district mapping: %w", err)
		}
		return &models.ProviderMapping{Code: row.ProviderDistrictCode, Name: row.ProviderDistrictName}, nil
	case models.UnitWard:
		var row models.ProviderWard
		err := db.Where("providerId = ? AND wardId = ?", providerID, internalID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get ward mapping: %w", err)
		}
		return &models.ProviderMapping{Code: row.ProviderWardCode, Name: row.ProviderWardName}, nil
	default:
		return nil, fmt.Errorf("get: unknown unit kind %q", kind)
	}
}

func (s *GormStore) ListCandidates(ctx context.Context, providerID uint, kind models.UnitKind, parentID uint) ([]models.MappingCandidate, error) {
	db := s.db.WithContext(ctx)

	switch kind {
	case models.UnitProvince:
		var rows []models.ProviderProvince
		if err := db.Where("providerId = ?", providerID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("list province candidates: %w", err)
		}
		out := make([]models.MappingCandidate, 0, len(rows))
		for _, r := range rows {
			out = append(out, models.MappingCandidate{InternalID: r.ProvinceID, DisplayText: r.ProviderProvinceName})
		}
		return out, nil
	case models.UnitDistrict:
		var rows []models.ProviderDistrict
		if err := db.Where("providerId = ? AND provinceId = ?", providerID, parentID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("list district candidates: %w", err)
		}
		out := make([]models.MappingCandidate, 0, len(rows))
		for _, r := range rows {
			out = append(out, models.MappingCandidate{InternalID: r.DistrictID, DisplayText: r.ProviderDistrictName})
		}
		return out, nil
	case models.UnitWard:
		var rows []models.ProviderWard
		if err := db.Where("providerId = ? AND districtId = ?", providerID, parentID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("list ward candidates: %w", err)
		}
		out := make([]models.MappingCandidate, 0, len(rows))
		for _, r := range rows {
			out = append(out, models.MappingCandidate{InternalID: r.WardID, DisplayText: r.ProviderWardName})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("list candidates: unknown unit kind %q", kind)
	}
}
