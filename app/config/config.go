package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FuzzyCfg ngưỡng so khớp theo cấp đơn vị. Tỉnh ít và tên dài nên ngưỡng
// thấp hơn; huyện/xã trùng tên nhiều nên siết chặt hơn.
type FuzzyCfg struct {
	ProvinceThreshold float64 `yaml:"province_threshold" json:"province_threshold"`
	DistrictThreshold float64 `yaml:"district_threshold" json:"district_threshold"`
	WardThreshold     float64 `yaml:"ward_threshold" json:"ward_threshold"`
	ReviewMargin      float64 `yaml:"review_margin" json:"review_margin"`
	JWWeight          float64 `yaml:"jw_weight" json:"jw_weight"`
	LevWeight         float64 `yaml:"lev_weight" json:"lev_weight"`
}

type ImportCfg struct {
	PacingMs int `yaml:"pacing_ms" json:"pacing_ms"`
}

type CacheCfg struct {
	Backend     string `yaml:"backend" json:"backend"` // memory | redis
	QuoteTTLMin int    `yaml:"quote_ttl_min" json:"quote_ttl_min"`
	RedisURL    string `yaml:"redis_url" json:"redis_url"`
}

type GHNCfg struct {
	BaseURL      string `yaml:"base_url" json:"base_url"`
	Token        string `yaml:"token" json:"token"`
	ShopID       int    `yaml:"shop_id" json:"shop_id"`
	FromDistrict string `yaml:"from_district" json:"from_district"`
	FromWard     string `yaml:"from_ward" json:"from_ward"`
}

type VTPCfg struct {
	BaseURL      string `yaml:"base_url" json:"base_url"`
	Token        string `yaml:"token" json:"token"`
	FromProvince string `yaml:"from_province" json:"from_province"`
	FromDistrict string `yaml:"from_district" json:"from_district"`
	FromWard     string `yaml:"from_ward" json:"from_ward"`
}

// GHTKCfg kho gửi khai báo bằng tên tỉnh/huyện vì API GHTK nhận địa chỉ
// dạng tên, không có bộ mã riêng
type GHTKCfg struct {
	BaseURL      string `yaml:"base_url" json:"base_url"`
	Token        string `yaml:"token" json:"token"`
	FromProvince string `yaml:"from_province" json:"from_province"`
	FromDistrict string `yaml:"from_district" json:"from_district"`
}

type CarriersCfg struct {
	GHN  GHNCfg  `yaml:"ghn" json:"ghn"`
	VTP  VTPCfg  `yaml:"vtp" json:"vtp"`
	GHTK GHTKCfg `yaml:"ghtk" json:"ghtk"`
}

type MapperCfg struct {
	Fuzzy    FuzzyCfg    `yaml:"fuzzy" json:"fuzzy"`
	Import   ImportCfg   `yaml:"import" json:"import"`
	Cache    CacheCfg    `yaml:"cache" json:"cache"`
	Carriers CarriersCfg `yaml:"carriers" json:"carriers"`
	MySQLDSN string      `yaml:"mysql_dsn" json:"mysql_dsn"`
}

var C MapperCfg

func Load(path string) error {
	setDefaults()

	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, &C); err != nil {
		return err
	}

	// ENV overrides cho secrets, không để token nằm trong file yaml commit lên repo
	if v := os.Getenv("GHN_TOKEN"); v != "" {
		C.Carriers.GHN.Token = v
	}
	if v := os.Getenv("VTP_TOKEN"); v != "" {
		C.Carriers.VTP.Token = v
	}
	if v := os.Getenv("GHTK_TOKEN"); v != "" {
		C.Carriers.GHTK.Token = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		C.MySQLDSN = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		C.Cache.RedisURL = v
	}
	return nil
}

func setDefaults() {
	C = MapperCfg{
		Fuzzy: FuzzyCfg{
			ProvinceThreshold: 0.55,
			DistrictThreshold: 0.60,
			WardThreshold:     0.60,
			ReviewMargin:      0.05,
			JWWeight:          0.5,
			LevWeight:         0.5,
		},
		Import: ImportCfg{PacingMs: 250},
		Cache: CacheCfg{
			Backend:     "memory",
			QuoteTTLMin: 24 * 60,
			RedisURL:    "redis://localhost:6379",
		},
	}
}

func (c CacheCfg) QuoteTTL() time.Duration {
	return time.Duration(c.QuoteTTLMin) * time.Minute
}

func (i ImportCfg) Pacing() time.Duration {
	return time.Duration(i.PacingMs) * time.Millisecond
}
