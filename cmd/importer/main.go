// Lệnh chạy import taxonomy hãng một lần từ terminal, không cần bật API
// server. Dùng cho lần đồng bộ đầu tiên hoặc chạy lại theo cron.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shipping-mapper/app/config"
	"github.com/shipping-mapper/app/models"
	"github.com/shipping-mapper/internal/carriers"
	"github.com/shipping-mapper/internal/importer"
	"github.com/shipping-mapper/internal/matcher"
	"github.com/shipping-mapper/internal/store"
)

func main() {
	configPath := flag.String("config", "config/mapper.yaml", "đường dẫn file cấu hình")
	providerID := flag.Uint("provider", 0, "ID hãng trong bảng shippingproviders")
	flag.Parse()

	if *providerID == 0 {
		log.Fatal("thiếu -provider")
	}

	if err := config.Load(*configPath); err != nil {
		log.Printf("Warning: Cannot read mapper config, using defaults: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Cannot initialize logger:", err)
	}
	defer logger.Sync()

	dsn := config.C.MySQLDSN
	if dsn == "" {
		dsn = os.Getenv("MYSQL_DSN")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}
	gormStore := store.NewGormStore(db)

	fuzzy := config.C.Fuzzy
	match := matcher.NewMatcherWeighted(fuzzy.JWWeight, fuzzy.LevWeight, fuzzy.ReviewMargin)
	thresholds := matcher.Thresholds{
		Province: fuzzy.ProvinceThreshold,
		District: fuzzy.DistrictThreshold,
		Ward:     fuzzy.WardThreshold,
	}

	registry := carriers.NewRegistry()
	registry.Register(carriers.NewGHNDriver(carriers.GHNConfig{
		BaseURL:          config.C.Carriers.GHN.BaseURL,
		Token:            config.C.Carriers.GHN.Token,
		ShopID:           config.C.Carriers.GHN.ShopID,
		FromDistrictCode: config.C.Carriers.GHN.FromDistrict,
		FromWardCode:     config.C.Carriers.GHN.FromWard,
	}, logger))
	registry.Register(carriers.NewVTPDriver(carriers.VTPConfig{
		BaseURL:          config.C.Carriers.VTP.BaseURL,
		Token:            config.C.Carriers.VTP.Token,
		FromProvinceCode: config.C.Carriers.VTP.FromProvince,
		FromDistrictCode: config.C.Carriers.VTP.FromDistrict,
		FromWardCode:     config.C.Carriers.VTP.FromWard,
	}, logger))
	registry.Register(carriers.NewGHTKDriver(carriers.GHTKConfig{
		BaseURL:      config.C.Carriers.GHTK.BaseURL,
		Token:        config.C.Carriers.GHTK.Token,
		FromProvince: config.C.Carriers.GHTK.FromProvince,
		FromDistrict: config.C.Carriers.GHTK.FromDistrict,
	}, gormStore, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C hủy giữa chừng, mapping đã ghi vẫn giữ nguyên
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Nhận tín hiệu dừng, hủy import")
		cancel()
	}()

	provider, err := gormStore.GetProvider(ctx, *providerID)
	if err != nil {
		logger.Fatal("Lỗi tra hãng", zap.Error(err))
	}
	if provider == nil {
		logger.Fatal("Không tìm thấy hãng", zap.Uint("providerId", *providerID))
	}

	drv, err := registry.Driver(provider.Code)
	if err != nil {
		logger.Fatal("Chưa có driver cho hãng", zap.String("code", provider.Code))
	}

	imp := importer.NewImporter(gormStore, gormStore, match, thresholds, config.C.Import.Pacing(), logger)

	start := time.Now()
	report, err := imp.ImportProvider(ctx, *providerID, drv)
	if err != nil {
		logger.Error("Import dừng giữa chừng", zap.Error(err))
	}

	logger.Info("Kết quả import",
		zap.String("carrier", provider.Code),
		zap.Duration("duration", time.Since(start)),
		zap.Int("matchedProvinces", report.Matched[models.UnitProvince]),
		zap.Int("matchedDistricts", report.Matched[models.UnitDistrict]),
		zap.Int("matchedWards", report.Matched[models.UnitWard]),
		zap.Int("unmatchedProvinces", report.Unmatched[models.UnitProvince]),
		zap.Int("unmatchedDistricts", report.Unmatched[models.UnitDistrict]),
		zap.Int("unmatchedWards", report.Unmatched[models.UnitWard]),
		zap.Int("errors", report.Errors),
		zap.Int("nearMisses", len(report.NearMisses)))

	for _, nm := range report.NearMisses {
		logger.Warn("Cần đối soát tay",
			zap.String("kind", string(nm.Kind)),
			zap.String("providerName", nm.ProviderName),
			zap.String("candidateName", nm.CandidateName),
			zap.Float64("score", nm.Score),
			zap.Float64("threshold", nm.Threshold))
	}

	if err != nil {
		os.Exit(1)
	}
}
