package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shipping-mapper/app/config"
	"github.com/shipping-mapper/app/controllers"
	"github.com/shipping-mapper/app/services"
	"github.com/shipping-mapper/internal/carriers"
	"github.com/shipping-mapper/internal/importer"
	"github.com/shipping-mapper/internal/matcher"
	"github.com/shipping-mapper/internal/resolver"
	"github.com/shipping-mapper/internal/store"
	"github.com/shipping-mapper/routes"
)

func main() {
	// 1. Load configuration
	loadConfig()
	if err := config.Load(viper.GetString("config_file")); err != nil {
		log.Printf("Warning: Cannot read mapper config, using defaults: %v", err)
	}

	// 2. Khởi tạo logger
	logger := initLogger()
	defer logger.Sync()

	logger.Info("Starting Shipping Mapper Service")

	// 3. Kết nối MySQL
	db := initMySQL(logger)
	gormStore := store.NewGormStore(db)

	// 4. Khởi tạo matcher
	fuzzy := config.C.Fuzzy
	match := matcher.NewMatcherWeighted(fuzzy.JWWeight, fuzzy.LevWeight, fuzzy.ReviewMargin)
	thresholds := matcher.Thresholds{
		Province: fuzzy.ProvinceThreshold,
		District: fuzzy.DistrictThreshold,
		Ward:     fuzzy.WardThreshold,
	}

	// 5. Đăng ký carrier drivers
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

	// 6. Khởi tạo quote cache (memory hoặc redis tùy cấu hình)
	quoteCache := initQuoteCache(logger)
	defer quoteCache.Close()

	// 7. Khởi tạo core components
	resolverSvc := resolver.NewResolver(gormStore, gormStore, match, thresholds, logger)
	importerSvc := importer.NewImporter(gormStore, gormStore, match, thresholds, config.C.Import.Pacing(), logger)

	// 8. Khởi tạo services
	quoteService := services.NewQuoteService(gormStore, registry, resolverSvc, quoteCache, logger)
	importService := services.NewImportService(gormStore, registry, importerSvc, logger)

	// 9. Khởi tạo controllers
	shippingController := controllers.NewShippingController(quoteService, logger)
	adminController := controllers.NewAdminController(importService, quoteCache, logger)

	// 10. Khởi tạo Gin router
	if viper.GetString("app.env") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 11. Thiết lập routes
	routes.SetupAllRoutes(router, shippingController, adminController)

	// 12. Khởi động server
	port := viper.GetString("app.port")
	logger.Info("Shipping Mapper Service starting", zap.String("port", port))

	if err := router.Run(":" + port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// loadConfig load configuration từ file và env vars
func loadConfig() {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("config_file", "config/mapper.yaml")
	viper.SetDefault("mysql.dsn", "root:root@tcp(localhost:3306)/shipping?charset=utf8mb4&parseTime=True&loc=Local")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Cannot read config file: %v", err)
	}
}

// initLogger khởi tạo structured logger
func initLogger() *zap.Logger {
	env := viper.GetString("app.env")
	if v := os.Getenv("APP_ENV"); v != "" {
		env = v
	}

	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		log.Fatal("Cannot initialize logger:", err)
	}
	return logger
}

// initMySQL khởi tạo kết nối MySQL qua gorm
func initMySQL(logger *zap.Logger) *gorm.DB {
	dsn := config.C.MySQLDSN
	if dsn == "" {
		dsn = viper.GetString("mysql.dsn")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get database handle", zap.Error(err))
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Info("Connected to MySQL")
	return db
}

// initQuoteCache chọn backend cache theo cấu hình
func initQuoteCache(logger *zap.Logger) services.IQuoteCache {
	ttl := config.C.Cache.QuoteTTL()

	if config.C.Cache.Backend == "redis" {
		cache, err := services.NewRedisQuoteCache(config.C.Cache.RedisURL, ttl, logger)
		if err != nil {
			logger.Warn("Không kết nối được Redis, chuyển sang cache in-memory", zap.Error(err))
			return services.NewQuoteCache(ttl)
		}
		logger.Info("Quote cache dùng Redis", zap.Duration("ttl", ttl))
		return cache
	}

	logger.Info("Quote cache dùng in-memory", zap.Duration("ttl", ttl))
	return services.NewQuoteCache(ttl)
}
