package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pg-backend/models"
	"pg-backend/utils"
)

var DB *gorm.DB

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("mysql url missing database name")
	}

	q := u.Query()
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "True")
	}
	if q.Get("loc") == "" {
		q.Set("loc", "Local")
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, dbName, q.Encode()), nil
}

// ResolveMySQLDSN prefers MYSQL_URL, then DATABASE_URL, then the DB_* parts.
func ResolveMySQLDSN() (string, error) {
	raw := utils.EnvOrDefault("MYSQL_URL", "")
	if raw == "" {
		raw = utils.EnvOrDefault("DATABASE_URL", "")
	}

	if raw != "" {
		if strings.HasPrefix(raw, "mysql://") {
			return mysqlDSNFromURL(raw)
		}
		return raw, nil
	}

	user := utils.EnvOrDefault("DB_USER", "root")
	pass := utils.EnvOrDefault("DB_PASS", "")
	host := utils.EnvOrDefault("DB_HOST", "127.0.0.1")
	port := utils.EnvOrDefault("DB_PORT", "3306")
	dbName := utils.EnvOrDefault("DB_NAME", "pg_db")

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, pass, host, port, dbName,
	), nil
}

func gormLogger() logger.Interface {
	return logger.New(
		log.New(logg.Writer(), "", 0),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func ConnectDatabase(cfg Config) error {
	dsn, err := ResolveMySQLDSN()
	if err != nil {
		return err
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger()})
	if err != nil {
		return err
	}

	if sqlDB, derr := db.DB(); derr == nil {
		sqlDB.SetMaxOpenConns(utils.EnvIntOrDefault("DB_MAX_OPEN_CONNS", 25))
		sqlDB.SetMaxIdleConns(utils.EnvIntOrDefault("DB_MAX_IDLE_CONNS", 10))
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
		LogError(logg, "config", "ConnectDatabase", "failed to install otelgorm plugin", nil, pluginErr)
	}

	DB = db

	if err := Migrate(DB); err != nil {
		return err
	}
	if cfg.SeedDemoData {
		SeedDatabase(DB)
	}
	return nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Property{},
		&models.Tenant{},
		&models.Transaction{},
		&models.OutboxTask{},
	)
}

// SeedDatabase creates a demo PG property with a structured floor plan and
// one property that only carries floor/room counts.
func SeedDatabase(db *gorm.DB) {
	var count int64
	db.Model(&models.Property{}).Count(&count)
	if count > 0 {
		logg.Info("Properties already seeded")
		return
	}

	floors := []models.Floor{
		{FloorNumber: 1, Rooms: []models.Room{
			{RoomNo: "101", RoomName: "101", SharingOption: models.SharingSingle, NoOfBeds: 1},
			{RoomNo: "102", RoomName: "Corner", SharingOption: models.SharingDouble, NoOfBeds: 2},
		}},
		{FloorNumber: 2, Rooms: []models.Room{
			{RoomNo: "201", RoomName: "201", SharingOption: models.SharingDouble, NoOfBeds: 2},
			{RoomNo: "202", RoomName: "202", SharingOption: models.SharingTriple, NoOfBeds: 3, NoOfBedsOccupied: 1},
		}},
	}

	pg := models.Property{
		OwnerID:       1,
		Name:          "Sunrise PG",
		PropertyType:  models.PropertyTypePG,
		Address:       "12 MG Road",
		City:          "Bengaluru",
		TotalFloors:   2,
		RoomsPerFloor: 2,
		RowVersion:    1,
	}
	if err := pg.SetFloorList(floors); err != nil {
		LogError(logg, "config", "SeedDatabase", "encode floors", nil, err)
		return
	}

	hostel := models.Property{
		OwnerID:       1,
		Name:          "Lakeview Hostel",
		PropertyType:  models.PropertyTypeHostel,
		City:          "Pune",
		TotalFloors:   3,
		RoomsPerFloor: 4,
		RowVersion:    1,
	}

	if err := db.Create(&[]models.Property{pg, hostel}).Error; err != nil {
		LogError(logg, "config", "SeedDatabase", "failed to seed properties", nil, err)
		return
	}
	logg.Info("Properties seeded")
}
