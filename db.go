package main

import (
	"os"

	"docmon/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var db *gorm.DB

func initDB() {
	if cfg.DBDSN == "" {
		logger.Fatal().Msg("DB_DSN is not set; docmon requires a Postgres DSN")
	}
	var err error
	db, err = gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres database")
	}
	if cfg.DBAutoMigrate {
		migrateDB(db)
	}
	seedDB()
}

// migrateDB runs AutoMigrate model by model so a failure on one doesn't
// block the others. Master tables (roles, vendors) go first so FKs on
// users can be applied safely.
func migrateDB(db *gorm.DB) {
	tables := []interface{}{
		&models.Role{},
		&models.Vendor{},
		&models.User{},
		&models.RefreshToken{},
		&models.Budget{},
		&models.Invoice{},
		&models.Contract{},
		&models.Notification{},
		&models.AuditLog{},
		&models.Attachment{},
	}
	for _, t := range tables {
		if err := db.AutoMigrate(t); err != nil {
			logger.Warn().Err(err).Msgf("migration warning (%T)", t)
		}
	}
}

func seedDB() {
	// Ensure master roles exist
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "user", Description: "regular user"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}

	// Seed the admin user once
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		var role models.Role
		if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
			logger.Warn().Err(err).Msg("failed to find administrator role")
		}
		rid := role.ID
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		admin := models.User{
			Username:       "admin",
			Email:          "admin@example.com",
			HashedPassword: hashedPassword,
			Active:         true,
			SecurityStamp:  uuid.NewString(),
			RoleID:         &rid,
		}
		db.Create(&admin)
		logger.Info().Msg("seeded admin user: username=admin, password=admin123")
	}
	ensureUploadBase()
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	if err := os.MkdirAll(cfg.UploadBase, 0755); err != nil {
		logger.Warn().Err(err).Str("dir", cfg.UploadBase).Msg("failed to create upload base dir")
	}
}
