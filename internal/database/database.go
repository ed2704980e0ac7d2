package database

import (
	"fmt"

	"github.com/hrdesk/backend/internal/config"
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := seedAdminUser(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the schema. The composite unique index on folders
// (owner_id, name) comes from the model tags; duplicates are rejected by
// the database, not by application checks.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Department{},
		&models.Employee{},
		&models.Folder{},
		&models.UserDocument{},
		&models.EmployeeDocument{},
		&models.AuditLog{},
	)
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("change-me-on-first-login")
	if err != nil {
		return err
	}

	admin := models.User{
		Email:        "it@hrdesk.local",
		PasswordHash: hash,
		Name:         "System Administrator",
		Role:         models.RoleITManager,
		IsActive:     true,
	}

	return db.Create(&admin).Error
}
