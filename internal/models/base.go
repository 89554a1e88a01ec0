package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// OwnedModel adds creator/updater identity to BaseModel.
type OwnedModel struct {
	BaseModel
	CreatedByID string `gorm:"size:36;index" json:"created_by"`
	UpdatedByID string `gorm:"size:36;index" json:"updated_by"`
}

// StampCreated records actorID as both creator and updater.
func (m *OwnedModel) StampCreated(actorID string) {
	m.CreatedByID = actorID
	m.UpdatedByID = actorID
}

// StampUpdated records actorID as the last updater.
func (m *OwnedModel) StampUpdated(actorID string) {
	m.UpdatedByID = actorID
}

// Ownership returns the identity and audit columns.
func (m *OwnedModel) Ownership() OwnedModel {
	return *m
}

// RestoreOwnership puts back the columns a client payload must never change.
func (m *OwnedModel) RestoreOwnership(prev OwnedModel) {
	m.ID = prev.ID
	m.CreatedAt = prev.CreatedAt
	m.CreatedByID = prev.CreatedByID
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// Open connects to the configured database.
func Open(config DatabaseConfig, opts ...gorm.Option) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.Driver {
	case "", "mysql":
		dialector = mysql.Open(config.DSN)
	case "postgres":
		dialector = postgres.Open(config.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	if len(opts) == 0 {
		opts = append(opts, &gorm.Config{})
	}
	db, err := gorm.Open(dialector, opts...)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)

	return db, nil
}

// AutoMigrate creates or updates every table the server uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Group{},
		&User{},
		&RefreshToken{},
		&Tax{},
		&Category{},
		&Procedure{},
		&NoteCategory{},
		&Exercise{},
		&Appointment{},
		&PatientDirectory{},
		&File{},
		&PatientDirectoryExercise{},
	)
}
