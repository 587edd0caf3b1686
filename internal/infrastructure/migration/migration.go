// Package migration applies the database schema, either from versioned goose
// scripts or via GORM auto-migration for development setups.
package migration

import (
	"embed"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"blocklotto/internal/infrastructure/persistence/models"
	"blocklotto/internal/shared/logger"
)

//go:embed scripts/*.sql
var scripts embed.FS

// Manager runs schema migrations.
type Manager struct {
	logger logger.Interface
}

// NewManager creates a Manager.
func NewManager(log logger.Interface) *Manager {
	return &Manager{logger: log.Named("migration")}
}

// Migrate applies the schema. Development environments use GORM
// auto-migration; everything else runs the embedded goose scripts.
func (m *Manager) Migrate(db *gorm.DB, environment string) error {
	if strings.EqualFold(environment, "development") {
		return m.autoMigrate(db)
	}
	return m.gooseUp(db)
}

func (m *Manager) autoMigrate(db *gorm.DB) error {
	m.logger.Infow("running auto-migration")

	err := db.AutoMigrate(
		&models.BetModel{},
		&models.RoundModel{},
		&models.ResultModel{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration: %w", err)
	}
	return nil
}

func (m *Manager) gooseUp(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("accessing sql.DB: %w", err)
	}

	goose.SetBaseFS(scripts)
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	m.logger.Infow("running goose migrations")
	if err := goose.Up(sqlDB, "scripts"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("reading migration version: %w", err)
	}
	m.logger.Infow("migrations applied", "version", version)

	return nil
}
