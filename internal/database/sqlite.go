package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/torralab/pulse/internal/accounts"
	"github.com/torralab/pulse/internal/enumkey"
)

// OpenSQLite establishes a SQLite connection, performs schema migrations and
// installs the enumkeys version triggers.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&enumkey.EnumKey{},
		&enumkey.EnumKeyVersion{},
		&accounts.UserDomain{},
		&accounts.Group{},
		&accounts.User{},
		&accounts.UserGroup{},
		&accounts.ActionLog{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := enumkey.InstallVersionTriggers(db); err != nil {
		return nil, err
	}

	if err := repairMembershipRoles(db); err != nil && logger != nil {
		logger.Warn("membership role repair failed", zap.Error(err))
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

// repairMembershipRoles squashes legacy role values down to the single
// uppercase letter the link table expects.
func repairMembershipRoles(db *gorm.DB) error {
	return db.Exec("UPDATE users_groups SET role = upper(substr(role, 1, 1)) WHERE role <> upper(substr(role, 1, 1));").Error
}
