package database

import (
	"errors"
	"fmt"
	"time"

	"circlenotes/cmd/internal/config"
	"circlenotes/cmd/internal/domain/entity"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table managed by the metadata store.
var Models = []any{
	&entity.User{},
	&entity.Container{},
	&entity.Membership{},
	&entity.Item{},
	&entity.Like{},
	&entity.Stock{},
	&entity.Follow{},
	&entity.Connection{},
}

func Init(cfg config.Database) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Relations are resolved by the services, rows outlive their parents on soft deletes.
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// SQLite only has one writer, so it gets one connection.
	if cfg.Type == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// OpenMemory opens a migrated in-memory SQLite database.
func OpenMemory() (*gorm.DB, error) {
	return Init(config.Database{Type: "sqlite", Path: ":memory:"})
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsDuplicate reports whether err comes from a unique constraint violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
