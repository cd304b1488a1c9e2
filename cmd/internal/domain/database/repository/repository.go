package repository

import (
	"context"
	"errors"

	"circlenotes/cmd/internal/domain/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Page selects a window of an ordered result.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) scope(db *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	return db
}

func first[T any](conn *gorm.DB, query any, args ...any) (*T, error) {
	var out T
	err := conn.Where(query, args...).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &out, nil
}

// createIfNotExists inserts row unless a row colliding on a unique index
// already exists, then returns whichever row is stored. created reports
// whether this call inserted it.
func createIfNotExists[T any](ctx context.Context, db *gorm.DB, row *T, query any, args ...any) (*T, bool, error) {
	var (
		stored  *T
		created bool
	)

	err := database.NewTransactor(db).Transaction(ctx, func(ctx context.Context) error {
		conn := database.Conn(ctx, db)
		res := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 1 {
			stored, created = row, true
			return nil
		}

		existing, err := first[T](conn, query, args...)
		if err != nil {
			return err
		}

		if existing == nil {
			return errors.New("row conflicted but could not be read back")
		}
		stored = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// removeIfExists deletes the matching row and returns it, or nil when
// there was nothing to delete.
func removeIfExists[T any](ctx context.Context, db *gorm.DB, query any, args ...any) (*T, error) {
	var removed *T

	err := database.NewTransactor(db).Transaction(ctx, func(ctx context.Context) error {
		conn := database.Conn(ctx, db)
		existing, err := first[T](conn, query, args...)
		if err != nil || existing == nil {
			return err
		}

		res := conn.Delete(existing)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 1 {
			removed = existing
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
