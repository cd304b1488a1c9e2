package database

import (
	"context"

	"circlenotes/cmd/internal/domain/filter"

	"gorm.io/gorm"
)

type txKey struct{}

// Transactor runs functions inside one metadata store transaction.
// The transaction travels in the context, so repositories called with that
// context take part in it.
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// Transaction commits when fn returns nil and rolls back otherwise.
// Nested calls join the outer transaction.
func (t *Transactor) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn returns the transaction carried by ctx, or db bound to ctx.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// Where scopes a query with a compiled filter expression.
func Where(c *filter.Compiler, table string, e filter.Expr) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		sql, vars, err := c.Compile(table, e)
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		return db.Where(sql, vars...)
	}
}
