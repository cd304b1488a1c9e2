package repository

import (
	"context"

	"circlenotes/cmd/internal/domain/database"
	"circlenotes/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultConnectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) *DefaultConnectionRepository {
	return &DefaultConnectionRepository{db: db}
}

func (c *DefaultConnectionRepository) Save(ctx context.Context, conn *entity.Connection) error {
	return database.Conn(ctx, c.db).Save(conn).Error
}

func (c *DefaultConnectionRepository) Delete(ctx context.Context, connID string) error {
	return database.Conn(ctx, c.db).
		Where("connection_id = ?", connID).
		Delete(&entity.Connection{}).Error
}

func (c *DefaultConnectionRepository) FindByUserID(ctx context.Context, userID int64) ([]string, error) {
	var ids []string
	result := database.Conn(ctx, c.db).
		Model(&entity.Connection{}).
		Where("user_id = ?", userID).
		Pluck("connection_id", &ids)

	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}

// FindStale returns connections past their expiry or whose last heartbeat
// is older than hbLimit.
func (c *DefaultConnectionRepository) FindStale(ctx context.Context, now int64, hbLimit int64) ([]*entity.Connection, error) {
	var conns []*entity.Connection
	err := database.Conn(ctx, c.db).
		Where("expires_at <= ? OR last_heartbeat_at < ?", now, now-hbLimit).
		Find(&conns).Error
	if err != nil {
		return nil, err
	}
	return conns, nil
}

func (c *DefaultConnectionRepository) UpdateHeartbeat(ctx context.Context, connID string, now int64) error {
	return database.Conn(ctx, c.db).
		Model(&entity.Connection{}).
		Where("connection_id = ?", connID).
		Update("last_heartbeat_at", now).Error
}
