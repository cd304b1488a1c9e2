package repository

import (
	"context"

	"circlenotes/cmd/internal/domain/database"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/filter"
	"circlenotes/cmd/internal/domain/policy"

	"gorm.io/gorm"
)

type DefaultContainerRepository struct {
	db       *gorm.DB
	compiler *filter.Compiler
}

func NewContainerRepository(db *gorm.DB, compiler *filter.Compiler) *DefaultContainerRepository {
	return &DefaultContainerRepository{db: db, compiler: compiler}
}

func (c *DefaultContainerRepository) FindByID(ctx context.Context, id int64) (*entity.Container, error) {
	return first[entity.Container](database.Conn(ctx, c.db), "id = ?", id)
}

func (c *DefaultContainerRepository) FindByHandle(ctx context.Context, handle string) (*entity.Container, error) {
	return first[entity.Container](database.Conn(ctx, c.db), "handle = ?", handle)
}

// FindAll lists containers matching where, newest first.
func (c *DefaultContainerRepository) FindAll(ctx context.Context, where filter.Expr, page Page) ([]*entity.Container, int64, error) {
	conn := database.Conn(ctx, c.db).
		Model(&entity.Container{}).
		Scopes(database.Where(c.compiler, policy.TableContainers, where)).
		Session(&gorm.Session{})

	var total int64
	if err := conn.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var containers []*entity.Container
	err := conn.Scopes(page.scope).
		Order("created_at DESC").
		Order("id DESC").
		Find(&containers).Error
	if err != nil {
		return nil, 0, err
	}
	return containers, total, nil
}

func (c *DefaultContainerRepository) HandleExists(ctx context.Context, handle string) (bool, error) {
	var count int64
	err := database.Conn(ctx, c.db).
		Model(&entity.Container{}).
		Where("handle = ?", handle).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (c *DefaultContainerRepository) Create(ctx context.Context, container *entity.Container) error {
	return database.Conn(ctx, c.db).Create(container).Error
}

func (c *DefaultContainerRepository) Save(ctx context.Context, container *entity.Container) error {
	return database.Conn(ctx, c.db).Save(container).Error
}
