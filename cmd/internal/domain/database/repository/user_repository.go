package repository

import (
	"context"

	"circlenotes/cmd/internal/domain/database"
	"circlenotes/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *DefaultUserRepository {
	return &DefaultUserRepository{db: db}
}

func (u *DefaultUserRepository) FindAllInIDs(ctx context.Context, ids []int64) ([]*entity.User, error) {
	if len(ids) == 0 {
		return []*entity.User{}, nil
	}

	var users []*entity.User
	err := database.Conn(ctx, u.db).Where("id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (u *DefaultUserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	return first[entity.User](database.Conn(ctx, u.db), "id = ?", id)
}

func (u *DefaultUserRepository) FindBySubject(ctx context.Context, sub string) (*entity.User, error) {
	return first[entity.User](database.Conn(ctx, u.db), "subject = ?", sub)
}

func (u *DefaultUserRepository) FindByHandle(ctx context.Context, handle string) (*entity.User, error) {
	return first[entity.User](database.Conn(ctx, u.db), "handle = ? AND status = ?", handle, entity.UserStatusActive)
}

func (u *DefaultUserRepository) HandleExists(ctx context.Context, handle string) (bool, error) {
	var count int64
	err := database.Conn(ctx, u.db).
		Model(&entity.User{}).
		Where("handle = ?", handle).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateIfNotExists provisions a user for a subject. Concurrent first
// requests of one subject end up with the same row.
func (u *DefaultUserRepository) CreateIfNotExists(ctx context.Context, user *entity.User) (*entity.User, bool, error) {
	return createIfNotExists(ctx, u.db, user, "subject = ?", user.Subject)
}

func (u *DefaultUserRepository) Save(ctx context.Context, user *entity.User) error {
	return database.Conn(ctx, u.db).Save(user).Error
}
