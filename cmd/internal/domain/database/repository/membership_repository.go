package repository

import (
	"context"

	"circlenotes/cmd/internal/domain/database"
	"circlenotes/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultMembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *DefaultMembershipRepository {
	return &DefaultMembershipRepository{db: db}
}

func (m *DefaultMembershipRepository) Find(ctx context.Context, userID, containerID int64) (*entity.Membership, error) {
	return first[entity.Membership](database.Conn(ctx, m.db),
		"user_id = ? AND container_id = ?", userID, containerID)
}

// FindForUser returns the memberships a user holds among the given containers.
func (m *DefaultMembershipRepository) FindForUser(ctx context.Context, userID int64, containerIDs []int64) ([]*entity.Membership, error) {
	if len(containerIDs) == 0 {
		return []*entity.Membership{}, nil
	}

	var out []*entity.Membership
	err := database.Conn(ctx, m.db).
		Where("user_id = ? AND container_id IN ?", userID, containerIDs).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *DefaultMembershipRepository) FindByContainer(ctx context.Context, containerID int64, page Page) ([]*entity.Membership, int64, error) {
	conn := database.Conn(ctx, m.db).
		Model(&entity.Membership{}).
		Where("container_id = ?", containerID).
		Session(&gorm.Session{})

	var total int64
	if err := conn.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*entity.Membership
	err := conn.Scopes(page.scope).
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (m *DefaultMembershipRepository) CountByRole(ctx context.Context, containerID int64, role entity.Role) (int64, error) {
	var count int64
	err := database.Conn(ctx, m.db).
		Model(&entity.Membership{}).
		Where("container_id = ? AND role = ?", containerID, role).
		Count(&count).Error
	return count, err
}

// CreateIfNotExists returns the stored membership of the pair. A repeated
// call returns the existing row untouched.
func (m *DefaultMembershipRepository) CreateIfNotExists(ctx context.Context, membership *entity.Membership) (*entity.Membership, bool, error) {
	return createIfNotExists(ctx, m.db, membership,
		"user_id = ? AND container_id = ?", membership.UserID, membership.ContainerID)
}

func (m *DefaultMembershipRepository) RemoveIfExists(ctx context.Context, userID, containerID int64) (*entity.Membership, error) {
	return removeIfExists[entity.Membership](ctx, m.db,
		"user_id = ? AND container_id = ?", userID, containerID)
}
