package repository

import (
	"context"

	"circlenotes/cmd/internal/domain/database"
	"circlenotes/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultLikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *DefaultLikeRepository {
	return &DefaultLikeRepository{db: db}
}

func (l *DefaultLikeRepository) Find(ctx context.Context, userID, itemID int64) (*entity.Like, error) {
	return first[entity.Like](database.Conn(ctx, l.db), "user_id = ? AND item_id = ?", userID, itemID)
}

func (l *DefaultLikeRepository) CreateIfNotExists(ctx context.Context, like *entity.Like) (*entity.Like, bool, error) {
	return createIfNotExists(ctx, l.db, like, "user_id = ? AND item_id = ?", like.UserID, like.ItemID)
}

func (l *DefaultLikeRepository) RemoveIfExists(ctx context.Context, userID, itemID int64) (*entity.Like, error) {
	return removeIfExists[entity.Like](ctx, l.db, "user_id = ? AND item_id = ?", userID, itemID)
}

type DefaultStockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) *DefaultStockRepository {
	return &DefaultStockRepository{db: db}
}

func (s *DefaultStockRepository) Find(ctx context.Context, userID, itemID int64) (*entity.Stock, error) {
	return first[entity.Stock](database.Conn(ctx, s.db), "user_id = ? AND item_id = ?", userID, itemID)
}

func (s *DefaultStockRepository) CreateIfNotExists(ctx context.Context, stock *entity.Stock) (*entity.Stock, bool, error) {
	return createIfNotExists(ctx, s.db, stock, "user_id = ? AND item_id = ?", stock.UserID, stock.ItemID)
}

func (s *DefaultStockRepository) RemoveIfExists(ctx context.Context, userID, itemID int64) (*entity.Stock, error) {
	return removeIfExists[entity.Stock](ctx, s.db, "user_id = ? AND item_id = ?", userID, itemID)
}

// FindItemIDsByUser lists stocked items of a user, most recent first.
func (s *DefaultStockRepository) FindItemIDsByUser(ctx context.Context, userID int64, page Page) ([]int64, int64, error) {
	conn := database.Conn(ctx, s.db).
		Model(&entity.Stock{}).
		Where("user_id = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := conn.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ids []int64
	err := conn.Scopes(page.scope).
		Order("created_at DESC").
		Order("id DESC").
		Pluck("item_id", &ids).Error
	if err != nil {
		return nil, 0, err
	}
	return ids, total, nil
}

type DefaultFollowRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) *DefaultFollowRepository {
	return &DefaultFollowRepository{db: db}
}

func (f *DefaultFollowRepository) CreateIfNotExists(ctx context.Context, follow *entity.Follow) (*entity.Follow, bool, error) {
	return createIfNotExists(ctx, f.db, follow,
		"follower_id = ? AND followee_id = ?", follow.FollowerID, follow.FolloweeID)
}

func (f *DefaultFollowRepository) RemoveIfExists(ctx context.Context, followerID, followeeID int64) (*entity.Follow, error) {
	return removeIfExists[entity.Follow](ctx, f.db, "follower_id = ? AND followee_id = ?", followerID, followeeID)
}

// FindFollowers returns the users following userID, most recent first.
func (f *DefaultFollowRepository) FindFollowers(ctx context.Context, userID int64, page Page) ([]*entity.User, int64, error) {
	conn := database.Conn(ctx, f.db).
		Model(&entity.User{}).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followee_id = ? AND users.status = ?", userID, entity.UserStatusActive).
		Session(&gorm.Session{})

	var total int64
	if err := conn.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []*entity.User
	err := conn.Scopes(page.scope).
		Order("follows.created_at DESC").
		Order("follows.id DESC").
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
