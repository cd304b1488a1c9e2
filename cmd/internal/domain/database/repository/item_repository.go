package repository

import (
	"context"
	"fmt"

	"circlenotes/cmd/internal/domain/database"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/filter"
	"circlenotes/cmd/internal/domain/policy"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemOrder int

const (
	OrderNewest ItemOrder = iota
	OrderRecentlyUpdated
	OrderMostLiked
)

// Counter columns of items.
const (
	CounterLikes  = "like_count"
	CounterStocks = "stock_count"
	CounterViews  = "access_count"
)

// ItemQuery describes one item listing. WithOwner loads the author of every item.
type ItemQuery struct {
	Where     filter.Expr
	Page      Page
	Order     ItemOrder
	WithOwner bool
}

type DefaultItemRepository struct {
	db       *gorm.DB
	compiler *filter.Compiler
}

func NewItemRepository(db *gorm.DB, compiler *filter.Compiler) *DefaultItemRepository {
	return &DefaultItemRepository{db: db, compiler: compiler}
}

func (d *DefaultItemRepository) FindByID(ctx context.Context, id int64) (*entity.Item, error) {
	return first[entity.Item](database.Conn(ctx, d.db), "id = ?", id)
}

// FindView loads the item with its container and the viewer's membership in it.
func (d *DefaultItemRepository) FindView(ctx context.Context, id int64, viewerID int64) (*policy.ItemView, error) {
	conn := database.Conn(ctx, d.db)
	item, err := first[entity.Item](conn, "id = ?", id)
	if err != nil || item == nil {
		return nil, err
	}

	view := &policy.ItemView{Item: item}
	if item.ContainerID == nil {
		return view, nil
	}

	view.Container, err = first[entity.Container](conn, "id = ?", *item.ContainerID)
	if err != nil {
		return nil, err
	}

	membership, err := first[entity.Membership](conn, "user_id = ? AND container_id = ?", viewerID, *item.ContainerID)
	if err != nil {
		return nil, err
	}

	if membership != nil {
		view.Memberships = []*entity.Membership{membership}
	}
	return view, nil
}

func (d *DefaultItemRepository) FindAll(ctx context.Context, q ItemQuery) ([]*entity.Item, int64, error) {
	where := q.Where
	if where == nil {
		where = filter.True
	}

	conn := database.Conn(ctx, d.db).
		Model(&entity.Item{}).
		Scopes(database.Where(d.compiler, policy.TableItems, where)).
		Session(&gorm.Session{})

	var total int64
	if err := conn.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := conn.Scopes(q.Page.scope)
	switch q.Order {
	case OrderRecentlyUpdated:
		query = query.Order("updated_at DESC")
	case OrderMostLiked:
		query = query.Order("like_count DESC")
	default:
		query = query.Order("created_at DESC")
	}

	if q.WithOwner {
		query = query.Preload("Owner")
	}

	var items []*entity.Item
	if err := query.Order("id DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FindAllInIDs loads the listed items matching where, in no particular order.
func (d *DefaultItemRepository) FindAllInIDs(ctx context.Context, ids []int64, where filter.Expr) ([]*entity.Item, error) {
	if len(ids) == 0 {
		return []*entity.Item{}, nil
	}

	var items []*entity.Item
	err := database.Conn(ctx, d.db).
		Model(&entity.Item{}).
		Where("items.id IN ?", ids).
		Scopes(database.Where(d.compiler, policy.TableItems, where)).
		Preload("Owner").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (d *DefaultItemRepository) Create(ctx context.Context, item *entity.Item) error {
	return database.Conn(ctx, d.db).Create(item).Error
}

// Save writes the metadata of an existing item. Counters are left alone, they
// only move through AddToCounter.
func (d *DefaultItemRepository) Save(ctx context.Context, item *entity.Item) error {
	return database.Conn(ctx, d.db).
		Model(item).
		Select("*").
		Omit(clause.Associations, "created_at", CounterLikes, CounterStocks, CounterViews).
		Updates(item).Error
}

// Delete removes the row. Deleting a missing row is not an error.
func (d *DefaultItemRepository) Delete(ctx context.Context, item *entity.Item) error {
	return database.Conn(ctx, d.db).Delete(item).Error
}

// AddToCounter shifts one denormalized counter of an item by delta.
func (d *DefaultItemRepository) AddToCounter(ctx context.Context, id int64, column string, delta int64) error {
	switch column {
	case CounterLikes, CounterStocks, CounterViews:
	default:
		return fmt.Errorf("unknown item counter %q", column)
	}

	return database.Conn(ctx, d.db).
		Model(&entity.Item{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}
