package policy

import (
	"fmt"
	"testing"

	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/filter"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	ownerID    int64 = 100
	adminID    int64 = 200
	memberID   int64 = 300
	pendingID  int64 = 400
	strangerID int64 = 500
)

type grid struct {
	db          *gorm.DB
	items       []*entity.Item
	containers  map[int64]*entity.Container
	memberships []*entity.Membership
	users       []*entity.User
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&entity.User{}, &entity.Container{}, &entity.Membership{}, &entity.Item{}))
	return db
}

func buildGrid(t *testing.T) *grid {
	g := &grid{db: openDB(t), containers: map[int64]*entity.Container{}}

	for _, id := range []int64{ownerID, adminID, memberID, pendingID, strangerID} {
		g.users = append(g.users, &entity.User{ID: id, Subject: fmt.Sprint(id), Status: entity.UserStatusActive})
	}
	require.NoError(t, g.db.Create(g.users).Error)
	g.users = append(g.users, nil)

	var containerIDs []*int64
	containerIDs = append(containerIDs, nil)

	next := int64(1)
	for _, typ := range []entity.ContainerType{entity.ContainerTypeOpen, entity.ContainerTypePublic, entity.ContainerTypePrivate} {
		for _, perm := range []entity.AccessLevel{entity.AccessAdmin, entity.AccessMember, entity.AccessAll} {
			for _, status := range []entity.ContainerStatus{entity.ContainerStatusActive, entity.ContainerStatusDeleted} {
				id := next
				next++
				c := &entity.Container{
					ID:              id,
					Name:            fmt.Sprintf("c%d", id),
					Status:          status,
					Type:            typ,
					ReadPermission:  perm,
					WritePermission: perm,
					WriteCondition:  entity.ConditionAllowed,
					JoinCondition:   entity.ConditionAllowed,
					CreatedByID:     adminID,
				}
				require.NoError(t, g.db.Create(c).Error)
				g.containers[id] = c
				containerIDs = append(containerIDs, &c.ID)

				for uid, role := range map[int64]entity.Role{
					adminID:   entity.RoleAdmin,
					memberID:  entity.RoleMember,
					pendingID: entity.RolePendingApproval,
				} {
					m := &entity.Membership{ID: next*1000 + uid, UserID: uid, ContainerID: id, Role: role}
					require.NoError(t, g.db.Create(m).Error)
					g.memberships = append(g.memberships, m)
				}
			}
		}
	}

	itemID := int64(1)
	for _, cid := range containerIDs {
		for _, status := range []entity.ItemStatus{
			entity.ItemStatusNormal,
			entity.ItemStatusDeleted,
			entity.ItemStatusDraft,
			entity.ItemStatusPendingApproval,
		} {
			item := &entity.Item{
				ID:          itemID,
				OwnerID:     ownerID,
				ContainerID: cid,
				Title:       fmt.Sprintf("item %d", itemID),
				Status:      status,
			}
			itemID++
			require.NoError(t, g.db.Create(item).Error)
			g.items = append(g.items, item)
		}
	}
	return g
}

func (g *grid) view(item *entity.Item, viewer *entity.User) *ItemView {
	view := &ItemView{Item: item}
	if item.ContainerID == nil {
		return view
	}

	view.Container = g.containers[*item.ContainerID]
	for _, m := range g.memberships {
		if m.ContainerID == *item.ContainerID && viewer != nil && m.UserID == viewer.ID {
			view.Memberships = append(view.Memberships, m)
		}
	}
	return view
}

func (g *grid) queryIDs(t *testing.T, expr filter.Expr) map[int64]bool {
	sql, vars, err := NewCompiler().Compile(TableItems, expr)
	require.NoError(t, err)

	var ids []int64
	require.NoError(t, g.db.Model(&entity.Item{}).Where(sql, vars...).Pluck("id", &ids).Error)

	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func label(u *entity.User) string {
	if u == nil {
		return "anonymous"
	}
	return fmt.Sprint(u.ID)
}

func TestVisibility_MemoryAndStoreAgree(t *testing.T) {
	g := buildGrid(t)

	for _, user := range g.users {
		for name, build := range map[string]func(*entity.User) filter.Expr{
			"visibility": Visibility,
			"readable":   ReadableBy,
		} {
			expr := build(user)
			stored := g.queryIDs(t, expr)

			for _, item := range g.items {
				inMemory := filter.Eval(expr, g.view(item, user))
				assert.Equal(t, inMemory, stored[item.ID],
					"%s: user %s item %d (container %v, status %s)",
					name, label(user), item.ID, item.ContainerID, item.Status)
			}
		}
	}
}

// isVisible restates the read rule row by row for active containers.
func isVisible(user *entity.User, item *entity.Item, c *entity.Container, role entity.Role) bool {
	if user != nil && user.ID == item.OwnerID {
		return true
	}
	if c == nil {
		return item.Status == entity.ItemStatusNormal
	}
	switch {
	case c.ReadPermission == entity.AccessAll:
		return true
	case c.ReadPermission == entity.AccessMember && (role == entity.RoleAdmin || role == entity.RoleMember):
		return true
	case c.ReadPermission == entity.AccessAdmin && role == entity.RoleAdmin:
		return true
	}
	return c.Type == entity.ContainerTypeOpen || c.Type == entity.ContainerTypePublic
}

func TestVisibility_MatchesReadRule(t *testing.T) {
	g := buildGrid(t)

	for _, user := range g.users {
		stored := g.queryIDs(t, Visibility(user))

		for _, item := range g.items {
			view := g.view(item, user)
			if view.Container != nil && !view.Container.IsActive() {
				continue
			}

			var role entity.Role
			if len(view.Memberships) > 0 {
				role = view.Memberships[0].Role
			}

			want := isVisible(user, item, view.Container, role)
			assert.Equal(t, want, stored[item.ID], "user %s item %d", label(user), item.ID)
		}
	}
}

func TestReadableBy_Lifecycle(t *testing.T) {
	owner := &entity.User{ID: ownerID}
	stranger := &entity.User{ID: strangerID}

	for _, tt := range []struct {
		status   entity.ItemStatus
		owner    bool
		stranger bool
	}{
		{entity.ItemStatusNormal, true, true},
		{entity.ItemStatusDraft, true, false},
		{entity.ItemStatusPendingApproval, true, false},
		{entity.ItemStatusDeleted, false, false},
	} {
		view := &ItemView{Item: &entity.Item{ID: 1, OwnerID: ownerID, Status: tt.status}}
		assert.Equal(t, tt.owner, filter.Eval(ReadableBy(owner), view), "owner %s", tt.status)
		assert.Equal(t, tt.stranger, filter.Eval(ReadableBy(stranger), view), "stranger %s", tt.status)
	}
}
