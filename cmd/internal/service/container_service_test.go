package service

import (
	"context"
	"testing"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/utils/apierror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerService_CreateContainer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")

	c := h.container(t, a, "book_club", nil)
	assert.Equal(t, "book_club", *c.Handle)
	assert.Equal(t, string(entity.ConditionAllowed), c.WriteCondition)
	assert.Equal(t, string(entity.ConditionAllowed), c.JoinCondition)
	assert.Equal(t, a.ID, c.CreatedByID)

	members, apierr := h.containers.ListMembers(ctx, a, "book_club", &contract.PageQuery{})
	require.Nil(t, apierr)
	require.Len(t, members.Data, 1)
	assert.Equal(t, string(entity.RoleAdmin), members.Data[0].Role)

	_, apierr = h.containers.CreateContainer(ctx, b, &contract.CreateContainerRequest{
		Handle:          "book_club",
		Name:            "Another club",
		Type:            string(entity.ContainerTypeOpen),
		ReadPermission:  string(entity.AccessAll),
		WritePermission: string(entity.AccessAll),
	})
	assert.Equal(t, apierror.HandleTakenError, apierr)
}

// unseenHandles reports every handle as free, leaving uniqueness to the
// database constraint.
type unseenHandles struct {
	ContainerRepository
}

func (unseenHandles) HandleExists(context.Context, string) (bool, error) {
	return false, nil
}

func TestContainerService_CreateContainerHandleRace(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")
	h.container(t, a, "book_club", nil)

	h.containers.Access.ContainerRepo = unseenHandles{h.containers.Access.ContainerRepo}

	_, apierr := h.containers.CreateContainer(ctx, b, &contract.CreateContainerRequest{
		Handle:          "book_club",
		Name:            "Another club",
		Type:            string(entity.ContainerTypeOpen),
		ReadPermission:  string(entity.AccessAll),
		WritePermission: string(entity.AccessAll),
	})
	assert.Equal(t, apierror.HandleTakenError, apierr)

	var memberships int64
	require.NoError(t, h.db.Model(&entity.Membership{}).Where("user_id = ?", b.ID).Count(&memberships).Error)
	assert.Zero(t, memberships)
}

func TestContainerService_CreateContainerChecksInput(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")

	_, apierr := h.containers.CreateContainer(ctx, a, &contract.CreateContainerRequest{
		Handle:          "Not A Handle",
		Name:            "x",
		Type:            "SECRET",
		ReadPermission:  string(entity.AccessAll),
		WritePermission: string(entity.AccessAll),
	})
	require.NotNil(t, apierr)
	assert.Equal(t, 400, apierr.Code())

	a.Permissions = a.Permissions.Remove(entity.PermissionCreateContainers)
	_, apierr = h.containers.CreateContainer(ctx, a, &contract.CreateContainerRequest{
		Handle:          "valid_handle",
		Name:            "Valid",
		Type:            string(entity.ContainerTypeOpen),
		ReadPermission:  string(entity.AccessAll),
		WritePermission: string(entity.AccessAll),
	})
	require.NotNil(t, apierr)
	assert.Equal(t, 403, apierr.Code())
}

func TestContainerService_JoinConditions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")

	h.container(t, a, "allowed", nil)
	h.container(t, a, "approval", func(r *contract.CreateContainerRequest) {
		r.JoinCondition = string(entity.ConditionRequireAdminApproval)
	})
	h.container(t, a, "denied", func(r *contract.CreateContainerRequest) {
		r.JoinCondition = string(entity.ConditionDenied)
	})

	tests := []struct {
		handle string
		role   entity.Role
		err    apierror.ErrorResponse
	}{
		{handle: "allowed", role: entity.RoleMember},
		{handle: "approval", role: entity.RolePendingApproval},
		{handle: "denied", err: apierror.JoinDeniedError},
		{handle: "missing", err: apierror.NotFoundError},
	}

	for _, tt := range tests {
		t.Run(tt.handle, func(t *testing.T) {
			resp, apierr := h.containers.Join(ctx, b, tt.handle)
			if tt.err != nil {
				assert.Equal(t, tt.err, apierr)
				return
			}

			require.Nil(t, apierr)
			assert.Equal(t, string(tt.role), resp.Role)

			again, apierr := h.containers.Join(ctx, b, tt.handle)
			require.Nil(t, apierr)
			assert.Equal(t, resp, again, "joining twice keeps the first membership")
		})
	}
}

func TestContainerService_PendingMembersCannotRead(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")

	c := h.container(t, a, "approval", func(r *contract.CreateContainerRequest) {
		r.JoinCondition = string(entity.ConditionRequireAdminApproval)
	})
	item := h.post(t, a, "members only", "x", &c.ID)

	_, apierr := h.containers.Join(ctx, b, "approval")
	require.Nil(t, apierr)

	_, apierr = h.containers.ListMembers(ctx, b, "approval", &contract.PageQuery{})
	assert.Equal(t, apierror.ForbiddenError, apierr)

	_, apierr = h.items.GetItem(ctx, b, item.ID)
	assert.Equal(t, apierror.NotFoundError, apierr)

	_, apierr = h.items.CreateItem(ctx, b, &contract.CreateItemRequest{Title: "t", Body: "x", ContainerID: &c.ID})
	assert.Equal(t, apierror.ForbiddenError, apierr)
}

func TestContainerService_Leave(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")
	h.container(t, a, "circle_one", nil)

	assert.Equal(t, apierror.LastAdminError, h.containers.Leave(ctx, a, "circle_one"))

	_, apierr := h.containers.Join(ctx, b, "circle_one")
	require.Nil(t, apierr)
	require.Nil(t, h.containers.Leave(ctx, b, "circle_one"))
	require.Nil(t, h.containers.Leave(ctx, b, "circle_one"), "leaving without a membership is a no-op")

	members, apierr := h.containers.ListMembers(ctx, a, "circle_one", &contract.PageQuery{})
	require.Nil(t, apierr)
	assert.EqualValues(t, 1, members.Meta.Total)
}

func TestContainerService_DeleteContainer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")

	c := h.container(t, a, "short_lived", nil)
	item := h.post(t, a, "inside", "kept for the owner", &c.ID)
	_, apierr := h.containers.Join(ctx, b, "short_lived")
	require.Nil(t, apierr)

	_, apierr = h.items.GetItem(ctx, b, item.ID)
	require.Nil(t, apierr)

	assert.Equal(t, apierror.ForbiddenError, h.containers.DeleteContainer(ctx, b, "short_lived"))
	require.Nil(t, h.containers.DeleteContainer(ctx, a, "short_lived"))

	_, apierr = h.containers.GetContainer(ctx, a, "short_lived")
	assert.Equal(t, apierror.NotFoundError, apierr)

	list, apierr := h.containers.ListContainers(ctx, &contract.PageQuery{})
	require.Nil(t, apierr)
	assert.Empty(t, list.Data)

	got, apierr := h.items.GetItem(ctx, a, item.ID)
	require.Nil(t, apierr)
	assert.Equal(t, "kept for the owner", *got.Body)

	_, apierr = h.items.GetItem(ctx, b, item.ID)
	assert.Equal(t, apierror.NotFoundError, apierr)

	reused := h.container(t, b, "short_lived", nil)
	assert.NotEqual(t, c.ID, reused.ID)
}

func TestContainerService_OpenContainersAreBrowsable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")

	c := h.container(t, a, "town_square", func(r *contract.CreateContainerRequest) {
		r.Type = string(entity.ContainerTypeOpen)
		r.ReadPermission = string(entity.AccessAdmin)
		r.WritePermission = string(entity.AccessAll)
	})

	item := h.post(t, a, "announcement", "x", &c.ID)
	_, apierr := h.items.GetItem(ctx, nil, item.ID)
	require.Nil(t, apierr)

	_, apierr = h.containers.ListMembers(ctx, b, "town_square", &contract.PageQuery{})
	require.Nil(t, apierr)

	posted := h.post(t, b, "reply", "y", &c.ID)
	assert.Equal(t, string(entity.ItemStatusNormal), posted.Status)
}
