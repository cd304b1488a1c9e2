package service

import (
	"context"
	"testing"
	"time"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/utils/apierror"
	"circlenotes/cmd/internal/utils/uid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemService_ContainerMembershipScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")

	c1 := h.container(t, a, "circle_one", nil)
	item := h.post(t, a, "inside c1", "hello", &c1.ID)
	assert.Equal(t, string(entity.ItemStatusNormal), item.Status)

	got, apierr := h.items.GetItem(ctx, a, item.ID)
	require.Nil(t, apierr)
	assert.Equal(t, "hello", *got.Body)

	_, apierr = h.items.GetItem(ctx, b, item.ID)
	assert.Equal(t, apierror.NotFoundError, apierr)

	list, apierr := h.items.ListItems(ctx, b, &contract.ItemListQuery{ContainerID: c1.ID})
	require.Nil(t, apierr)
	assert.Empty(t, list.Data)

	membership, apierr := h.containers.Join(ctx, b, "circle_one")
	require.Nil(t, apierr)
	assert.Equal(t, string(entity.RoleMember), membership.Role)

	got, apierr = h.items.GetItem(ctx, b, item.ID)
	require.Nil(t, apierr)
	assert.Equal(t, "hello", *got.Body)

	list, apierr = h.items.ListItems(ctx, b, &contract.ItemListQuery{ContainerID: c1.ID})
	require.Nil(t, apierr)
	assert.Equal(t, []int64{item.ID}, responseIDs(list.Data))
}

func TestItemService_AnonymousReaders(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")

	loose := h.post(t, a, "public note", "for everyone", nil)
	c1 := h.container(t, a, "circle_one", nil)
	hidden := h.post(t, a, "members only", "secret", &c1.ID)

	got, apierr := h.items.GetItem(ctx, nil, loose.ID)
	require.Nil(t, apierr)
	assert.Equal(t, "for everyone", *got.Body)

	_, apierr = h.items.GetItem(ctx, nil, hidden.ID)
	assert.Equal(t, apierror.NotFoundError, apierr)

	list, apierr := h.items.ListItems(ctx, nil, &contract.ItemListQuery{})
	require.Nil(t, apierr)
	assert.Equal(t, []int64{loose.ID}, responseIDs(list.Data))
	assert.EqualValues(t, 1, list.Meta.Total)
}

func TestItemService_ModifyRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")

	item := h.post(t, a, "mine", "body", nil)

	_, apierr := h.items.UpdateItem(ctx, b, item.ID, &contract.UpdateItemRequest{Body: ptr("hijack")})
	assert.Equal(t, apierror.ForbiddenError, apierr)

	assert.Equal(t, apierror.ForbiddenError, h.items.DeleteItem(ctx, b, item.ID))

	_, apierr = h.items.UpdateItem(ctx, a, uid.Generate(), &contract.UpdateItemRequest{Body: ptr("x")})
	assert.Equal(t, apierror.NotFoundError, apierr)
}

func TestItemService_UpdateKeepsBodyWhenOmitted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")

	item := h.post(t, a, "old title", "unchanged body", nil)
	before := *h.stored(t, item.ID).Body.Published

	updated, apierr := h.items.UpdateItem(ctx, a, item.ID, &contract.UpdateItemRequest{
		Title: ptr("new title"),
		Tags:  []string{"Go", "Notes"},
	})
	require.Nil(t, apierr)
	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, []string{"go", "notes"}, updated.Tags)
	assert.Equal(t, "unchanged body", *updated.Body)
	assert.NotEqual(t, before, *h.stored(t, item.ID).Body.Published)
}

func TestItemService_UpdateMapsDependencyFailures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")

	item := h.post(t, a, "title", "body", nil)
	h.index.failUpsert = true

	_, apierr := h.items.UpdateItem(ctx, a, item.ID, &contract.UpdateItemRequest{Title: ptr("changed")})
	assert.Equal(t, apierror.DependencyWriteError, apierr)
	assert.Equal(t, "title", h.stored(t, item.ID).Title)
}

func TestItemService_FailedCreateLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	c1 := h.container(t, a, "circle_one", nil)

	h.index.failUpsert = true
	_, apierr := h.items.CreateItem(ctx, a, &contract.CreateItemRequest{
		Title:       "doomed",
		Body:        "never stored",
		ContainerID: &c1.ID,
	})
	assert.Equal(t, apierror.DependencyWriteError, apierr)
	assert.Zero(t, h.blobs.Len())

	h.index.failUpsert = false
	list, apierr := h.items.ListItems(ctx, a, &contract.ItemListQuery{ContainerID: c1.ID})
	require.Nil(t, apierr)
	assert.Empty(t, list.Data)
}

func TestItemService_SoftDeletedItemsDisappear(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")

	keep := h.post(t, a, "kept notebook", "shared words", nil)
	drop := h.post(t, a, "dropped notebook", "shared words", nil)

	require.ElementsMatch(t, []int64{keep.ID, drop.ID}, h.searchIDs(t, a, "notebook"))
	require.Nil(t, h.items.DeleteItem(ctx, a, drop.ID))

	assert.Equal(t, []int64{keep.ID}, h.searchIDs(t, a, "notebook"))

	list, apierr := h.items.ListItems(ctx, a, &contract.ItemListQuery{})
	require.Nil(t, apierr)
	assert.Equal(t, []int64{keep.ID}, responseIDs(list.Data))

	_, apierr = h.items.GetItem(ctx, a, drop.ID)
	assert.Equal(t, apierror.NotFoundError, apierr, "deleted items are not readable, even by owners")
	assert.Equal(t, entity.ItemStatusDeleted, h.stored(t, drop.ID).Status)
}

func TestItemService_SearchRanksTitleMatchesFirst(t *testing.T) {
	h := newHarness(t)
	a := h.user(t, "user_a")

	inBody := h.post(t, a, "unrelated", "a note about kubernetes", nil)
	inTitle := h.post(t, a, "kubernetes primer", "getting started", nil)

	assert.Equal(t, []int64{inTitle.ID, inBody.ID}, h.searchIDs(t, a, "Kubernetes"))
}

func TestItemService_SearchHidesUnreadableHits(t *testing.T) {
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")

	c1 := h.container(t, a, "circle_one", nil)
	visible := h.post(t, a, "open telescope", "x", nil)
	hidden := h.post(t, a, "hidden telescope", "x", &c1.ID)

	assert.ElementsMatch(t, []int64{visible.ID, hidden.ID}, h.searchIDs(t, a, "telescope"))
	assert.Equal(t, []int64{visible.ID}, h.searchIDs(t, b, "telescope"))
}

func TestItemService_SearchRejectsBlankQuery(t *testing.T) {
	h := newHarness(t)
	a := h.user(t, "user_a")

	_, apierr := h.items.SearchItems(context.Background(), a, &contract.SearchQuery{Q: "!!!"})
	assert.Equal(t, apierror.InvalidQueryError, apierr)
}

func TestItemService_DraftLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")

	draft, apierr := h.items.CreateDraft(ctx, a, &contract.DraftRequest{Title: ptr("wip"), Body: "first"})
	require.Nil(t, apierr)
	assert.Equal(t, string(entity.ItemStatusDraft), draft.Status)
	assert.True(t, draft.HasDraft)

	_, apierr = h.items.GetItem(ctx, b, draft.ID)
	assert.Equal(t, apierror.NotFoundError, apierr)
	assert.Empty(t, h.searchIDs(t, a, "first"))

	_, apierr = h.items.UpdateItem(ctx, a, draft.ID, &contract.UpdateItemRequest{Body: ptr("x")})
	assert.Equal(t, apierror.ItemIsDraftError, apierr)

	_, apierr = h.items.SaveDraft(ctx, a, draft.ID, &contract.DraftRequest{Title: ptr("final title"), Body: "second"})
	require.Nil(t, apierr)

	drafts, apierr := h.items.ListDrafts(ctx, a, &contract.PageQuery{})
	require.Nil(t, apierr)
	assert.Equal(t, []int64{draft.ID}, responseIDs(drafts.Data))

	got, apierr := h.items.GetDraft(ctx, a, draft.ID)
	require.Nil(t, apierr)
	assert.Equal(t, "second", *got.Body)
	assert.Equal(t, "final title", got.Title)

	published, apierr := h.items.Publish(ctx, a, draft.ID)
	require.Nil(t, apierr)
	assert.Equal(t, string(entity.ItemStatusNormal), published.Status)
	assert.False(t, published.HasDraft)
	assert.NotNil(t, published.PublishedAt)

	got, apierr = h.items.GetItem(ctx, b, draft.ID)
	require.Nil(t, apierr)
	assert.Equal(t, "second", *got.Body)
	assert.Equal(t, []int64{draft.ID}, h.searchIDs(t, b, "second"))

	_, apierr = h.items.Publish(ctx, a, draft.ID)
	assert.Equal(t, apierror.NotADraftError, apierr)

	drafts, apierr = h.items.ListDrafts(ctx, a, &contract.PageQuery{})
	require.Nil(t, apierr)
	assert.Empty(t, drafts.Data)
}

func TestItemService_DraftOfPublishedItemKeepsMetadata(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")

	item := h.post(t, a, "stable title", "live body", nil)

	_, apierr := h.items.SaveDraft(ctx, a, item.ID, &contract.DraftRequest{Title: ptr("ignored"), Body: "next body"})
	require.Nil(t, apierr)

	got, apierr := h.items.GetItem(ctx, a, item.ID)
	require.Nil(t, apierr)
	assert.Equal(t, "stable title", got.Title)
	assert.Equal(t, "live body", *got.Body)
	assert.True(t, got.HasDraft)

	_, apierr = h.items.Publish(ctx, a, item.ID)
	require.Nil(t, apierr)

	got, apierr = h.items.GetItem(ctx, a, item.ID)
	require.Nil(t, apierr)
	assert.Equal(t, "next body", *got.Body)
}

func TestItemService_ApprovalContainerHoldsItems(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")

	c := h.container(t, a, "moderated", func(r *contract.CreateContainerRequest) {
		r.Type = string(entity.ContainerTypePublic)
		r.WriteCondition = string(entity.ConditionRequireAdminApproval)
	})

	item := h.post(t, a, "awaiting review", "pending words", &c.ID)
	assert.Equal(t, string(entity.ItemStatusPendingApproval), item.Status)
	assert.Nil(t, item.PublishedAt)
	assert.Empty(t, h.searchIDs(t, a, "pending"))

	got, apierr := h.items.GetItem(ctx, a, item.ID)
	require.Nil(t, apierr)
	assert.Equal(t, "pending words", *got.Body)

	_, apierr = h.items.GetItem(ctx, b, item.ID)
	assert.Equal(t, apierror.NotFoundError, apierr)
}

func TestItemService_CreateInContainerRequiresWriteAccess(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")
	c1 := h.container(t, a, "circle_one", nil)

	_, apierr := h.items.CreateItem(ctx, b, &contract.CreateItemRequest{Title: "intruder", Body: "x", ContainerID: &c1.ID})
	assert.Equal(t, apierror.ForbiddenError, apierr)

	_, apierr = h.items.CreateItem(ctx, b, &contract.CreateItemRequest{Title: "lost", Body: "x", ContainerID: ptr(uid.Generate())})
	assert.Equal(t, apierror.NotFoundError, apierr)
}

func TestItemService_CreateValidatesInput(t *testing.T) {
	h := newHarness(t)
	a := h.user(t, "user_a")

	_, apierr := h.items.CreateItem(context.Background(), a, &contract.CreateItemRequest{Title: "", Body: "x"})
	require.NotNil(t, apierr)
	assert.Equal(t, 400, apierr.Code())

	readOnly := h.user(t, "reader")
	readOnly.Permissions = 0
	_, apierr = h.items.CreateItem(context.Background(), readOnly, &contract.CreateItemRequest{Title: "t", Body: "x"})
	require.NotNil(t, apierr)
	assert.Equal(t, 403, apierr.Code())
}

func TestItemService_ViewsCountForOtherReaders(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")

	item := h.post(t, a, "popular", "body", nil)

	_, apierr := h.items.GetItem(ctx, a, item.ID)
	require.Nil(t, apierr)
	assert.Zero(t, h.stored(t, item.ID).AccessCount, "owners do not count")

	got, apierr := h.items.GetItem(ctx, b, item.ID)
	require.Nil(t, apierr)
	assert.EqualValues(t, 1, got.AccessCount)

	_, apierr = h.items.GetItem(ctx, nil, item.ID)
	require.Nil(t, apierr)
	assert.EqualValues(t, 2, h.stored(t, item.ID).AccessCount)

	top, err := h.ranks.Top(ctx, DailyKey(SignalViews, h.trending.now()), 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, uid.Format(item.ID), top[0].Member)
	assert.Equal(t, 2.0, top[0].Score)
}

func TestItemService_PurgeIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	admin := h.user(t, "admin")
	admin.Permissions = entity.PermissionsFromGroups([]string{entity.GroupAdministrators})

	item := h.post(t, a, "to purge", "x", nil)

	apierr := h.items.PurgeItem(ctx, a, item.ID)
	require.NotNil(t, apierr)
	assert.Equal(t, 403, apierr.Code())

	require.Nil(t, h.items.PurgeItem(ctx, admin, item.ID))
	assert.Nil(t, h.stored(t, item.ID))
}

func TestItemService_NotifiesOwnerSessions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	notifier := &recordingNotifier{}
	h.items.Notifier = notifier
	a := h.user(t, "user_a")

	item := h.post(t, a, "announced", "x", nil)
	require.Nil(t, h.items.DeleteItem(ctx, a, item.ID))

	assert.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.events) == 2
	}, time.Second, 5*time.Millisecond)
}
