package service

import (
	"context"
	"testing"

	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/infrastructure/aws/storage"
	"circlenotes/cmd/internal/infrastructure/search"
	"circlenotes/cmd/internal/utils/uid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItem(owner *entity.User, title string) *entity.Item {
	return &entity.Item{
		ID:      uid.Generate(),
		OwnerID: owner.ID,
		Title:   title,
		Status:  entity.ItemStatusNormal,
	}
}

func TestItemPipeline_RoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")

	item := newItem(owner, "greeting")
	require.NoError(t, h.pipeline.Create(ctx, item, "hello"))

	body, err := h.pipeline.ReadBody(ctx, item, false)
	require.NoError(t, err)
	assert.Equal(t, "hello", body)
	assert.NotNil(t, item.PublishedAt)

	oldRef := *item.Body.Published
	require.NoError(t, h.pipeline.Update(ctx, item, "world"))

	body, err = h.pipeline.ReadBody(ctx, item, false)
	require.NoError(t, err)
	assert.Equal(t, "world", body)
	assert.NotEqual(t, oldRef, *item.Body.Published)

	stored := h.stored(t, item.ID)
	require.NotNil(t, stored.Body.Published)
	assert.Equal(t, *item.Body.Published, *stored.Body.Published)
	assert.Nil(t, stored.Body.Draft)

	// The previous version stays behind as an inert blob.
	old, err := h.blobs.Get(ctx, storage.ContainerItems, entity.BlobName(item.ID, oldRef))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(old))
}

func TestItemPipeline_CreateIndexesPublishedItems(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")

	item := newItem(owner, "Gardening notes")
	require.NoError(t, h.pipeline.Create(ctx, item, "tomatoes and basil"))

	hits, err := h.index.Search(ctx, search.IndexItems, search.Query{Text: "basil", Fields: ItemSearchFields})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uid.Format(item.ID), hits[0].ID)
}

func TestItemPipeline_CreateFailsWhenIndexFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")
	h.index.failUpsert = true

	item := newItem(owner, "lost")
	err := h.pipeline.Create(ctx, item, "body")

	var depErr *DependencyWriteError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, StoreSearch, depErr.Store)
	assert.Nil(t, h.stored(t, item.ID), "metadata must not stay committed")
	assert.Zero(t, h.blobs.Len(), "uploaded blob must be discarded")
}

func TestItemPipeline_CreateFailsWhenUpsertIsUnconfirmed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")
	h.index.unconfirmed = true

	item := newItem(owner, "lost")
	err := h.pipeline.Create(ctx, item, "body")

	var depErr *DependencyWriteError
	require.ErrorAs(t, err, &depErr)
	assert.ErrorIs(t, err, errUnconfirmedUpsert)
	assert.Nil(t, h.stored(t, item.ID))
	assert.Zero(t, h.blobs.Len())
}

func TestItemPipeline_UpdateFailureRestoresItem(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")

	item := newItem(owner, "first")
	require.NoError(t, h.pipeline.Create(ctx, item, "v1"))
	ref := *item.Body.Published

	h.index.failUpsert = true
	item.Title = "second"
	err := h.pipeline.Update(ctx, item, "v2")
	require.Error(t, err)

	assert.Equal(t, "first", item.Title)
	assert.Equal(t, ref, *item.Body.Published)

	stored := h.stored(t, item.ID)
	assert.Equal(t, "first", stored.Title)
	assert.Equal(t, ref, *stored.Body.Published)
	assert.Equal(t, 1, h.blobs.Len(), "the new version blob must be discarded")

	body, err := h.pipeline.ReadBody(ctx, stored, false)
	require.NoError(t, err)
	assert.Equal(t, "v1", body)
}

func TestItemPipeline_WritesKeepCounters(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.user(t, "user_a")
	b := h.user(t, "user_b")
	posted := h.post(t, a, "counted", "v1", nil)

	stale := h.stored(t, posted.ID)
	require.Zero(t, stale.LikeCount)

	_, apierr := h.interactions.Like(ctx, b, posted.ID)
	require.Nil(t, apierr)
	_, apierr = h.interactions.Stock(ctx, b, posted.ID)
	require.Nil(t, apierr)

	stale.Title = "recounted"
	require.NoError(t, h.pipeline.Update(ctx, stale, "v2"))

	stored := h.stored(t, posted.ID)
	assert.Equal(t, "recounted", stored.Title)
	assert.EqualValues(t, 1, stored.LikeCount)
	assert.EqualValues(t, 1, stored.StockCount)

	require.NoError(t, h.pipeline.UpdateDraft(ctx, stale, "v3"))
	require.NoError(t, h.pipeline.Publish(ctx, stale))

	stored = h.stored(t, posted.ID)
	assert.EqualValues(t, 1, stored.LikeCount)
	assert.EqualValues(t, 1, stored.StockCount)
	assert.Equal(t, stored.CreatedAt, stale.CreatedAt)
}

func TestItemPipeline_DraftsReuseTheirPointer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")

	item := newItem(owner, "wip")
	require.NoError(t, h.pipeline.CreateDraft(ctx, item, "one"))
	require.NotNil(t, item.Body.Draft)
	ref := *item.Body.Draft

	require.NoError(t, h.pipeline.UpdateDraft(ctx, item, "two"))
	require.NoError(t, h.pipeline.UpdateDraft(ctx, item, "three"))

	assert.Equal(t, ref, *item.Body.Draft)
	assert.Equal(t, 1, h.blobs.Len())
	assert.Zero(t, h.index.Count(search.IndexItems), "drafts are never indexed")

	body, err := h.pipeline.ReadBody(ctx, item, true)
	require.NoError(t, err)
	assert.Equal(t, "three", body)
}

func TestItemPipeline_PublishPromotesDraft(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")

	item := newItem(owner, "wip")
	require.NoError(t, h.pipeline.CreateDraft(ctx, item, "draft body"))
	draftRef := *item.Body.Draft

	item.Status = entity.ItemStatusNormal
	require.NoError(t, h.pipeline.Publish(ctx, item))

	assert.Equal(t, draftRef, *item.Body.Published)
	assert.Nil(t, item.Body.Draft)
	assert.NotNil(t, item.PublishedAt)
	assert.Equal(t, 1, h.index.Count(search.IndexItems))

	assert.ErrorIs(t, h.pipeline.Publish(ctx, item), ErrNoDraft)
}

func TestItemPipeline_PublishedItemKeepsBodyWhileDrafting(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")

	item := newItem(owner, "live")
	require.NoError(t, h.pipeline.Create(ctx, item, "published"))
	require.NoError(t, h.pipeline.UpdateDraft(ctx, item, "pending edit"))

	body, err := h.pipeline.ReadBody(ctx, item, false)
	require.NoError(t, err)
	assert.Equal(t, "published", body)

	draft, err := h.pipeline.ReadBody(ctx, item, true)
	require.NoError(t, err)
	assert.Equal(t, "pending edit", draft)
}

func TestItemPipeline_SoftRemove(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")

	item := newItem(owner, "bye")
	require.NoError(t, h.pipeline.Create(ctx, item, "content"))

	removed, err := h.pipeline.SoftRemove(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ItemStatusDeleted, removed.Status)

	stored := h.stored(t, item.ID)
	require.NotNil(t, stored, "the row persists")
	assert.Equal(t, entity.ItemStatusDeleted, stored.Status)
	assert.Zero(t, h.index.Count(search.IndexItems))
	assert.Equal(t, 1, h.blobs.Len(), "blobs are retained")

	_, err = h.pipeline.SoftRemove(ctx, uid.Generate())
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestItemPipeline_SoftRemoveRollsBackWhenIndexFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")

	item := newItem(owner, "stays")
	require.NoError(t, h.pipeline.Create(ctx, item, "content"))

	h.index.failDelete = true
	_, err := h.pipeline.SoftRemove(ctx, item.ID)

	var depErr *DependencyWriteError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, entity.ItemStatusNormal, h.stored(t, item.ID).Status)
}

func TestItemPipeline_RemoveAndPurge(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")

	item := newItem(owner, "gone")
	require.NoError(t, h.pipeline.Create(ctx, item, "v1"))
	require.NoError(t, h.pipeline.Update(ctx, item, "v2"))

	_, err := h.pipeline.PurgeBlobs(ctx, item.ID)
	assert.ErrorIs(t, err, ErrItemIsLive)

	require.NoError(t, h.pipeline.Remove(ctx, item.ID))
	assert.Nil(t, h.stored(t, item.ID))
	assert.Zero(t, h.index.Count(search.IndexItems))
	assert.Equal(t, 2, h.blobs.Len(), "hard delete leaves blobs to the purge")

	n, err := h.pipeline.PurgeBlobs(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, h.blobs.Len())

	assert.ErrorIs(t, h.pipeline.Remove(ctx, item.ID), ErrItemNotFound)
}

func TestItemPipeline_ReadBodyReportsMissingBlob(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "alice")

	item := newItem(owner, "broken")
	require.NoError(t, h.pipeline.Create(ctx, item, "content"))
	require.NoError(t, h.blobs.Delete(ctx, storage.ContainerItems, entity.BlobName(item.ID, *item.Body.Published)))

	_, err := h.pipeline.ReadBody(ctx, item, false)
	assert.ErrorIs(t, err, ErrBodyMissing)

	_, err = h.pipeline.ReadBody(ctx, item, true)
	assert.ErrorIs(t, err, ErrBodyMissing)
}
