package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/database"
	"circlenotes/cmd/internal/domain/database/repository"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/events"
	"circlenotes/cmd/internal/domain/policy"
	"circlenotes/cmd/internal/infrastructure/aws/storage"
	"circlenotes/cmd/internal/infrastructure/ranking"
	"circlenotes/cmd/internal/infrastructure/search"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/uid"
	"circlenotes/cmd/internal/utils/validators"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	uid.Init(1)
	os.Exit(m.Run())
}

// flakyIndex fails upserts on demand.
type flakyIndex struct {
	*search.MemoryIndex
	failUpsert  bool
	unconfirmed bool
	failDelete  bool
}

func (f *flakyIndex) Upsert(ctx context.Context, index, id string, doc search.Document) (search.UpsertResult, error) {
	if f.failUpsert {
		return "", errors.New("index unavailable")
	}
	if f.unconfirmed {
		return "", nil
	}
	return f.MemoryIndex.Upsert(ctx, index, id, doc)
}

func (f *flakyIndex) Delete(ctx context.Context, index, id string) error {
	if f.failDelete {
		return errors.New("index unavailable")
	}
	return f.MemoryIndex.Delete(ctx, index, id)
}

// recordingNotifier keeps dispatched events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []events.SocketEvent
}

func (r *recordingNotifier) Dispatch(_ context.Context, _ int64, evt events.SocketEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

type harness struct {
	db    *gorm.DB
	blobs *storage.MemoryStore
	index *flakyIndex
	ranks *ranking.MemoryStore

	userRepo *repository.DefaultUserRepository
	itemRepo *repository.DefaultItemRepository

	pipeline     *ItemPipeline
	trending     *TrendingService
	items        *DefaultItemService
	containers   *DefaultContainerService
	interactions *DefaultInteractionService
	identity     *IdentityService
	users        *DefaultUserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	h := &harness{
		db:    db,
		blobs: storage.NewMemoryStore(),
		index: &flakyIndex{MemoryIndex: search.NewMemoryIndex()},
		ranks: ranking.NewMemoryStore(),
	}

	compiler := policy.NewCompiler()
	tx := database.NewTransactor(db)
	validate := validators.New()

	h.userRepo = repository.NewUserRepository(db)
	h.itemRepo = repository.NewItemRepository(db, compiler)
	access := NewContainerAccess(
		repository.NewContainerRepository(db, compiler),
		repository.NewMembershipRepository(db),
	)

	h.pipeline = NewItemPipeline(h.itemRepo, tx, h.blobs, h.index)
	h.trending = NewTrendingService(h.ranks, h.itemRepo)
	h.items = NewItemService(h.itemRepo, access, h.pipeline, h.index, h.trending, nil, validate)
	h.containers = NewContainerService(access, tx, validate)
	h.interactions = NewInteractionService(
		h.itemRepo,
		h.userRepo,
		repository.NewLikeRepository(db),
		repository.NewStockRepository(db),
		repository.NewFollowRepository(db),
		tx,
		h.trending,
		validate,
	)
	h.identity = NewIdentityService(h.userRepo, nil)
	h.users = NewUserService(h.userRepo, h.identity, nil, validate)
	return h
}

func (h *harness) user(t *testing.T, handle string) *entity.User {
	t.Helper()

	now := utils.NowUTC()
	u := &entity.User{
		ID:          uid.Generate(),
		Subject:     "sub-" + handle,
		Handle:      &handle,
		DisplayName: handle,
		Status:      entity.UserStatusActive,
		Permissions: entity.DefaultPermissions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, h.db.Create(u).Error)
	return u
}

func (h *harness) container(t *testing.T, owner *entity.User, handle string, mutate func(*contract.CreateContainerRequest)) *contract.ContainerResponse {
	t.Helper()

	req := &contract.CreateContainerRequest{
		Handle:          handle,
		Name:            "Circle " + handle,
		Type:            string(entity.ContainerTypePrivate),
		ReadPermission:  string(entity.AccessMember),
		WritePermission: string(entity.AccessMember),
	}
	if mutate != nil {
		mutate(req)
	}

	resp, apierr := h.containers.CreateContainer(context.Background(), owner, req)
	require.Nil(t, apierr)
	return resp
}

func (h *harness) post(t *testing.T, owner *entity.User, title, body string, containerID *int64) *contract.ItemResponse {
	t.Helper()

	resp, apierr := h.items.CreateItem(context.Background(), owner, &contract.CreateItemRequest{
		Title:       title,
		Body:        body,
		ContainerID: containerID,
	})
	require.Nil(t, apierr)
	return resp
}

func (h *harness) stored(t *testing.T, id int64) *entity.Item {
	t.Helper()

	item, err := h.itemRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return item
}

func (h *harness) searchIDs(t *testing.T, actor *entity.User, q string) []int64 {
	t.Helper()

	page, apierr := h.items.SearchItems(context.Background(), actor, &contract.SearchQuery{Q: q})
	require.Nil(t, apierr)
	return responseIDs(page.Data)
}

func responseIDs(items []*contract.ItemResponse) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func ptr[T any](v T) *T {
	return &v
}
