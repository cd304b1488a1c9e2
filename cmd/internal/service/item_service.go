package service

import (
	"context"
	"errors"
	"strconv"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/database/repository"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/events"
	"circlenotes/cmd/internal/domain/filter"
	"circlenotes/cmd/internal/domain/policy"
	"circlenotes/cmd/internal/infrastructure/search"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"
	"circlenotes/cmd/internal/utils/uid"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

// ItemSearchFields weighs title matches above tags and tags above the body.
var ItemSearchFields = []search.FieldBoost{
	{Field: "title", Boost: 3},
	{Field: "tags", Boost: 2},
	{Field: "body", Boost: 1},
}

type ItemRepository interface {
	FindView(ctx context.Context, id int64, viewerID int64) (*policy.ItemView, error)
	FindAll(ctx context.Context, q repository.ItemQuery) ([]*entity.Item, int64, error)
	FindAllInIDs(ctx context.Context, ids []int64, where filter.Expr) ([]*entity.Item, error)
	AddToCounter(ctx context.Context, id int64, column string, delta int64) error
}

type DefaultItemService struct {
	ItemRepo        ItemRepository
	Containers      *ContainerAccess
	Pipeline        *ItemPipeline
	Index           search.Index
	Trending        *TrendingService
	Notifier        Notifier
	ItemPolicy      *policy.ItemPolicy
	ContainerPolicy *policy.ContainerPolicy
	Validate        *validator.Validate
}

func NewItemService(
	itemRepo ItemRepository,
	containers *ContainerAccess,
	pipeline *ItemPipeline,
	index search.Index,
	trending *TrendingService,
	notifier Notifier,
	validate *validator.Validate,
) *DefaultItemService {
	return &DefaultItemService{
		ItemRepo:        itemRepo,
		Containers:      containers,
		Pipeline:        pipeline,
		Index:           index,
		Trending:        trending,
		Notifier:        notifier,
		ItemPolicy:      policy.NewItemPolicy(),
		ContainerPolicy: policy.NewContainerPolicy(),
		Validate:        validate,
	}
}

// GetItem returns the item with the body its reader resolves to. Reads of
// published items by anyone but the owner are counted.
func (s *DefaultItemService) GetItem(ctx context.Context, actor *entity.User, id int64) (*contract.ItemResponse, apierror.ErrorResponse) {
	view, apierr := s.loadView(ctx, actor, id)
	if apierr != nil {
		return nil, apierr
	}

	item := view.Item
	body, err := s.Pipeline.ReadBody(ctx, item, false)
	if err != nil {
		return nil, pipelineError("read body", id, err)
	}

	if item.Status == entity.ItemStatusNormal && !item.IsOwnedBy(actor) {
		s.countView(ctx, item)
	}
	return toItemResponse(item, &body), nil
}

// GetDraft returns the pending draft body of one of the actor's items.
func (s *DefaultItemService) GetDraft(ctx context.Context, actor *entity.User, id int64) (*contract.ItemResponse, apierror.ErrorResponse) {
	view, apierr := s.loadView(ctx, actor, id)
	if apierr != nil {
		return nil, apierr
	}

	if apierr := s.ItemPolicy.CanModify(view, actor); apierr != nil {
		return nil, apierr
	}

	if view.Item.Body.Draft == nil {
		return nil, apierror.NotADraftError
	}

	body, err := s.Pipeline.ReadBody(ctx, view.Item, true)
	if err != nil {
		return nil, pipelineError("read draft", id, err)
	}
	return toItemResponse(view.Item, &body), nil
}

func (s *DefaultItemService) ListItems(ctx context.Context, actor *entity.User, q *contract.ItemListQuery) (*contract.Page[*contract.ItemResponse], apierror.ErrorResponse) {
	if valerr := s.Validate.Struct(q); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	where := filter.And{publishedReadableBy(actor)}
	if q.ContainerID > 0 {
		where = append(where, filter.Eq{Field: "container_id", Value: q.ContainerID})
	}
	if q.OwnerID > 0 {
		where = append(where, filter.Eq{Field: "owner_id", Value: q.OwnerID})
	}

	offset, limit := q.Window()
	items, total, err := s.ItemRepo.FindAll(ctx, repository.ItemQuery{
		Where:     where,
		Page:      repository.Page{Offset: offset, Limit: limit},
		Order:     itemOrder(q.Order),
		WithOwner: true,
	})
	if err != nil {
		log.Errorf("failed to list items: %v", err)
		return nil, apierror.InternalServerError
	}
	return contract.NewPage(toItemResponses(items), total, offset, limit), nil
}

// ListDrafts lists the actor's unpublished items and published items with
// a pending draft.
func (s *DefaultItemService) ListDrafts(ctx context.Context, actor *entity.User, q *contract.PageQuery) (*contract.Page[*contract.ItemResponse], apierror.ErrorResponse) {
	if valerr := s.Validate.Struct(q); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	where := filter.And{
		filter.Eq{Field: "owner_id", Value: actor.ID},
		filter.Or{
			filter.Eq{Field: "status", Value: entity.ItemStatusDraft},
			filter.And{
				filter.InOf("status", entity.ItemStatusNormal, entity.ItemStatusPendingApproval),
				filter.NotNull{Field: "body_draft"},
			},
		},
	}

	offset, limit := q.Window()
	items, total, err := s.ItemRepo.FindAll(ctx, repository.ItemQuery{
		Where: where,
		Page:  repository.Page{Offset: offset, Limit: limit},
		Order: repository.OrderRecentlyUpdated,
	})
	if err != nil {
		log.Errorf("failed to list drafts of user %d: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}
	return contract.NewPage(toItemResponses(items), total, offset, limit), nil
}

// SearchItems runs a full text query and keeps the hits actor may read, in
// relevance order.
func (s *DefaultItemService) SearchItems(ctx context.Context, actor *entity.User, q *contract.SearchQuery) (*contract.Page[*contract.ItemResponse], apierror.ErrorResponse) {
	utils.Sanitize(q)
	if valerr := s.Validate.Struct(q); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	offset, limit := q.Window()
	hits, err := s.Index.Search(ctx, search.IndexItems, search.Query{
		Text:   q.Q,
		Fields: ItemSearchFields,
		Offset: offset,
		Limit:  limit,
	})
	if errors.Is(err, search.ErrEmptyQuery) {
		return nil, apierror.InvalidQueryError
	}

	if err != nil {
		log.Errorf("failed to search items: %v", err)
		return nil, apierror.InternalServerError
	}

	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		if id, err := strconv.ParseInt(h.ID, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}

	items, err := s.ItemRepo.FindAllInIDs(ctx, ids, publishedReadableBy(actor))
	if err != nil {
		log.Errorf("failed to hydrate search hits: %v", err)
		return nil, apierror.InternalServerError
	}

	ranked := inRankOrder(ids, items)
	return contract.NewPage(toItemResponses(ranked), int64(len(ranked)), offset, limit), nil
}

func (s *DefaultItemService) CreateItem(ctx context.Context, actor *entity.User, req *contract.CreateItemRequest) (*contract.ItemResponse, apierror.ErrorResponse) {
	if !actor.Permissions.HasEffective(entity.PermissionCreateItems) {
		return nil, apierror.NewPermissionError(int64(entity.PermissionCreateItems))
	}

	utils.Sanitize(req)
	if valerr := s.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	status := entity.ItemStatusNormal
	if req.ContainerID != nil {
		view, apierr := s.Containers.Writable(ctx, actor, *req.ContainerID)
		if apierr != nil {
			return nil, apierr
		}
		status = s.ContainerPolicy.InitialItemStatus(view.Container)
	}

	item := &entity.Item{
		ID:          uid.Generate(),
		OwnerID:     actor.ID,
		ContainerID: req.ContainerID,
		Title:       req.Title,
		Tags:        joinTags(req.Tags),
		Status:      status,
	}

	if err := s.Pipeline.Create(ctx, item, req.Body); err != nil {
		return nil, pipelineError("create", item.ID, err)
	}

	item.Owner = actor
	s.notify(actor.ID, &events.ItemCreated{ItemResponse: toItemResponse(item, nil)})
	return toItemResponse(item, &req.Body), nil
}

// UpdateItem publishes a new body version. A missing body in the request
// republishes the current one under a fresh pointer.
func (s *DefaultItemService) UpdateItem(ctx context.Context, actor *entity.User, id int64, req *contract.UpdateItemRequest) (*contract.ItemResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := s.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	view, apierr := s.loadView(ctx, actor, id)
	if apierr != nil {
		return nil, apierr
	}

	if apierr := s.ItemPolicy.CanModify(view, actor); apierr != nil {
		return nil, apierr
	}

	item := view.Item
	if item.IsDraft() {
		return nil, apierror.ItemIsDraftError
	}

	var body string
	if req.Body != nil {
		body = *req.Body
	} else {
		current, err := s.Pipeline.ReadBody(ctx, item, false)
		if err != nil {
			return nil, pipelineError("read body", id, err)
		}
		body = current
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Tags != nil {
		item.Tags = joinTags(req.Tags)
	}

	if err := s.Pipeline.Update(ctx, item, body); err != nil {
		return nil, pipelineError("update", id, err)
	}

	s.notify(actor.ID, &events.ItemUpdated{ItemResponse: toItemResponse(item, nil)})
	return toItemResponse(item, &body), nil
}

func (s *DefaultItemService) CreateDraft(ctx context.Context, actor *entity.User, req *contract.DraftRequest) (*contract.ItemResponse, apierror.ErrorResponse) {
	if !actor.Permissions.HasEffective(entity.PermissionCreateItems) {
		return nil, apierror.NewPermissionError(int64(entity.PermissionCreateItems))
	}

	utils.Sanitize(req)
	if valerr := s.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	if req.ContainerID != nil {
		if _, apierr := s.Containers.Writable(ctx, actor, *req.ContainerID); apierr != nil {
			return nil, apierr
		}
	}

	item := &entity.Item{
		ID:          uid.Generate(),
		OwnerID:     actor.ID,
		ContainerID: req.ContainerID,
		Tags:        joinTags(req.Tags),
	}
	if req.Title != nil {
		item.Title = *req.Title
	}

	if err := s.Pipeline.CreateDraft(ctx, item, req.Body); err != nil {
		return nil, pipelineError("create draft", item.ID, err)
	}
	return toItemResponse(item, &req.Body), nil
}

// SaveDraft overwrites the draft body of an item. Title and tags only
// change on items that were never published; published metadata changes
// go through UpdateItem.
func (s *DefaultItemService) SaveDraft(ctx context.Context, actor *entity.User, id int64, req *contract.DraftRequest) (*contract.ItemResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := s.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	view, apierr := s.loadView(ctx, actor, id)
	if apierr != nil {
		return nil, apierr
	}

	if apierr := s.ItemPolicy.CanModify(view, actor); apierr != nil {
		return nil, apierr
	}

	item := view.Item
	if item.IsDraft() {
		if req.Title != nil {
			item.Title = *req.Title
		}
		if req.Tags != nil {
			item.Tags = joinTags(req.Tags)
		}
	}

	if err := s.Pipeline.UpdateDraft(ctx, item, req.Body); err != nil {
		return nil, pipelineError("save draft", id, err)
	}
	return toItemResponse(item, &req.Body), nil
}

// Publish promotes the pending draft. First publications go through the
// write rules of the container again.
func (s *DefaultItemService) Publish(ctx context.Context, actor *entity.User, id int64) (*contract.ItemResponse, apierror.ErrorResponse) {
	view, apierr := s.loadView(ctx, actor, id)
	if apierr != nil {
		return nil, apierr
	}

	if apierr := s.ItemPolicy.CanModify(view, actor); apierr != nil {
		return nil, apierr
	}

	item := view.Item
	if item.Body.Draft == nil {
		return nil, apierror.NotADraftError
	}

	if item.IsDraft() {
		item.Status = entity.ItemStatusNormal
		if item.ContainerID != nil {
			cview := &policy.ContainerView{Container: view.Container, Memberships: view.Memberships}
			if apierr := s.ContainerPolicy.CanWrite(cview, actor); apierr != nil {
				return nil, apierr
			}
			item.Status = s.ContainerPolicy.InitialItemStatus(view.Container)
		}
	}

	if err := s.Pipeline.Publish(ctx, item); err != nil {
		return nil, pipelineError("publish", id, err)
	}

	s.notify(actor.ID, &events.ItemPublished{ItemResponse: toItemResponse(item, nil)})
	return toItemResponse(item, nil), nil
}

func (s *DefaultItemService) DeleteItem(ctx context.Context, actor *entity.User, id int64) apierror.ErrorResponse {
	view, apierr := s.loadView(ctx, actor, id)
	if apierr != nil {
		return apierr
	}

	if apierr := s.ItemPolicy.CanModify(view, actor); apierr != nil {
		return apierr
	}

	if _, err := s.Pipeline.SoftRemove(ctx, id); err != nil {
		return pipelineError("soft remove", id, err)
	}

	s.notify(actor.ID, &events.ItemDeleted{ItemID: id})
	return nil
}

// PurgeItem hard deletes an item row and its search document.
func (s *DefaultItemService) PurgeItem(ctx context.Context, actor *entity.User, id int64) apierror.ErrorResponse {
	if !actor.Permissions.Has(entity.PermissionAdministrator) {
		return apierror.NewPermissionError(int64(entity.PermissionAdministrator))
	}

	if err := s.Pipeline.Remove(ctx, id); err != nil {
		return pipelineError("remove", id, err)
	}
	return nil
}

func (s *DefaultItemService) loadView(ctx context.Context, actor *entity.User, id int64) (*policy.ItemView, apierror.ErrorResponse) {
	view, err := s.ItemRepo.FindView(ctx, id, actorID(actor))
	if err != nil {
		log.Errorf("failed to fetch item %d: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if apierr := s.ItemPolicy.CanSee(view, actor); apierr != nil {
		return nil, apierr
	}
	return view, nil
}

func (s *DefaultItemService) countView(ctx context.Context, item *entity.Item) {
	if err := s.ItemRepo.AddToCounter(ctx, item.ID, repository.CounterViews, 1); err != nil {
		log.Errorf("failed to count view of item %d: %v", item.ID, err)
		return
	}

	item.AccessCount++
	s.Trending.recordBestEffort(ctx, SignalViews, item.ID, 1)
}

func (s *DefaultItemService) notify(userID int64, evt events.SocketEvent) {
	if s.Notifier == nil {
		return
	}
	go s.Notifier.Dispatch(context.Background(), userID, evt)
}

func itemOrder(o contract.ItemOrder) repository.ItemOrder {
	switch o {
	case contract.ItemOrderUpdated:
		return repository.OrderRecentlyUpdated
	case contract.ItemOrderLiked:
		return repository.OrderMostLiked
	}
	return repository.OrderNewest
}

// pipelineError maps pipeline failures to responses. Dependency failures
// are logged with the failing store.
func pipelineError(op string, id int64, err error) apierror.ErrorResponse {
	var depErr *DependencyWriteError
	switch {
	case errors.As(err, &depErr):
		log.Errorf("%s of item %d failed in the %s store: %v", op, id, depErr.Store, err)
		return apierror.DependencyWriteError
	case errors.Is(err, ErrItemNotFound):
		return apierror.NotFoundError
	case errors.Is(err, ErrNoDraft):
		return apierror.NotADraftError
	case errors.Is(err, ErrBodyMissing):
		log.Warnf("%s of item %d: body missing from storage", op, id)
		return apierror.BodyMissingError
	}

	log.Errorf("%s of item %d failed: %v", op, id, err)
	return apierror.InternalServerError
}

func actorID(actor *entity.User) int64 {
	if actor == nil {
		return 0
	}
	return actor.ID
}
