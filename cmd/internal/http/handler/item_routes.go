package handler

import (
	"context"
	"net/http"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type ItemService interface {
	GetItem(ctx context.Context, actor *entity.User, id int64) (*contract.ItemResponse, apierror.ErrorResponse)
	GetDraft(ctx context.Context, actor *entity.User, id int64) (*contract.ItemResponse, apierror.ErrorResponse)
	ListItems(ctx context.Context, actor *entity.User, q *contract.ItemListQuery) (*contract.Page[*contract.ItemResponse], apierror.ErrorResponse)
	ListDrafts(ctx context.Context, actor *entity.User, q *contract.PageQuery) (*contract.Page[*contract.ItemResponse], apierror.ErrorResponse)
	SearchItems(ctx context.Context, actor *entity.User, q *contract.SearchQuery) (*contract.Page[*contract.ItemResponse], apierror.ErrorResponse)
	CreateItem(ctx context.Context, actor *entity.User, req *contract.CreateItemRequest) (*contract.ItemResponse, apierror.ErrorResponse)
	UpdateItem(ctx context.Context, actor *entity.User, id int64, req *contract.UpdateItemRequest) (*contract.ItemResponse, apierror.ErrorResponse)
	CreateDraft(ctx context.Context, actor *entity.User, req *contract.DraftRequest) (*contract.ItemResponse, apierror.ErrorResponse)
	SaveDraft(ctx context.Context, actor *entity.User, id int64, req *contract.DraftRequest) (*contract.ItemResponse, apierror.ErrorResponse)
	Publish(ctx context.Context, actor *entity.User, id int64) (*contract.ItemResponse, apierror.ErrorResponse)
	DeleteItem(ctx context.Context, actor *entity.User, id int64) apierror.ErrorResponse
	PurgeItem(ctx context.Context, actor *entity.User, id int64) apierror.ErrorResponse
}

type DefaultItemRoute struct {
	ItemService ItemService
}

func NewItemDefault(itemService ItemService) *DefaultItemRoute {
	return &DefaultItemRoute{ItemService: itemService}
}

func (h *DefaultItemRoute) GetItems(c echo.Context) error {
	var q contract.ItemListQuery
	if apierr := bindQuery(c, &q); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	page, apierr := h.ItemService.ListItems(c.Request().Context(), utils.GetActorFromContext(c), &q)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *DefaultItemRoute) SearchItems(c echo.Context) error {
	var q contract.SearchQuery
	if apierr := bindQuery(c, &q); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	page, apierr := h.ItemService.SearchItems(c.Request().Context(), utils.GetActorFromContext(c), &q)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *DefaultItemRoute) GetItem(c echo.Context) error {
	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	item, apierr := h.ItemService.GetItem(c.Request().Context(), utils.GetActorFromContext(c), id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *DefaultItemRoute) CreateItem(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	var req contract.CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	item, apierr := h.ItemService.CreateItem(c.Request().Context(), user, &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *DefaultItemRoute) UpdateItem(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	var req contract.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	item, apierr := h.ItemService.UpdateItem(c.Request().Context(), user, id, &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *DefaultItemRoute) DeleteItem(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	if apierr := h.ItemService.DeleteItem(c.Request().Context(), user, id); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *DefaultItemRoute) PurgeItem(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	if apierr := h.ItemService.PurgeItem(c.Request().Context(), user, id); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *DefaultItemRoute) GetDrafts(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	var q contract.PageQuery
	if apierr := bindQuery(c, &q); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	page, apierr := h.ItemService.ListDrafts(c.Request().Context(), user, &q)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *DefaultItemRoute) GetDraft(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	item, apierr := h.ItemService.GetDraft(c.Request().Context(), user, id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *DefaultItemRoute) CreateDraft(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	var req contract.DraftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	item, apierr := h.ItemService.CreateDraft(c.Request().Context(), user, &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *DefaultItemRoute) SaveDraft(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	var req contract.DraftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	item, apierr := h.ItemService.SaveDraft(c.Request().Context(), user, id, &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *DefaultItemRoute) Publish(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	item, apierr := h.ItemService.Publish(c.Request().Context(), user, id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, item)
}
