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

type InteractionService interface {
	Like(ctx context.Context, actor *entity.User, itemID int64) (*contract.InteractionResponse, apierror.ErrorResponse)
	Unlike(ctx context.Context, actor *entity.User, itemID int64) (*contract.InteractionResponse, apierror.ErrorResponse)
	Stock(ctx context.Context, actor *entity.User, itemID int64) (*contract.InteractionResponse, apierror.ErrorResponse)
	Unstock(ctx context.Context, actor *entity.User, itemID int64) (*contract.InteractionResponse, apierror.ErrorResponse)
	ListStocks(ctx context.Context, actor *entity.User, q *contract.PageQuery) (*contract.Page[*contract.ItemResponse], apierror.ErrorResponse)
	Follow(ctx context.Context, actor *entity.User, followeeID int64) (*contract.FollowResponse, apierror.ErrorResponse)
	Unfollow(ctx context.Context, actor *entity.User, followeeID int64) (*contract.FollowResponse, apierror.ErrorResponse)
	ListFollowers(ctx context.Context, userID int64, q *contract.PageQuery) (*contract.Page[*contract.UserResponse], apierror.ErrorResponse)
}

type itemAction func(ctx context.Context, actor *entity.User, itemID int64) (*contract.InteractionResponse, apierror.ErrorResponse)

type userAction func(ctx context.Context, actor *entity.User, userID int64) (*contract.FollowResponse, apierror.ErrorResponse)

type DefaultInteractionRoute struct {
	InteractionService InteractionService
}

func NewInteractionDefault(interactionService InteractionService) *DefaultInteractionRoute {
	return &DefaultInteractionRoute{InteractionService: interactionService}
}

func (h *DefaultInteractionRoute) Like(c echo.Context) error {
	return h.onItem(c, h.InteractionService.Like)
}

func (h *DefaultInteractionRoute) Unlike(c echo.Context) error {
	return h.onItem(c, h.InteractionService.Unlike)
}

func (h *DefaultInteractionRoute) Stock(c echo.Context) error {
	return h.onItem(c, h.InteractionService.Stock)
}

func (h *DefaultInteractionRoute) Unstock(c echo.Context) error {
	return h.onItem(c, h.InteractionService.Unstock)
}

func (h *DefaultInteractionRoute) Follow(c echo.Context) error {
	return h.onUser(c, h.InteractionService.Follow)
}

func (h *DefaultInteractionRoute) Unfollow(c echo.Context) error {
	return h.onUser(c, h.InteractionService.Unfollow)
}

func (h *DefaultInteractionRoute) GetStocks(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	var q contract.PageQuery
	if apierr := bindQuery(c, &q); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	page, apierr := h.InteractionService.ListStocks(c.Request().Context(), user, &q)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *DefaultInteractionRoute) GetFollowers(c echo.Context) error {
	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	var q contract.PageQuery
	if apierr := bindQuery(c, &q); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	page, apierr := h.InteractionService.ListFollowers(c.Request().Context(), id, &q)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *DefaultInteractionRoute) onItem(c echo.Context, action itemAction) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp, apierr := action(c.Request().Context(), user, id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *DefaultInteractionRoute) onUser(c echo.Context, action userAction) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp, apierr := action(c.Request().Context(), user, id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}
