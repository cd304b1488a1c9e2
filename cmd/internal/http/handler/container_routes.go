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

type ContainerService interface {
	CreateContainer(ctx context.Context, actor *entity.User, req *contract.CreateContainerRequest) (*contract.ContainerResponse, apierror.ErrorResponse)
	GetContainer(ctx context.Context, actor *entity.User, handle string) (*contract.ContainerResponse, apierror.ErrorResponse)
	ListContainers(ctx context.Context, q *contract.PageQuery) (*contract.Page[*contract.ContainerResponse], apierror.ErrorResponse)
	Join(ctx context.Context, actor *entity.User, handle string) (*contract.MembershipResponse, apierror.ErrorResponse)
	Leave(ctx context.Context, actor *entity.User, handle string) apierror.ErrorResponse
	ListMembers(ctx context.Context, actor *entity.User, handle string, q *contract.PageQuery) (*contract.Page[*contract.MembershipResponse], apierror.ErrorResponse)
	DeleteContainer(ctx context.Context, actor *entity.User, handle string) apierror.ErrorResponse
}

type DefaultContainerRoute struct {
	ContainerService ContainerService
}

func NewContainerDefault(containerService ContainerService) *DefaultContainerRoute {
	return &DefaultContainerRoute{ContainerService: containerService}
}

func (h *DefaultContainerRoute) GetContainers(c echo.Context) error {
	var q contract.PageQuery
	if apierr := bindQuery(c, &q); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	page, apierr := h.ContainerService.ListContainers(c.Request().Context(), &q)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *DefaultContainerRoute) GetContainer(c echo.Context) error {
	handle, apierr := pathString(c, "handle")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	container, apierr := h.ContainerService.GetContainer(c.Request().Context(), utils.GetActorFromContext(c), handle)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, container)
}

func (h *DefaultContainerRoute) CreateContainer(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	var req contract.CreateContainerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	container, apierr := h.ContainerService.CreateContainer(c.Request().Context(), user, &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, container)
}

func (h *DefaultContainerRoute) DeleteContainer(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	handle, apierr := pathString(c, "handle")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	if apierr := h.ContainerService.DeleteContainer(c.Request().Context(), user, handle); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *DefaultContainerRoute) Join(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	handle, apierr := pathString(c, "handle")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	membership, apierr := h.ContainerService.Join(c.Request().Context(), user, handle)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, membership)
}

func (h *DefaultContainerRoute) Leave(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	handle, apierr := pathString(c, "handle")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	if apierr := h.ContainerService.Leave(c.Request().Context(), user, handle); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *DefaultContainerRoute) GetMembers(c echo.Context) error {
	handle, apierr := pathString(c, "handle")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	var q contract.PageQuery
	if apierr := bindQuery(c, &q); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	page, apierr := h.ContainerService.ListMembers(c.Request().Context(), utils.GetActorFromContext(c), handle, &q)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, page)
}
