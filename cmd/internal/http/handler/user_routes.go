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

type UserService interface {
	GetUser(ctx context.Context, actor *entity.User, ref string) (*contract.UserResponse, apierror.ErrorResponse)
	UpdateSelf(ctx context.Context, actor *entity.User, req *contract.UpdateUserRequest) (*contract.UserResponse, apierror.ErrorResponse)
	DeleteSelf(ctx context.Context, actor *entity.User) apierror.ErrorResponse
}

type DefaultUserRoute struct {
	UserService UserService
}

func NewUserDefault(userService UserService) *DefaultUserRoute {
	return &DefaultUserRoute{UserService: userService}
}

// GetUser accepts an id, a handle or "@me".
func (u *DefaultUserRoute) GetUser(c echo.Context) error {
	ref, apierr := pathString(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp, apierr := u.UserService.GetUser(c.Request().Context(), utils.GetActorFromContext(c), ref)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (u *DefaultUserRoute) UpdateSelf(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	var req contract.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	resp, apierr := u.UserService.UpdateSelf(c.Request().Context(), user, &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (u *DefaultUserRoute) DeleteSelf(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	if apierr := u.UserService.DeleteSelf(c.Request().Context(), user); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusNoContent)
}
