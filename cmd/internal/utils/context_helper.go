package utils

import (
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const (
	ContextUserKey  = "user"
	ContextTokenKey = "token"
)

func GetUserFromContext(c echo.Context) (*entity.User, apierror.ErrorResponse) {
	val := c.Get(ContextUserKey)
	if val == nil {
		log.Warnf("route %s attempted to read nil user from context", c.Request().URL)
		return nil, apierror.UnauthorizedError
	}

	user, ok := val.(*entity.User)
	if !ok {
		log.Warnf("expected user type at 'user' context key, got %v", user)
		return nil, apierror.InternalServerError
	}
	return user, nil
}

func GetTokenFromContext(c echo.Context) (*TokenData, apierror.ErrorResponse) {
	token, ok := c.Get(ContextTokenKey).(*TokenData)
	if !ok || token == nil {
		return nil, apierror.UnauthorizedError
	}
	return token, nil
}

// GetActorFromContext returns the authenticated user, or nil for anonymous
// readers on routes behind the optional auth middleware.
func GetActorFromContext(c echo.Context) *entity.User {
	user, _ := c.Get(ContextUserKey).(*entity.User)
	return user
}
