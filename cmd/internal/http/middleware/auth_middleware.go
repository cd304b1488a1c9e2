package middleware

import (
	"context"
	"net/http"

	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type TokenParser interface {
	ParseTokenDataCtx(c echo.Context) (*utils.TokenData, error)
}

type IdentityResolver interface {
	Resolve(ctx context.Context, token *utils.TokenData) (*entity.User, apierror.ErrorResponse)
}

type AuthMiddlewareConfig struct {
	Tokens   TokenParser
	Identity IdentityResolver
}

// NewAuthMiddleware rejects requests without a valid bearer token.
func NewAuthMiddleware(cfg *AuthMiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenData, err := cfg.Tokens.ParseTokenDataCtx(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
			}

			if apierr := authenticate(c, cfg.Identity, tokenData); apierr != nil {
				return c.JSON(apierr.Code(), apierr)
			}
			return next(c)
		}
	}
}

// NewOptionalAuthMiddleware lets anonymous requests through. A request that
// does carry a token must still present a valid one.
func NewOptionalAuthMiddleware(cfg *AuthMiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(c)
			}

			tokenData, err := cfg.Tokens.ParseTokenDataCtx(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
			}

			if apierr := authenticate(c, cfg.Identity, tokenData); apierr != nil {
				return c.JSON(apierr.Code(), apierr)
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, identity IdentityResolver, tokenData *utils.TokenData) apierror.ErrorResponse {
	user, apierr := identity.Resolve(c.Request().Context(), tokenData)
	if apierr != nil {
		return apierr
	}

	c.Set(utils.ContextUserKey, user)
	c.Set(utils.ContextTokenKey, tokenData)
	return nil
}
