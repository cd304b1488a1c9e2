package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type stubTokens struct{}

func (stubTokens) ParseTokenDataCtx(c echo.Context) (*utils.TokenData, error) {
	switch c.Request().Header.Get(echo.HeaderAuthorization) {
	case "Bearer good":
		return &utils.TokenData{Sub: "sub-good"}, nil
	case "Bearer banned":
		return &utils.TokenData{Sub: "sub-banned"}, nil
	}
	return nil, errors.New("bad token")
}

type stubIdentity struct{}

func (stubIdentity) Resolve(_ context.Context, token *utils.TokenData) (*entity.User, apierror.ErrorResponse) {
	if token.Sub == "sub-banned" {
		return nil, apierror.InvalidAuthTokenError
	}
	return &entity.User{ID: 7, Subject: token.Sub, Status: entity.UserStatusActive}, nil
}

func run(mw echo.MiddlewareFunc, authorization string) (*httptest.ResponseRecorder, *entity.User) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *entity.User
	_ = mw(func(c echo.Context) error {
		seen = utils.GetActorFromContext(c)
		return c.NoContent(http.StatusNoContent)
	})(c)
	return rec, seen
}

func TestAuthMiddleware(t *testing.T) {
	mw := NewAuthMiddleware(&AuthMiddlewareConfig{Tokens: stubTokens{}, Identity: stubIdentity{}})

	tests := []struct {
		name   string
		header string
		status int
		userID int64
	}{
		{name: "valid", header: "Bearer good", status: http.StatusNoContent, userID: 7},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "malformed", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "inactive user", header: "Bearer banned", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, user := run(mw, tt.header)
			assert.Equal(t, tt.status, rec.Code)
			if tt.userID == 0 {
				assert.Nil(t, user)
				return
			}
			if assert.NotNil(t, user) {
				assert.Equal(t, tt.userID, user.ID)
			}
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	mw := NewOptionalAuthMiddleware(&AuthMiddlewareConfig{Tokens: stubTokens{}, Identity: stubIdentity{}})

	rec, user := run(mw, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, user)

	rec, user = run(mw, "Bearer good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotNil(t, user)

	rec, _ = run(mw, "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a token that is present must be valid")
}
