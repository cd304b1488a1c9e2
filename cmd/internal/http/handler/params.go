package handler

import (
	"net/http"
	"strings"

	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

func pathID(c echo.Context, name string) (int64, apierror.ErrorResponse) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		return 0, apierror.InvalidIDError
	}
	return id, nil
}

func pathString(c echo.Context, name string) (string, apierror.ErrorResponse) {
	val := strings.TrimSpace(c.Param(name))
	if val == "" {
		return "", apierror.NewMissingParamError(name)
	}
	return val, nil
}

func bindQuery(c echo.Context, dst any) apierror.ErrorResponse {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, dst); err != nil {
		return apierror.NewSimple(http.StatusBadRequest, "Malformed query parameters")
	}
	return nil
}

func HealthCheck(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}
