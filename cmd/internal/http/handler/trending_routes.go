package handler

import (
	"context"
	"net/http"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type TrendingService interface {
	Trending(ctx context.Context, actor *entity.User, period contract.TrendingPeriod, count int) ([]*contract.ItemResponse, apierror.ErrorResponse)
}

type DefaultTrendingRoute struct {
	TrendingService TrendingService
	Validate        *validator.Validate
}

func NewTrendingDefault(trendingService TrendingService, validate *validator.Validate) *DefaultTrendingRoute {
	return &DefaultTrendingRoute{TrendingService: trendingService, Validate: validate}
}

func (h *DefaultTrendingRoute) GetTrending(c echo.Context) error {
	var q contract.TrendingQuery
	if apierr := bindQuery(c, &q); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	if err := h.Validate.Struct(&q); err != nil {
		apierr := apierror.FromValidationError(err)
		return c.JSON(apierr.Code(), apierr)
	}

	items, apierr := h.TrendingService.Trending(c.Request().Context(), utils.GetActorFromContext(c), q.Period, q.Count)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"items": items}
	return c.JSON(http.StatusOK, &resp)
}
