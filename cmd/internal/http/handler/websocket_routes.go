package handler

import (
	"context"
	"net/http"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/infrastructure/aws/websocket"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type WebSocketService interface {
	RegisterConnection(ctx context.Context, userID int64, connID string, exp int64) apierror.ErrorResponse
	RemoveConnection(ctx context.Context, connectionID string)
	HandleMessage(ctx context.Context, msg *contract.IncomingSocketMessage, connID string)
}

type DefaultWSRoute struct {
	WSService WebSocketService
}

func NewWSDefault(wsService WebSocketService) *DefaultWSRoute {
	return &DefaultWSRoute{WSService: wsService}
}

func (h *DefaultWSRoute) HandleConnect(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	connID := c.Request().Header.Get(websocket.HeaderConnectionID)
	if connID == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("connectionId"))
	}

	token, terr := utils.GetTokenFromContext(c)
	if terr != nil {
		return c.JSON(terr.Code(), terr)
	}

	if apierr := h.WSService.RegisterConnection(c.Request().Context(), user.ID, connID, token.Exp); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}

func (h *DefaultWSRoute) HandleDisconnect(c echo.Context) error {
	connID := c.Request().Header.Get(websocket.HeaderConnectionID)
	if connID != "" {
		h.WSService.RemoveConnection(c.Request().Context(), connID)
	}
	return c.NoContent(http.StatusOK)
}

func (h *DefaultWSRoute) HandleMessage(c echo.Context) error {
	connID := c.Request().Header.Get(websocket.HeaderConnectionID)
	if connID == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("connectionId"))
	}

	var msg contract.IncomingSocketMessage
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	h.WSService.HandleMessage(c.Request().Context(), &msg, connID)
	return c.NoContent(http.StatusOK)
}
