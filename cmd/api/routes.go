package main

import (
	"circlenotes/cmd/internal/http/handler"
	"circlenotes/cmd/internal/http/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func (a *app) router() *echo.Echo {
	items := handler.NewItemDefault(a.items)
	containers := handler.NewContainerDefault(a.containers)
	interactions := handler.NewInteractionDefault(a.interactions)
	users := handler.NewUserDefault(a.users)
	trending := handler.NewTrendingDefault(a.trending, a.validate)
	ws := handler.NewWSDefault(a.websockets)

	authCfg := &middleware.AuthMiddlewareConfig{Tokens: a.tokens, Identity: a.identity}
	auth := middleware.NewAuthMiddleware(authCfg)
	optional := middleware.NewOptionalAuthMiddleware(authCfg)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit(a.cfg.BodyLimit))

	api := e.Group("/api")

	// Items
	api.GET("/items", items.GetItems, optional)
	api.GET("/items/search", items.SearchItems, optional)
	api.GET("/items/trending", trending.GetTrending, optional)
	api.GET("/items/:id", items.GetItem, optional)
	api.POST("/items", items.CreateItem, auth)
	api.PATCH("/items/:id", items.UpdateItem, auth)
	api.DELETE("/items/:id", items.DeleteItem, auth)
	api.DELETE("/items/:id/blobs", items.PurgeItem, auth)

	// Drafts
	api.GET("/drafts", items.GetDrafts, auth)
	api.POST("/drafts", items.CreateDraft, auth)
	api.GET("/drafts/:id", items.GetDraft, auth)
	api.PUT("/drafts/:id", items.SaveDraft, auth)
	api.POST("/drafts/:id/publish", items.Publish, auth)

	// Interactions
	api.PUT("/items/:id/like", interactions.Like, auth)
	api.DELETE("/items/:id/like", interactions.Unlike, auth)
	api.PUT("/items/:id/stock", interactions.Stock, auth)
	api.DELETE("/items/:id/stock", interactions.Unstock, auth)
	api.GET("/stocks", interactions.GetStocks, auth)

	// Containers
	api.GET("/containers", containers.GetContainers)
	api.POST("/containers", containers.CreateContainer, auth)
	api.GET("/containers/:handle", containers.GetContainer, optional)
	api.DELETE("/containers/:handle", containers.DeleteContainer, auth)
	api.GET("/containers/:handle/members", containers.GetMembers, optional)
	api.PUT("/containers/:handle/members/@me", containers.Join, auth)
	api.DELETE("/containers/:handle/members/@me", containers.Leave, auth)

	// Users
	api.GET("/users/:id", users.GetUser, optional)
	api.PATCH("/users/@me", users.UpdateSelf, auth)
	api.DELETE("/users/@me", users.DeleteSelf, auth)
	api.PUT("/users/:id/follow", interactions.Follow, auth)
	api.DELETE("/users/:id/follow", interactions.Unfollow, auth)
	api.GET("/users/:id/followers", interactions.GetFollowers)

	// API Gateway websocket integration
	api.POST("/ws/connect", ws.HandleConnect, auth)
	api.POST("/ws/disconnect", ws.HandleDisconnect)
	api.POST("/ws/message", ws.HandleMessage)

	e.GET("/health", handler.HealthCheck)
	return e
}
