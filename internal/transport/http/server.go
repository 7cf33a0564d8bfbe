package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-server/internal/auth"
	"github.com/vovakirdan/wirechat-server/internal/config"
	"github.com/vovakirdan/wirechat-server/internal/core"
	"github.com/vovakirdan/wirechat-server/internal/service/calls"
	"github.com/vovakirdan/wirechat-server/internal/service/friends"
	"github.com/vovakirdan/wirechat-server/internal/store"
)

// NewServer builds the HTTP server: the gin-based REST API (auth, rooms,
// friends, calls) plus the raw net/http WebSocket upgrade endpoint.
func NewServer(hub core.Hub, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger, callsService *calls.Service, engines *core.EngineFactory, registry *core.CallRegistry) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) { c.String(stdhttp.StatusOK, "ok") })

	apiHandlers := NewAPIHandlers(authService, logger)
	roomHandlers := NewRoomHandlers(st, logger)
	userHandlers := NewUserHandlers(st, logger)
	friendsHandlers := NewFriendsHandlers(friends.New(st), st, logger)
	callsHandlers := NewCallsHandlers(callsService, logger)

	api := router.Group("/api")
	{
		api.POST("/register", apiHandlers.Register)
		api.POST("/login", apiHandlers.Login)
		api.POST("/guest", apiHandlers.GuestLogin)
	}

	authed := router.Group("/api")
	authed.Use(AuthMiddleware(authService, logger))
	{
		authed.POST("/rooms", roomHandlers.CreateRoom)
		authed.GET("/rooms", roomHandlers.ListRooms)

		authed.GET("/users/search", userHandlers.SearchUsers)

		authed.POST("/friends/requests", friendsHandlers.SendRequest)
		authed.GET("/friends", friendsHandlers.ListFriends)
		authed.GET("/friends/requests/incoming", friendsHandlers.ListPendingRequests)
		authed.POST("/friends/:userId/accept", friendsHandlers.AcceptRequest)
		authed.DELETE("/friends/:userId/reject", friendsHandlers.RejectRequest)
		authed.POST("/friends/:userId/block", friendsHandlers.BlockUser)
		authed.DELETE("/friends/:userId/unblock", friendsHandlers.UnblockUser)

		authed.POST("/calls/direct", callsHandlers.CreateDirectCall)
		authed.POST("/calls/room", callsHandlers.CreateRoomCall)
		authed.GET("/calls/active", callsHandlers.ListActiveCalls)
		authed.GET("/calls/:id", callsHandlers.GetCall)
		authed.GET("/calls/:id/join", callsHandlers.GetJoinInfo)
		authed.PUT("/calls/:id/end", callsHandlers.EndCall)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, engines, registry, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
