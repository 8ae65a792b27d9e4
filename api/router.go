package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rxvxrsx/revgrab/api/handlers"
	"github.com/rxvxrsx/revgrab/api/middleware"
	"github.com/rxvxrsx/revgrab/internal/app"
	"github.com/rxvxrsx/revgrab/internal/infrastructure"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	controller *app.SessionController,
	history *infrastructure.SQLiteHistoryStore,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(controller)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		sessionHandler := handlers.NewSessionHandler(controller, log)
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", sessionHandler.StartSession)
			sessions.GET("/current", sessionHandler.GetSession)
			sessions.POST("/current/cancel", sessionHandler.CancelSession)
		}

		if history != nil {
			historyHandler := handlers.NewHistoryHandler(history, log)
			hist := v1.Group("/history")
			{
				hist.GET("", historyHandler.ListSessions)
				hist.GET("/:id", historyHandler.GetSession)
			}
		}
	}

	wsHandler := handlers.NewEventWebSocketHandler(controller.Events(), log)
	router.GET("/ws/events", wsHandler.HandleWebSocket)

	return router
}
