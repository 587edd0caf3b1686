// Package http assembles the gin engine.
package http

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blocklotto/internal/interfaces/http/handlers"
	"blocklotto/internal/interfaces/http/middleware"
	"blocklotto/internal/interfaces/http/routes"
	"blocklotto/internal/shared/logger"
)

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	BetHandler  *handlers.BetHandler
	DrawHandler *handlers.DrawHandler
	DB          *gorm.DB
	Logger      logger.Interface
	Mode        string
}

// NewRouter builds the engine with middleware and all routes mounted.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(deps.Mode)

	engine := gin.New()
	engine.Use(
		middleware.Recovery(deps.Logger),
		middleware.RequestLogging(deps.Logger),
		middleware.CORS(),
	)

	engine.GET("/health", handlers.NewHealthHandler(deps.DB).Health)

	api := engine.Group("/api")
	routes.RegisterBetRoutes(api, deps.BetHandler)
	routes.RegisterDrawRoutes(api, deps.DrawHandler)

	return engine
}
