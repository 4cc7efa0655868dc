package server

import (
	"github.com/gin-gonic/gin"

	"github.com/greenfield-shield/authd/auth"
	"github.com/greenfield-shield/authd/server/middleware"
	"github.com/greenfield-shield/authd/user"
)

// RegisterRoutes mounts the auth API and the health endpoints on the engine.
func RegisterRoutes(engine *gin.Engine, h *Handlers, authSvc *auth.Service) {
	engine.GET("/", h.Root)
	engine.GET("/health", h.Health)

	group := engine.Group("/auth")
	group.POST("/login", h.Login)
	group.POST("/register", h.Register)
	group.POST("/refresh", h.Refresh)

	protected := group.Group("")
	protected.Use(middleware.Authenticate(authSvc))
	protected.POST("/change-password", h.ChangePassword)
	protected.GET("/officers", middleware.RequireRole(user.RoleOfficer, user.RoleAdmin), h.Officers)
}
