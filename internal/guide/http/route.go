package http

import (
	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/guides")

	// === Public Routes ===
	group.GET("", h.List)
	group.GET("/:id", h.Get)

	// === Guide-only Routes ===
	mine := group.Group("/me", authMiddleware, auth.RequireRole(auth.RoleGuide))
	{
		mine.PUT("", h.SaveMine)
		mine.POST("/photo", h.UploadPhoto)
	}
}
